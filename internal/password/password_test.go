package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNew_UnknownAlgorithm(t *testing.T) {
	t.Parallel()

	_, err := New("md5", 0)
	require.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestHashAndCompare_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		algorithm string
		prefix    string
	}{
		{algorithm: AlgorithmBcrypt, prefix: "$2a$"},
		{algorithm: "", prefix: "$2a$"},
		{algorithm: AlgorithmArgon2id, prefix: "$argon2id$"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run("alg_"+tt.algorithm, func(t *testing.T) {
			t.Parallel()

			h, err := New(tt.algorithm, bcrypt.MinCost)
			require.NoError(t, err)

			hash, err := h.Hash("Abcdef1!")
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, tt.prefix), hash)

			ok, err := h.Compare(hash, "Abcdef1!")
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = h.Compare(hash, "wrong")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestCompare_CrossAlgorithm(t *testing.T) {
	t.Parallel()

	bc, err := New(AlgorithmBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	ar, err := New(AlgorithmArgon2id, 0)
	require.NoError(t, err)

	oldHash, err := bc.Hash("secret-1A!")
	require.NoError(t, err)

	// после перехода на argon2id старые bcrypt-хэши продолжают проверяться
	ok, err := ar.Compare(oldHash, "secret-1A!")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCompare_UnknownOrCorruptedHash(t *testing.T) {
	t.Parallel()

	h, err := New(AlgorithmBcrypt, bcrypt.MinCost)
	require.NoError(t, err)

	_, err = h.Compare("plain-text", "x")
	require.ErrorIs(t, err, ErrUnknownAlgorithm)

	_, err = h.Compare("", "x")
	require.ErrorIs(t, err, ErrUnknownAlgorithm)

	_, err = h.Compare("$argon2id$garbage", "x")
	require.Error(t, err)
}
