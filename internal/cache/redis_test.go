package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты Redis-хранилища (образ redis:7-alpine).
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/cache -run Integration -v -count=1

func startRedis(t *testing.T) Store {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	st, err := NewRedisStore(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()), "test:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func TestNewRedisStore_BadURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedisStore(context.Background(), "://nope", "")
	require.Error(t, err)
}

func TestIntegration_RedisStore_SetGetDeleteTTL(t *testing.T) {
	st := startRedis(t)
	ctx := context.Background()

	_, ok, err := st.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, st.Set(ctx, "k", []byte("v"), time.Second))
	got, ok, err := st.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), got)

	require.Eventually(t, func() bool {
		_, ok, err := st.Get(ctx, "k")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond)

	require.NoError(t, st.Set(ctx, "d", []byte("v"), time.Minute))
	removed, err := st.Delete(ctx, "d")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = st.Delete(ctx, "d")
	require.NoError(t, err)
	require.False(t, removed)

	_, ok, err = st.Get(ctx, "d")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIntegration_RedisBlacklistAndOTP(t *testing.T) {
	st := startRedis(t)
	ctx := context.Background()

	bl := NewBlacklist(st, time.Minute)
	require.NoError(t, bl.Add(ctx, "2f.some.token"))
	ok, err := bl.Contains(ctx, "2f.some.token")
	require.NoError(t, err)
	require.True(t, ok)

	b := NewOTPBroker(st, time.Minute)
	uid := uuid.New()
	require.NoError(t, b.Start(ctx, "9876543210", "4821", uid, false))

	_, err = b.Verify(ctx, "9876543210", "0000")
	require.ErrorIs(t, err, ErrOTPMismatch)

	sess, err := b.Verify(ctx, "9876543210", "4821")
	require.NoError(t, err)
	require.Equal(t, uid, sess.UserID)

	require.NoError(t, b.Consume(ctx, "9876543210"))
	require.ErrorIs(t, b.Consume(ctx, "9876543210"), ErrOTPExpiredOrMissing)
	_, err = b.Verify(ctx, "9876543210", "4821")
	require.ErrorIs(t, err, ErrOTPExpiredOrMissing)
}
