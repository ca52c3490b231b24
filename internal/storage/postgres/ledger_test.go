package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestIntegration_Ledger_RecordAndBlockIdempotent(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	uid := uuid.New()

	require.NoError(t, st.RecordToken(ctx, uid, "2f.a"))
	require.NoError(t, st.RecordToken(ctx, uid, "2f.b"))
	// повтор той же пары не создаёт дубликат
	require.NoError(t, st.RecordToken(ctx, uid, "2f.a"))

	active, err := st.ActiveTokens(ctx, uid, time.Time{})
	require.NoError(t, err)
	require.Len(t, active, 2)

	require.NoError(t, st.BlockToken(ctx, uid, "2f.a"))
	require.NoError(t, st.BlockToken(ctx, uid, "2f.a"))

	active, err = st.ActiveTokens(ctx, uid, time.Time{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "2f.b", active[0].Token)

	var rows int
	require.NoError(t, st.db.QueryRow(ctx,
		`SELECT count(*) FROM user_token_logs WHERE user_id = $1 AND user_token = $2`, uid, "2f.a",
	).Scan(&rows))
	require.Equal(t, 1, rows)
}

func TestIntegration_Ledger_BlockUnknownTokenInsertsBlocked(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	uid := uuid.New()

	require.NoError(t, st.BlockToken(ctx, uid, "2f.untracked"))

	var blocked bool
	require.NoError(t, st.db.QueryRow(ctx,
		`SELECT is_blocked FROM user_token_logs WHERE user_id = $1 AND user_token = $2`, uid, "2f.untracked",
	).Scan(&blocked))
	require.True(t, blocked)

	active, err := st.ActiveTokens(ctx, uid, time.Time{})
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestIntegration_Ledger_ActiveTokensSinceAndBlockAll(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	uid, other := uuid.New(), uuid.New()

	require.NoError(t, st.RecordToken(ctx, uid, "old"))
	_, err := st.db.Exec(ctx,
		`UPDATE user_token_logs SET created_at = now() - interval '30 days' WHERE user_token = 'old'`)
	require.NoError(t, err)

	require.NoError(t, st.RecordToken(ctx, uid, "fresh-1"))
	require.NoError(t, st.RecordToken(ctx, uid, "fresh-2"))
	require.NoError(t, st.RecordToken(ctx, other, "foreign"))

	active, err := st.ActiveTokens(ctx, uid, time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, active, 2)
	for _, e := range active {
		require.Equal(t, uid, e.UserID)
		require.False(t, e.Blocked)
	}

	n, err := st.BlockAllTokens(ctx, uid)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	n, err = st.BlockAllTokens(ctx, uid)
	require.NoError(t, err)
	require.EqualValues(t, 0, n)

	foreign, err := st.ActiveTokens(ctx, other, time.Time{})
	require.NoError(t, err)
	require.Len(t, foreign, 1)
}
