package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Authentication("ok")
	m.Authentication("ok")
	m.Authentication("blacklisted")
	m.TokenIssued("access")
	m.LedgerFailure("record")
	m.OTP("login", "started")
	m.Revoked("logout", 1)
	m.Revoked("block_user", 3)
	m.Revoked("noop", 0)

	require.Equal(t, 2.0, testutil.ToFloat64(m.authentications.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.authentications.WithLabelValues("blacklisted")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.tokensIssued.WithLabelValues("access")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ledgerFailures.WithLabelValues("record")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.otp.WithLabelValues("login", "started")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.revocations.WithLabelValues("block_user")))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	// Revoked с нулём серию не создаёт.
	require.Equal(t, 7, n)
	require.Equal(t, 2, testutil.CollectAndCount(m.revocations))
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.Authentication("ok")
		m.TokenIssued("access")
		m.LedgerFailure("record")
		m.OTP("login", "started")
		m.Revoked("logout", 1)
	})
}

func TestNew_DoubleRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg)
	require.Panics(t, func() { New(reg) })
}
