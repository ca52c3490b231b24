// metrics - счётчики Prometheus для auth-ядра. Все методы безопасны
// для nil-получателя, поэтому сервис можно собрать без метрик.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "realty_auth"

// Metrics агрегирует счётчики сервиса.
type Metrics struct {
	authentications *prometheus.CounterVec
	tokensIssued    *prometheus.CounterVec
	ledgerFailures  *prometheus.CounterVec
	otp             *prometheus.CounterVec
	revocations     *prometheus.CounterVec
}

// New регистрирует счётчики в reg (обычно prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		authentications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authentications_total",
			Help:      "Bearer authentication outcomes by result.",
		}, []string{"result"}),
		tokensIssued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Issued tokens by kind.",
		}, []string{"kind"}),
		ledgerFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_failures_total",
			Help:      "Token ledger write failures by operation.",
		}, []string{"op"}),
		otp: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_events_total",
			Help:      "OTP session events by purpose and event.",
		}, []string{"purpose", "event"}),
		revocations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revocations_total",
			Help:      "Revoked tokens by reason.",
		}, []string{"reason"}),
	}
}

// Authentication учитывает исход проверки bearer-токена.
func (m *Metrics) Authentication(result string) {
	if m == nil {
		return
	}
	m.authentications.WithLabelValues(result).Inc()
}

// TokenIssued учитывает выпуск токена.
func (m *Metrics) TokenIssued(kind string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(kind).Inc()
}

// LedgerFailure учитывает неудачную запись в журнал.
func (m *Metrics) LedgerFailure(op string) {
	if m == nil {
		return
	}
	m.ledgerFailures.WithLabelValues(op).Inc()
}

// OTP учитывает событие OTP-сессии.
func (m *Metrics) OTP(purpose, event string) {
	if m == nil {
		return
	}
	m.otp.WithLabelValues(purpose, event).Inc()
}

// Revoked учитывает отзыв n токенов.
func (m *Metrics) Revoked(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.revocations.WithLabelValues(reason).Add(float64(n))
}
