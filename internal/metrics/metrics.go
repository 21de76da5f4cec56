// Package metrics holds the prometheus collectors for attendance decisions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks scan outcomes, ledger commits, biometric matches and QR
// issuance.  A nil *Metrics is valid and records nothing.
type Metrics struct {
	ScanDecisions  *prometheus.CounterVec
	ScanDuration   *prometheus.HistogramVec
	Punches        *prometheus.CounterVec
	LedgerRetries  prometheus.Counter
	MatchScore     prometheus.Histogram
	MatchDuration  prometheus.Histogram
	TokensIssued   prometheus.Counter
	NotifyFailures prometheus.Counter
	PrunedRows     *prometheus.CounterVec
}

// New registers every collector on reg.  Tests pass a fresh
// prometheus.NewRegistry() so registrations never collide.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ScanDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_scan_decisions_total",
			Help: "Kiosk scan resolutions by evidence kind and outcome",
		}, []string{"evidence", "outcome"}),
		ScanDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rollcall_scan_duration_seconds",
			Help:    "Duration of one kiosk scan resolution",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"evidence"}),
		Punches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_punches_total",
			Help: "Committed punch transitions by action and source",
		}, []string{"action", "source"}),
		LedgerRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_ledger_reresolve_total",
			Help: "Resolutions re-run after losing an open-session race",
		}),
		MatchScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rollcall_biometric_best_score",
			Help:    "Best candidate score per biometric capture",
			Buckets: []float64{200, 400, 600, 800, 1000, 1200, 1400, 1600, 1800, 2000},
		}),
		MatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rollcall_biometric_match_duration_seconds",
			Help:    "Duration of one linear template scan",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 0.8, 1},
		}),
		TokensIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_qr_tokens_issued_total",
			Help: "QR tokens minted",
		}),
		NotifyFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_notify_failures_total",
			Help: "Punch events the realtime notifier failed to accept",
		}),
		PrunedRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_pruned_rows_total",
			Help: "Rows removed by retention pruners",
		}, []string{"target"}),
	}
}

func (m *Metrics) ObserveScan(evidence, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.ScanDecisions.WithLabelValues(evidence, outcome).Inc()
	m.ScanDuration.WithLabelValues(evidence).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncPunch(action, source string) {
	if m == nil {
		return
	}
	m.Punches.WithLabelValues(action, source).Inc()
}

func (m *Metrics) IncLedgerRetry() {
	if m == nil {
		return
	}
	m.LedgerRetries.Inc()
}

func (m *Metrics) ObserveMatch(score int, start time.Time) {
	if m == nil {
		return
	}
	m.MatchScore.Observe(float64(score))
	m.MatchDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncTokensIssued() {
	if m == nil {
		return
	}
	m.TokensIssued.Inc()
}

func (m *Metrics) IncNotifyFailure() {
	if m == nil {
		return
	}
	m.NotifyFailures.Inc()
}

func (m *Metrics) AddPruned(target string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.PrunedRows.WithLabelValues(target).Add(float64(n))
}
