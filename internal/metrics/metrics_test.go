package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/civicdesk/rollcall/internal/metrics"
)

func TestMetrics_Counts(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveScan("qr", "punch_in", time.Now())
	m.ObserveScan("qr", "punch_in", time.Now())
	m.IncPunch("punch_in", "qr")
	m.AddPruned("qr_tokens", 3)
	m.AddPruned("qr_tokens", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScanDecisions.WithLabelValues("qr", "punch_in")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Punches.WithLabelValues("punch_in", "qr")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PrunedRows.WithLabelValues("qr_tokens")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveScan("qr", "x", time.Now())
		m.IncPunch("punch_in", "qr")
		m.IncLedgerRetry()
		m.ObserveMatch(1500, time.Now())
		m.IncTokensIssued()
		m.IncNotifyFailure()
		m.AddPruned("scan_events", 1)
	})
}
