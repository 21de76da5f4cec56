package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/civicdesk/rollcall/internal/metrics"
	"github.com/civicdesk/rollcall/internal/rollcall/service"
	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/store/memory"
)

func TestPruner_DisabledWhenRetentionZero(t *testing.T) {
	es := memory.NewScanEventStore()
	pruner := service.NewPruner(es, service.PrunerConfig{
		Name:     "scan_events",
		Interval: time.Hour,
	}, nil, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pruner.Start(ctx)
	// Stop should return immediately without error.
	pruner.Stop()
}

func TestPruner_PrunesOldRecords(t *testing.T) {
	es := memory.NewScanEventStore()
	ctx := context.Background()
	clock := service.NewManualClock(base)

	// One event 40 days old, one from yesterday.
	for _, at := range []time.Time{base.AddDate(0, 0, -40), base.AddDate(0, 0, -1)} {
		if err := es.RecordEvent(ctx, store.ScanEventRecord{Evidence: "qr", DecidedAt: at}); err != nil {
			t.Fatalf("record event: %v", err)
		}
	}

	m := metrics.New(prometheus.NewRegistry())
	pruner := service.NewPruner(es, service.PrunerConfig{
		Name:      "scan_events",
		Retention: 30 * 24 * time.Hour,
	}, clock, m, zerolog.Nop())

	if n := pruner.PruneOnce(ctx); n != 1 {
		t.Errorf("expected 1 pruned, got %d", n)
	}
	if n := pruner.PruneOnce(ctx); n != 0 {
		t.Errorf("second pass pruned %d", n)
	}
	if got := len(es.Events()); got != 1 {
		t.Errorf("expected 1 surviving event, got %d", got)
	}
}

func TestPruner_TokensPastRetention(t *testing.T) {
	f := newFixture(t)
	f.issue(t, "x")

	pruner := service.NewPruner(f.tokens, service.PrunerConfig{
		Name:      "qr_tokens",
		Retention: time.Hour,
	}, f.clock, f.metrics, zerolog.Nop())

	if n := pruner.PruneOnce(context.Background()); n != 0 {
		t.Fatalf("fresh token pruned: %d", n)
	}
	f.clock.Advance(2 * time.Hour)
	if n := pruner.PruneOnce(context.Background()); n != 1 {
		t.Fatalf("expected expired token pruned, got %d", n)
	}
}

func TestPruner_StopIsIdempotent(t *testing.T) {
	pruner := service.NewPruner(memory.NewScanEventStore(), service.PrunerConfig{
		Name:      "scan_events",
		Retention: 24 * time.Hour,
		Interval:  time.Hour,
	}, nil, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	pruner.Start(ctx)

	cancel()
	<-pruner.Done()
	// Multiple stops should not panic.
	pruner.Stop()
	pruner.Stop()
}
