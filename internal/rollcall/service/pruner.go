package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicdesk/rollcall/internal/metrics"
	"github.com/civicdesk/rollcall/internal/rollcall/store"
)

// Pruner periodically deletes rows older than a retention period from one
// target store.  It runs as a background goroutine and is safe to stop via
// its context or the Stop method.
//
// A retention of 0 disables pruning entirely.
type Pruner struct {
	name      string
	target    store.Pruner
	retention time.Duration
	interval  time.Duration
	clock     Clock
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

// PrunerConfig holds the parameters for NewPruner.
type PrunerConfig struct {
	// Name labels logs and metrics, e.g. "qr_tokens".
	Name string

	// Retention is how much history to keep.  0 keeps everything.
	Retention time.Duration

	// Interval is how often the pruner runs.  Defaults to 6h.
	Interval time.Duration
}

// NewPruner creates a pruner but does not start it.
func NewPruner(target store.Pruner, cfg PrunerConfig, clock Clock, m *metrics.Metrics, logger zerolog.Logger) *Pruner {
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Pruner{
		name:      cfg.Name,
		target:    target,
		retention: cfg.Retention,
		interval:  cfg.Interval,
		clock:     clock,
		metrics:   m,
		logger:    logger.With().Str("pruner", cfg.Name).Logger(),
		done:      make(chan struct{}),
	}
}

// Start runs an immediate prune, then repeats on the configured interval
// until ctx is cancelled or Stop is called.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info().Msg("pruner disabled (retention=0)")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)

	go p.loop(ctx)

	p.logger.Info().Dur("retention", p.retention).Dur("interval", p.interval).Msg("pruner started")
}

// Stop signals the pruner to exit and waits for it to finish.
func (p *Pruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

// Done is closed once the loop has exited.
func (p *Pruner) Done() <-chan struct{} { return p.done }

func (p *Pruner) loop(ctx context.Context) {
	defer close(p.done)

	p.PruneOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneOnce(ctx)
		}
	}
}

// PruneOnce runs a single pass and reports how many rows it removed.
func (p *Pruner) PruneOnce(ctx context.Context) int64 {
	cutoff := p.clock.Now().UTC().Add(-p.retention)
	deleted, err := p.target.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error().Err(err).Msg("prune failed")
		return 0
	}
	p.metrics.AddPruned(p.name, deleted)
	if deleted > 0 {
		p.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("pruned rows")
	}
	return deleted
}
