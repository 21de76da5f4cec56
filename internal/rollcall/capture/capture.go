// Package capture drives a fingerprint reader: it waits for the device to
// produce a sample, bounded by a timeout, with at most one capture in flight
// per device.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

var (
	ErrTimeout      = errors.New("capture timed out")
	ErrDeviceBusy   = errors.New("capture device busy")
	ErrNotConnected = errors.New("capture device not connected")
)

const (
	DefaultPollInterval = 200 * time.Millisecond
	DefaultTimeout      = 10 * time.Second
)

// Device is one physical reader.  Poll returns (nil, nil) while no sample is
// ready.  Release must discard anything the device has half-written.
type Device interface {
	Begin(ctx context.Context) error
	Poll(ctx context.Context) (*types.CapturedSample, error)
	Release() error
}

type Config struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

// Capturer owns the exclusive handle to one Device.
type Capturer struct {
	dev      Device
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	// slot is a one-element semaphore; a full slot means a capture is in
	// flight and a second caller is rejected rather than queued.
	slot chan struct{}

	now func() time.Time
}

func NewCapturer(dev Device, cfg Config, logger zerolog.Logger) *Capturer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Capturer{
		dev:      dev,
		interval: cfg.PollInterval,
		timeout:  cfg.Timeout,
		logger:   logger,
		slot:     make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Capture blocks until the device yields a sample, the timeout elapses
// (ErrTimeout) or ctx is cancelled (ctx.Err()).  The device is always
// released before Capture returns, and no sample is returned on failure.
func (c *Capturer) Capture(ctx context.Context) (types.CapturedSample, error) {
	select {
	case c.slot <- struct{}{}:
	default:
		return types.CapturedSample{}, ErrDeviceBusy
	}
	defer func() { <-c.slot }()

	if err := c.dev.Begin(ctx); err != nil {
		return types.CapturedSample{}, fmt.Errorf("begin capture: %w", err)
	}
	defer func() {
		if err := c.dev.Release(); err != nil {
			c.logger.Warn().Err(err).Msg("release capture device")
		}
	}()

	deadline := time.NewTimer(c.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		sample, err := c.dev.Poll(ctx)
		if err != nil {
			return types.CapturedSample{}, fmt.Errorf("poll capture: %w", err)
		}
		if sample != nil {
			if sample.CapturedAt.IsZero() {
				sample.CapturedAt = c.now().UTC()
			}
			return *sample, nil
		}

		select {
		case <-ctx.Done():
			c.logger.Info().Msg("capture aborted")
			return types.CapturedSample{}, ctx.Err()
		case <-deadline.C:
			return types.CapturedSample{}, ErrTimeout
		case <-ticker.C:
		}
	}
}
