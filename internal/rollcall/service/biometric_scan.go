package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civicdesk/rollcall/internal/metrics"
	"github.com/civicdesk/rollcall/internal/rollcall/biometric"
	"github.com/civicdesk/rollcall/internal/rollcall/capture"
	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

// BiometricScanner matches a captured sample against every enrolled
// template and feeds the outcome to the resolver.
type BiometricScanner struct {
	templates store.TemplateStore
	matcher   *biometric.Matcher
	resolver  *KioskScanResolver
	metrics   *metrics.Metrics
}

func NewBiometricScanner(templates store.TemplateStore, matcher *biometric.Matcher, resolver *KioskScanResolver, m *metrics.Metrics) *BiometricScanner {
	return &BiometricScanner{templates: templates, matcher: matcher, resolver: resolver, metrics: m}
}

func (b *BiometricScanner) Scan(ctx context.Context, sample types.CapturedSample, kioskID string) (Decision, error) {
	ev := Evidence{Kind: EvidenceBiometric, KioskID: kioskID}

	if len(sample.Template) == 0 {
		ev.MatchErr = biometric.ErrCaptureRejected
		return b.resolver.Resolve(ctx, ev)
	}

	candidates, err := b.templates.ListTemplates(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("load enrolled templates: %w", err)
	}

	start := time.Now()
	res, err := b.matcher.Match(ctx, sample, candidates)
	if err == nil {
		b.metrics.ObserveMatch(res.Score, start)
	}
	ev.Match = res
	ev.MatchErr = err
	return b.resolver.Resolve(ctx, ev)
}

// HardwareRejection maps capture and matcher failures to rejections.  Any
// failure it does not recognise becomes DeviceUnavailable; none of them is
// ever treated as a match.
func HardwareRejection(err error) *Rejection {
	if rej, ok := AsRejection(err); ok {
		return rej
	}
	kind := KindDeviceUnavailable
	switch {
	case errors.Is(err, biometric.ErrNoCandidates):
		kind = KindNoCandidates
	case errors.Is(err, biometric.ErrCaptureRejected):
		kind = KindCaptureRejected
	case errors.Is(err, biometric.ErrBudgetExceeded):
		kind = KindMatchTimeout
	case errors.Is(err, capture.ErrTimeout):
		kind = KindCaptureTimeout
	case errors.Is(err, capture.ErrDeviceBusy):
		kind = KindDeviceBusy
	case errors.Is(err, capture.ErrNotConnected):
		kind = KindDeviceUnavailable
	}
	return &Rejection{Kind: kind, Err: err}
}
