// Package biometric finds the enrolled template that best matches a freshly
// captured fingerprint sample.
package biometric

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

const (
	// DefaultThreshold is the vendor's accept score on its 0..2000 scale.
	DefaultThreshold = 1200

	// DefaultBudget bounds one linear scan so the kiosk never sits in a
	// stuck "scanning" state.
	DefaultBudget = 800 * time.Millisecond
)

var (
	ErrNoCandidates    = errors.New("no enrolled templates")
	ErrCaptureRejected = errors.New("capture quality below acceptance floor")
	ErrBudgetExceeded  = errors.New("match exceeded interactive budget")
	ErrScorerFailed    = errors.New("scorer failed for every candidate")
)

// Scorer compares two templates.  Higher is more similar; nothing else about
// the scale is assumed.
type Scorer interface {
	Score(ctx context.Context, a, b []byte) (int, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, a, b []byte) (int, error)

func (f ScorerFunc) Score(ctx context.Context, a, b []byte) (int, error) { return f(ctx, a, b) }

type Config struct {
	// Threshold is a deployment constant; it is not read from settings.
	Threshold int

	// QualityFloor rejects samples the reader itself rated poorly.  0 accepts
	// any quality.
	QualityFloor int

	// Budget caps the whole scan.  0 uses DefaultBudget.
	Budget time.Duration
}

type Matcher struct {
	scorer       Scorer
	threshold    int
	qualityFloor int
	budget       time.Duration
	logger       zerolog.Logger
}

func NewMatcher(scorer Scorer, cfg Config, logger zerolog.Logger) *Matcher {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultBudget
	}
	return &Matcher{
		scorer:       scorer,
		threshold:    cfg.Threshold,
		qualityFloor: cfg.QualityFloor,
		budget:       cfg.Budget,
		logger:       logger,
	}
}

func (m *Matcher) Threshold() int { return m.threshold }

// Match scores sample against every candidate and reports the best one.  A
// below-threshold best still carries its score; Matched() on the result is
// false in that case.  Ties go to the earlier candidate.
func (m *Matcher) Match(ctx context.Context, sample types.CapturedSample, candidates []types.EnrolledTemplate) (types.MatchResult, error) {
	ctx, span := otel.Tracer("rollcall/biometric").Start(ctx, "biometric.Match")
	defer span.End()
	span.SetAttributes(attribute.Int("candidates", len(candidates)))

	res := types.MatchResult{Threshold: m.threshold}

	if sample.Quality < m.qualityFloor {
		return res, fmt.Errorf("quality %d < %d: %w", sample.Quality, m.qualityFloor, ErrCaptureRejected)
	}
	if len(candidates) == 0 {
		return res, ErrNoCandidates
	}

	ctx, cancel := context.WithTimeout(ctx, m.budget)
	defer cancel()

	var (
		bestID    string
		bestScore int
		scored    bool
		failures  int
	)
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return res, fmt.Errorf("after %d of %d candidates: %w", i, len(candidates), ErrBudgetExceeded)
			}
			return res, err
		}

		score, err := m.scorer.Score(ctx, sample.Template, c.Template)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return res, ErrBudgetExceeded
			}
			if errors.Is(err, context.Canceled) {
				return res, err
			}
			failures++
			m.logger.Warn().Err(err).Str("identity_id", c.IdentityID).Msg("template score failed")
			continue
		}
		// The scorer has no fixed range, so the first score seeds the best.
		if !scored || score > bestScore {
			scored = true
			bestScore = score
			bestID = c.IdentityID
		}
	}

	if failures == len(candidates) {
		return res, ErrScorerFailed
	}

	res.Score = bestScore
	if bestScore >= m.threshold {
		res.CandidateID = bestID
	}
	span.SetAttributes(attribute.Int("best_score", bestScore), attribute.Bool("matched", res.Matched()))
	return res, nil
}
