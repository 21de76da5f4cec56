package types

import "time"

type EnrolledTemplate struct {
	IdentityID string
	Template   []byte
	EnrolledAt time.Time
}

// CapturedSample lives only for the decision that consumes it.
type CapturedSample struct {
	Template   []byte
	Quality    int
	CapturedAt time.Time
}

type MatchResult struct {
	CandidateID string
	Score       int
	Threshold   int
}

func (m MatchResult) Matched() bool {
	return m.CandidateID != "" && m.Score >= m.Threshold
}

type EnrollmentInfo struct {
	IdentityID string    `json:"user_id"`
	CouncilID  string    `json:"council_id"`
	Name       string    `json:"name"`
	Committee  string    `json:"committee_name,omitempty"`
	EnrolledAt time.Time `json:"registered_at"`
}
