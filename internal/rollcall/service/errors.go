package service

import (
	"errors"
	"fmt"
)

// Kind names one expected rejection.  The string is what kiosks receive as
// "code".
type Kind string

const (
	// Policy.
	KindQRDisabled      Kind = "qr_disabled"
	KindIdentityBlocked Kind = "identity_blocked"
	KindOutsideWindow   Kind = "outside_window"
	KindTooSoon         Kind = "too_soon"
	KindNoMatch         Kind = "no_match"

	// Integrity races.
	KindTokenAlreadyUsed Kind = "token_already_used"
	KindAlreadyOpen      Kind = "already_open"
	KindNotOpen          Kind = "not_open"

	// Hardware.
	KindCaptureTimeout    Kind = "capture_timeout"
	KindCaptureRejected   Kind = "capture_rejected"
	KindNoCandidates      Kind = "no_candidates"
	KindDeviceBusy        Kind = "device_busy"
	KindDeviceUnavailable Kind = "device_unavailable"
	KindMatchTimeout      Kind = "match_timeout"

	// Input.
	KindTokenInvalid     Kind = "token_invalid"
	KindTokenExpired     Kind = "token_expired"
	KindUnknownIdentity  Kind = "unknown_identity"
	KindUnknownKiosk     Kind = "unknown_kiosk"
	KindInvalidSettings  Kind = "invalid_settings"
	KindInvalidEvidence  Kind = "invalid_evidence"
	KindInvalidPunchTime Kind = "invalid_punch_time"
)

type Class string

const (
	ClassPolicy   Class = "policy"
	ClassRace     Class = "race"
	ClassHardware Class = "hardware"
	ClassInput    Class = "input"
)

var kindClass = map[Kind]Class{
	KindQRDisabled:        ClassPolicy,
	KindIdentityBlocked:   ClassPolicy,
	KindOutsideWindow:     ClassPolicy,
	KindTooSoon:           ClassPolicy,
	KindNoMatch:           ClassPolicy,
	KindTokenAlreadyUsed:  ClassRace,
	KindAlreadyOpen:       ClassRace,
	KindNotOpen:           ClassRace,
	KindCaptureTimeout:    ClassHardware,
	KindCaptureRejected:   ClassHardware,
	KindNoCandidates:      ClassHardware,
	KindDeviceBusy:        ClassHardware,
	KindDeviceUnavailable: ClassHardware,
	KindMatchTimeout:      ClassHardware,
	KindTokenInvalid:      ClassInput,
	KindTokenExpired:      ClassInput,
	KindUnknownIdentity:   ClassInput,
	KindUnknownKiosk:      ClassInput,
	KindInvalidSettings:   ClassInput,
	KindInvalidEvidence:   ClassInput,
	KindInvalidPunchTime:  ClassInput,
}

// Rejection is every expected "no" the engine can return.  Match with
// errors.Is against the Err* values below (comparison is by Kind) or
// errors.As to read the payload.
type Rejection struct {
	Kind Kind

	// Reason overrides the default message; block reasons are carried here
	// verbatim.
	Reason string

	RemainingMinutes int    // TooSoon
	Score            *int   // NoMatch
	Start, End       string // OutsideWindow

	// Fields holds per-field validation failures for InvalidSettings.
	Fields map[string]string

	Err error
}

var (
	ErrQRDisabled        = &Rejection{Kind: KindQRDisabled}
	ErrIdentityBlocked   = &Rejection{Kind: KindIdentityBlocked}
	ErrOutsideWindow     = &Rejection{Kind: KindOutsideWindow}
	ErrTooSoon           = &Rejection{Kind: KindTooSoon}
	ErrNoMatch           = &Rejection{Kind: KindNoMatch}
	ErrTokenAlreadyUsed  = &Rejection{Kind: KindTokenAlreadyUsed}
	ErrAlreadyOpen       = &Rejection{Kind: KindAlreadyOpen}
	ErrNotOpen           = &Rejection{Kind: KindNotOpen}
	ErrCaptureTimeout    = &Rejection{Kind: KindCaptureTimeout}
	ErrCaptureRejected   = &Rejection{Kind: KindCaptureRejected}
	ErrNoCandidates      = &Rejection{Kind: KindNoCandidates}
	ErrDeviceBusy        = &Rejection{Kind: KindDeviceBusy}
	ErrDeviceUnavailable = &Rejection{Kind: KindDeviceUnavailable}
	ErrMatchTimeout      = &Rejection{Kind: KindMatchTimeout}
	ErrTokenInvalid      = &Rejection{Kind: KindTokenInvalid}
	ErrTokenExpired      = &Rejection{Kind: KindTokenExpired}
	ErrUnknownIdentity   = &Rejection{Kind: KindUnknownIdentity}
	ErrUnknownKiosk      = &Rejection{Kind: KindUnknownKiosk}
	ErrInvalidSettings   = &Rejection{Kind: KindInvalidSettings}
	ErrInvalidEvidence   = &Rejection{Kind: KindInvalidEvidence}
	ErrInvalidPunchTime  = &Rejection{Kind: KindInvalidPunchTime}
)

func reject(kind Kind) *Rejection { return &Rejection{Kind: kind} }

func (r *Rejection) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %s: %v", r.Kind, r.Message(), r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Message())
}

func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Kind == r.Kind
}

func (r *Rejection) Unwrap() error { return r.Err }

func (r *Rejection) Class() Class {
	if c, ok := kindClass[r.Kind]; ok {
		return c
	}
	return ClassInput
}

// Message is the human-readable reason shown on the kiosk or QR screen.
func (r *Rejection) Message() string {
	if r.Reason != "" {
		return r.Reason
	}
	switch r.Kind {
	case KindQRDisabled:
		return "QR attendance is currently disabled"
	case KindIdentityBlocked:
		return "Attendance QR is blocked for this member"
	case KindOutsideWindow:
		if r.Start != "" && r.End != "" {
			return fmt.Sprintf("Attendance is only allowed between %s and %s", r.Start, r.End)
		}
		return "Attendance is not allowed at this time"
	case KindTooSoon:
		return fmt.Sprintf("Punch-out not allowed yet. Please wait %d more minute(s)", r.RemainingMinutes)
	case KindNoMatch:
		return "Fingerprint not recognised"
	case KindTokenAlreadyUsed:
		return "QR code already used"
	case KindAlreadyOpen:
		return "Already punched in"
	case KindNotOpen:
		return "No open attendance session"
	case KindCaptureTimeout:
		return "Fingerprint capture timed out, please try again"
	case KindCaptureRejected:
		return "Fingerprint quality too low, please try again"
	case KindNoCandidates:
		return "No fingerprints enrolled"
	case KindDeviceBusy:
		return "Fingerprint reader is busy"
	case KindDeviceUnavailable:
		return "Fingerprint reader not connected"
	case KindMatchTimeout:
		return "Fingerprint matching took too long, please try again"
	case KindTokenInvalid:
		return "Invalid QR code"
	case KindTokenExpired:
		return "QR code expired, please refresh"
	case KindUnknownIdentity:
		return "Member not found"
	case KindUnknownKiosk:
		return "Unknown kiosk device"
	case KindInvalidSettings:
		return "Invalid attendance settings"
	case KindInvalidEvidence:
		return "Invalid scan request"
	case KindInvalidPunchTime:
		return "Punch-out must be after punch-in"
	}
	return string(r.Kind)
}

// AsRejection unwraps err to a *Rejection.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
