package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

type settingsResponse struct {
	Success  bool           `json:"success"`
	Settings types.Settings `json:"settings"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.settings.Snapshot(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Success: true, Settings: st})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	// Start from the current policy so partial bodies only change what they
	// name.
	next, err := s.settings.Snapshot(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := decodeJSON(r, &next); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	saved, err := s.settings.Update(r.Context(), next)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info().Str("actor", principalFrom(r.Context()).Subject).Msg("settings changed via api")
	writeJSON(w, http.StatusOK, settingsResponse{Success: true, Settings: saved})
}

type usersResponse struct {
	Success bool             `json:"success"`
	Users   []types.Identity `json:"users"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.admin.ListQRStatus(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usersResponse{Success: true, Users: users})
}

type blockRequest struct {
	Reason string `json:"reason"`
}

type userResponse struct {
	Success bool           `json:"success"`
	User    types.Identity `json:"user"`
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		writeError(w, http.StatusBadRequest, "invalid_reason", "reason is required")
		return
	}

	ident, err := s.admin.Block(r.Context(), chi.URLParam(r, "id"), req.Reason, principalFrom(r.Context()).Subject)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Success: true, User: ident})
}

func (s *Server) handleUnblock(w http.ResponseWriter, r *http.Request) {
	ident, err := s.admin.Unblock(r.Context(), chi.URLParam(r, "id"), principalFrom(r.Context()).Subject)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Success: true, User: ident})
}

type overrideRequest struct {
	// At defaults to now.
	At *time.Time `json:"at,omitempty"`
}

type sessionResponse struct {
	Success bool               `json:"success"`
	Session types.PunchSession `json:"attendance"`
}

func (s *Server) handleForcePunchOut(w http.ResponseWriter, r *http.Request) {
	at, ok := s.overrideTime(w, r)
	if !ok {
		return
	}
	sess, err := s.admin.ForcePunchOut(r.Context(), chi.URLParam(r, "id"), at, principalFrom(r.Context()).Subject)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, Session: sess})
}

func (s *Server) handleManualPunchIn(w http.ResponseWriter, r *http.Request) {
	at, ok := s.overrideTime(w, r)
	if !ok {
		return
	}
	sess, err := s.admin.ManualPunchIn(r.Context(), chi.URLParam(r, "id"), at, principalFrom(r.Context()).Subject)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, Session: sess})
}

func (s *Server) overrideTime(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	var req overrideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return time.Time{}, false
	}
	if req.At == nil {
		return time.Time{}, true
	}
	return *req.At, true
}

type enrollRequest struct {
	Template string `json:"template"` // base64
}

type enrollmentResponse struct {
	Success    bool                   `json:"success"`
	Enrollment *types.EnrollmentInfo  `json:"enrollment,omitempty"`
	Enrolled   []types.EnrollmentInfo `json:"enrolled,omitempty"`
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	tpl, err := base64.StdEncoding.DecodeString(strings.TrimSpace(req.Template))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_evidence", "template must be base64")
		return
	}

	info, err := s.admin.Enroll(r.Context(), chi.URLParam(r, "id"), tpl)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollmentResponse{Success: true, Enrollment: &info})
}

func (s *Server) handleUnenroll(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.Unenroll(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollmentResponse{Success: true})
}

func (s *Server) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	list, err := s.admin.ListEnrollments(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollmentResponse{Success: true, Enrolled: list})
}

type kioskView struct {
	KioskID         string    `json:"kioskDeviceId"`
	Known           bool      `json:"known"`
	LastSeen        time.Time `json:"lastSeen"`
	AppVersion      string    `json:"appVersion,omitempty"`
	ReaderConnected *bool     `json:"readerConnected,omitempty"`
	CameraReady     *bool     `json:"cameraReady,omitempty"`
}

type kiosksResponse struct {
	Success bool        `json:"success"`
	Kiosks  []kioskView `json:"kiosks"`
}

func (s *Server) handleListKiosks(w http.ResponseWriter, r *http.Request) {
	recs, err := s.kiosks.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, kiosksResponse{Success: true, Kiosks: toKioskViews(recs)})
}

func toKioskViews(recs []store.KioskRecord) []kioskView {
	out := make([]kioskView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, kioskView{
			KioskID:         rec.KioskID,
			Known:           rec.Known,
			LastSeen:        rec.LastSeen,
			AppVersion:      rec.AppVersion,
			ReaderConnected: rec.ReaderConnected,
			CameraReady:     rec.CameraReady,
		})
	}
	return out
}
