package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/civicdesk/rollcall/internal/rollcall/service"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

type errorResponse struct {
	Success bool              `json:"success"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// statusFor maps a rejection to its HTTP status.
func statusFor(rej *service.Rejection) int {
	switch rej.Kind {
	case service.KindUnknownKiosk:
		return http.StatusForbidden
	case service.KindDeviceBusy, service.KindDeviceUnavailable:
		return http.StatusServiceUnavailable
	}
	switch rej.Class() {
	case service.ClassPolicy:
		return http.StatusForbidden
	case service.ClassRace:
		return http.StatusConflict
	case service.ClassHardware:
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

// writeServiceError writes err as a rejection payload, or a 500 when err is
// not an expected outcome.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	rej, ok := service.AsRejection(err)
	if !ok {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, statusFor(rej), errorResponse{
		Code:    string(rej.Kind),
		Message: rej.Message(),
		Fields:  rej.Fields,
	})
}

// scanResponse renders a decision the way kiosk UIs expect it.  Member is
// present whenever the evidence resolved to someone, accepted or not.
func (s *Server) scanResponse(dec service.Decision, err error) (int, types.ScanResponse) {
	resp := types.ScanResponse{ServerTime: s.serverTime()}
	if dec.Identity.ID != "" {
		m := dec.Identity.Summary()
		resp.Member = &m
	}
	resp.Score = dec.Score

	if err == nil {
		resp.Success = true
		resp.Action = dec.Action
		resp.Message = service.DecisionMessage(dec)
		resp.DurationMinutes = dec.DurationMinutes
		resp.Timestamp = dec.At.UTC().Format("2006-01-02T15:04:05.000Z")
		return http.StatusOK, resp
	}

	var rej *service.Rejection
	if !errors.As(err, &rej) {
		resp.Code = "internal_error"
		resp.Message = "unexpected server error"
		return http.StatusInternalServerError, resp
	}

	resp.Code = string(rej.Kind)
	resp.Message = rej.Message()
	resp.RemainingMinutes = rej.RemainingMinutes
	if rej.Kind == service.KindIdentityBlocked {
		resp.Action = types.ActionBlocked
	}
	if rej.Score != nil {
		resp.Score = rej.Score
	}
	return statusFor(rej), resp
}
