package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/civicdesk/rollcall/internal/rollcall/service"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

const sseKeepAlive = 25 * time.Second

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	tok, err := s.issuer.Issue(r.Context(), p.Subject)
	if err != nil {
		rej, ok := service.AsRejection(err)
		if !ok {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, statusFor(rej), types.QRResponse{
			Blocked:    rej.Kind == service.KindIdentityBlocked,
			Message:    rej.Message(),
			ServerTime: s.serverTime(),
		})
		return
	}

	writeJSON(w, http.StatusOK, types.QRResponse{
		Success:    true,
		QR:         tok.Payload,
		ExpiresIn:  tok.ExpiresIn,
		ServerTime: s.serverTime(),
	})
}

type historyResponse struct {
	Success bool                  `json:"success"`
	Records []types.HistoryRecord `json:"records"`
}

func (s *Server) handleMyAttendance(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	records, err := s.view.History(r.Context(), p.Subject)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Success: true, Records: records})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	live, err := s.view.Today(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, live)
}

// handleEvents streams punch events as Server-Sent Events until the client
// goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	events, cancel := s.hub.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Warn().Err(err).Msg("encode punch event")
				continue
			}
			_, _ = fmt.Fprintf(w, "event: attendance:update\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
