package httpapi

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/civicdesk/rollcall/internal/rollcall/service"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

func (s *Server) handleScanQR(w http.ResponseWriter, r *http.Request) {
	var req types.ScanQRRequest
	if err := decodeKioskRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	dec, err := s.resolver.Resolve(r.Context(), service.Evidence{
		Kind:      service.EvidenceQR,
		QRPayload: req.QR,
		KioskID:   req.KioskDeviceID,
	})
	status, resp := s.scanResponse(dec, err)
	respondKiosk(w, r, status, resp)
}

func (s *Server) handleScanBiometric(w http.ResponseWriter, r *http.Request) {
	var req types.ScanBiometricRequest
	if err := decodeKioskRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	tpl, err := base64.StdEncoding.DecodeString(strings.TrimSpace(req.Template))
	if err != nil {
		writeError(w, http.StatusBadRequest, string(service.KindInvalidEvidence), "template must be base64")
		return
	}

	dec, err := s.scanner.Scan(r.Context(), types.CapturedSample{
		Template:   tpl,
		Quality:    req.Quality,
		CapturedAt: s.clock.Now().UTC(),
	}, req.KioskDeviceID)
	status, resp := s.scanResponse(dec, err)
	respondKiosk(w, r, status, resp)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req types.KioskHeartbeatRequest
	if err := decodeKioskRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.kiosks.Heartbeat(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	respondKiosk(w, r, http.StatusOK, resp)
}
