package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/civicdesk/rollcall/internal/notify"
	"github.com/civicdesk/rollcall/internal/rollcall/service"
)

type Dependencies struct {
	Logger zerolog.Logger
	Addr   string

	// AuthSecret verifies member and admin bearer tokens.
	AuthSecret []byte

	Issuer   *service.TokenIssuer
	Resolver *service.KioskScanResolver
	Scanner  *service.BiometricScanner
	Kiosks   *service.KioskRegistry
	Settings *service.SettingsService
	Admin    *service.AdminService
	View     *service.AttendanceView

	// Hub feeds the SSE stream; nil disables /api/attendance/events.
	Hub *notify.Hub

	// Gatherer backs /metrics; nil disables it.
	Gatherer prometheus.Gatherer

	// Health backs /healthz; nil always reports ok.
	Health func(ctx context.Context) error

	Clock service.Clock
}

type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
	router     chi.Router
	auth       *authenticator
	clock      service.Clock

	issuer   *service.TokenIssuer
	resolver *service.KioskScanResolver
	scanner  *service.BiometricScanner
	kiosks   *service.KioskRegistry
	settings *service.SettingsService
	admin    *service.AdminService
	view     *service.AttendanceView
	hub      *notify.Hub
	health   func(ctx context.Context) error
}

func NewServer(d Dependencies) *Server {
	if d.Clock == nil {
		d.Clock = service.SystemClock{}
	}

	s := &Server{
		logger:   d.Logger,
		router:   chi.NewRouter(),
		auth:     newAuthenticator(d.AuthSecret, d.Clock),
		clock:    d.Clock,
		issuer:   d.Issuer,
		resolver: d.Resolver,
		scanner:  d.Scanner,
		kiosks:   d.Kiosks,
		settings: d.Settings,
		admin:    d.Admin,
		view:     d.View,
		hub:      d.Hub,
		health:   d.Health,
	}

	r := s.router
	r.Use(recoverMiddleware(d.Logger))
	r.Use(loggingMiddleware(d.Logger))

	r.Get("/healthz", s.handleHealth)
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/attendance", func(r chi.Router) {
		// Kiosks are gated by the kiosk registry rather than bearer tokens.
		r.Route("/kiosk", func(r chi.Router) {
			r.Post("/scan-qr", s.handleScanQR)
			r.Post("/scan-biometric", s.handleScanBiometric)
			r.Post("/heartbeat", s.handleHeartbeat)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.auth.require())
			r.Get("/qr", s.handleQR)
			r.Get("/my-attendance", s.handleMyAttendance)
			r.Get("/today/live", s.handleLive)
			if s.hub != nil {
				r.Get("/events", s.handleEvents)
			}
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(s.auth.require(RoleAdmin))

		r.Get("/attendance/settings", s.handleGetSettings)
		r.Put("/attendance/settings", s.handlePutSettings)
		r.Get("/attendance/users", s.handleListUsers)
		r.Post("/attendance/users/{id}/block", s.handleBlock)
		r.Post("/attendance/users/{id}/unblock", s.handleUnblock)
		r.Post("/attendance/users/{id}/force-punch-out", s.handleForcePunchOut)
		r.Post("/attendance/users/{id}/manual-punch-in", s.handleManualPunchIn)

		r.Get("/biometric", s.handleListEnrollments)
		r.Put("/biometric/{id}", s.handleEnroll)
		r.Delete("/biometric/{id}", s.handleUnenroll)

		r.Get("/kiosks", s.handleListKiosks)
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) serverTime() string {
	return s.clock.Now().UTC().Format(time.RFC3339Nano)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
