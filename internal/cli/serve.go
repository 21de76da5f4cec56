package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/civicdesk/rollcall/internal/grpcapi"
	"github.com/civicdesk/rollcall/internal/httpapi"
	"github.com/civicdesk/rollcall/internal/rollcall/service"
)

const shutdownTimeout = 5 * time.Second

func NewServeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the kiosk, member and admin HTTP API",
		Long: `Run the HTTP API with the gRPC health service alongside it.

QR tokens and scan events are pruned in the background according to the
configured retention.  SIGINT or SIGTERM drains both listeners.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
	return cmd
}

func runServe(ctx context.Context, opts *RootOptions) error {
	a, err := buildApp(ctx, opts, appOptions{sinks: true})
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	pruners := []*service.Pruner{
		service.NewPruner(a.tokens, service.PrunerConfig{
			Name:      "qr_tokens",
			Retention: a.cfg.TokenRetention(),
			Interval:  a.cfg.PruneInterval(),
		}, service.SystemClock{}, a.metrics, logger),
		service.NewPruner(a.events, service.PrunerConfig{
			Name:      "scan_events",
			Retention: a.cfg.ScanEventRetention(),
			Interval:  a.cfg.PruneInterval(),
		}, service.SystemClock{}, a.metrics, logger),
	}
	for _, p := range pruners {
		p.Start(ctx)
	}
	defer func() {
		for _, p := range pruners {
			p.Stop()
		}
	}()

	httpSrv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     logger,
		Addr:       a.cfg.HTTPAddr,
		AuthSecret: []byte(a.cfg.AuthSecret),
		Issuer:     a.issuer,
		Resolver:   a.resolver,
		Scanner:    a.scanner,
		Kiosks:     a.kiosks,
		Settings:   a.settings,
		Admin:      a.admin,
		View:       a.view,
		Hub:        a.hub,
		Gatherer:   a.registry,
		Health:     a.health,
	})

	var grpcSrv *grpcapi.Server
	if a.cfg.GRPCAddr != "" {
		grpcSrv = grpcapi.NewServer(grpcapi.Dependencies{
			Logger: logger,
			Addr:   a.cfg.GRPCAddr,
			Check:  a.health,
		})
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", a.cfg.HTTPAddr).Str("env", a.cfg.Env).Msg("http listening")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "http server", err)
		}
		return nil
	})
	if grpcSrv != nil {
		g.Go(func() error {
			if err := grpcSrv.Start(gctx); err != nil {
				return WrapExitError(ExitFailure, "grpc server", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if grpcSrv != nil {
			grpcSrv.Shutdown()
		}
		// Open SSE streams end when the hub closes; Shutdown would otherwise
		// wait on them until the timeout.
		a.hub.Close()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
