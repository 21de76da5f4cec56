package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/civicdesk/rollcall/internal/config"
	dbpkg "github.com/civicdesk/rollcall/internal/db"
	"github.com/civicdesk/rollcall/internal/metrics"
	"github.com/civicdesk/rollcall/internal/notify"
	"github.com/civicdesk/rollcall/internal/rollcall/biometric"
	"github.com/civicdesk/rollcall/internal/rollcall/service"
	"github.com/civicdesk/rollcall/internal/rollcall/store"
	redisstore "github.com/civicdesk/rollcall/internal/rollcall/store/redis"
	"github.com/civicdesk/rollcall/internal/rollcall/store/sqlite"
)

// loadConfig reads the config file and env, then lets the global flags win.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.LogFormat = opts.LogFormat
	}
	return cfg, nil
}

func newLogger(cfg config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.LogFormat != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("service", "rollcall").Logger()
}

// app is the wired service graph on top of one sqlite database.
type app struct {
	cfg    config.Config
	logger zerolog.Logger

	db     *sql.DB
	writer *dbpkg.Worker
	redis  *goredis.Client
	kafka  *notify.KafkaPublisher

	registry *prometheus.Registry
	metrics  *metrics.Metrics
	hub      *notify.Hub

	identities *sqlite.IdentityStore
	templates  *sqlite.TemplateStore
	events     *sqlite.ScanEventStore
	tokens     store.TokenStore

	settings *service.SettingsService
	issuer   *service.TokenIssuer
	ledger   *service.PunchLedger
	kiosks   *service.KioskRegistry
	resolver *service.KioskScanResolver
	scanner  *service.BiometricScanner
	admin    *service.AdminService
	view     *service.AttendanceView
}

type appOptions struct {
	// sinks connects redis and kafka; one-shot admin commands leave it off
	// and work against sqlite alone.
	sinks bool
}

func buildApp(ctx context.Context, opts *RootOptions, ao appOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, os.Stderr)

	loc, err := cfg.Location()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "timezone", err)
	}

	db, err := dbpkg.Open(ctx, dbpkg.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}
	if cfg.IsDev() {
		if err := dbpkg.SeedDev(ctx, db, dbpkg.SeedDevOptions{KnownKiosks: cfg.KnownKiosks}); err != nil {
			_ = db.Close()
			return nil, err
		}
	} else if err := dbpkg.CommissionKiosks(ctx, db, cfg.KnownKiosks); err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		writer:   dbpkg.NewWorker(db),
		registry: prometheus.NewRegistry(),
		hub:      notify.NewHub(),
	}
	a.metrics = metrics.New(a.registry)

	a.identities = sqlite.NewIdentityStore(db, a.writer)
	a.templates = sqlite.NewTemplateStore(db, a.writer)
	a.events = sqlite.NewScanEventStore(db, a.writer)
	a.tokens = sqlite.NewTokenStore(db, a.writer)

	var notifier service.Notifier = a.hub
	if ao.sinks {
		if cfg.RedisURL != "" {
			ropts, err := goredis.ParseURL(cfg.RedisURL)
			if err != nil {
				a.Close()
				return nil, WrapExitError(ExitCommandError, "parse redis url", err)
			}
			a.redis = goredis.NewClient(ropts)
			a.tokens = redisstore.NewTokenStore(a.redis)
			logger.Info().Str("addr", ropts.Addr).Msg("qr tokens stored in redis")
		}
		if len(cfg.KafkaBrokers) > 0 {
			a.kafka, err = notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
			if err != nil {
				a.Close()
				return nil, err
			}
			notifier = notify.Multi{a.hub, a.kafka}
			logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("punch events produced to kafka")
		}
	}

	clock := service.SystemClock{}
	codec, err := service.NewPayloadCodec([]byte(cfg.QRSecret))
	if err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "qr secret", err)
	}

	a.settings = service.NewSettingsService(sqlite.NewSettingsStore(db, a.writer), clock, logger)
	a.issuer = service.NewTokenIssuer(a.identities, a.tokens, a.settings, codec, clock, a.metrics, logger)
	a.ledger = service.NewPunchLedger(sqlite.NewSessionStore(db, a.writer), loc)
	a.kiosks = service.NewKioskRegistry(sqlite.NewKioskStore(db, a.writer), len(cfg.KnownKiosks) > 0, clock, logger)
	a.resolver = service.NewKioskScanResolver(service.ResolverDeps{
		Settings:   a.settings,
		Issuer:     a.issuer,
		Identities: a.identities,
		Ledger:     a.ledger,
		Kiosks:     a.kiosks,
		Notifier:   notifier,
		Events:     a.events,
		Clock:      clock,
		Metrics:    a.metrics,
		Logger:     logger,
	}, service.ResolverConfig{BlockAllChannels: cfg.BlockAllChannels})

	matcher := biometric.NewMatcher(newScorer(cfg, logger), biometric.Config{
		Threshold:    cfg.MatchThreshold,
		QualityFloor: cfg.QualityFloor,
		Budget:       cfg.MatchBudget(),
	}, logger)
	a.scanner = service.NewBiometricScanner(a.templates, matcher, a.resolver, a.metrics)

	a.admin = service.NewAdminService(service.AdminDeps{
		Identities: a.identities,
		Templates:  a.templates,
		Ledger:     a.ledger,
		Notifier:   notifier,
		Events:     a.events,
		Clock:      clock,
		Metrics:    a.metrics,
		Logger:     logger,
	})
	a.view = service.NewAttendanceView(a.ledger, a.identities, clock)

	return a, nil
}

func newScorer(cfg config.Config, logger zerolog.Logger) biometric.Scorer {
	if cfg.MatcherPath == "" {
		if !cfg.IsDev() {
			logger.Warn().Msg("no matcher executable configured; using the byte scorer")
		}
		return biometric.ByteScorer{}
	}
	return biometric.ExecScorer{Path: cfg.MatcherPath}
}

// health is the readiness check shared by /healthz and the gRPC health
// service.
func (a *app) health(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *app) Close() {
	a.hub.Close()
	if a.kafka != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		a.kafka.Close(ctx)
		cancel()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.writer.Close()
	_ = a.db.Close()
}
