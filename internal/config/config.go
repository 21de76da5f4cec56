package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"` // empty disables the gRPC health server

	// DB
	Env    string `yaml:"env"`     // "dev" | "prod"
	DBPath string `yaml:"db_path"` // e.g. "./data/rollcall.db"

	// Timezone is the IANA zone that decides a session's calendar day and
	// the time-window clock.
	Timezone string `yaml:"timezone"`

	QRSecret   string `yaml:"qr_secret"`
	AuthSecret string `yaml:"auth_secret"`

	// KnownKiosks, when non-empty, rejects scans from any other kiosk id.
	KnownKiosks      []string `yaml:"known_kiosks"`
	BlockAllChannels bool     `yaml:"block_all_channels"`

	// Retention
	TokenRetentionHours    int `yaml:"token_retention_hours"`     // 0 = keep forever
	ScanEventRetentionDays int `yaml:"scan_event_retention_days"` // 0 = keep forever
	PruneIntervalHours     int `yaml:"prune_interval_hours"`

	// RedisURL switches the QR token store to redis.
	RedisURL string `yaml:"redis_url"`

	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	// Biometrics
	MatcherPath    string `yaml:"matcher_path"` // empty = dev byte scorer
	MatchThreshold int    `yaml:"match_threshold"`
	QualityFloor   int    `yaml:"quality_floor"`
	MatchBudgetMs  int    `yaml:"match_budget_ms"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "console" | "json"
}

const (
	devQRSecret   = "rollcall-dev-qr-secret-change-me"
	devAuthSecret = "rollcall-dev-auth-secret-change-me"
)

func Default() Config {
	return Config{
		HTTPAddr:               ":8080",
		GRPCAddr:               ":9090",
		Env:                    "dev",
		DBPath:                 "./data/rollcall.db",
		Timezone:               "Local",
		TokenRetentionHours:    24,
		ScanEventRetentionDays: 90,
		PruneIntervalHours:     6,
		KafkaTopic:             "rollcall.punches",
		MatchThreshold:         1200,
		MatchBudgetMs:          800,
		LogLevel:               "info",
		LogFormat:              "console",
	}
}

// FromEnv returns the defaults overlaid with any ROLLCALL_* variables.
func FromEnv() Config {
	cfg := Default()
	cfg.applyEnv()
	cfg.normalize()
	return cfg
}

// Load reads an optional YAML file and then applies the environment on top,
// so a variable always wins over the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	envString(&c.HTTPAddr, "ROLLCALL_HTTP_ADDR")
	envStringAllowEmpty(&c.GRPCAddr, "ROLLCALL_GRPC_ADDR")
	envString(&c.Env, "ROLLCALL_ENV")
	envString(&c.DBPath, "ROLLCALL_DB_PATH")
	envString(&c.Timezone, "ROLLCALL_TIMEZONE")
	envString(&c.QRSecret, "ROLLCALL_QR_SECRET")
	envString(&c.AuthSecret, "ROLLCALL_AUTH_SECRET")
	if v, ok := os.LookupEnv("ROLLCALL_KNOWN_KIOSKS"); ok {
		c.KnownKiosks = splitCSV(v)
	}
	envBool(&c.BlockAllChannels, "ROLLCALL_BLOCK_ALL_CHANNELS")
	envInt(&c.TokenRetentionHours, "ROLLCALL_TOKEN_RETENTION_HOURS")
	envInt(&c.ScanEventRetentionDays, "ROLLCALL_SCAN_EVENT_RETENTION_DAYS")
	envInt(&c.PruneIntervalHours, "ROLLCALL_PRUNE_INTERVAL_HOURS")
	envString(&c.RedisURL, "ROLLCALL_REDIS_URL")
	if v, ok := os.LookupEnv("ROLLCALL_KAFKA_BROKERS"); ok {
		c.KafkaBrokers = splitCSV(v)
	}
	envString(&c.KafkaTopic, "ROLLCALL_KAFKA_TOPIC")
	envString(&c.MatcherPath, "ROLLCALL_MATCHER_PATH")
	envInt(&c.MatchThreshold, "ROLLCALL_MATCH_THRESHOLD")
	envInt(&c.QualityFloor, "ROLLCALL_QUALITY_FLOOR")
	envInt(&c.MatchBudgetMs, "ROLLCALL_MATCH_BUDGET_MS")
	envString(&c.LogLevel, "ROLLCALL_LOG_LEVEL")
	envString(&c.LogFormat, "ROLLCALL_LOG_FORMAT")
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env != "dev" && c.Env != "prod" {
		// fail-soft: treat unknown as dev
		c.Env = "dev"
	}
	if c.Env == "dev" {
		if c.QRSecret == "" {
			c.QRSecret = devQRSecret
		}
		if c.AuthSecret == "" {
			c.AuthSecret = devAuthSecret
		}
	}
	if c.PruneIntervalHours <= 0 {
		c.PruneIntervalHours = 6
	}
	c.KnownKiosks = trimAll(c.KnownKiosks)
	c.KafkaBrokers = trimAll(c.KafkaBrokers)
}

// Validate rejects configurations that cannot run in prod.
func (c Config) Validate() error {
	var errs []error
	if c.Env == "prod" {
		if len(c.QRSecret) < 16 {
			errs = append(errs, errors.New("ROLLCALL_QR_SECRET must be at least 16 bytes in prod"))
		}
		if len(c.AuthSecret) < 16 {
			errs = append(errs, errors.New("ROLLCALL_AUTH_SECRET must be at least 16 bytes in prod"))
		}
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if len(c.KafkaBrokers) > 0 && strings.TrimSpace(c.KafkaTopic) == "" {
		errs = append(errs, errors.New("kafka topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}

func (c Config) IsDev() bool { return c.Env == "dev" }

func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

func (c Config) TokenRetention() time.Duration {
	return time.Duration(c.TokenRetentionHours) * time.Hour
}

func (c Config) ScanEventRetention() time.Duration {
	return time.Duration(c.ScanEventRetentionDays) * 24 * time.Hour
}

func (c Config) PruneInterval() time.Duration {
	return time.Duration(c.PruneIntervalHours) * time.Hour
}

func (c Config) MatchBudget() time.Duration {
	return time.Duration(c.MatchBudgetMs) * time.Millisecond
}

func envString(dst *string, key string) {
	v := os.Getenv(key)
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

// envStringAllowEmpty lets an explicitly empty variable clear the value.
func envStringAllowEmpty(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func envBool(dst *bool, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	*dst = strings.EqualFold(v, "true") || v == "1"
}

func envInt(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return
	}
	*dst = n
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return trimAll(strings.Split(v, ","))
}

func trimAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
