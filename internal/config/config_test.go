package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdesk/rollcall/internal/config"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := config.FromEnv()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "dev", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.NotEmpty(t, cfg.QRSecret, "dev gets a throwaway secret")
	assert.Empty(t, cfg.KnownKiosks)
	assert.Equal(t, 24*time.Hour, cfg.TokenRetention())
	assert.Equal(t, 90*24*time.Hour, cfg.ScanEventRetention())
	assert.Equal(t, 800*time.Millisecond, cfg.MatchBudget())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ROLLCALL_ENV", "PROD")
	t.Setenv("ROLLCALL_KNOWN_KIOSKS", " kiosk-a, ,kiosk-b ")
	t.Setenv("ROLLCALL_BLOCK_ALL_CHANNELS", "1")
	t.Setenv("ROLLCALL_PRUNE_INTERVAL_HOURS", "-3")
	t.Setenv("ROLLCALL_TOKEN_RETENTION_HOURS", "0")
	t.Setenv("ROLLCALL_GRPC_ADDR", "")

	cfg := config.FromEnv()
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, []string{"kiosk-a", "kiosk-b"}, cfg.KnownKiosks)
	assert.True(t, cfg.BlockAllChannels)
	assert.Equal(t, 6, cfg.PruneIntervalHours, "negative values fall back to the default")
	assert.Equal(t, 0, cfg.TokenRetentionHours)
	assert.Empty(t, cfg.GRPCAddr)
	assert.Empty(t, cfg.QRSecret, "prod never gets the dev secret")
}

func TestFromEnv_UnknownEnvIsDev(t *testing.T) {
	t.Setenv("ROLLCALL_ENV", "staging")
	assert.Equal(t, "dev", config.FromEnv().Env)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollcall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":9999"
timezone: "Asia/Kolkata"
known_kiosks: [lobby, gate]
kafka_brokers: ["broker-1:9092"]
match_threshold: 1400
`), 0o600))

	t.Setenv("ROLLCALL_MATCH_THRESHOLD", "1300")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, []string{"lobby", "gate"}, cfg.KnownKiosks)
	assert.Equal(t, []string{"broker-1:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 1300, cfg.MatchThreshold, "env wins over the file")

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoad_ProdRequiresSecrets(t *testing.T) {
	t.Setenv("ROLLCALL_ENV", "prod")
	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ROLLCALL_QR_SECRET")

	t.Setenv("ROLLCALL_QR_SECRET", "0123456789abcdef0123")
	t.Setenv("ROLLCALL_AUTH_SECRET", "fedcba9876543210fedc")
	_, err = config.Load("")
	require.NoError(t, err)
}

func TestLoad_BadInputs(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	t.Setenv("ROLLCALL_TIMEZONE", "Mars/Olympus")
	_, err = config.Load("")
	require.Error(t, err)
}
