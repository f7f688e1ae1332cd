package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := fromLookup(func(string) (string, bool) { return "", false })

	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "./memory.db", cfg.SQLitePath)
	assert.Equal(t, ProviderOllama, cfg.LLMProvider)
	assert.Equal(t, 1.0, cfg.LLMTemperature)
	assert.Equal(t, "secret-4", cfg.ChainID)
	assert.Equal(t, "400000", cfg.TradeAmount)
	assert.Equal(t, uint64(3_500_000), cfg.TradeGasLimit)
	assert.Equal(t, 0.1, cfg.TradeGasPrice)
	assert.Equal(t, "uscrt", cfg.TradeFeeDenom)
	assert.Equal(t, 8*time.Second, cfg.TradeConfirmDelay)
	assert.Equal(t, 1000, cfg.LedgerPageSize)
	assert.False(t, cfg.LedgerAuditLog)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chain_id: pulsar-3
trade_amount: 1000
ledger_audit_log: true
trade_confirm_delay: 2s
`), 0o600))

	t.Setenv(FileEnvVar, path)
	t.Setenv("CHAIN_ID", "secret-4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "secret-4", cfg.ChainID, "env var wins over file")
	assert.Equal(t, "1000", cfg.TradeAmount)
	assert.True(t, cfg.LedgerAuditLog)
	assert.Equal(t, 2*time.Second, cfg.TradeConfirmDelay)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(FileEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestParseHelpersFallBack(t *testing.T) {
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"float", parseFloat("abc", 0.5), 0.5},
		{"int negative", parseInt("-3", 7), 7},
		{"uint zero", parseUint("0", 9), uint64(9)},
		{"duration", parseDuration("soon", time.Second), time.Second},
		{"level", parseLogLevel("warning"), slog.LevelWarn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestWarnings(t *testing.T) {
	cfg := Config{SSCRTViewingKey: "k"}
	warnings := cfg.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "SUSDC_VIEWING_KEY")
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("turn handled", "user_id", "alice")
	logger.Debug("hidden")

	assert.Contains(t, stderr.String(), "user_id=alice")
	assert.Contains(t, file.String(), `"user_id":"alice"`)
	assert.NotContains(t, file.String(), "hidden")
}
