package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevelAndCounter(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	cfg.Format = FormatJSON

	var buf bytes.Buffer
	reg := prometheus.NewRegistry()
	logger, closeFn, err := NewLogger(cfg, "test", reg, &buf)
	require.NoError(t, err)
	defer closeFn()

	logger.Info("suppressed by default level")
	logger.Warn("host key added")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "host key added", entry["msg"])

	count, err := testutil.GatherAndCount(reg, "test_log_messages_total")
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	// Hooks run for entries that pass the level check only
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetValue() == "warn" {
					assert.Equal(t, 1.0, metric.GetCounter().GetValue())
				}
				if label.GetValue() == "info" {
					assert.Equal(t, 0.0, metric.GetCounter().GetValue())
				}
			}
		}
	}
}

func TestNewLoggerWritesToFile(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	cfg.Level = "info"
	cfg.File = filepath.Join(t.TempDir(), "monitor.log")

	var buf bytes.Buffer
	logger, closeFn, err := NewLogger(cfg, "test", prometheus.NewRegistry(), &buf)
	require.NoError(t, err)

	logger.Info("refreshed")
	require.NoError(t, logger.Sync())
	require.NoError(t, closeFn())

	content, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.Contains(t, string(content), "refreshed")
	assert.Empty(t, buf.String())
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	assert.NoError(t, cfg.Validate())

	cfg.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg.SetDefaults()
	cfg.Format = "logfmt"
	assert.Error(t, cfg.Validate())
}

func TestConfigEnableVerbose(t *testing.T) {
	tt := []struct {
		Level    string
		Expected string
	}{
		{"warn", "info"},
		{"error", "info"},
		{"info", "info"},
		{"debug", "debug"},
	}

	for _, test := range tt {
		cfg := Config{Level: test.Level}
		cfg.EnableVerbose()
		assert.Equal(t, test.Expected, cfg.Level)
	}
}
