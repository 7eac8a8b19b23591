package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohbm/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"LOG_LEVEL", "GEWEKE_Z_THRESHOLD", "RHAT_THRESHOLD", "DIAG_WORKERS",
		"DIAG_TIMEOUT", "STATS_ALPHA", "STATS_BATCHES", "DATABASE_URL", "TRACE_TABLE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 2.0, cfg.Diagnostics.GewekeZThreshold)
	assert.Equal(t, 1.1, cfg.Diagnostics.RHatThreshold)
	assert.Equal(t, 4, cfg.Diagnostics.Workers)
	assert.Equal(t, 5*time.Minute, cfg.Diagnostics.Timeout)
	assert.Equal(t, 0.05, cfg.Summary.Alpha)
	assert.Equal(t, 100, cfg.Summary.Batches)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, "traces", cfg.Database.TraceTable)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GEWEKE_Z_THRESHOLD", "1.96")
	t.Setenv("STATS_BATCHES", "20")
	t.Setenv("DATABASE_URL", "postgres://localhost/mcmc")
	t.Setenv("TRACE_TABLE", "chain_traces")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1.96, cfg.Diagnostics.GewekeZThreshold)
	assert.Equal(t, 20, cfg.Summary.Batches)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "chain_traces", cfg.Database.TraceTable)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"STATS_ALPHA":    "1.5",
		"RHAT_THRESHOLD": "0.9",
		"DIAG_WORKERS":   "0",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestLoad_RejectsUnsafeTraceTable(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/mcmc")
	t.Setenv("TRACE_TABLE", "traces; DROP TABLE x")

	_, err := Load()
	assert.Error(t, err)
}
