package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"loanverify/domain/core"
	"loanverify/domain/scoring"
	"loanverify/internal/errors"
	"loanverify/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"HOST", "PORT", "GIN_MODE", "DASHBOARD_PORT", "REQUEST_TIMEOUT",
		"STORE_DRIVER", "DATABASE_URL", "SQLITE_PATH",
		"FAILURE_POLICY", "BATCH_CONCURRENCY", "AUDIT_ON_APPLY", "AUDIT_WINDOW",
		"SCORING_PARAMS_FILE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, "0.0.0.0:8090", cfg.Server.DashboardAddr())
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, pipeline.PolicyAbort, cfg.Pipeline.FailurePolicy)
	assert.Equal(t, 4, cfg.Pipeline.BatchConcurrency)
	assert.True(t, cfg.Audit.OnApply)
	assert.Equal(t, 20, cfg.Audit.Window)
	assert.Empty(t, cfg.Scoring.ParamsFile)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/loans.db")
	t.Setenv("FAILURE_POLICY", "degrade")
	t.Setenv("AUDIT_ON_APPLY", "false")
	t.Setenv("BATCH_CONCURRENCY", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/loans.db", cfg.Store.DSN())
	assert.Equal(t, pipeline.PolicyDegrade, cfg.Pipeline.FailurePolicy)
	assert.False(t, cfg.Audit.OnApply)
	assert.Equal(t, 8, cfg.Pipeline.BatchConcurrency)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}},
		{"unknown driver", map[string]string{"STORE_DRIVER": "mongo"}},
		{"unknown policy", map[string]string{"FAILURE_POLICY": "retry"}},
		{"zero concurrency", map[string]string{"BATCH_CONCURRENCY": "0"}},
		{"negative window", map[string]string{"AUDIT_WINDOW": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestLoadParametersDefaults(t *testing.T) {
	params, err := LoadParameters("")
	require.NoError(t, err)
	assert.Equal(t, scoring.DefaultParameters(), params)
}

func TestLoadParametersOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
thresholds:
  risk_low: 0.25
known_employers:
  - acme
`), 0o600))

	params, err := LoadParameters(path)
	require.NoError(t, err)
	assert.Equal(t, 0.25, params.Thresholds.RiskLow)
	assert.Equal(t, 0.5, params.Thresholds.RiskMedium, "keys absent from the file keep their defaults")
	assert.Equal(t, 500.0, params.Credit.BaseScore)
	assert.Equal(t, []string{"acme"}, params.KnownEmployers)
	assert.NotEqual(t, scoring.DefaultParameters().Fingerprint(), params.Fingerprint())
}

func TestLoadParametersRejectsInvertedTiers(t *testing.T) {
	_, err := ParseParameters([]byte("thresholds:\n  credit_score_fair: 750\n"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	assert.True(t, core.IsValidationError(err))
}

func TestLoadParametersRejectsEmptyEmployers(t *testing.T) {
	_, err := ParseParameters([]byte("known_employers: []\n"))
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLoadParametersMissingFile(t *testing.T) {
	_, err := LoadParameters(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLoadParametersMalformed(t *testing.T) {
	_, err := ParseParameters([]byte("credit: [1, 2"))
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
