// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainlend-ledger/pkg/db"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, db.DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "ledgerdb", cfg.DB.DBName)
	assert.Equal(t, 5*time.Minute, cfg.DB.ConnMaxLifetime)
	assert.True(t, cfg.MigrateOnStart)
	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, "chainlend.repayment", cfg.NATS.Subject("repayment"))
	assert.Equal(t, 30.0, cfg.Scoring.DefaultLoanDurationDays)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("DB_NAME", "legacy_name")
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("NATS_ACK_WAIT", "45s")
	t.Setenv("SCORING_DEFAULT_LOAN_DURATION_DAYS", "14")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, db.DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, ":memory:", cfg.DB.Path)
	assert.Equal(t, "legacy_name", cfg.DB.DBName)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, 45*time.Second, cfg.NATS.AckWait)
	assert.Equal(t, 14.0, cfg.Scoring.DefaultLoanDurationDays)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	yaml := []byte(`
server:
  port: "7000"
db:
  driver: sqlite
  path: ledger.db
nats:
  subject_prefix: testnet
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.ServerPort)
	assert.Equal(t, "ledger.db", cfg.DB.Path)
	assert.Equal(t, "testnet.funding", cfg.NATS.Subject("funding"))
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("DB_DRIVER", "mysql")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "unsupported db.driver")

	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_PORT", "0")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "invalid DB_PORT")
}
