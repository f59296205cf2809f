// cmd/ledgerctl/commands_test.go
package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	out, err := run(t, "classify",
		"--deadline", "1700000000000",
		"--repaid-at", "1699136000000",
		"--funded-at", "1697408000000",
	)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "early", got["paymentCategory"])
	assert.Equal(t, float64(10), got["daysEarlyLate"])
	assert.Equal(t, float64(30), got["loanDuration"])
	assert.Equal(t, float64(100), got["scoreDelta"])
}

func TestClassifyCommandRejectsBadInput(t *testing.T) {
	_, err := run(t, "classify", "--deadline", "soon", "--repaid-at", "1")
	assert.ErrorContains(t, err, "invalid --deadline")

	_, err = run(t, "classify", "--deadline", "1")
	assert.Error(t, err)
}

func TestLedgerCommandsOnSQLite(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("DB_DRIVER", "sqlite")
	dbPath := filepath.Join(dir, "ledger.db")

	out, err := run(t, "--db-path", dbPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied (sqlite)")

	out, err = run(t, "--db-path", dbPath, "score", "pkh-cli")
	require.NoError(t, err)
	var score map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &score))
	assert.Equal(t, float64(500), score["currentScore"])

	out, err = run(t, "--db-path", dbPath, "active")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(out))

	out, err = run(t, "--db-path", dbPath, "verify", "fl-none")
	require.NoError(t, err)
	assert.Contains(t, out, `"deactivated": 0`)

	_, err = run(t, "--db-path", dbPath, "default", "loan-missing")
	assert.ErrorContains(t, err, "not found")
}
