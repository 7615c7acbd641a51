package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"addebiti/internal/core"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "addebiti.db")
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", path)
	t.Setenv("AMQP_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "migrate", "--json")
	require.NoError(t, err)

	var res map[string]uint
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, uint(3), res["schema_version"])
}

func TestMigrateRequiresSQLite(t *testing.T) {
	setupEnv(t)
	t.Setenv("DATA_BACKEND", "memory")

	_, err := run(t, "migrate")
	assert.Error(t, err)
}

func TestServicesEditAndCalendar(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "services", "add", "Netflix", "--day", "5", "--amount", "15.99", "--json")
	require.NoError(t, err)
	var created core.SubscriptionService
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.NotEmpty(t, created.ID)

	out, err = run(t, "services", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Netflix")
	assert.Contains(t, out, created.ID)

	_, err = run(t, "edit", created.ID, "2024-04-05", "--amount", "19.99")
	require.NoError(t, err)

	out, err = run(t, "payments", "2024-04-05", "--json")
	require.NoError(t, err)
	var payments []core.EffectivePayment
	require.NoError(t, json.Unmarshal([]byte(out), &payments))
	require.Len(t, payments, 1)
	assert.True(t, payments[0].IsOverride)
	assert.Equal(t, 19.99, payments[0].Amount)

	_, err = run(t, "edit", created.ID, "2024-04-05", "--scope", "manual_months", "--months", "2024-05,2024-06", "--day", "9")
	require.NoError(t, err)

	out, err = run(t, "calendar", "2024", "6")
	require.NoError(t, err)
	assert.Equal(t, "2024-06: 5 9\n", out)

	out, err = run(t, "payments", "2024-04-06")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "No payments"))

	_, err = run(t, "services", "rm", created.ID)
	require.NoError(t, err)
	_, err = run(t, "services", "rm", created.ID)
	assert.Error(t, err)
}

func TestArgumentErrors(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "calendar", "twenty", "4")
	assert.Error(t, err)

	_, err = run(t, "payments", "not-a-date")
	assert.Error(t, err)

	_, err = run(t, "services", "add", "NoDay")
	assert.Error(t, err)
}
