package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textilepro/internal/catalogsync"
	"textilepro/internal/config"
)

func setupEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", filepath.Join(dir, "textilepro.db"))
	t.Setenv("LOG_FILE", filepath.Join(dir, "textilepro.log"))
	t.Setenv("ADMIN_EMAIL", "admin@textilepro.test")
	t.Setenv("ADMIN_PASSWORD", "Passw0rd!")
	t.Setenv("TOPTEX_API_KEY", "")
	t.Setenv("TOPTEX_USERNAME", "")
	t.Setenv("TOPTEX_PASSWORD", "")
	t.Setenv("S3_BUCKET", "")
}

func run(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	t.Cleanup(func() {
		statusJSON = false
		statusLimit = catalogsync.DefaultStatusLimit
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateIsIdempotent(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date (sqlite)")

	_, err = run(t, "migrate")
	require.NoError(t, err)
}

func TestSyncStatusOnFreshDatabase(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "sync", "status", "--json")
	require.NoError(t, err)

	var rep catalogsync.StatusReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 0, rep.ProductCount)
	assert.Empty(t, rep.Jobs)
	assert.Contains(t, out, `"jobs": []`)
}

func TestSyncStatusTable(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "sync", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "products: 0")
	assert.Contains(t, out, "no sync jobs yet")
}

func TestSyncNeedsSupplierCredentials(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "sync", "start")
	assert.ErrorIs(t, err, config.ErrMissingCredentials)

	_, err = run(t, "sync", "force-restart")
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
}
