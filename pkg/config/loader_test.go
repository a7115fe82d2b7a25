package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadBaseAndOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base.yaml", `
server:
  port: ":9090"
db:
  host: "db.internal"
  port: 5432
log:
  level: "info"
dispatch:
  poll_interval: 2s
  batch_size: 50
inbound:
  interval: 5m
`)
	writeConfig(t, dir, "staging.yaml", `
log:
  level: "debug"
dispatch:
  poll_interval: 250ms
`)

	cfg, err := Load("staging", dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	// Overlay wins where set.
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.Dispatch.PollInterval)
	// Overlay keeps base values it does not mention.
	assert.Equal(t, 50, cfg.Dispatch.BatchSize)
	assert.Equal(t, 5*time.Minute, cfg.Inbound.Interval)
	// Defaults fill whatever neither file sets.
	assert.Equal(t, 24*time.Hour, cfg.Inbound.DedupTTL)
}

func TestLoadMissingBaseFails(t *testing.T) {
	_, err := Load("local", t.TempDir())
	assert.Error(t, err)
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base.yaml", `
server:
  port: ":9090"
jwt:
  secret: "from-yaml"
`)

	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("SERVER_PORT", ":7070")

	cfg, err := Load("local", dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, ":7070", cfg.Server.Port)
}

func TestBadDurationRejected(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base.yaml", `
dispatch:
  poll_interval: "soon"
`)

	_, err := Load("local", dir)
	assert.Error(t, err)
}
