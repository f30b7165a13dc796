package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
[game]
view_radius = 4
workers = 2
lightning_delta = -30

[network]
tick_rate = "50ms"

[journal]
enabled = true
dsn = "postgres://tw:tw@localhost/tw"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Game.ViewRadius)
	assert.Equal(t, 2, cfg.Game.Workers)
	assert.Equal(t, -30, cfg.Game.LightningDelta)
	assert.Equal(t, 40, cfg.Game.SelfHealDelta, "untouched keys keep their default")
	assert.Equal(t, 50*time.Millisecond, cfg.Network.TickRate)
	assert.Equal(t, "/ws", cfg.Network.Path)
	assert.True(t, cfg.Journal.Enabled)
	assert.NotZero(t, cfg.Server.StartTime)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejectsBadSyntax(t *testing.T) {
	_, err := Load(writeFile(t, "[game\nview_radius = 1"))
	assert.ErrorContains(t, err, "parse config")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	_, err := Load(writeFile(t, `
[game]
move_ticks = 0

[journal]
enabled = true
dsn = ""
`))
	require.Error(t, err)
	assert.ErrorContains(t, err, "move_ticks")
	assert.ErrorContains(t, err, "journal.dsn")
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
