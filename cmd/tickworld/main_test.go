package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tickworld/server/internal/config"
	"github.com/tickworld/server/internal/data"
	"github.com/tickworld/server/internal/game"
	"github.com/tickworld/server/internal/scripting"
)

func TestBuildGameConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Game.Workers = 3
	cfg.Game.MoveTicks = 4
	engine, err := scripting.NewEngineFromString(`
function spell_hp_delta(name, base)
  if name == "lightning" then return base * 2 end
  return base
end`, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer engine.Close()

	gc := buildGameConfig(cfg, data.OpenMap(12, 10), engine)
	assert.Equal(t, 12, gc.Width)
	assert.Equal(t, 10, gc.Height)
	assert.Equal(t, 3, gc.Workers)
	assert.Equal(t, 4, gc.MoveTicks)
	assert.Equal(t, -102, gc.SpellHPDelta[game.Lightning])
	assert.Equal(t, 40, gc.SpellHPDelta[game.SelfHeal])
	assert.NoError(t, gc.Validate())
}

func TestBuildGameConfigDefaultsWorkers(t *testing.T) {
	engine, err := scripting.NewEngineFromString("", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer engine.Close()

	gc := buildGameConfig(config.Default(), data.OpenMap(8, 8), engine)
	assert.Positive(t, gc.Workers)
}

func TestLoadMap(t *testing.T) {
	m, err := loadMap(config.MapConfig{Width: 5, Height: 4})
	require.NoError(t, err)
	assert.Len(t, m.Spawns, 20)

	_, err = loadMap(config.MapConfig{Path: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTicksIn(t *testing.T) {
	assert.Equal(t, 25, ticksIn(5*time.Second, 200*time.Millisecond))
	assert.Equal(t, 1, ticksIn(time.Millisecond, 200*time.Millisecond))
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger(config.LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(-1))

	log, err = newLogger(config.LoggingConfig{Level: "bogus", Format: "console"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(-1))
}
