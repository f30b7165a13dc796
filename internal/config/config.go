package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Game      GameConfig      `toml:"game"`
	Network   NetworkConfig   `toml:"network"`
	Map       MapConfig       `toml:"map"`
	Scripting ScriptingConfig `toml:"scripting"`
	Journal   JournalConfig   `toml:"journal"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Name          string        `toml:"name"`
	StatsInterval time.Duration `toml:"stats_interval"` // 0 disables the periodic status line
	StartTime     int64         // set at boot, not from config
}

type GameConfig struct {
	ViewRadius int `toml:"view_radius"`
	MoveTicks  int `toml:"move_ticks"`
	CastTicks  int `toml:"cast_ticks"`
	Workers    int `toml:"workers"` // 0 = one per CPU

	// Base health deltas, possibly rewritten by the spell script.
	LightningDelta int `toml:"lightning_delta"`
	SelfHealDelta  int `toml:"self_heal_delta"`
}

type NetworkConfig struct {
	BindAddress       string        `toml:"bind_address"`
	Path              string        `toml:"path"` // websocket endpoint
	TickRate          time.Duration `toml:"tick_rate"`
	InQueueSize       int           `toml:"in_queue_size"`
	OutQueueSize      int           `toml:"out_queue_size"`
	MaxPacketsPerTick int           `toml:"max_packets_per_tick"`
	WriteTimeout      time.Duration `toml:"write_timeout"`
	ReadTimeout       time.Duration `toml:"read_timeout"`
	MaxMessageSize    int64         `toml:"max_message_size"`
}

type MapConfig struct {
	Path string `toml:"path"` // YAML map; empty uses an open world of Width x Height
	// Used only when Path is empty.
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

type ScriptingConfig struct {
	Dir string `toml:"dir"` // empty disables scripting
}

type JournalConfig struct {
	Enabled       bool          `toml:"enabled"`
	DSN           string        `toml:"dsn"` // postgres:// URL or a SQLite file path
	FlushInterval time.Duration `toml:"flush_interval"`
	BatchSize     int           `toml:"batch_size"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

// Default returns the built-in configuration used when no file is present.
func Default() *Config {
	cfg := defaults()
	cfg.Server.StartTime = time.Now().Unix()
	return cfg
}

// Validate rejects values the server cannot run with. Game-level limits are
// checked again when the simulation is built.
func (c *Config) Validate() error {
	var errs []error
	if c.Network.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("network.tick_rate must be positive, got %s", c.Network.TickRate))
	}
	if c.Network.InQueueSize <= 0 || c.Network.OutQueueSize <= 0 {
		errs = append(errs, errors.New("network queue sizes must be positive"))
	}
	if c.Game.ViewRadius < 1 || c.Game.MoveTicks < 1 || c.Game.CastTicks < 1 {
		errs = append(errs, errors.New("game.view_radius, move_ticks and cast_ticks must be positive"))
	}
	if c.Game.Workers < 0 {
		errs = append(errs, fmt.Errorf("game.workers must not be negative, got %d", c.Game.Workers))
	}
	if c.Map.Path == "" && (c.Map.Width <= 0 || c.Map.Height <= 0) {
		errs = append(errs, fmt.Errorf("map.width and map.height must be positive without map.path"))
	}
	if c.Journal.Enabled && c.Journal.DSN == "" {
		errs = append(errs, errors.New("journal.dsn is required when the journal is enabled"))
	}
	return errors.Join(errs...)
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:          "tickworld",
			StatsInterval: time.Minute,
		},
		Game: GameConfig{
			ViewRadius:     2,
			MoveTicks:      1,
			CastTicks:      1,
			Workers:        0,
			LightningDelta: -51,
			SelfHealDelta:  40,
		},
		Network: NetworkConfig{
			BindAddress:       "0.0.0.0:7001",
			Path:              "/ws",
			TickRate:          200 * time.Millisecond,
			InQueueSize:       128,
			OutQueueSize:      256,
			MaxPacketsPerTick: 32,
			WriteTimeout:      10 * time.Second,
			ReadTimeout:       60 * time.Second,
			MaxMessageSize:    4096,
		},
		Map: MapConfig{
			Width:  8,
			Height: 8,
		},
		Journal: JournalConfig{
			Enabled:       false,
			DSN:           "data/journal.db",
			FlushInterval: 5 * time.Second,
			BatchSize:     256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
