package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tickworld/server/internal/config"
	"github.com/tickworld/server/internal/core/event"
	coresys "github.com/tickworld/server/internal/core/system"
	"github.com/tickworld/server/internal/data"
	"github.com/tickworld/server/internal/game"
	"github.com/tickworld/server/internal/handler"
	gonet "github.com/tickworld/server/internal/net"
	"github.com/tickworld/server/internal/net/packet"
	"github.com/tickworld/server/internal/persist"
	"github.com/tickworld/server/internal/scripting"
	"github.com/tickworld/server/internal/system"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              tickworld  v0.1.0            \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("TICKWORLD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Server.StartTime = time.Now().Unix()

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. World data
	printSection("world")
	m, err := loadMap(cfg.Map)
	if err != nil {
		return err
	}
	printStat("width", m.Width)
	printStat("height", m.Height)
	printStat("walls", len(m.Walls))
	printStat("spawn points", len(m.Spawns))

	engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()

	gameCfg := buildGameConfig(cfg, m, engine)
	g, err := game.New(gameCfg, log.Named("game"))
	if err != nil {
		return err
	}
	for _, w := range m.Walls {
		g.AddWall(w)
	}
	printStat("blocked cells", g.Stats().Blocked)
	printStat("workers", gameCfg.Workers)
	printStat("lightning delta", gameCfg.SpellHPDelta[game.Lightning])
	printStat("self heal delta", gameCfg.SpellHPDelta[game.SelfHeal])
	printOK(fmt.Sprintf("map %q loaded", m.Name))
	fmt.Println()

	bus := event.NewBus()
	g.SetEventBus(bus)

	// 4. Journal
	var journal *system.PersistenceSystem
	if cfg.Journal.Enabled {
		printSection("journal")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := persist.OpenJournal(ctx, cfg.Journal, log)
		if err != nil {
			cancel()
			return fmt.Errorf("journal: %w", err)
		}
		defer db.Close()
		err = persist.RunMigrations(ctx, db)
		cancel()
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		printOK(fmt.Sprintf("%s journal ready", db.Dialect))
		fmt.Println()

		journal = system.NewPersistenceSystem(bus, persist.NewJournalRepo(db),
			ticksIn(cfg.Journal.FlushInterval, cfg.Network.TickRate), cfg.Journal.BatchSize, log.Named("journal"))
	}

	// 5. Message handlers
	dec, err := packet.NewDecoder()
	if err != nil {
		return fmt.Errorf("decoder: %w", err)
	}
	reg := packet.NewRegistry(dec, log)
	deps := &handler.Deps{Game: g, Spawns: data.NewSpawnCycle(m), Log: log}
	handler.RegisterAll(reg, deps)

	// 6. Network server
	netServer := gonet.NewServer(cfg.Network, log)
	if err := netServer.Start(); err != nil {
		return fmt.Errorf("net server: %w", err)
	}

	// 7. Systems
	store := gonet.NewSessionStore()
	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(netServer, reg, store, deps, cfg.Network.MaxPacketsPerTick, log))
	runner.Register(system.NewSimulationSystem(g))
	runner.Register(system.NewEventSystem(bus))
	runner.Register(system.NewOutputSystem(store))
	if journal != nil {
		runner.Register(journal)
	}
	if cfg.Server.StatsInterval > 0 {
		runner.Register(system.NewStatsSystem(g, store, ticksIn(cfg.Server.StatsInterval, cfg.Network.TickRate), log))
	}

	// 8. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("listening on ws://%s%s", netServer.Addr(), cfg.Network.Path))
	printReady(fmt.Sprintf("game loop running (tick: %s)", cfg.Network.TickRate))
	fmt.Println()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			runner.Tick(now.Sub(last))
			last = now
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if journal != nil {
				if err := journal.Flush(ctx); err != nil {
					log.Error("final journal flush", zap.Error(err))
				}
			}
			if err := netServer.Shutdown(ctx); err != nil {
				log.Warn("net server shutdown", zap.Error(err))
			}
			cancel()
			log.Info("server stopped", zap.Uint64("tick", g.Now()))
			return nil
		}
	}
}

// loadMap reads the configured map, or builds an open world when no map
// file is set.
func loadMap(cfg config.MapConfig) (*data.Map, error) {
	if cfg.Path == "" {
		return data.OpenMap(cfg.Width, cfg.Height), nil
	}
	m, err := data.LoadMap(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("load map %s: %w", cfg.Path, err)
	}
	return m, nil
}

// buildGameConfig merges the server config, the map size and the spell
// script into the simulation's configuration.
func buildGameConfig(cfg *config.Config, m *data.Map, engine *scripting.Engine) game.Config {
	gc := game.DefaultConfig()
	gc.Width = m.Width
	gc.Height = m.Height
	gc.ViewRadius = cfg.Game.ViewRadius
	gc.MoveTicks = cfg.Game.MoveTicks
	gc.CastTicks = cfg.Game.CastTicks
	gc.Workers = cfg.Game.Workers
	if gc.Workers == 0 {
		gc.Workers = runtime.NumCPU()
	}
	var base [game.SpellCount]int
	base[game.Lightning] = cfg.Game.LightningDelta
	base[game.SelfHeal] = cfg.Game.SelfHealDelta
	gc.SpellHPDelta = engine.SpellTable(base)
	return gc
}

// ticksIn converts a wall-clock interval to a tick count, at least one.
func ticksIn(d, tick time.Duration) int {
	return max(int(d/tick), 1)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
