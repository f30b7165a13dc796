package system

import (
	"time"

	coresys "github.com/tickworld/server/internal/core/system"
	"github.com/tickworld/server/internal/game"
)

// SimulationSystem advances the game by one tick. Phase 1 (Simulate).
type SimulationSystem struct {
	game *game.Game
}

func NewSimulationSystem(g *game.Game) *SimulationSystem {
	return &SimulationSystem{game: g}
}

func (s *SimulationSystem) Phase() coresys.Phase { return coresys.PhaseSimulate }

func (s *SimulationSystem) Update(_ time.Duration) { s.game.Tick() }
