package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/tickworld/server/internal/core/system"
	"github.com/tickworld/server/internal/game"
	"github.com/tickworld/server/internal/net"
)

// StatsSystem logs a one-line server summary every interval ticks.
type StatsSystem struct {
	game      *game.Game
	store     *net.SessionStore
	log       *zap.Logger
	interval  int
	tickCount int
	elapsed   time.Duration
}

func NewStatsSystem(g *game.Game, store *net.SessionStore, intervalTicks int, log *zap.Logger) *StatsSystem {
	return &StatsSystem{game: g, store: store, log: log, interval: max(intervalTicks, 1)}
}

func (s *StatsSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *StatsSystem) Update(dt time.Duration) {
	s.tickCount++
	s.elapsed += dt
	if s.tickCount < s.interval {
		return
	}
	st := s.game.Stats()
	s.log.Info("server stats",
		zap.Uint64("tick", st.Tick),
		zap.Int("entities", st.Entities),
		zap.Int("occupied", st.Occupied),
		zap.Int("locked", st.Locked),
		zap.Int("blocked", st.Blocked),
		zap.Int("sessions", s.store.Len()),
		zap.Duration("avg_interval", s.elapsed/time.Duration(s.tickCount)),
	)
	s.tickCount = 0
	s.elapsed = 0
}
