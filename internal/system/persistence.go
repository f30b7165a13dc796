package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tickworld/server/internal/core/event"
	coresys "github.com/tickworld/server/internal/core/system"
	"github.com/tickworld/server/internal/persist"
)

// JournalKindSpawn marks a spawn row. Removal rows use the removal cause.
const JournalKindSpawn = "spawn"

// PersistenceSystem collects lifecycle events and writes them to the journal
// in batches. Phase 4 (Persist).
type PersistenceSystem struct {
	repo      *persist.JournalRepo
	log       *zap.Logger
	pending   []persist.JournalEntry
	tickCount int
	interval  int // flush every N ticks
	batchSize int // or as soon as this many rows are waiting
}

func NewPersistenceSystem(bus *event.Bus, repo *persist.JournalRepo, intervalTicks, batchSize int, log *zap.Logger) *PersistenceSystem {
	s := &PersistenceSystem{
		repo:      repo,
		log:       log,
		interval:  max(intervalTicks, 1),
		batchSize: max(batchSize, 1),
	}
	event.Subscribe(bus, func(ev event.EntitySpawned) {
		s.pending = append(s.pending, persist.JournalEntry{
			Tick: ev.Tick, EntityID: ev.EntityID.Public(), Name: ev.Name,
			Kind: JournalKindSpawn, X: ev.X, Y: ev.Y,
		})
	})
	event.Subscribe(bus, func(ev event.EntityRemoved) {
		s.pending = append(s.pending, persist.JournalEntry{
			Tick: ev.Tick, EntityID: ev.EntityID.Public(), Name: ev.Name,
			Kind: string(ev.Cause), X: ev.X, Y: ev.Y,
		})
	})
	return s
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval && len(s.pending) < s.batchSize {
		return
	}
	s.tickCount = 0

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		s.log.Error("journal flush failed", zap.Error(err))
	}
}

// Flush writes every pending row. Rows of a failed batch are dropped.
// Called for graceful shutdown as well.
func (s *PersistenceSystem) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	batch := s.pending
	s.pending = nil
	if err := s.repo.Write(ctx, batch); err != nil {
		s.log.Warn("journal rows dropped", zap.Int("rows", len(batch)))
		return err
	}
	s.log.Debug("journal flushed", zap.Int("rows", len(batch)))
	return nil
}

// Pending returns the number of rows waiting to be written.
func (s *PersistenceSystem) Pending() int { return len(s.pending) }
