package system

import (
	"time"

	"github.com/tickworld/server/internal/core/event"
	coresys "github.com/tickworld/server/internal/core/system"
)

// EventSystem delivers the lifecycle events emitted since the last frame.
// Phase 2 (Events).
type EventSystem struct {
	bus *event.Bus
}

func NewEventSystem(bus *event.Bus) *EventSystem {
	return &EventSystem{bus: bus}
}

func (s *EventSystem) Phase() coresys.Phase { return coresys.PhaseEvents }

func (s *EventSystem) Update(_ time.Duration) { s.bus.Flush() }
