package event

import "github.com/tickworld/server/internal/core/ecs"

// Lifecycle events emitted by the simulation. Consumed by the journal.

type EntitySpawned struct {
	Tick     uint64
	EntityID ecs.EntityID
	Name     string
	X, Y     int
}

// RemoveCause says why an entity left the world.
type RemoveCause string

const (
	CauseDisconnect RemoveCause = "disconnect" // requested by the client
	CauseDeath      RemoveCause = "death"      // health exhausted
	CauseDisplaced  RemoveCause = "displaced"  // another player spawned on its cell
)

type EntityRemoved struct {
	Tick     uint64
	EntityID ecs.EntityID
	Name     string
	X, Y     int
	Cause    RemoveCause
}
