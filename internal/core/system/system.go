package system

import "time"

// Phase defines execution ordering within a single server frame.
type Phase int

const (
	PhaseInput    Phase = iota // 0: drain inbound message queues into the game
	PhaseSimulate              // 1: advance the simulation by one tick
	PhaseEvents                // 2: deliver lifecycle events
	PhaseOutput                // 3: flush buffered messages to sockets
	PhasePersist               // 4: journal flush
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseSimulate:
		return "simulate"
	case PhaseEvents:
		return "events"
	case PhaseOutput:
		return "output"
	case PhasePersist:
		return "persist"
	}
	return "unknown"
}

// System is the interface every frame system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
