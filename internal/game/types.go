package game

import (
	"fmt"
	"strings"

	"github.com/tickworld/server/internal/core/ecs"
	"github.com/tickworld/server/internal/world"
)

// State is the player-visible activity of an entity.
type State uint8

const (
	Idle State = iota
	MovingOut
	MovingIn
	Casting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case MovingOut:
		return "moving_out"
	case MovingIn:
		return "moving_in"
	case Casting:
		return "casting"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

type Spell uint8

const (
	Lightning Spell = iota // hits whoever stands on the target cell
	SelfHeal               // restores the caster

	SpellCount
)

var spellNames = [SpellCount]string{"lightning", "self_heal"}

func (s Spell) Valid() bool { return s < SpellCount }

func (s Spell) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Spell(%d)", uint8(s))
	}
	return spellNames[s]
}

func ParseSpell(name string) (Spell, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range spellNames {
		if n == name {
			return Spell(i), nil
		}
	}
	return 0, fmt.Errorf("unknown spell %q", name)
}

// ActionKind selects the variant held by an Action.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionMove
	ActionCast
	ActionDisconnect
)

// Action is a request queued for an entity and dispatched on the next tick.
type Action struct {
	Kind  ActionKind
	Dir   world.Dir   // ActionMove
	Spell Spell       // ActionCast
	Dest  world.Point // ActionCast
}

func MoveAction(d world.Dir) Action { return Action{Kind: ActionMove, Dir: d} }

func CastAction(s Spell, dest world.Point) Action {
	return Action{Kind: ActionCast, Spell: s, Dest: dest}
}

func DisconnectAction() Action { return Action{Kind: ActionDisconnect} }

// PlayerInfo is the full snapshot a viewer receives when an entity appears.
type PlayerInfo struct {
	ID     ecs.EntityID
	Name   string
	Pos    world.Point
	State  State
	Dir    world.Dir
	Spell  Spell
	Health int
}

type InitInfo struct {
	ID     ecs.EntityID
	Name   string
	Pos    world.Point
	Health int
}

type MoveInfo struct {
	ID  ecs.EntityID
	Dir world.Dir
}

type CastInfo struct {
	ID    ecs.EntityID
	Spell Spell
}

// Effect is a one-tick visual at a cell.
type Effect struct {
	Spell Spell
	Pos   world.Point
}

// EventHandler receives the notifications addressed to one entity. Calls are
// fire-and-forget. During a tick several workers may call the same handler
// concurrently, so implementations must synchronise internally.
type EventHandler interface {
	Init(info InitInfo)
	SeePlayer(info PlayerInfo)
	Disconnect()
	SeeDisappear(id ecs.EntityID)
	SeeBeginMove(info MoveInfo)
	SeeCrossCellBorder(id ecs.EntityID)
	SeeStop(id ecs.EntityID)
	SeeBeginCast(info CastInfo)
	SeeEndCast(id ecs.EntityID)
	SeeEffect(effect Effect)
	HealthChange(health int)
}
