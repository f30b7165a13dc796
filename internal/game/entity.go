package game

import (
	"sync/atomic"

	"github.com/tickworld/server/internal/core/ecs"
	"github.com/tickworld/server/internal/core/event"
	"github.com/tickworld/server/internal/world"
)

// timerFunc is a one-shot continuation bound to the entity that armed it.
type timerFunc func(g *Game, e *Entity, worker int)

// pose is the part of an entity other workers read while its owner updates it.
// It lives packed in one atomic word.
type pose struct {
	pos   world.Point
	state State
	dir   world.Dir
	spell Spell
}

func (p pose) pack() uint64 {
	return uint64(uint16(p.pos.X)) |
		uint64(uint16(p.pos.Y))<<16 |
		uint64(p.state)<<32 |
		uint64(p.dir)<<40 |
		uint64(p.spell)<<48
}

func unpackPose(v uint64) pose {
	return pose{
		pos:   world.Point{X: int(uint16(v)), Y: int(uint16(v >> 16))},
		state: State(v >> 32),
		dir:   world.Dir(v >> 40),
		spell: Spell(v >> 48),
	}
}

// Entity is one connected player.
//
// Within a tick only the worker visiting the entity writes its fields. Other
// workers read pose and health, and add damage into delta at their own index.
type Entity struct {
	id   ecs.EntityID
	name string
	sink EventHandler

	pose   atomic.Uint64
	health atomic.Int32

	castDest world.Point
	next     Action

	timerAt uint64
	timer   timerFunc

	erased bool
	cause  event.RemoveCause

	delta []int // one slot per worker, summed at settlement
}

func (e *Entity) reset(id ecs.EntityID, name string, sink EventHandler, pos world.Point, workers int) {
	e.id = id
	e.name = name
	e.sink = sink
	e.pose.Store(pose{pos: pos}.pack())
	e.health.Store(MaxHealth)
	e.castDest = world.Point{}
	e.next = Action{}
	e.timerAt = 0
	e.timer = nil
	e.erased = false
	e.cause = ""
	if cap(e.delta) < workers {
		e.delta = make([]int, workers)
	}
	e.delta = e.delta[:workers]
	clear(e.delta)
}

func (e *Entity) Health() int { return int(e.health.Load()) }

func (e *Entity) loadPose() pose   { return unpackPose(e.pose.Load()) }
func (e *Entity) storePose(p pose) { e.pose.Store(p.pack()) }

// Pos returns the cell the entity currently occupies.
func (e *Entity) Pos() world.Point { return e.loadPose().pos }

func (e *Entity) info() PlayerInfo {
	p := e.loadPose()
	return PlayerInfo{
		ID:     e.id,
		Name:   e.name,
		Pos:    p.pos,
		State:  p.state,
		Dir:    p.dir,
		Spell:  p.spell,
		Health: e.Health(),
	}
}
