package game

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tickworld/server/internal/core/ecs"
	"github.com/tickworld/server/internal/core/event"
	"github.com/tickworld/server/internal/world"
)

// Game owns every entity and advances them one tick at a time.
//
// NewPlayer, EnqueueAction, AddWall and Tick must all be called from the same
// goroutine. Tick fans the work out to Config.Workers goroutines internally and
// returns once every worker is done.
type Game struct {
	cfg     Config
	log     *zap.Logger
	geo     *world.Geodata
	grid    *world.Grid
	objects *ecs.Store[Entity]
	bus     *event.Bus

	now     uint64
	live    int
	removed [][]event.EntityRemoved // per worker, drained after each tick
}

func New(cfg Config, log *zap.Logger) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("game config: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Game{
		cfg:     cfg,
		log:     log,
		geo:     world.NewGeodata(cfg.Width, cfg.Height),
		grid:    world.NewGrid(cfg.Width, cfg.Height),
		objects: ecs.NewStore[Entity](cfg.Workers),
		removed: make([][]event.EntityRemoved, cfg.Workers),
	}, nil
}

// SetEventBus routes spawn and removal events to b. Events are emitted on the
// calling goroutine, never from tick workers.
func (g *Game) SetEventBus(b *event.Bus) { g.bus = b }

// Now returns the number of ticks run so far.
func (g *Game) Now() uint64 { return g.now }

// Count returns the number of live entities.
func (g *Game) Count() int { return g.live }

// AddWall blocks every way into p. Map loading calls it before the first tick.
func (g *Game) AddWall(p world.Point) { g.geo.AddWall(p) }

// Stats is a point-in-time summary for the periodic status log.
type Stats struct {
	Tick     uint64
	Entities int
	Occupied int
	Locked   int
	Blocked  int // cells with at least one walled exit
}

func (g *Game) Stats() Stats {
	occ, locked := g.grid.Count()
	return Stats{Tick: g.now, Entities: g.live, Occupied: occ, Locked: locked, Blocked: g.geo.Walls()}
}

// Player returns a snapshot of a live entity.
func (g *Game) Player(id ecs.EntityID) (PlayerInfo, bool) {
	e := g.objects.Find(id)
	if e == nil {
		return PlayerInfo{}, false
	}
	return e.info(), true
}

// EnqueueAction stores a for the entity's next tick, replacing any action
// queued earlier. Unknown or stale ids are ignored.
func (g *Game) EnqueueAction(id ecs.EntityID, a Action) {
	if e := g.objects.Find(id); e != nil {
		e.next = a
	}
}

// NewPlayer spawns an entity at pos. Whoever holds or has reserved the cell is
// disconnected first. The new entity gets Init, then it and every entity in
// view see each other.
func (g *Game) NewPlayer(sink EventHandler, pos world.Point, name string) (ecs.EntityID, error) {
	if sink == nil {
		return 0, fmt.Errorf("spawn %q: nil event handler", name)
	}
	if !g.grid.Inside(pos) {
		return 0, fmt.Errorf("spawn %q: %s outside %dx%d world", name, pos, g.cfg.Width, g.cfg.Height)
	}

	if prev := g.grid.OccupantAt(pos); !prev.IsZero() {
		g.evict(g.mustFind(prev.Unlocked()))
	}

	id, e := g.objects.Create()
	e.reset(id, name, sink, pos, g.cfg.Workers)
	g.live++

	sink.Init(InitInfo{ID: id, Name: name, Pos: pos, Health: e.Health()})
	g.grid.Place(id, pos)

	full := e.info()
	g.forEachAround(pos, func(_ world.Point, o *Entity) {
		if o == e {
			return
		}
		sink.SeePlayer(o.info())
		o.sink.SeePlayer(full)
	})

	g.log.Debug("player spawned", zap.Stringer("id", id), zap.String("name", name), zap.Stringer("pos", pos))
	if g.bus != nil {
		event.Emit(g.bus, event.EntitySpawned{Tick: g.now, EntityID: id, Name: name, X: pos.X, Y: pos.Y})
	}
	return id, nil
}

// evict removes e immediately, outside of any tick.
func (g *Game) evict(e *Entity) {
	ev := g.removal(e, event.CauseDisplaced)
	g.disconnect(e)
	g.objects.MarkErased(e.id, 0)
	g.objects.MergeFreed()
	g.live--
	g.log.Debug("player displaced", zap.Stringer("id", e.id), zap.String("name", e.name))
	if g.bus != nil {
		event.Emit(g.bus, ev)
	}
}

// Tick advances time by one and runs both update phases.
func (g *Game) Tick() {
	g.now++

	g.objects.ParallelEach(g.update)
	g.objects.ParallelEach(g.settle)
	g.objects.MergeFreed()

	for w, evs := range g.removed {
		g.live -= len(evs)
		if g.bus != nil {
			for _, ev := range evs {
				event.Emit(g.bus, ev)
			}
		}
		clear(evs)
		g.removed[w] = evs[:0]
	}
}

// update is phase one: dispatch the queued action, then fire a due timer.
func (g *Game) update(e *Entity, worker int) {
	if a := e.next; a.Kind != ActionNone {
		e.next = Action{}
		g.dispatch(e, a)
	}

	if e.timer != nil && g.now >= e.timerAt {
		fn := e.timer
		e.timer = nil
		if !e.erased {
			fn(g, e, worker)
		}
	}
}

func (g *Game) dispatch(e *Entity, a Action) {
	switch a.Kind {
	case ActionDisconnect:
		e.erased = true
		e.cause = event.CauseDisconnect
	case ActionMove:
		g.beginMove(e, a.Dir)
	case ActionCast:
		g.beginCast(e, a.Spell, a.Dest)
	default:
		panic(fmt.Sprintf("game: unknown action kind %d for %s", a.Kind, e.id))
	}
}

// settle is phase two: fold the per-worker damage into health and remove
// entities that died or asked to leave.
func (g *Game) settle(e *Entity, worker int) {
	sum := 0
	for i, d := range e.delta {
		sum += d
		e.delta[i] = 0
	}

	if !e.erased && sum != 0 {
		old := e.Health()
		if hp := old + sum; hp > 0 {
			hp = min(hp, MaxHealth)
			if hp != old {
				e.health.Store(int32(hp))
				e.sink.HealthChange(hp)
			}
		} else {
			e.erased = true
			e.cause = event.CauseDeath
		}
	}

	if e.erased {
		g.removed[worker] = append(g.removed[worker], g.removal(e, e.cause))
		g.disconnect(e)
		g.objects.MarkErased(e.id, worker)
		g.log.Debug("player removed", zap.Stringer("id", e.id), zap.String("cause", string(e.cause)))
	}
}

func (g *Game) removal(e *Entity, cause event.RemoveCause) event.EntityRemoved {
	p := e.Pos()
	return event.EntityRemoved{Tick: g.now, EntityID: e.id, Name: e.name, X: p.X, Y: p.Y, Cause: cause}
}

// disconnect tells e and its viewers that e is gone and frees its cells,
// including a destination reserved by a move still in its first half.
func (g *Game) disconnect(e *Entity) {
	p := e.loadPose()
	e.sink.Disconnect()

	g.forEachAround(p.pos, func(_ world.Point, o *Entity) {
		if o != e {
			o.sink.SeeDisappear(e.id)
		}
	})

	if held := g.grid.Vacate(p.pos); held != e.id {
		panic(fmt.Sprintf("game: %s at %s but cell held %s", e.id, p.pos, held))
	}
	if p.state == MovingOut {
		g.grid.Unlock(e.id, p.pos.Next(p.dir))
	}
}

func (g *Game) setTimer(e *Entity, ticks int, fn timerFunc) {
	if e.timer != nil {
		panic(fmt.Sprintf("game: %s already has a pending timer", e.id))
	}
	e.timerAt = g.now + uint64(ticks)
	e.timer = fn
}

func (g *Game) beginMove(e *Entity, d world.Dir) {
	p := e.loadPose()
	if p.state != Idle || !d.Valid() {
		return
	}
	dest := p.pos.Next(d)
	if !g.grid.Inside(dest) || !g.geo.CanMove(p.pos, d) {
		return
	}
	if !g.grid.LockCell(e.id, dest) {
		return
	}

	p.state = MovingOut
	p.dir = d
	e.storePose(p)
	g.setTimer(e, g.cfg.MoveTicks, (*Game).onCrossCellBorder)

	info := MoveInfo{ID: e.id, Dir: d}
	g.forEachAround(p.pos, func(_ world.Point, o *Entity) {
		o.sink.SeeBeginMove(info)
	})
}

func (g *Game) onCrossCellBorder(e *Entity, _ int) {
	p := e.loadPose()
	if p.state != MovingOut {
		panic(fmt.Sprintf("game: %s crossing border in state %s", e.id, p.state))
	}
	oldPos := p.pos
	p.state = MovingIn
	p.pos = oldPos.Next(p.dir)
	g.grid.CommitMove(oldPos, p.pos)
	e.storePose(p)

	g.setTimer(e, g.cfg.MoveTicks, (*Game).onStopMove)

	radius := g.cfg.ViewRadius
	full := e.info()
	g.forEachAround(p.pos, func(at world.Point, o *Entity) {
		if world.IsOnArc180(p.pos, radius, p.dir, at) {
			e.sink.SeePlayer(o.info())
			o.sink.SeePlayer(full)
		} else {
			o.sink.SeeCrossCellBorder(e.id)
		}
	})

	world.ForArc180(oldPos, radius, p.dir.Opposite(), func(at world.Point) {
		if o := g.objectAt(at); o != nil {
			e.sink.SeeDisappear(o.id)
			o.sink.SeeDisappear(e.id)
		}
	})
}

func (g *Game) onStopMove(e *Entity, _ int) {
	p := e.loadPose()
	if p.state != MovingIn {
		panic(fmt.Sprintf("game: %s stopping in state %s", e.id, p.state))
	}
	p.state = Idle
	e.storePose(p)

	g.forEachAround(p.pos, func(_ world.Point, o *Entity) {
		o.sink.SeeStop(e.id)
	})
}

func (g *Game) beginCast(e *Entity, s Spell, dest world.Point) {
	p := e.loadPose()
	if p.state != Idle || !s.Valid() {
		return
	}
	p.state = Casting
	p.spell = s
	e.storePose(p)
	e.castDest = dest

	g.setTimer(e, g.cfg.CastTicks, (*Game).onEndCast)

	info := CastInfo{ID: e.id, Spell: s}
	g.forEachAround(p.pos, func(_ world.Point, o *Entity) {
		o.sink.SeeBeginCast(info)
	})
}

func (g *Game) onEndCast(e *Entity, worker int) {
	p := e.loadPose()
	if p.state != Casting {
		panic(fmt.Sprintf("game: %s ending cast in state %s", e.id, p.state))
	}
	p.state = Idle
	e.storePose(p)

	g.forEachAround(p.pos, func(_ world.Point, o *Entity) {
		o.sink.SeeEndCast(e.id)
	})

	switch p.spell {
	case Lightning:
		g.castAtPoint(p.spell, e.castDest, worker)
	case SelfHeal:
		g.castSelfHeal(e)
	default:
		panic(fmt.Sprintf("game: %s cast unknown spell %s", e.id, p.spell))
	}
}

func (g *Game) castAtPoint(s Spell, dest world.Point, worker int) {
	if victim := g.objectAt(dest); victim != nil {
		// Each worker owns one slot of the victim's accumulator.
		victim.delta[worker] += g.cfg.SpellHPDelta[s]
	}

	effect := Effect{Spell: s, Pos: dest}
	g.forEachAround(dest, func(_ world.Point, o *Entity) {
		o.sink.SeeEffect(effect)
	})
}

func (g *Game) castSelfHeal(e *Entity) {
	old := e.Health()
	hp := min(old+g.cfg.SpellHPDelta[SelfHeal], MaxHealth)
	if hp == old {
		return
	}
	e.health.Store(int32(hp))
	e.sink.HealthChange(hp)
}

// objectAt resolves the entity standing on p. Reserved cells count as empty.
func (g *Game) objectAt(p world.Point) *Entity {
	id := g.grid.OccupantAt(p)
	if id.IsZero() || id.Locked() {
		return nil
	}
	return g.mustFind(id)
}

func (g *Game) mustFind(id ecs.EntityID) *Entity {
	e := g.objects.Find(id)
	if e == nil {
		panic(fmt.Sprintf("game: grid references dead entity %s", id))
	}
	return e
}

// forEachAround calls fn for every entity within view radius of center,
// center's own occupant included. Entities freed concurrently by another
// settlement worker are skipped.
func (g *Game) forEachAround(center world.Point, fn func(world.Point, *Entity)) {
	g.grid.ForEachInRadius(center, g.cfg.ViewRadius, func(at world.Point, id ecs.EntityID) {
		if o := g.objects.Find(id); o != nil {
			fn(at, o)
		}
	})
}
