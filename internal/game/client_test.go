package game

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tickworld/server/internal/core/ecs"
	"github.com/tickworld/server/internal/world"
)

// timeline records notifications from several clients in arrival order.
type timeline struct {
	mu     sync.Mutex
	events []string
}

func (tl *timeline) add(format string, args ...any) {
	if tl == nil {
		return
	}
	tl.mu.Lock()
	tl.events = append(tl.events, fmt.Sprintf(format, args...))
	tl.mu.Unlock()
}

func (tl *timeline) index(ev string) int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	for i, e := range tl.events {
		if e == ev {
			return i
		}
	}
	return -1
}

type seenEffect struct {
	spell Spell
	until uint64
}

// testClient mirrors what a real client would reconstruct from the
// notifications it gets: its own state plus the entities in view.
type testClient struct {
	t    *testing.T
	g    *Game
	name string
	tl   *timeline

	mu        sync.Mutex
	connected bool
	self      PlayerInfo
	see       map[ecs.EntityID]PlayerInfo
	effects   map[world.Point]seenEffect
	healthLog []int
	received  int
}

func spawn(t *testing.T, g *Game, name string, pos world.Point) *testClient {
	return spawnOn(t, g, nil, name, pos)
}

func spawnOn(t *testing.T, g *Game, tl *timeline, name string, pos world.Point) *testClient {
	t.Helper()
	c := &testClient{
		t:       t,
		g:       g,
		name:    name,
		tl:      tl,
		see:     make(map[ecs.EntityID]PlayerInfo),
		effects: make(map[world.Point]seenEffect),
	}
	id, err := g.NewPlayer(c, pos, name)
	require.NoError(t, err)
	require.Equal(t, id, c.id())
	return c
}

func (c *testClient) id() ecs.EntityID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.self.ID
}

func (c *testClient) requestMove(d world.Dir) { c.g.EnqueueAction(c.id(), MoveAction(d)) }

func (c *testClient) requestCast(s Spell, dest world.Point) {
	c.g.EnqueueAction(c.id(), CastAction(s, dest))
}

func (c *testClient) requestDisconnect() { c.g.EnqueueAction(c.id(), DisconnectAction()) }

func (c *testClient) isConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *testClient) me() PlayerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.self
}

func (c *testClient) health() int { return c.me().Health }

func (c *testClient) healthChanges() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.healthLog...)
}

func (c *testClient) seeNothing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.see) == 0
}

func (c *testClient) seeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.see)
}

func (c *testClient) doSee(name string) bool {
	_, ok := c.lookup(name)
	return ok
}

func (c *testClient) seeByName(name string) PlayerInfo {
	c.t.Helper()
	info, ok := c.lookup(name)
	require.True(c.t, ok, "%s does not see %s", c.name, name)
	return info
}

func (c *testClient) lookup(name string) (PlayerInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, info := range c.see {
		if info.Name == name {
			return info, true
		}
	}
	return PlayerInfo{}, false
}

// seeEffect reports the effect shown at p. An effect lasts for the tick in
// which it was received.
func (c *testClient) seeEffect(p world.Point) (Spell, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	eff, ok := c.effects[p]
	if !ok || eff.until <= c.g.Now() {
		return 0, false
	}
	return eff.spell, true
}

func (c *testClient) notifications() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.received
}

// update applies fn to the record for id, which must be c itself or an
// entity in view.
func (c *testClient) update(id ecs.EntityID, fn func(*PlayerInfo)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received++
	if id == c.self.ID {
		fn(&c.self)
		return
	}
	info, ok := c.see[id]
	if !ok {
		c.t.Errorf("%s got an update for unseen %s", c.name, id)
		return
	}
	fn(&info)
	c.see[id] = info
}

func (c *testClient) Init(info InitInfo) {
	c.tl.add("%s:init", c.name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		c.t.Errorf("%s initialised twice", c.name)
	}
	c.connected = true
	c.self = PlayerInfo{ID: info.ID, Name: info.Name, Pos: info.Pos, State: Idle, Health: info.Health}
}

func (c *testClient) SeePlayer(info PlayerInfo) {
	c.tl.add("%s:see_player %s", c.name, info.Name)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received++
	if info.ID == c.self.ID {
		c.t.Errorf("%s sees itself", c.name)
	}
	if _, dup := c.see[info.ID]; dup {
		c.t.Errorf("%s already sees %s", c.name, info.Name)
	}
	c.see[info.ID] = info
}

func (c *testClient) Disconnect() {
	c.tl.add("%s:disconnect", c.name)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received++
	c.connected = false
}

func (c *testClient) SeeDisappear(id ecs.EntityID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received++
	info, ok := c.see[id]
	if id == c.self.ID || !ok {
		c.t.Errorf("%s told %s disappeared but does not see it", c.name, id)
	}
	c.tl.add("%s:see_disappear %s", c.name, info.Name)
	delete(c.see, id)
}

func (c *testClient) SeeBeginMove(info MoveInfo) {
	c.update(info.ID, func(p *PlayerInfo) {
		p.State = MovingOut
		p.Dir = info.Dir
	})
}

func (c *testClient) SeeCrossCellBorder(id ecs.EntityID) {
	c.update(id, func(p *PlayerInfo) {
		p.State = MovingIn
		p.Pos = p.Pos.Next(p.Dir)
	})
}

func (c *testClient) SeeStop(id ecs.EntityID) {
	c.update(id, func(p *PlayerInfo) { p.State = Idle })
}

func (c *testClient) SeeBeginCast(info CastInfo) {
	c.update(info.ID, func(p *PlayerInfo) {
		p.State = Casting
		p.Spell = info.Spell
	})
}

func (c *testClient) SeeEndCast(id ecs.EntityID) {
	c.update(id, func(p *PlayerInfo) { p.State = Idle })
}

func (c *testClient) SeeEffect(effect Effect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received++
	c.effects[effect.Pos] = seenEffect{spell: effect.Spell, until: c.g.Now() + 1}
}

func (c *testClient) HealthChange(health int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received++
	if health <= 0 || health > MaxHealth {
		c.t.Errorf("%s observed health %d", c.name, health)
	}
	c.self.Health = health
	c.healthLog = append(c.healthLog, health)
}

// nullClient swallows every notification.
type nullClient struct{}

func (nullClient) Init(InitInfo)                   {}
func (nullClient) SeePlayer(PlayerInfo)            {}
func (nullClient) Disconnect()                     {}
func (nullClient) SeeDisappear(ecs.EntityID)       {}
func (nullClient) SeeBeginMove(MoveInfo)           {}
func (nullClient) SeeCrossCellBorder(ecs.EntityID) {}
func (nullClient) SeeStop(ecs.EntityID)            {}
func (nullClient) SeeBeginCast(CastInfo)           {}
func (nullClient) SeeEndCast(ecs.EntityID)         {}
func (nullClient) SeeEffect(Effect)                {}
func (nullClient) HealthChange(int)                {}
