package handler

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tickworld/server/internal/config"
	"github.com/tickworld/server/internal/data"
	"github.com/tickworld/server/internal/game"
	"github.com/tickworld/server/internal/net"
	"github.com/tickworld/server/internal/net/packet"
	"github.com/tickworld/server/internal/world"
)

type fixture struct {
	t    *testing.T
	reg  *packet.Registry
	deps *Deps
	srv  *net.Server
	url  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)

	cfg := game.DefaultConfig()
	cfg.Workers = 1
	g, err := game.New(cfg, log)
	require.NoError(t, err)

	dec, err := packet.NewDecoder()
	require.NoError(t, err)
	reg := packet.NewRegistry(dec, log)
	deps := &Deps{Game: g, Spawns: data.NewSpawnCycle(data.OpenMap(cfg.Width, cfg.Height)), Log: log}
	RegisterAll(reg, deps)

	netCfg := config.Default().Network
	srv := net.NewServer(netCfg, log)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	return &fixture{t: t, reg: reg, deps: deps, srv: srv, url: "ws" + strings.TrimPrefix(hs.URL, "http")}
}

func (f *fixture) connect() (*websocket.Conn, *net.Session) {
	f.t.Helper()
	client, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { client.Close() })
	select {
	case sess := <-f.srv.NewSessions():
		f.t.Cleanup(sess.Close)
		return client, sess
	case <-time.After(5 * time.Second):
		f.t.Fatal("no session")
		return nil, nil
	}
}

func (f *fixture) send(sess *net.Session, data string) error {
	return f.reg.Dispatch(sess, sess.State(), []byte(data))
}

func (f *fixture) ticks(n int) {
	for i := 0; i < n; i++ {
		f.deps.Game.Tick()
	}
}

func TestHelloSpawnsPlayer(t *testing.T) {
	f := newFixture(t)
	client, sess := f.connect()

	require.NoError(t, f.send(sess, `{"type":"hello","name":"  Alice "}`))
	assert.Equal(t, packet.StateInWorld, sess.State())
	assert.Equal(t, "Alice", sess.Name)
	require.False(t, sess.Entity.IsZero())
	assert.Equal(t, 1, f.deps.Game.Count())

	info, ok := f.deps.Game.Player(sess.Entity)
	require.True(t, ok)
	assert.Equal(t, world.Point{X: 0, Y: 0}, info.Pos)

	sess.FlushOutput()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"init"`)
	assert.Contains(t, string(data), `"name":"Alice"`)
}

func TestHelloRejectsBadName(t *testing.T) {
	f := newFixture(t)
	_, sess := f.connect()

	require.NoError(t, f.send(sess, `{"type":"hello","name":"   "}`))
	assert.True(t, sess.IsClosed())
	assert.Equal(t, 0, f.deps.Game.Count())
}

func TestMessagesBeforeHelloAreRefused(t *testing.T) {
	f := newFixture(t)
	_, sess := f.connect()
	assert.Error(t, f.send(sess, `{"type":"move","dir":0}`))
}

func TestMoveAndCast(t *testing.T) {
	f := newFixture(t)
	_, sess := f.connect()
	require.NoError(t, f.send(sess, `{"type":"hello","name":"A"}`))

	require.NoError(t, f.send(sess, `{"type":"move","dir":0}`))
	f.ticks(3)
	info, ok := f.deps.Game.Player(sess.Entity)
	require.True(t, ok)
	assert.Equal(t, world.Point{X: 1, Y: 0}, info.Pos)
	assert.Equal(t, game.Idle, info.State)

	require.NoError(t, f.send(sess, `{"type":"cast","spell":"self_heal"}`))
	f.ticks(1)
	info, _ = f.deps.Game.Player(sess.Entity)
	assert.Equal(t, game.Casting, info.State)
	assert.Equal(t, game.SelfHeal, info.Spell)
}

func TestQuitRemovesPlayer(t *testing.T) {
	f := newFixture(t)
	_, sess := f.connect()
	require.NoError(t, f.send(sess, `{"type":"hello","name":"A"}`))

	require.NoError(t, f.send(sess, `{"type":"disconnect"}`))
	f.ticks(1)
	assert.Equal(t, 0, f.deps.Game.Count())
	assert.True(t, sess.Leaving())

	// Already gone: nothing more to do.
	HandleConnectionLost(sess, f.deps)
}

func TestConnectionLost(t *testing.T) {
	f := newFixture(t)
	_, sess := f.connect()

	HandleConnectionLost(sess, f.deps) // never entered the world

	require.NoError(t, f.send(sess, `{"type":"hello","name":"A"}`))
	HandleConnectionLost(sess, f.deps)
	f.ticks(1)
	assert.Equal(t, 0, f.deps.Game.Count())
	_, ok := f.deps.Game.Player(sess.Entity)
	assert.False(t, ok)
}

func TestSecondHelloOnSameSpawnDisplaces(t *testing.T) {
	f := newFixture(t)
	f.deps.Spawns = data.NewSpawnCycle(&data.Map{Spawns: []world.Point{{X: 2, Y: 2}}})

	_, first := f.connect()
	_, second := f.connect()
	require.NoError(t, f.send(first, `{"type":"hello","name":"A"}`))
	require.NoError(t, f.send(second, `{"type":"hello","name":"B"}`))

	assert.True(t, first.Leaving())
	assert.False(t, second.Leaving())
	assert.Equal(t, 1, f.deps.Game.Count())
}
