package system

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tickworld/server/internal/config"
	"github.com/tickworld/server/internal/core/event"
	coresys "github.com/tickworld/server/internal/core/system"
	"github.com/tickworld/server/internal/data"
	"github.com/tickworld/server/internal/game"
	"github.com/tickworld/server/internal/handler"
	"github.com/tickworld/server/internal/net"
	"github.com/tickworld/server/internal/net/packet"
	"github.com/tickworld/server/internal/persist"
)

type stack struct {
	t       *testing.T
	runner  *coresys.Runner
	game    *game.Game
	journal *persist.JournalRepo
	persist *PersistenceSystem
	url     string
}

func newStack(t *testing.T) *stack {
	t.Helper()
	log := zaptest.NewLogger(t)
	ctx := context.Background()

	cfg := game.DefaultConfig()
	cfg.Workers = 2
	g, err := game.New(cfg, log)
	require.NoError(t, err)
	bus := event.NewBus()
	g.SetEventBus(bus)

	db, err := persist.OpenJournal(ctx, config.JournalConfig{DSN: filepath.Join(t.TempDir(), "j.db")}, log)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, persist.RunMigrations(ctx, db))
	repo := persist.NewJournalRepo(db)

	m := data.OpenMap(cfg.Width, cfg.Height)
	dec, err := packet.NewDecoder()
	require.NoError(t, err)
	reg := packet.NewRegistry(dec, log)
	deps := &handler.Deps{Game: g, Spawns: data.NewSpawnCycle(m), Log: log}
	handler.RegisterAll(reg, deps)

	srv := net.NewServer(config.Default().Network, log)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	store := net.NewSessionStore()
	ps := NewPersistenceSystem(bus, repo, 1000, 1000, log)
	runner := coresys.NewRunner()
	runner.Register(ps)
	runner.Register(NewStatsSystem(g, store, 10, log))
	runner.Register(NewOutputSystem(store))
	runner.Register(NewEventSystem(bus))
	runner.Register(NewSimulationSystem(g))
	runner.Register(NewInputSystem(srv, reg, store, deps, 16, log))

	return &stack{
		t: t, runner: runner, game: g, journal: repo, persist: ps,
		url: "ws" + strings.TrimPrefix(hs.URL, "http"),
	}
}

// client reads messages in the background.
type client struct {
	conn *websocket.Conn
	msgs chan map[string]any
	done chan struct{}
}

func (s *stack) dial() *client {
	s.t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	require.NoError(s.t, err)
	s.t.Cleanup(func() { conn.Close() })
	c := &client{conn: conn, msgs: make(chan map[string]any, 256), done: make(chan struct{})}
	go func() {
		defer close(c.done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m map[string]any
			if json.Unmarshal(data, &m) == nil {
				c.msgs <- m
			}
		}
	}()
	return c
}

func (c *client) send(t *testing.T, msg string) {
	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte(msg)))
}

// frameUntil runs frames until the client has received a message of type typ.
func (s *stack) frameUntil(c *client, typ string) map[string]any {
	s.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s.runner.Tick(10 * time.Millisecond)
		for {
			select {
			case m := <-c.msgs:
				if m["type"] == typ {
					return m
				}
				continue
			default:
			}
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.t.Fatalf("no %s message", typ)
	return nil
}

func TestClientLifecycleIsJournaled(t *testing.T) {
	s := newStack(t)
	c := s.dial()

	c.send(t, `{"type":"hello","name":"Alice"}`)
	welcome := s.frameUntil(c, packet.TypeInit)
	assert.Equal(t, "Alice", welcome["name"])
	assert.Equal(t, float64(game.MaxHealth), welcome["health"])

	c.send(t, `{"type":"disconnect"}`)
	s.frameUntil(c, packet.TypeDisconnectNotice)
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not close the connection")
	}

	require.NoError(t, s.persist.Flush(context.Background()))
	rows, err := s.journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, string(event.CauseDisconnect), rows[0].Kind)
	assert.Equal(t, JournalKindSpawn, rows[1].Kind)
	assert.Equal(t, "Alice", rows[1].Name)
	assert.Equal(t, rows[0].EntityID, rows[1].EntityID)
}

func TestPlayersSeeEachOther(t *testing.T) {
	s := newStack(t)
	a := s.dial()
	a.send(t, `{"type":"hello","name":"A"}`)
	s.frameUntil(a, packet.TypeInit)

	b := s.dial()
	b.send(t, `{"type":"hello","name":"B"}`)
	s.frameUntil(b, packet.TypeInit)

	seen := s.frameUntil(a, packet.TypeSeePlayer)
	assert.Equal(t, "B", seen["name"])
}

func TestDroppedSocketRemovesPlayer(t *testing.T) {
	s := newStack(t)
	c := s.dial()
	c.send(t, `{"type":"hello","name":"A"}`)
	s.frameUntil(c, packet.TypeInit)
	require.Equal(t, 1, s.game.Count())

	c.conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for s.game.Count() > 0 && time.Now().Before(deadline) {
		s.runner.Tick(10 * time.Millisecond)
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 0, s.game.Count())
}

func TestPersistenceFlushesOnBatchSize(t *testing.T) {
	s := newStack(t)
	bus := event.NewBus()
	ps := NewPersistenceSystem(bus, s.journal, 1000, 2, zaptest.NewLogger(t))

	event.Emit(bus, event.EntitySpawned{Name: "A"})
	bus.Flush()
	ps.Update(0)
	assert.Equal(t, 1, ps.Pending())

	event.Emit(bus, event.EntityRemoved{Name: "A", Cause: event.CauseDeath})
	bus.Flush()
	ps.Update(0)
	assert.Equal(t, 0, ps.Pending())

	rows, err := s.journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "death", rows[0].Kind)
}
