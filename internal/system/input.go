package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/tickworld/server/internal/core/system"
	"github.com/tickworld/server/internal/handler"
	"github.com/tickworld/server/internal/net"
	"github.com/tickworld/server/internal/net/packet"
)

// InputSystem drains message queues from all sessions and dispatches them
// through the registry. Phase 0 (Input).
type InputSystem struct {
	netServer  *net.Server
	registry   *packet.Registry
	store      *net.SessionStore
	deps       *handler.Deps
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(
	netServer *net.Server,
	registry *packet.Registry,
	store *net.SessionStore,
	deps *handler.Deps,
	maxPerTick int,
	log *zap.Logger,
) *InputSystem {
	return &InputSystem{
		netServer:  netServer,
		registry:   registry,
		store:      store,
		deps:       deps,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	// Accept new sessions
	for {
		select {
		case sess := <-s.netServer.NewSessions():
			s.store.Add(sess)
		default:
			goto doneNew
		}
	}
doneNew:

	for id, sess := range s.store.Raw() {
		if sess.IsClosed() {
			// A final disconnect sent just before the socket died still counts.
			s.drain(sess)
			handler.HandleConnectionLost(sess, s.deps)
			s.store.Remove(id)
			continue
		}
		s.drain(sess)
	}
}

// drain dispatches up to maxPerTick queued messages. The last action a
// session queues before the tick is the one the simulation sees.
func (s *InputSystem) drain(sess *net.Session) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case data := <-sess.InQueue:
			if err := s.registry.Dispatch(sess, sess.State(), data); err != nil {
				s.log.Debug("dispatch error",
					zap.Uint64("session", sess.ID),
					zap.Error(err),
				)
			}
		default:
			return
		}
	}
}
