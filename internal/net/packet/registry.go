package packet

import (
	"fmt"

	"go.uber.org/zap"
)

// SessionState represents the session's current protocol phase.
type SessionState int

const (
	StateHandshake SessionState = iota // connected, awaiting hello
	StateInWorld                       // playing
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateHandshake:
		return "Handshake"
	case StateInWorld:
		return "InWorld"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc is the callback signature for message handlers.
// The session pointer is passed as an opaque interface to avoid import cycles.
type HandlerFunc func(sess any, msg Message)

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[SessionState]bool
}

// Registry maps message types to handlers with state-based access control.
type Registry struct {
	decoder  *Decoder
	handlers map[string]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(decoder *Decoder, log *zap.Logger) *Registry {
	return &Registry{
		decoder:  decoder,
		handlers: make(map[string]*handlerEntry),
		log:      log,
	}
}

// Register maps a message type to a handler, restricted to the given session states.
func (reg *Registry) Register(typ string, states []SessionState, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[typ] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Dispatch decodes data, validates the session state, and calls the handler.
// Messages of an unregistered type are ignored.
func (reg *Registry) Dispatch(sess any, state SessionState, data []byte) error {
	msg, err := reg.decoder.Decode(data)
	if err != nil {
		return err
	}
	reg.log.Debug("message received",
		zap.String("type", msg.Type),
		zap.Int("size", len(data)),
		zap.String("state", state.String()),
	)

	entry, ok := reg.handlers[msg.Type]
	if !ok {
		return nil
	}

	if !entry.allowedStates[state] {
		reg.log.Warn("message not allowed in state",
			zap.String("type", msg.Type),
			zap.String("state", state.String()),
		)
		return fmt.Errorf("message %s not allowed in state %s", msg.Type, state)
	}

	return reg.safeCall(entry.fn, sess, msg)
}

// safeCall executes a handler with panic recovery so one bad message
// cannot take the game loop down.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, msg Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.String("type", msg.Type),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for %s: %v", msg.Type, rec)
		}
	}()
	fn(sess, msg)
	return nil
}
