package handler

import (
	"go.uber.org/zap"

	"github.com/tickworld/server/internal/data"
	"github.com/tickworld/server/internal/game"
	"github.com/tickworld/server/internal/net"
	"github.com/tickworld/server/internal/net/packet"
)

// Deps holds shared dependencies injected into all message handlers.
type Deps struct {
	Game   *game.Game
	Spawns *data.SpawnCycle
	Log    *zap.Logger
}

// RegisterAll registers all message handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	reg.Register(packet.TypeHello,
		[]packet.SessionState{packet.StateHandshake},
		func(sess any, msg packet.Message) {
			HandleHello(sess.(*net.Session), msg, deps)
		},
	)

	inWorld := []packet.SessionState{packet.StateInWorld}

	reg.Register(packet.TypeMove, inWorld,
		func(sess any, msg packet.Message) {
			HandleMove(sess.(*net.Session), msg, deps)
		},
	)
	reg.Register(packet.TypeCast, inWorld,
		func(sess any, msg packet.Message) {
			HandleCast(sess.(*net.Session), msg, deps)
		},
	)
	reg.Register(packet.TypeDisconnect, inWorld,
		func(sess any, msg packet.Message) {
			HandleQuit(sess.(*net.Session), msg, deps)
		},
	)
}
