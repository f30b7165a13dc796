package handler

import (
	"go.uber.org/zap"

	"github.com/tickworld/server/internal/game"
	"github.com/tickworld/server/internal/net"
	"github.com/tickworld/server/internal/net/packet"
)

// HandleQuit asks the simulation to remove the player. The session closes
// once the Disconnect notification has been flushed.
func HandleQuit(sess *net.Session, _ packet.Message, deps *Deps) {
	deps.Log.Info("player quit", zap.Uint64("session", sess.ID), zap.String("name", sess.Name))
	deps.Game.EnqueueAction(sess.Entity, game.DisconnectAction())
}

// HandleConnectionLost removes the entity of a session whose socket died
// without a disconnect message. Sessions that never entered the world, or
// whose entity is already gone, need nothing.
func HandleConnectionLost(sess *net.Session, deps *Deps) {
	if sess.Entity.IsZero() || sess.Leaving() {
		return
	}
	deps.Log.Info("connection lost", zap.Uint64("session", sess.ID), zap.String("name", sess.Name))
	deps.Game.EnqueueAction(sess.Entity, game.DisconnectAction())
}
