package handler

import (
	"go.uber.org/zap"

	"github.com/tickworld/server/internal/net"
	"github.com/tickworld/server/internal/net/packet"
	"github.com/tickworld/server/internal/world"
)

// HandleHello spawns the session's entity on the next spawn point. A client
// with an unusable name is dropped.
func HandleHello(sess *net.Session, msg packet.Message, deps *Deps) {
	var hello packet.Hello
	if err := msg.Bind(&hello); err != nil {
		deps.Log.Debug("bad hello", zap.Uint64("session", sess.ID), zap.Error(err))
		sess.Close()
		return
	}
	name, err := world.NormalizeName(hello.Name)
	if err != nil {
		deps.Log.Info("name rejected",
			zap.Uint64("session", sess.ID),
			zap.String("name", hello.Name),
			zap.Error(err),
		)
		sess.Close()
		return
	}

	pos := deps.Spawns.Next()
	id, err := deps.Game.NewPlayer(sess, pos, name)
	if err != nil {
		deps.Log.Error("spawn failed", zap.Uint64("session", sess.ID), zap.Error(err))
		sess.Close()
		return
	}

	sess.Entity = id
	sess.Name = name
	sess.SetState(packet.StateInWorld)
	deps.Log.Info("player entered world",
		zap.Uint64("session", sess.ID),
		zap.String("name", name),
		zap.Stringer("pos", pos),
	)
}
