package handler

import (
	"go.uber.org/zap"

	"github.com/tickworld/server/internal/game"
	"github.com/tickworld/server/internal/net"
	"github.com/tickworld/server/internal/net/packet"
	"github.com/tickworld/server/internal/world"
)

// HandleMove queues a one-cell step. Walls and occupied cells are checked by
// the simulation when the action is dispatched.
func HandleMove(sess *net.Session, msg packet.Message, deps *Deps) {
	var m packet.Move
	if err := msg.Bind(&m); err != nil {
		deps.Log.Debug("bad move", zap.Uint64("session", sess.ID), zap.Error(err))
		return
	}
	d := world.Dir(m.Dir)
	if !d.Valid() {
		return
	}
	deps.Game.EnqueueAction(sess.Entity, game.MoveAction(d))
}

// HandleCast queues a spell. Self heal ignores the target cell.
func HandleCast(sess *net.Session, msg packet.Message, deps *Deps) {
	var c packet.Cast
	if err := msg.Bind(&c); err != nil {
		deps.Log.Debug("bad cast", zap.Uint64("session", sess.ID), zap.Error(err))
		return
	}
	spell, err := game.ParseSpell(c.Spell)
	if err != nil {
		deps.Log.Debug("bad cast", zap.Uint64("session", sess.ID), zap.Error(err))
		return
	}
	deps.Game.EnqueueAction(sess.Entity, game.CastAction(spell, world.Point{X: c.X, Y: c.Y}))
}
