package packet

import (
	"encoding/json"
	"fmt"

	"github.com/tickworld/server/internal/core/ecs"
	"github.com/tickworld/server/internal/game"
)

// Outbound message types, one per game notification.
const (
	TypeInit             = "init"
	TypeSeePlayer        = "see_player"
	TypeSeeDisappear     = "see_disappear"
	TypeSeeBeginMove     = "see_begin_move"
	TypeSeeCrossCell     = "see_cross_cell"
	TypeSeeStop          = "see_stop"
	TypeSeeBeginCast     = "see_begin_cast"
	TypeSeeEndCast       = "see_end_cast"
	TypeSeeEffect        = "see_effect"
	TypeHealthChange     = "health_change"
	TypeDisconnectNotice = "disconnect"
)

type initMsg struct {
	Type   string `json:"type"`
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Health int    `json:"health"`
}

type playerMsg struct {
	Type   string `json:"type"`
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	State  int    `json:"state"`
	Dir    int    `json:"dir"`
	Spell  string `json:"spell"`
	Health int    `json:"health"`
}

type idMsg struct {
	Type string `json:"type"`
	ID   uint64 `json:"id"`
}

type moveMsg struct {
	Type string `json:"type"`
	ID   uint64 `json:"id"`
	Dir  int    `json:"dir"`
}

type castMsg struct {
	Type  string `json:"type"`
	ID    uint64 `json:"id"`
	Spell string `json:"spell"`
}

type effectMsg struct {
	Type  string `json:"type"`
	Spell string `json:"spell"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
}

type healthMsg struct {
	Type   string `json:"type"`
	Health int    `json:"health"`
}

type typeMsg struct {
	Type string `json:"type"`
}

func encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("packet: encode %T: %v", v, err))
	}
	return b
}

func Init(info game.InitInfo) []byte {
	return encode(initMsg{
		Type: TypeInit, ID: info.ID.Public(), Name: info.Name,
		X: info.Pos.X, Y: info.Pos.Y, Health: info.Health,
	})
}

func SeePlayer(info game.PlayerInfo) []byte {
	return encode(playerMsg{
		Type: TypeSeePlayer, ID: info.ID.Public(), Name: info.Name,
		X: info.Pos.X, Y: info.Pos.Y,
		State: int(info.State), Dir: int(info.Dir), Spell: info.Spell.String(),
		Health: info.Health,
	})
}

func Disconnect() []byte { return encode(typeMsg{Type: TypeDisconnectNotice}) }

func SeeDisappear(id ecs.EntityID) []byte { return encode(idMsg{Type: TypeSeeDisappear, ID: id.Public()}) }

func SeeBeginMove(info game.MoveInfo) []byte {
	return encode(moveMsg{Type: TypeSeeBeginMove, ID: info.ID.Public(), Dir: int(info.Dir)})
}

func SeeCrossCellBorder(id ecs.EntityID) []byte {
	return encode(idMsg{Type: TypeSeeCrossCell, ID: id.Public()})
}

func SeeStop(id ecs.EntityID) []byte { return encode(idMsg{Type: TypeSeeStop, ID: id.Public()}) }

func SeeBeginCast(info game.CastInfo) []byte {
	return encode(castMsg{Type: TypeSeeBeginCast, ID: info.ID.Public(), Spell: info.Spell.String()})
}

func SeeEndCast(id ecs.EntityID) []byte { return encode(idMsg{Type: TypeSeeEndCast, ID: id.Public()}) }

func SeeEffect(e game.Effect) []byte {
	return encode(effectMsg{Type: TypeSeeEffect, Spell: e.Spell.String(), X: e.Pos.X, Y: e.Pos.Y})
}

func HealthChange(health int) []byte { return encode(healthMsg{Type: TypeHealthChange, Health: health}) }
