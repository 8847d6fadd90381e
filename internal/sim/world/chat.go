package world

import (
	"privatestarving.io/internal/protocol"
	"privatestarving.io/internal/sim/commands"
)

func handleChat(w *World, p *Player, m protocol.Message) {
	c, err := m.Chat()
	if err != nil || c.Text == "" {
		return
	}
	if w.commands != nil && w.commands.Interpret(commandEnv{w: w, p: p}, w.caller(p), c.Text) {
		return
	}
	w.broadcast(protocol.ChatPacket(int(p.ID), c.Text), p.ID)
}

func (w *World) caller(p *Player) commands.Caller {
	c := commands.Caller{ID: int(p.ID), Nickname: p.Nickname}
	if e := w.entities[p.ID]; e != nil {
		c.X, c.Y = e.Pos.X, e.Pos.Y
	}
	return c
}

// commandEnv answers a single command invocation on the world loop.
type commandEnv struct {
	w *World
	p *Player
}

func (e commandEnv) Reply(text string) {
	e.w.sendTo(e.p.ID, protocol.MessagePacket(text))
}

func (e commandEnv) ReplyUnknown() {
	e.w.sendTo(e.p.ID, protocol.LocalizedPacket(protocol.LocalizedUnknownCommand))
}

func (e commandEnv) Online() []commands.Caller {
	out := make([]commands.Caller, 0, len(e.w.players))
	for _, id := range e.w.sortedPlayerIDs() {
		out = append(out, e.w.caller(e.w.players[id]))
	}
	return out
}

func (e commandEnv) MaxPlayers() int { return e.w.cfg.MaxPlayers }
