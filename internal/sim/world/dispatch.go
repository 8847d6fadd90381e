package world

import (
	"runtime/debug"
	"strconv"

	"privatestarving.io/internal/protocol"
)

type opHandler func(*World, *Player, protocol.Message)

var opDispatch = map[int]opHandler{
	protocol.OpChat:          handleChat,
	protocol.OpMove:          handleMove,
	protocol.OpAngle:         handleAngle,
	protocol.OpAttack:        handleAttack,
	protocol.OpEquip:         handleEquip,
	protocol.OpDropStack:     handleDropStack,
	protocol.OpCraft:         handleCraft,
	protocol.OpChestDeposit:  handleChestDeposit,
	protocol.OpChestWithdraw: handleChestWithdraw,
	protocol.OpPlace:         handlePlace,
	protocol.OpStopAttack:    handleStopAttack,
	protocol.OpDropOne:       handleDropOne,
	protocol.OpCancelCraft:   handleCancelCraft,

	protocol.OpReserved1:  handleNoop,
	protocol.OpReserved11: handleNoop,
	protocol.OpReserved13: handleNoop,
}

func handleNoop(*World, *Player, protocol.Message) {}

func (w *World) handleEnvelope(env Envelope) {
	s := w.sessions[env.SessionID]
	if s == nil || s.closed {
		return
	}
	defer w.recoverFault(s, "message")

	msg, err := protocol.Decode(env.Raw)
	if err != nil {
		w.log.Printf("session=%s drop: %v", s.id, err)
		return
	}
	if msg.Handshake != nil {
		if s.player != 0 {
			return
		}
		w.prom.messages.WithLabelValues("handshake").Inc()
		w.handleHandshake(s, *msg.Handshake)
		return
	}
	if s.player == 0 {
		return
	}
	p := w.players[s.player]
	if p == nil {
		return
	}
	h, ok := opDispatch[msg.Op]
	if !ok {
		w.log.Printf("player=%d unknown opcode %d", p.ID, msg.Op)
		w.prom.messages.WithLabelValues("unknown").Inc()
		return
	}
	w.prom.messages.WithLabelValues(strconv.Itoa(msg.Op)).Inc()
	h(w, p, msg)
}

// recoverFault keeps one bad message or timer from taking down the loop.
// Bound sessions get the generic error notice.
func (w *World) recoverFault(s *session, where string) {
	r := recover()
	if r == nil {
		return
	}
	w.prom.faults.Inc()
	id := ""
	if s != nil {
		id = s.id
	}
	w.log.Printf("fault in %s session=%s: %v\n%s", where, id, r, debug.Stack())
	if s != nil && s.player != 0 {
		w.send(s, protocol.MessagePacket(protocol.MsgErrorOccurred))
	}
}

func handleMove(w *World, p *Player, m protocol.Message) {
	mv, err := m.Move()
	if err != nil {
		return
	}
	p.Direction = mv.Direction
}

func handleAngle(w *World, p *Player, m protocol.Message) {
	a, err := m.Angle()
	if err != nil {
		return
	}
	if e := w.entities[p.ID]; e != nil {
		e.Angle = a
		e.Action = true
	}
}

func handleEquip(w *World, p *Player, m protocol.Message) {
	if p.Crafting {
		return
	}
	id, err := m.ItemID()
	if err != nil {
		return
	}
	it, ok := w.catalogs.Item(id)
	if !ok || !it.Equippable() || !p.Inventory.Contains(id, 1) {
		return
	}
	equipped := (it.Slot == "hand" && p.Hand == id) || (it.Slot == "head" && p.Head == id)
	w.setEquipped(p, it, !equipped)
	w.sendInventory(p)
}

func handleDropStack(w *World, p *Player, m protocol.Message) {
	w.dropItem(p, m, false)
}

func handleDropOne(w *World, p *Player, m protocol.Message) {
	w.dropItem(p, m, true)
}

func (w *World) dropItem(p *Player, m protocol.Message, one bool) {
	if p.Crafting {
		return
	}
	id, err := m.ItemID()
	if err != nil {
		return
	}
	if _, ok := w.catalogs.Item(id); !ok || !p.Inventory.Contains(id, 1) {
		return
	}
	if one {
		p.Inventory.RemoveOne(id)
	} else {
		p.Inventory.RemoveAll(id)
	}
	w.clearStaleEquip(p)
	w.sendInventory(p)
}
