package world

import (
	"privatestarving.io/internal/protocol"
	"privatestarving.io/internal/sim/catalogs"
)

func (w *World) setEquipped(p *Player, it catalogs.Item, on bool) {
	v := 0
	if on {
		v = it.ID
	}
	switch it.Slot {
	case "hand":
		p.Hand = v
	case "head":
		p.Head = v
	}
	if e := w.entities[p.ID]; e != nil {
		e.Action = true
	}
}

// clearStaleEquip unequips slots whose item is no longer held.
func (w *World) clearStaleEquip(p *Player) {
	changed := false
	if p.Hand != 0 && !p.Inventory.Contains(p.Hand, 1) {
		p.Hand = 0
		changed = true
	}
	if p.Head != 0 && !p.Inventory.Contains(p.Head, 1) {
		p.Head = 0
		changed = true
	}
	if changed {
		if e := w.entities[p.ID]; e != nil {
			e.Action = true
		}
	}
}

func (w *World) sendInventory(p *Player) {
	w.sendTo(p.ID, protocol.InventoryPacket(p.Hand, p.Head, p.Inventory.wire()))
}
