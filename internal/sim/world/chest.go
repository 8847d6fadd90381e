package world

import (
	"privatestarving.io/internal/protocol"
	"privatestarving.io/internal/sim/catalogs"
)

// ownedChest resolves a chest entity whose owner matches the claimed owner and is still online.
func (w *World) ownedChest(entityID, ownerID int) *Entity {
	if entityID <= 0 || ownerID <= 0 {
		return nil
	}
	e := w.entities[uint32(entityID)]
	if e == nil || e.Kind != catalogs.KindChest || e.Chest == nil {
		return nil
	}
	if e.Owner != uint32(ownerID) {
		return nil
	}
	if w.players[e.Owner] == nil {
		return nil
	}
	return e
}

func handleChestDeposit(w *World, p *Player, m protocol.Message) {
	d, err := m.ChestDeposit()
	if err != nil || d.Amount <= 0 {
		return
	}
	it, ok := w.catalogs.Item(d.Item)
	if !ok {
		return
	}
	e := w.ownedChest(d.Entity, d.Owner)
	if e == nil {
		return
	}
	if !p.Inventory.Contains(it.ID, d.Amount) {
		return
	}
	c := e.Chest
	switch {
	case c.Contents == nil:
		if d.Amount > it.StackLimit() {
			return
		}
		c.Contents = &ItemStack{Item: it.ID, Amount: d.Amount}
	case c.Contents.Item == it.ID:
		if c.Contents.Amount+d.Amount > it.StackLimit() {
			return
		}
		c.Contents.Amount += d.Amount
	default:
		return
	}
	e.Action = true
	p.Inventory.Remove(it.ID, d.Amount)
	w.clearStaleEquip(p)
	w.sendInventory(p)
	w.audit(AuditEntry{Session: p.SessionID, Player: p.ID, Action: AuditDeposit, Item: it.ID, Amount: d.Amount, Entity: e.ID})
}

func handleChestWithdraw(w *World, p *Player, m protocol.Message) {
	req, err := m.ChestWithdraw()
	if err != nil {
		return
	}
	e := w.ownedChest(req.Entity, req.Owner)
	if e == nil || e.Chest.Contents == nil {
		return
	}
	st := *e.Chest.Contents
	limit := catalogs.DefaultMaxStack
	if it, ok := w.catalogs.Item(st.Item); ok {
		limit = it.StackLimit()
	}
	if !p.Inventory.CanAdd(st.Item, st.Amount, limit, w.cfg.InventorySlots) {
		return
	}
	e.Chest.Contents = nil
	e.Action = true
	p.Inventory.Add(st.Item, st.Amount)
	w.sendInventory(p)
	w.audit(AuditEntry{Session: p.SessionID, Player: p.ID, Action: AuditWithdraw, Item: st.Item, Amount: st.Amount, Entity: e.ID})
}
