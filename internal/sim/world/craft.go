package world

import (
	"time"

	"privatestarving.io/internal/protocol"
)

func handleCraft(w *World, p *Player, m protocol.Message) {
	if p.Crafting {
		return
	}
	rid, err := m.RecipeID()
	if err != nil {
		return
	}
	r, ok := w.catalogs.Recipe(rid)
	if !ok {
		return
	}
	result, ok := w.catalogs.Item(r.Result)
	if !ok {
		return
	}
	for _, in := range r.Ingredients {
		if !p.Inventory.Contains(in.Item, in.Amount) {
			return
		}
	}
	w.refreshSource(p)
	if !p.Source.Has(r.Requires()) {
		return
	}
	after := p.Inventory.Clone()
	for _, in := range r.Ingredients {
		after.Remove(in.Item, in.Amount)
	}
	if !after.CanAdd(result.ID, 1, result.StackLimit(), w.cfg.InventorySlots) {
		return
	}

	p.Inventory = after
	w.clearStaleEquip(p)
	p.Crafting = true
	p.craftRecipe = r.ID
	p.craftGen++
	f := timerFire{kind: timerCraft, player: p.ID, gen: p.craftGen}
	delay := time.Duration(float64(w.cfg.CraftUnitMs)/r.Time) * time.Millisecond
	p.craftTimer = w.sched.After(delay, func() { w.postFire(f) })

	w.sendInventory(p)
	w.sendTo(p.ID, protocol.CraftStartPacket(r.ID))
	w.prom.crafts.WithLabelValues("start").Inc()
	w.audit(AuditEntry{Session: p.SessionID, Player: p.ID, Action: AuditCraftStart, Item: r.Result, Amount: 1})
}

// completeCraft grants the result unless the craft was cancelled or superseded since scheduling.
func (w *World) completeCraft(p *Player, gen uint64) {
	if !p.Crafting || gen != p.craftGen {
		return
	}
	p.craftTimer = nil
	r, _ := w.catalogs.Recipe(p.craftRecipe)
	result, ok := w.catalogs.Item(r.Result)
	if !ok || !p.Inventory.CanAdd(result.ID, 1, result.StackLimit(), w.cfg.InventorySlots) {
		w.cancelCraft(p, "no room")
		return
	}
	p.Inventory.Add(result.ID, 1)
	p.Crafting = false
	p.craftGen++

	w.sendInventory(p)
	w.sendTo(p.ID, protocol.CraftEndPacket(r.ID))
	w.prom.crafts.WithLabelValues("end").Inc()
	w.audit(AuditEntry{Session: p.SessionID, Player: p.ID, Action: AuditCraftEnd, Item: result.ID, Amount: 1})
}

func handleCancelCraft(w *World, p *Player, _ protocol.Message) {
	if !p.Crafting {
		return
	}
	w.cancelCraft(p, "")
}

// cancelCraft clears the flag and invalidates the pending completion. Ingredients are not refunded.
func (w *World) cancelCraft(p *Player, reason string) {
	p.Crafting = false
	if p.craftTimer != nil {
		p.craftTimer.Stop()
		p.craftTimer = nil
	}
	p.craftGen++
	w.sendTo(p.ID, protocol.CraftCancelPacket())
	w.prom.crafts.WithLabelValues("cancel").Inc()
	w.audit(AuditEntry{Session: p.SessionID, Player: p.ID, Action: AuditCraftCancel, Reason: reason})
}
