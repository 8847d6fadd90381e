package world

import (
	"privatestarving.io/internal/protocol"
	"privatestarving.io/internal/sim/catalogs"
)

func handlePlace(w *World, p *Player, m protocol.Message) {
	if p.Crafting {
		return
	}
	req, err := m.Place()
	if err != nil {
		return
	}
	it, ok := w.catalogs.Item(req.Item)
	if !ok || it.Structure == 0 {
		return
	}
	t, ok := w.catalogs.EntityType(it.Structure)
	if !ok || t.Kind == catalogs.KindPlayer {
		return
	}
	if !p.Inventory.Contains(it.ID, 1) {
		return
	}
	if t.Limit > 0 && w.ownedCount(p.ID, t.ID) >= t.Limit {
		return
	}
	pe := w.entities[p.ID]
	if pe == nil {
		return
	}

	e := &Entity{
		ID:     w.newEntityID(),
		Kind:   t.Kind,
		Type:   t.ID,
		Pos:    translate(pe.Pos, binaryAngleToRad(req.Angle), w.cfg.PlaceDistance),
		Angle:  req.Angle,
		Owner:  p.ID,
		Action: true,
	}
	if t.Kind == catalogs.KindChest {
		e.Chest = &Chest{}
	}
	w.entities[e.ID] = e
	p.Inventory.RemoveOne(it.ID)
	w.clearStaleEquip(p)
	w.sendInventory(p)
	w.audit(AuditEntry{Session: p.SessionID, Player: p.ID, Action: AuditPlace, Item: it.ID, Amount: 1, Entity: e.ID})
}

func (w *World) ownedCount(owner uint32, typeID int) int {
	n := 0
	for _, e := range w.entities {
		if e.Owner == owner && e.Type == typeID && e.Kind != catalogs.KindPlayer {
			n++
		}
	}
	return n
}
