package world

import (
	"sort"

	"privatestarving.io/internal/sim/catalogs"
)

// ---- Debug/Test Helpers ----
//
// These let black-box tests in sibling packages (internal/sim/worldtest) set up preconditions
// and inspect state without reaching into world internals.
//
// They are NOT safe to call concurrently with Run(). Use them only from tests that drive
// the world via Drain()/StepOnce() on a single goroutine.

type PlayerView struct {
	ID          uint32
	SessionID   string
	Nickname    string
	Pos         Vec2
	Inventory   []ItemStack
	Hand, Head  int
	Crafting    bool
	IsAttacking bool
	WillAttack  bool
	Source      catalogs.Source
	Score       int
}

type EntityView struct {
	ID    uint32
	Kind  catalogs.EntityKind
	Type  int
	Pos   Vec2
	Angle int
	Owner uint32
	Chest *ItemStack
}

func (w *World) DebugPlayer(id uint32) (PlayerView, bool) {
	p := w.players[id]
	if p == nil {
		return PlayerView{}, false
	}
	v := PlayerView{
		ID:          p.ID,
		SessionID:   p.SessionID,
		Nickname:    p.Nickname,
		Inventory:   append([]ItemStack(nil), p.Inventory.Slots...),
		Hand:        p.Hand,
		Head:        p.Head,
		Crafting:    p.Crafting,
		IsAttacking: p.IsAttacking,
		WillAttack:  p.WillAttack,
		Source:      p.Source,
		Score:       p.Score,
	}
	if e := w.entities[id]; e != nil {
		v.Pos = e.Pos
	}
	return v, true
}

// DebugPlayerBySession returns the player bound to a session, if any.
func (w *World) DebugPlayerBySession(sessionID string) (PlayerView, bool) {
	s := w.sessions[sessionID]
	if s == nil || s.player == 0 {
		return PlayerView{}, false
	}
	return w.DebugPlayer(s.player)
}

func (w *World) DebugAddInventory(id uint32, item, amount int) bool {
	p := w.players[id]
	if p == nil || amount <= 0 {
		return false
	}
	if _, ok := w.catalogs.Item(item); !ok {
		return false
	}
	p.Inventory.Add(item, amount)
	return true
}

func (w *World) DebugSetPos(id uint32, pos Vec2) bool {
	e := w.entities[id]
	if e == nil {
		return false
	}
	e.Pos = pos
	return true
}

func (w *World) DebugEntity(id uint32) (EntityView, bool) {
	e := w.entities[id]
	if e == nil {
		return EntityView{}, false
	}
	return entityView(e), true
}

// DebugEntities lists every live entity sorted by id.
func (w *World) DebugEntities() []EntityView {
	out := make([]EntityView, 0, len(w.entities))
	for _, e := range w.entities {
		out = append(out, entityView(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func entityView(e *Entity) EntityView {
	v := EntityView{ID: e.ID, Kind: e.Kind, Type: e.Type, Pos: e.Pos, Angle: e.Angle, Owner: e.Owner}
	if e.Chest != nil && e.Chest.Contents != nil {
		st := *e.Chest.Contents
		v.Chest = &st
	}
	return v
}
