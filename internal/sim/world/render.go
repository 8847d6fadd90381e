package world

import (
	"sort"

	"privatestarving.io/internal/protocol"
)

const leaderboardSize = 10

func (w *World) leaderboard() []protocol.LeaderboardEntry {
	out := make([]protocol.LeaderboardEntry, 0, len(w.players))
	for id, p := range w.players {
		out = append(out, protocol.LeaderboardEntry{ID: int(id), Score: p.Score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > leaderboardSize {
		out = out[:leaderboardSize]
	}
	return out
}

func (w *World) leaderboardPacket() protocol.Packet {
	return protocol.LeaderboardPacket(w.leaderboard())
}

// flushChanges broadcasts every entity whose action flag is set, then clears the flags.
func (w *World) flushChanges() {
	var changed []protocol.EntityState
	for _, e := range w.entities {
		if !e.Action {
			continue
		}
		changed = append(changed, w.entityState(e))
		e.Action = false
	}
	if len(changed) == 0 {
		return
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].ID < changed[j].ID })
	w.broadcast(protocol.EntitiesPacket(changed), 0)
}

func (w *World) entityState(e *Entity) protocol.EntityState {
	s := protocol.EntityState{
		ID:    int(e.ID),
		Type:  e.Type,
		X:     e.Pos.X,
		Y:     e.Pos.Y,
		Angle: e.Angle,
		Owner: int(e.Owner),
	}
	if e.Chest != nil && e.Chest.Contents != nil {
		s.ChestItem = e.Chest.Contents.Item
		s.ChestAmount = e.Chest.Contents.Amount
	}
	return s
}
