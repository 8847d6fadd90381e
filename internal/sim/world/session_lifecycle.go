package world

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"privatestarving.io/internal/protocol"
	"privatestarving.io/internal/sim/catalogs"
)

const (
	RejectFull     = "full"
	RejectVersion  = "version"
	RejectStarting = "starting"
)

// Rejection is an admission failure. The notice has already been queued on the session.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return "admission rejected: " + r.Reason }

func (w *World) full() bool { return len(w.players) >= w.cfg.MaxPlayers }

func (w *World) handleConnect(req ConnectRequest) {
	resp := ConnectResponse{}
	if w.full() {
		s := &session{out: req.Out}
		w.send(s, protocol.LocalizedPacket(protocol.LocalizedFull))
		w.closeSession(s)
		w.prom.rejections.WithLabelValues(RejectFull).Inc()
		w.audit(AuditEntry{Action: AuditReject, Reason: RejectFull})
		resp.Rejected = &Rejection{Reason: RejectFull}
	} else {
		s := &session{id: uuid.NewString(), out: req.Out}
		w.sessions[s.id] = s
		resp.SessionID = s.id
	}
	if req.Resp != nil {
		req.Resp <- resp
	}
}

// handleHandshake binds an unbound session to a new Player.
func (w *World) handleHandshake(s *session, hs protocol.Handshake) {
	if s.player != 0 {
		return
	}
	if hs.ClientVersion != w.cfg.ProtocolVersion {
		w.send(s, protocol.MessagePacket(protocol.VersionMismatchText(hs.ClientVersion, w.cfg.ProtocolVersion)))
		w.closeSession(s)
		w.prom.rejections.WithLabelValues(RejectVersion).Inc()
		w.audit(AuditEntry{Session: s.id, Action: AuditReject, Reason: RejectVersion})
		return
	}
	// Capacity may have been taken by sessions that finished their handshake first.
	if w.full() {
		w.send(s, protocol.LocalizedPacket(protocol.LocalizedFull))
		w.closeSession(s)
		w.prom.rejections.WithLabelValues(RejectFull).Inc()
		w.audit(AuditEntry{Session: s.id, Action: AuditReject, Reason: RejectFull})
		return
	}

	id := w.newEntityID()
	p := &Player{
		ID:        id,
		SessionID: s.id,
		Nickname:  w.normalizeNickname(hs.Nickname),
		Skin:      hs.Skin,
	}
	w.entities[id] = &Entity{
		ID:     id,
		Kind:   catalogs.KindPlayer,
		Pos:    Vec2{X: w.cfg.Spawn.X, Y: w.cfg.Spawn.Y},
		Player: p,
	}
	w.players[id] = p
	s.player = id
	w.playerCount.Store(int32(len(w.players)))

	night, tod := w.dayState()
	w.send(s, protocol.HandshakePacket(protocol.HandshakeResponse{
		PlayerID:   int(id),
		MaxPlayers: w.cfg.MaxPlayers,
		Players:    w.playerInfos(),
		Night:      night,
		TimeOfDay:  tod,
		Seed:       w.cfg.Seed,
	}))

	w.broadcast(protocol.NewPlayerPacket(p.Info()), id)
	w.broadcast(w.leaderboardPacket(), id)

	for _, st := range w.cfg.StarterItems {
		it, ok := w.catalogs.Item(st.Item)
		if !ok || !p.Inventory.CanAdd(st.Item, st.Amount, it.StackLimit(), w.cfg.InventorySlots) {
			continue
		}
		p.Inventory.Add(st.Item, st.Amount)
		if st.Equip && it.Equippable() && p.Inventory.Contains(st.Item, 1) {
			w.setEquipped(p, it, true)
		}
	}
	w.sendInventory(p)

	w.log.Printf("join player=%d nick=%q session=%s", id, p.Nickname, s.id)
	w.audit(AuditEntry{Session: s.id, Player: id, Action: AuditJoin, Reason: p.Nickname})
}

func (w *World) normalizeNickname(n string) string {
	n = strings.TrimSpace(n)
	if utf8.RuneCountInString(n) > w.cfg.NicknameMaxLen {
		n = string([]rune(n)[:w.cfg.NicknameMaxLen])
	}
	if n == "" {
		return "unnamed"
	}
	return n
}

func (w *World) playerInfos() []protocol.PlayerInfo {
	ids := w.sortedPlayerIDs()
	out := make([]protocol.PlayerInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, w.players[id].Info())
	}
	return out
}

// disconnect is idempotent: unknown or already removed sessions are ignored.
func (w *World) disconnect(sessionID string) {
	s := w.sessions[sessionID]
	if s == nil {
		return
	}
	delete(w.sessions, sessionID)
	s.closed = true
	if s.player == 0 {
		return
	}
	p := w.players[s.player]
	if p == nil {
		return
	}
	w.stopTimers(p)
	delete(w.players, p.ID)
	delete(w.entities, p.ID)
	w.playerCount.Store(int32(len(w.players)))

	w.broadcast(w.leaderboardPacket(), 0)

	w.log.Printf("leave player=%d session=%s", p.ID, sessionID)
	w.audit(AuditEntry{Session: sessionID, Player: p.ID, Action: AuditLeave})
}

// stopTimers cancels both timer kinds and invalidates any fire already queued.
func (w *World) stopTimers(p *Player) {
	if p.attackTimer != nil {
		p.attackTimer.Stop()
		p.attackTimer = nil
	}
	p.IsAttacking = false
	p.WillAttack = false
	p.attackGen++
	if p.craftTimer != nil {
		p.craftTimer.Stop()
		p.craftTimer = nil
	}
	p.craftGen++
}
