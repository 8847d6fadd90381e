package worldtest

import (
	"encoding/json"
	"io"
	"log"
	"testing"
	"time"

	"privatestarving.io/internal/config"
	"privatestarving.io/internal/protocol"
	"privatestarving.io/internal/sim/catalogs"
	world "privatestarving.io/internal/sim/world"
)

// Harness is a small black-box test helper for driving a world via exported APIs:
// - Connect()/Join() go through the world's connect channel and the handshake message
// - Send() pushes raw client frames through the inbox, exactly as the transport does
// - Advance() moves a manual clock so timers fire deterministically
// - per-session Out channels collect outbound packets
//
// It avoids touching world internals so tests can live outside the world package.
type Harness struct {
	T     *testing.T
	Cats  *catalogs.Catalogs
	Cfg   config.Config
	W     *world.World
	Clock *world.ManualScheduler

	sessions map[string]*Session
}

type Session struct {
	ID       string
	PlayerID uint32
	Out      chan protocol.Packet
	Rejected *world.Rejection

	received []protocol.Packet
}

func NewHarness(t *testing.T, cfg config.Config, cats *catalogs.Catalogs) *Harness {
	t.Helper()
	w, err := world.New(cfg, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	clock := world.NewManualScheduler(time.Unix(1_700_000_000, 0).UTC())
	w.SetScheduler(clock)
	w.SetLogger(log.New(io.Discard, "", 0))
	return &Harness{
		T:        t,
		Cats:     cats,
		Cfg:      cfg,
		W:        w,
		Clock:    clock,
		sessions: map[string]*Session{},
	}
}

// Connect opens a session under name without handshaking.
func (h *Harness) Connect(name string) *Session {
	h.T.Helper()
	s := &Session{Out: make(chan protocol.Packet, 256)}
	resp := make(chan world.ConnectResponse, 1)
	h.W.Connect() <- world.ConnectRequest{Out: s.Out, Resp: resp}
	h.W.Drain()
	r := <-resp
	s.ID = r.SessionID
	s.Rejected = r.Rejected
	h.sessions[name] = s
	h.collect()
	return s
}

// Join connects and handshakes with the configured protocol version. It fails the test
// if no player gets bound.
func (h *Harness) Join(name string) uint32 {
	h.T.Helper()
	s := h.Connect(name)
	if s.Rejected != nil {
		h.T.Fatalf("join %s rejected: %v", name, s.Rejected)
	}
	h.Send(name, h.Cfg.ProtocolVersion, name, 0)
	pv, ok := h.W.DebugPlayerBySession(s.ID)
	if !ok {
		h.T.Fatalf("join %s: no player bound", name)
	}
	s.PlayerID = pv.ID
	return pv.ID
}

// Send encodes fields as one JSON array frame from the named session.
func (h *Harness) Send(name string, fields ...any) {
	h.T.Helper()
	b, err := json.Marshal(fields)
	if err != nil {
		h.T.Fatalf("marshal: %v", err)
	}
	h.SendRaw(name, b)
}

func (h *Harness) SendRaw(name string, raw []byte) {
	h.T.Helper()
	s := h.session(name)
	h.W.Inbox() <- world.Envelope{SessionID: s.ID, Raw: raw}
	h.W.Drain()
	h.collect()
}

func (h *Harness) Leave(name string) {
	h.T.Helper()
	h.W.Leave() <- h.session(name).ID
	h.W.Drain()
	h.collect()
}

// Advance moves the clock and handles every timer that came due.
func (h *Harness) Advance(d time.Duration) {
	h.T.Helper()
	h.Clock.Advance(d)
	h.W.Drain()
	h.collect()
}

// Flush runs one render tick.
func (h *Harness) Flush() {
	h.W.StepOnce()
	h.collect()
}

func (h *Harness) Player(name string) world.PlayerView {
	h.T.Helper()
	pv, ok := h.W.DebugPlayer(h.session(name).PlayerID)
	if !ok {
		h.T.Fatalf("player %s not in world", name)
	}
	return pv
}

func (h *Harness) PlayerID(name string) uint32 { return h.session(name).PlayerID }

func (h *Harness) Give(name string, item, amount int) {
	h.T.Helper()
	if !h.W.DebugAddInventory(h.session(name).PlayerID, item, amount) {
		h.T.Fatalf("DebugAddInventory(%s, %d, %d) failed", name, item, amount)
	}
}

func (h *Harness) Count(name string, item int) int {
	for _, s := range h.Player(name).Inventory {
		if s.Item == item {
			return s.Amount
		}
	}
	return 0
}

// TakePackets returns and forgets everything the named session received so far.
func (h *Harness) TakePackets(name string) []protocol.Packet {
	s := h.session(name)
	out := s.received
	s.received = nil
	return out
}

func (h *Harness) session(name string) *Session {
	h.T.Helper()
	s := h.sessions[name]
	if s == nil {
		h.T.Fatalf("unknown session %q", name)
	}
	return s
}

func (h *Harness) collect() {
	for _, s := range h.sessions {
		for {
			select {
			case p := <-s.Out:
				s.received = append(s.received, p)
				continue
			default:
			}
			break
		}
	}
}
