package world

import (
	"encoding/json"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"privatestarving.io/internal/config"
	"privatestarving.io/internal/protocol"
	"privatestarving.io/internal/sim/catalogs"
)

type countingResolver struct{ calls int }

func (r *countingResolver) ResolveAttack(*Entity, []*Entity) int {
	r.calls++
	return 0
}

type recordingAudit struct{ entries []AuditEntry }

func (a *recordingAudit) WriteAudit(e AuditEntry) error {
	a.entries = append(a.entries, e)
	return nil
}

func (a *recordingAudit) actions() []string {
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

type testWorld struct {
	t      *testing.T
	w      *World
	sched  *ManualScheduler
	combat *countingResolver
	audit  *recordingAudit
}

func newTestWorld(t *testing.T, mutate func(*config.Config)) *testWorld {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("catalogs.Load: %v", err)
	}
	cfg := config.Defaults()
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := New(cfg, cats)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tw := &testWorld{
		t:      t,
		w:      w,
		sched:  NewManualScheduler(time.Unix(1_700_000_000, 0)),
		combat: &countingResolver{},
		audit:  &recordingAudit{},
	}
	w.SetLogger(log.New(io.Discard, "", 0))
	w.SetScheduler(tw.sched)
	w.SetCombatResolver(tw.combat)
	w.SetAuditLogger(tw.audit)
	return tw
}

type testConn struct {
	session string
	out     chan protocol.Packet
	player  uint32
}

// connect opens a session; rejected reports the admission outcome.
func (tw *testWorld) connect() (*testConn, *Rejection) {
	tw.t.Helper()
	c := &testConn{out: make(chan protocol.Packet, 256)}
	resp := make(chan ConnectResponse, 1)
	tw.w.Connect() <- ConnectRequest{Out: c.out, Resp: resp}
	tw.w.Drain()
	r := <-resp
	c.session = r.SessionID
	return c, r.Rejected
}

func (tw *testWorld) send(c *testConn, fields ...any) {
	tw.t.Helper()
	b, err := json.Marshal(fields)
	if err != nil {
		tw.t.Fatalf("marshal: %v", err)
	}
	tw.w.Inbox() <- Envelope{SessionID: c.session, Raw: b}
	tw.w.Drain()
}

// join connects and completes a handshake with the server's own version.
func (tw *testWorld) join(nick string) *testConn {
	tw.t.Helper()
	c, rej := tw.connect()
	if rej != nil {
		tw.t.Fatalf("connect rejected: %v", rej)
	}
	tw.send(c, tw.w.cfg.ProtocolVersion, nick, 0)
	pv, ok := tw.w.DebugPlayerBySession(c.session)
	if !ok {
		tw.t.Fatalf("handshake did not bind a player")
	}
	c.player = pv.ID
	return c
}

func (tw *testWorld) leave(c *testConn) {
	tw.w.Leave() <- c.session
	tw.w.Drain()
}

func (tw *testWorld) advance(d time.Duration) {
	tw.sched.Advance(d)
	tw.w.Drain()
}

func (tw *testWorld) player(c *testConn) *Player {
	tw.t.Helper()
	p := tw.w.players[c.player]
	if p == nil {
		tw.t.Fatalf("player %d not in world", c.player)
	}
	return p
}

// drain empties the connection's outbound queue.
func drain(c *testConn) []protocol.Packet {
	var out []protocol.Packet
	for {
		select {
		case p := <-c.out:
			out = append(out, p)
		default:
			return out
		}
	}
}

func hasBinary(pkts []protocol.Packet, op byte) bool {
	for _, p := range pkts {
		if p.Binary && len(p.Data) > 0 && p.Data[0] == op {
			return true
		}
	}
	return false
}

func textOps(t *testing.T, pkts []protocol.Packet) []int {
	t.Helper()
	var ops []int
	for _, p := range pkts {
		if p.Binary || p.Close {
			continue
		}
		var fields []json.RawMessage
		if err := json.Unmarshal(p.Data, &fields); err != nil || len(fields) == 0 {
			t.Fatalf("bad text packet %q", p.Data)
		}
		var op int
		if err := json.Unmarshal(fields[0], &op); err != nil {
			t.Fatalf("bad opcode in %q", p.Data)
		}
		ops = append(ops, op)
	}
	return ops
}

func hasClose(pkts []protocol.Packet) bool {
	for _, p := range pkts {
		if p.Close {
			return true
		}
	}
	return false
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func inventorySnapshot(p *Player) []ItemStack {
	return append([]ItemStack(nil), p.Inventory.Slots...)
}

func sameStacks(a, b []ItemStack) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
