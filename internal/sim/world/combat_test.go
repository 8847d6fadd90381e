package world

import (
	"testing"
	"time"

	"privatestarving.io/internal/protocol"
)

const attackInterval = 560 * time.Millisecond

func TestAttack_ImmediateThenFixedInterval(t *testing.T) {
	tw := newTestWorld(t, nil)
	c := tw.join("a")
	p := tw.player(c)

	tw.send(c, protocol.OpAttack, 64)
	if tw.combat.calls != 1 {
		t.Fatalf("calls=%d want immediate resolution", tw.combat.calls)
	}
	if !p.IsAttacking || !p.WillAttack || p.attackTimer == nil {
		t.Fatalf("attack loop not running")
	}
	if a := tw.w.entities[p.ID].Angle; a != 64 {
		t.Fatalf("angle=%d", a)
	}

	tw.advance(attackInterval - time.Millisecond)
	if tw.combat.calls != 1 {
		t.Fatalf("resolved before the interval elapsed")
	}
	tw.advance(time.Millisecond)
	tw.advance(attackInterval)
	tw.advance(attackInterval)
	if tw.combat.calls != 4 {
		t.Fatalf("calls=%d want=4", tw.combat.calls)
	}

	// Another attack intent while attacking does not start a second loop.
	tw.send(c, protocol.OpAttack, 10)
	if tw.combat.calls != 4 || tw.sched.Pending() != 1 {
		t.Fatalf("re-attack: calls=%d pending=%d", tw.combat.calls, tw.sched.Pending())
	}
}

func TestAttack_StopIsObservedOnNextTick(t *testing.T) {
	tw := newTestWorld(t, nil)
	c := tw.join("a")
	p := tw.player(c)

	tw.send(c, protocol.OpAttack, 0)
	tw.advance(attackInterval)
	before := tw.combat.calls

	tw.send(c, protocol.OpStopAttack)
	if !p.IsAttacking || p.attackTimer == nil {
		t.Fatalf("stop intent cancelled the timer synchronously")
	}
	tw.advance(attackInterval)
	if p.IsAttacking || p.attackTimer != nil {
		t.Fatalf("loop still running after a tick with the flag cleared")
	}
	if tw.combat.calls != before {
		t.Fatalf("calls=%d want=%d", tw.combat.calls, before)
	}
	tw.advance(10 * attackInterval)
	if tw.combat.calls != before || tw.sched.Pending() != 0 {
		t.Fatalf("attacks continued after stop: calls=%d pending=%d", tw.combat.calls, tw.sched.Pending())
	}
}

func TestAttack_AtMostOneResolutionAfterStopRace(t *testing.T) {
	tw := newTestWorld(t, nil)
	c := tw.join("a")
	p := tw.player(c)

	tw.send(c, protocol.OpAttack, 0)
	before := tw.combat.calls

	// A tick is queued and a stop intent arrives before the loop runs either.
	tw.sched.Advance(attackInterval)
	tw.w.Inbox() <- Envelope{SessionID: c.session, Raw: []byte(`[14]`)}
	tw.w.Drain()
	tw.advance(attackInterval)
	tw.advance(attackInterval)

	if extra := tw.combat.calls - before; extra > 1 {
		t.Fatalf("%d resolutions after stop, want at most 1", extra)
	}
	if p.IsAttacking || tw.sched.Pending() != 0 {
		t.Fatalf("loop did not terminate")
	}
}

func TestAttack_DroppedWhileCrafting(t *testing.T) {
	tw := newTestWorld(t, nil)
	c := tw.join("a")
	tw.w.DebugAddInventory(c.player, itemWood, 5)
	tw.send(c, protocol.OpCraft, recipeWall)

	tw.send(c, protocol.OpAttack, 0)
	if tw.combat.calls != 0 || tw.player(c).IsAttacking {
		t.Fatalf("attack started while crafting")
	}
}

func TestDisconnect_StopsTimers(t *testing.T) {
	tw := newTestWorld(t, nil)
	c := tw.join("a")
	tw.w.DebugAddInventory(c.player, itemWood, 5)

	tw.send(c, protocol.OpAttack, 0)
	tw.send(c, protocol.OpCraft, recipeWall)
	// Crafting only blocks new attacks; the running loop keeps its timer.
	if tw.sched.Pending() != 2 {
		t.Fatalf("pending=%d want attack and craft timers", tw.sched.Pending())
	}
	calls := tw.combat.calls

	// A tick queued before the leave must be a no-op once the player is gone.
	tw.sched.Advance(attackInterval)
	tw.leave(c)
	tw.advance(time.Minute)

	if tw.sched.Pending() != 0 {
		t.Fatalf("pending timers after disconnect: %d", tw.sched.Pending())
	}
	if tw.combat.calls > calls+1 {
		t.Fatalf("attacks after disconnect: %d -> %d", calls, tw.combat.calls)
	}
}

func TestReachResolver_CountsTargetsInFront(t *testing.T) {
	r := ReachResolver{Reach: 100}
	attacker := &Entity{Pos: Vec2{X: 0, Y: 0}, Angle: 0}
	others := []*Entity{
		{Pos: Vec2{X: 80, Y: 0}},
		{Pos: Vec2{X: -150, Y: 0}},
		{Pos: Vec2{X: 50, Y: 90}},
	}
	if hits := r.ResolveAttack(attacker, others); hits != 2 {
		t.Fatalf("hits=%d want=2", hits)
	}
}

func TestAttack_ScoreFeedsLeaderboard(t *testing.T) {
	tw := newTestWorld(t, nil)
	tw.w.SetCombatResolver(ReachResolver{Reach: DefaultAttackReach})
	a := tw.join("a")
	b := tw.join("b")
	tw.join("c")

	// Everyone spawns on the same point, so a swing hits both others.
	tw.send(b, protocol.OpAttack, 0)
	tw.send(b, protocol.OpStopAttack)
	tw.advance(attackInterval)

	lb := tw.w.leaderboard()
	if len(lb) != 3 || lb[0].ID != int(b.player) || lb[0].Score != 2 {
		t.Fatalf("leaderboard=%+v", lb)
	}
	if lb[1].ID != int(a.player) {
		t.Fatalf("ties should be ordered by id: %+v", lb)
	}
}
