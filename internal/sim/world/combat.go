package world

import (
	"time"

	"privatestarving.io/internal/protocol"
)

const DefaultAttackReach = 120

// CombatResolver decides what one attack swing hits. It returns the number of hits;
// it must not mutate World State.
type CombatResolver interface {
	ResolveAttack(attacker *Entity, others []*Entity) int
}

// ReachResolver hits every other player whose position is within Reach of the point
// half a reach in front of the attacker.
type ReachResolver struct {
	Reach float64
}

func (r ReachResolver) ResolveAttack(attacker *Entity, others []*Entity) int {
	center := translate(attacker.Pos, binaryAngleToRad(attacker.Angle), r.Reach/2)
	hits := 0
	for _, e := range others {
		if distance(center, e.Pos) <= r.Reach {
			hits++
		}
	}
	return hits
}

type timerKind uint8

const (
	timerAttack timerKind = iota + 1
	timerCraft
)

type timerFire struct {
	kind   timerKind
	player uint32
	gen    uint64
}

// postFire is called from scheduler goroutines.
func (w *World) postFire(f timerFire) {
	select {
	case w.fired <- f:
	case <-w.stop:
	}
}

func (w *World) handleFire(f timerFire) {
	p := w.players[f.player]
	if p == nil {
		return
	}
	defer w.recoverFault(w.sessions[p.SessionID], "timer")
	switch f.kind {
	case timerAttack:
		w.attackTick(p, f.gen)
	case timerCraft:
		w.completeCraft(p, f.gen)
	}
}

func handleAttack(w *World, p *Player, m protocol.Message) {
	if p.Crafting {
		return
	}
	a, err := m.Angle()
	if err != nil {
		return
	}
	e := w.entities[p.ID]
	if e == nil {
		return
	}
	e.Angle = a
	if p.IsAttacking {
		return
	}
	p.WillAttack = true
	p.IsAttacking = true
	p.attackGen++
	f := timerFire{kind: timerAttack, player: p.ID, gen: p.attackGen}
	p.attackTimer = w.sched.Every(time.Duration(w.cfg.AttackIntervalMs)*time.Millisecond, func() { w.postFire(f) })
	w.resolveAttack(p)
}

// handleStopAttack only clears the continue flag. The running timer sees it on its next tick.
func handleStopAttack(w *World, p *Player, _ protocol.Message) {
	p.WillAttack = false
}

func (w *World) attackTick(p *Player, gen uint64) {
	if !p.IsAttacking || gen != p.attackGen {
		return
	}
	if !p.WillAttack {
		if p.attackTimer != nil {
			p.attackTimer.Stop()
			p.attackTimer = nil
		}
		p.IsAttacking = false
		p.attackGen++
		return
	}
	w.resolveAttack(p)
}

func (w *World) resolveAttack(p *Player) {
	e := w.entities[p.ID]
	if e == nil {
		return
	}
	e.Action = true
	w.prom.attacks.Inc()
	others := make([]*Entity, 0, len(w.players))
	for _, id := range w.sortedPlayerIDs() {
		if id == p.ID {
			continue
		}
		if oe := w.entities[id]; oe != nil {
			others = append(others, oe)
		}
	}
	if hits := w.combat.ResolveAttack(e, others); hits > 0 {
		p.Score += hits
	}
}
