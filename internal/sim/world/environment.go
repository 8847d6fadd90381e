package world

import (
	"math"
	"sort"
	"time"

	"privatestarving.io/internal/sim/catalogs"
)

// refreshSource recomputes the player's source flags from nearby source structures.
func (w *World) refreshSource(p *Player) {
	pe := w.entities[p.ID]
	if pe == nil {
		p.Source = 0
		return
	}
	var src catalogs.Source
	for _, e := range w.entities {
		if e.Kind == catalogs.KindPlayer {
			continue
		}
		t, ok := w.catalogs.EntityType(e.Type)
		if !ok || t.Source == 0 {
			continue
		}
		if distance(pe.Pos, e.Pos) <= t.SourceRadius {
			src |= t.Source
		}
	}
	p.Source = src
}

// dayState returns whether it is night and the fraction [0,1) of the current day elapsed.
// The second half of each day is night.
func (w *World) dayState() (night bool, timeOfDay float64) {
	day := time.Duration(w.cfg.DayLengthMs) * time.Millisecond
	elapsed := w.sched.Now().Sub(w.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	timeOfDay = float64(elapsed%day) / float64(day)
	return timeOfDay >= 0.5, timeOfDay
}

func (w *World) isNight() bool {
	n, _ := w.dayState()
	return n
}

func (w *World) sortedPlayerIDs() []uint32 {
	ids := make([]uint32, 0, len(w.players))
	for id := range w.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func distance(a, b Vec2) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

func translate(p Vec2, rad, d float64) Vec2 {
	return Vec2{X: p.X + math.Cos(rad)*d, Y: p.Y + math.Sin(rad)*d}
}

// binaryAngleToRad maps a [0,255] angle onto [0, 2π).
func binaryAngleToRad(a int) float64 { return float64(a&0xff) / 255 * 2 * math.Pi }
