package world

import (
	"sort"
	"sync"
	"time"
)

// Timer is a handle to a pending or repeating callback.
type Timer interface {
	// Stop prevents further fires. It reports whether the timer was still active.
	Stop() bool
}

// Scheduler runs callbacks after a delay. Callbacks must not touch World State directly;
// the world wraps them so they only post a message to its loop.
type Scheduler interface {
	Now() time.Time
	After(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func()) Timer
}

// RealScheduler uses wall clock timers.
type RealScheduler struct{}

func (RealScheduler) Now() time.Time { return time.Now() }

func (RealScheduler) After(d time.Duration, fn func()) Timer { return time.AfterFunc(d, fn) }

func (RealScheduler) Every(d time.Duration, fn func()) Timer {
	t := &tickerTimer{t: time.NewTicker(d), done: make(chan struct{})}
	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-t.t.C:
				fn()
			}
		}
	}()
	return t
}

type tickerTimer struct {
	t    *time.Ticker
	once sync.Once
	done chan struct{}
}

func (t *tickerTimer) Stop() bool {
	stopped := false
	t.once.Do(func() {
		t.t.Stop()
		close(t.done)
		stopped = true
	})
	return stopped
}

// ManualScheduler is a virtual clock for deterministic tests. Callbacks run on the goroutine
// calling Advance, in due-time order.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
}

func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

type manualTimer struct {
	s      *ManualScheduler
	seq    uint64
	due    time.Time
	period time.Duration
	fn     func()
	active bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	was := t.active
	t.active = false
	return was
}

func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *ManualScheduler) After(d time.Duration, fn func()) Timer { return s.add(d, 0, fn) }

func (s *ManualScheduler) Every(d time.Duration, fn func()) Timer { return s.add(d, d, fn) }

func (s *ManualScheduler) add(d, period time.Duration, fn func()) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTimer{s: s, seq: s.seq, due: s.now.Add(d), period: period, fn: fn, active: true}
	s.timers = append(s.timers, t)
	return t
}

// Pending returns the number of active timers.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if t.active {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, firing every timer that comes due on the way.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()
	for {
		s.mu.Lock()
		t := s.nextDueLocked(target)
		if t == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = t.due
		if t.period > 0 {
			t.due = t.due.Add(t.period)
		} else {
			t.active = false
		}
		fn := t.fn
		s.mu.Unlock()
		fn()
	}
}

func (s *ManualScheduler) nextDueLocked(target time.Time) *manualTimer {
	live := s.timers[:0]
	for _, t := range s.timers {
		if t.active {
			live = append(live, t)
		}
	}
	s.timers = live
	sort.SliceStable(s.timers, func(i, j int) bool {
		if !s.timers[i].due.Equal(s.timers[j].due) {
			return s.timers[i].due.Before(s.timers[j].due)
		}
		return s.timers[i].seq < s.timers[j].seq
	})
	if len(s.timers) == 0 || s.timers[0].due.After(target) {
		return nil
	}
	return s.timers[0]
}
