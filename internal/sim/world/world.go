package world

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"privatestarving.io/internal/config"
	"privatestarving.io/internal/protocol"
	"privatestarving.io/internal/sim/catalogs"
	"privatestarving.io/internal/sim/commands"
)

var ErrWorldStopped = errors.New("world stopped")

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine. Timers never touch state
// directly: they post a timerFire to the loop, which re-validates before mutating.
type World struct {
	cfg      config.Config
	catalogs *catalogs.Catalogs

	log      *log.Logger
	sched    Scheduler
	combat   CombatResolver
	commands *commands.Interpreter

	auditLogger AuditLogger

	entities map[uint32]*Entity
	players  map[uint32]*Player
	sessions map[string]*session

	connect chan ConnectRequest
	inbox   chan Envelope
	leave   chan string
	fired   chan timerFire
	stop    chan struct{}

	nextEntityID uint32
	startedAt    time.Time

	ready       atomic.Bool
	playerCount atomic.Int32
	metrics     atomic.Value
	prom        *promMetrics
}

func New(cfg config.Config, cats *catalogs.Catalogs) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cats == nil {
		return nil, fmt.Errorf("nil catalogs")
	}
	for _, s := range cfg.StarterItems {
		if _, ok := cats.Item(s.Item); !ok {
			return nil, fmt.Errorf("starter item %d not in catalog", s.Item)
		}
	}
	w := &World{
		cfg:      cfg,
		catalogs: cats,
		log:      log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds),
		sched:    RealScheduler{},
		combat:   ReachResolver{Reach: DefaultAttackReach},
		commands: commands.New(),
		entities: map[uint32]*Entity{},
		players:  map[uint32]*Player{},
		sessions: map[string]*session{},
		connect:  make(chan ConnectRequest, 64),
		inbox:    make(chan Envelope, 1024),
		leave:    make(chan string, 64),
		fired:    make(chan timerFire, 1024),
		stop:     make(chan struct{}),
		prom:     newPromMetrics(),
	}
	w.startedAt = w.sched.Now()
	w.publishMetrics()
	return w, nil
}

func (w *World) SetLogger(l *log.Logger)                       { w.log = l }
func (w *World) SetAuditLogger(l AuditLogger)                  { w.auditLogger = l }
func (w *World) SetCombatResolver(r CombatResolver)            { w.combat = r }
func (w *World) SetCommandInterpreter(c *commands.Interpreter) { w.commands = c }

// SetScheduler replaces the timer source and restarts the day clock from its Now.
// Call before Run.
func (w *World) SetScheduler(s Scheduler) {
	w.sched = s
	w.startedAt = s.Now()
}

func (w *World) Connect() chan<- ConnectRequest { return w.connect }
func (w *World) Inbox() chan<- Envelope         { return w.inbox }
func (w *World) Leave() chan<- string           { return w.leave }

// Ready reports whether the loop is running and accepting connections.
func (w *World) Ready() bool { return w.ready.Load() }

// PlayerCount is safe to call from any goroutine.
func (w *World) PlayerCount() int { return int(w.playerCount.Load()) }

func (w *World) Config() config.Config { return w.cfg }

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.ready.Store(true)
	defer w.ready.Store(false)
	defer w.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.connect:
			w.handleConnect(req)
		case env := <-w.inbox:
			w.handleEnvelope(env)
		case id := <-w.leave:
			w.disconnect(id)
		case f := <-w.fired:
			w.handleFire(f)
		case <-ticker.C:
			w.flushChanges()
			w.publishMetrics()
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// Drain handles everything already queued without blocking. It is the test counterpart of Run
// and must not be called while Run is active.
func (w *World) Drain() {
	for {
		select {
		case req := <-w.connect:
			w.handleConnect(req)
		case env := <-w.inbox:
			w.handleEnvelope(env)
		case id := <-w.leave:
			w.disconnect(id)
		case f := <-w.fired:
			w.handleFire(f)
		default:
			return
		}
	}
}

// StepOnce drains queued input and runs one render flush, the same work Run does per tick.
func (w *World) StepOnce() {
	w.Drain()
	w.flushChanges()
	w.publishMetrics()
}

func (w *World) shutdown() {
	for _, p := range w.players {
		w.stopTimers(p)
	}
}

func (w *World) newEntityID() uint32 {
	for {
		w.nextEntityID++
		if w.nextEntityID == 0 {
			continue
		}
		if _, used := w.entities[w.nextEntityID]; !used {
			return w.nextEntityID
		}
	}
}

// send queues p for one session. A full queue drops the packet.
func (w *World) send(s *session, p protocol.Packet) {
	if s == nil || s.closed {
		return
	}
	select {
	case s.out <- p:
	default:
		w.prom.dropped.Inc()
	}
}

func (w *World) sendTo(playerID uint32, p protocol.Packet) {
	pl := w.players[playerID]
	if pl == nil {
		return
	}
	w.send(w.sessions[pl.SessionID], p)
}

// broadcast sends p to every bound player except skip (0 = nobody).
func (w *World) broadcast(p protocol.Packet, skip uint32) {
	for id, pl := range w.players {
		if id == skip {
			continue
		}
		w.send(w.sessions[pl.SessionID], p)
	}
}

// closeSession queues a close after any pending packets and stops further sends.
func (w *World) closeSession(s *session) {
	if s == nil || s.closed {
		return
	}
	select {
	case s.out <- protocol.ClosePacket():
	default:
	}
	s.closed = true
}

func (w *World) audit(e AuditEntry) {
	if w.auditLogger == nil {
		return
	}
	e.Time = w.sched.Now().UnixMilli()
	if err := w.auditLogger.WriteAudit(e); err != nil {
		w.log.Printf("audit %s: %v", e.Action, err)
	}
}
