package world

import "github.com/prometheus/client_golang/prometheus"

// WorldMetrics is a read-only view of key runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Players    int  `json:"players"`
	Sessions   int  `json:"sessions"`
	Entities   int  `json:"entities"`
	MaxPlayers int  `json:"max_players"`
	Night      bool `json:"night"`

	QueueDepths QueueDepths `json:"queue_depths"`
}

type QueueDepths struct {
	Inbox   int `json:"inbox"`
	Connect int `json:"connect"`
	Leave   int `json:"leave"`
	Fired   int `json:"fired"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

func (w *World) publishMetrics() {
	m := WorldMetrics{
		Players:    len(w.players),
		Sessions:   len(w.sessions),
		Entities:   len(w.entities),
		MaxPlayers: w.cfg.MaxPlayers,
		Night:      w.isNight(),
		QueueDepths: QueueDepths{
			Inbox:   len(w.inbox),
			Connect: len(w.connect),
			Leave:   len(w.leave),
			Fired:   len(w.fired),
		},
	}
	w.metrics.Store(m)
	w.prom.players.Set(float64(m.Players))
	w.prom.entities.Set(float64(m.Entities))
	q := m.QueueDepths
	w.prom.queueDepth.WithLabelValues("inbox").Set(float64(q.Inbox))
	w.prom.queueDepth.WithLabelValues("connect").Set(float64(q.Connect))
	w.prom.queueDepth.WithLabelValues("leave").Set(float64(q.Leave))
	w.prom.queueDepth.WithLabelValues("fired").Set(float64(q.Fired))
}

// promMetrics are the Prometheus collectors for one world. They are not registered
// anywhere until Register is called.
type promMetrics struct {
	players    prometheus.Gauge
	entities   prometheus.Gauge
	queueDepth *prometheus.GaugeVec
	messages   *prometheus.CounterVec
	rejections *prometheus.CounterVec
	faults     prometheus.Counter
	dropped    prometheus.Counter
	crafts     *prometheus.CounterVec
	attacks    prometheus.Counter
}

func newPromMetrics() *promMetrics {
	const ns = "privatestarving"
	return &promMetrics{
		players: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "players",
			Help: "Players currently bound to a connection.",
		}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "entities",
			Help: "Live entities in the world, players included.",
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Name: "queue_depth",
			Help: "Pending items in the world loop's input channels at the last publish.",
		}, []string{"queue"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "messages_total",
			Help: "Inbound messages by opcode.",
		}, []string{"op"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "admission_rejections_total",
			Help: "Connections rejected at admission.",
		}, []string{"reason"}),
		faults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "handler_faults_total",
			Help: "Panics recovered while handling a message or timer.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "outbound_dropped_total",
			Help: "Outbound packets dropped because a session queue was full.",
		}),
		crafts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "crafts_total",
			Help: "Craft lifecycle transitions.",
		}, []string{"phase"}),
		attacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "attack_resolutions_total",
			Help: "Attack resolutions performed.",
		}),
	}
}

// Register adds the world's collectors to reg.
func (w *World) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		w.prom.players, w.prom.entities, w.prom.queueDepth, w.prom.messages, w.prom.rejections,
		w.prom.faults, w.prom.dropped, w.prom.crafts, w.prom.attacks,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
