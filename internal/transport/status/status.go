package status

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"privatestarving.io/internal/sim/world"
)

// Info is the public server card polled by the client's server list.
type Info struct {
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	IP         string `json:"ip"`
	Port       int    `json:"port"`
	Name       string `json:"name"`
}

type Server struct {
	world *world.World
	log   *log.Logger
	reg   *prometheus.Registry

	requests *prometheus.CounterVec
}

// New registers the HTTP request counter on reg. /metrics serves everything gathered by reg.
func New(w *world.World, logger *log.Logger, reg *prometheus.Registry) (*Server, error) {
	s := &Server{
		world: w,
		log:   logger,
		reg:   reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "privatestarving",
			Name:      "http_requests_total",
			Help:      "HTTP requests served by the status router.",
		}, []string{"path", "status"}),
	}
	if err := reg.Register(s.requests); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) Info() Info {
	cfg := s.world.Config()
	return Info{
		Players:    s.world.PlayerCount(),
		MaxPlayers: cfg.MaxPlayers,
		IP:         cfg.IP,
		Port:       cfg.Port,
		Name:       cfg.Name,
	}
}

// Router mounts the status endpoints plus the game websocket handler at "/".
func (s *Server) Router(game http.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.countRequests())

	r.GET("/info", s.handleInfo)
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})))
	if game != nil {
		r.GET("/", gin.WrapH(game))
	}
	return r
}

func (s *Server) countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		s.requests.WithLabelValues(path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func (s *Server) handleInfo(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.JSON(http.StatusOK, s.Info())
}

func (s *Server) handleHealth(c *gin.Context) {
	if !s.world.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "players": s.world.PlayerCount()})
}
