package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/okvern/forerun/internal/metrics"
	"github.com/okvern/forerun/internal/supervisor"
)

// Router exposes a read-only view of a running supervision: service states,
// the transition log, process usage, and Prometheus metrics.
// Endpoints:
//
//	GET {basePath}/status       all dependents plus the foreground
//	GET {basePath}/transitions  ordered state transition log
//	GET {basePath}/usage        latest sampled CPU/memory per child
//	GET {basePath}/healthz      liveness of the supervisor itself
//	GET {basePath}/metrics      Prometheus exposition
type Router struct {
	sup      *supervisor.Supervisor
	usage    *metrics.UsageCollector
	basePath string
}

// NewRouter constructs a Router. usage may be nil; /usage then returns an
// empty object.
func NewRouter(sup *supervisor.Supervisor, usage *metrics.UsageCollector, basePath string) *Router {
	return &Router{sup: sup, usage: usage, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server/mux.
func (r *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.GET("/transitions", r.handleTransitions)
	group.GET("/usage", r.handleUsage)
	group.GET("/healthz", r.handleHealthz)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// Shut it down with http.Server's Close or Shutdown.
func NewServer(addr, basePath string, sup *supervisor.Supervisor, usage *metrics.UsageCollector) *http.Server {
	r := NewRouter(sup, usage, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	Services   []supervisor.ServiceStatus `json:"services"`
	Foreground ForegroundStatus           `json:"foreground"`
}

// ForegroundStatus is the foreground slice of /status.
type ForegroundStatus struct {
	Running  bool   `json:"running"`
	PID      int    `json:"pid,omitempty"`
	ExitCode int    `json:"exit_code"`
	Signal   string `json:"signal,omitempty"`
}

func (r *Router) handleStatus(c *gin.Context) {
	fg := r.sup.ForegroundStatus()
	c.JSON(http.StatusOK, StatusResponse{
		Services: r.sup.Statuses(),
		Foreground: ForegroundStatus{
			Running:  fg.Running,
			PID:      fg.PID,
			ExitCode: fg.ExitCode,
			Signal:   fg.Signal,
		},
	})
}

func (r *Router) handleTransitions(c *gin.Context) {
	c.JSON(http.StatusOK, r.sup.Transitions())
}

func (r *Router) handleUsage(c *gin.Context) {
	if r.usage == nil {
		c.JSON(http.StatusOK, map[string]metrics.Sample{})
		return
	}
	c.JSON(http.StatusOK, r.usage.Latest())
}

func (r *Router) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
