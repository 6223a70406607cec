// Package web serves the browser dashboard: embedded static assets, a JSON
// stats API, and a WebSocket feed of live session events.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/pprof"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loopscope/loopscope/internal/feed"
	"github.com/loopscope/loopscope/internal/git"
	"github.com/loopscope/loopscope/internal/health"
	"github.com/loopscope/loopscope/internal/stats"
)

//go:embed all:web
var webFS embed.FS

// Options configures the dashboard server.
type Options struct {
	Project    string
	Source     string // watched file or spawned command, shown in the header
	Addr       string
	StallAfter time.Duration       // stall window for the status badge
	Repo       func() *git.Context // nil when the project is not a git repo
}

// Server holds the Gin engine and dependencies for the dashboard.
type Server struct {
	engine *gin.Engine
	hub    *feed.Hub
	stats  *stats.Engine
	opts   Options
	done   atomic.Bool
}

// New creates a dashboard server.
func New(h *feed.Hub, eng *stats.Engine, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine: engine,
		hub:    h,
		stats:  eng,
		opts:   opts,
	}

	s.setupRoutes()
	return s
}

// MarkDone switches the reported status to done. Called once the event
// source has closed; liveness assessment is meaningless after that.
func (s *Server) MarkDone() {
	s.done.Store(true)
}

// status assesses liveness at request time rather than reading a cached
// value, so the dashboard never lags the session.
func (s *Server) status(snap stats.LoopStats) health.Status {
	if s.done.Load() {
		return health.StatusDone
	}
	return health.Assess(snap, time.Now(), s.opts.StallAfter)
}

// statsResponse is the /api/stats payload.
type statsResponse struct {
	Project       string          `json:"project"`
	Source        string          `json:"source"`
	Status        health.Status   `json:"status"`
	Stats         stats.LoopStats `json:"stats"`
	Repo          *git.Context    `json:"repo,omitempty"`
	DroppedEvents int64           `json:"dropped_events"`
}

// serveEmbedded reads a file from the embedded FS and writes it with the given content type.
func serveEmbedded(webContent fs.FS, name string, contentType string) gin.HandlerFunc {
	// Pre-read the file at startup so we don't read on every request.
	data, err := fs.ReadFile(webContent, name)
	return func(c *gin.Context) {
		if err != nil {
			c.String(http.StatusNotFound, "file not found: %s", name)
			return
		}
		c.Data(http.StatusOK, contentType, data)
	}
}

func (s *Server) setupRoutes() {
	// Extract the embedded web/ content.
	webContent, _ := fs.Sub(webFS, "web")

	// Dashboard assets with correct content types.
	s.engine.GET("/", serveEmbedded(webContent, "index.html", "text/html; charset=utf-8"))
	s.engine.GET("/style.css", serveEmbedded(webContent, "style.css", "text/css; charset=utf-8"))
	s.engine.GET("/app.js", serveEmbedded(webContent, "app.js", "application/javascript; charset=utf-8"))

	// Health check.
	s.engine.GET("/healthz", func(c *gin.Context) {
		snap := s.stats.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"status":         s.status(snap),
			"uptime":         time.Since(snap.StartedAt).Truncate(time.Second).String(),
			"iteration":      snap.Iteration,
			"pending_calls":  snap.Pending,
			"dropped_events": s.hub.Dropped(),
		})
	})

	// Stats API.
	s.engine.GET("/api/stats", func(c *gin.Context) {
		snap := s.stats.Snapshot()
		resp := statsResponse{
			Project:       s.opts.Project,
			Source:        s.opts.Source,
			Status:        s.status(snap),
			Stats:         snap,
			DroppedEvents: s.hub.Dropped(),
		}
		if s.opts.Repo != nil {
			resp.Repo = s.opts.Repo()
		}
		c.JSON(http.StatusOK, resp)
	})

	// WebSocket feed.
	s.engine.GET("/ws", s.handleWebSocket)

	// pprof profiling endpoints.
	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	s.engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	s.engine.GET("/debug/pprof/allocs", gin.WrapH(pprof.Handler("allocs")))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

// Handler exposes the underlying handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.opts.Addr, Handler: s.engine}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web: serve %s: %w", s.opts.Addr, err)
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
		return nil
	}
}
