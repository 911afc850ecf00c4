// Package httpapi serves the health endpoint, a small JSON API and /metrics.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"proxybot/internal/broadcast"
	"proxybot/internal/storage"
	logx "proxybot/pkg/logx"
)

const ServiceName = "proxybot"

type Links interface {
	FetchProxies(ctx context.Context, limit int) []string
}

type Broadcaster interface {
	SendUpdates(ctx context.Context) broadcast.Result
	Last() (broadcast.Result, bool)
}

type Scheduler interface {
	Running() bool
	Next() (time.Time, bool)
}

type Deps struct {
	Links     Links
	Broadcast Broadcaster
	Scheduler Scheduler
	// BotRunning reports whether Telegram polling is active.
	BotRunning func() bool
	Audit      storage.Store
	Log        logx.Logger
}

type Server struct {
	addr   string
	d      Deps
	log    logx.Logger
	engine *gin.Engine
}

func New(addr string, d Deps) *Server {
	if d.Audit == nil {
		d.Audit = storage.Disabled{}
	}
	if d.BotRunning == nil {
		d.BotRunning = func() bool { return false }
	}
	s := &Server{addr: addr, d: d, log: d.Log.With(logx.String("comp", "http"))}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.requestLog())
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	s.engine.GET("/", s.root)
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	api.GET("/status", s.status)
	api.GET("/proxies", s.proxies)
	api.POST("/send-update", s.sendUpdate)
}

// Run serves until ctx is done, then shuts down within 5 seconds.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.log.Info("http server listening", logx.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		s.log.Warn("http shutdown", logx.Err(err))
	}
	s.log.Info("http server stopped")
	return nil
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			logx.String("method", c.Request.Method),
			logx.String("path", c.FullPath()),
			logx.Int("status", c.Writer.Status()),
			logx.Duration("dur", time.Since(start)),
		)
	}
}
