// Package admin is the local HTTP surface of cryptod: health, readiness,
// streaming session inspection and Prometheus metrics.
package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/danmuck/cryptochan/internal/observability"
	"github.com/danmuck/cryptochan/internal/server"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const Version = "0.1.0"

type Admin struct {
	srv    *server.Server
	router *gin.Engine
	log    zerolog.Logger
	ready  atomic.Bool
}

// New builds the admin router over srv. corsOrigins defaults to the local
// dashboard origin when empty.
func New(srv *server.Server, logger zerolog.Logger, corsOrigins []string) *Admin {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	a := &Admin{srv: srv, router: r, log: logger}
	a.registerRoutes()
	return a
}

// SetReady flips the readiness probe once the channel listener is bound.
func (a *Admin) SetReady(ready bool) {
	a.ready.Store(ready)
}

func (a *Admin) Router() *gin.Engine {
	return a.router
}

func (a *Admin) registerRoutes() {
	a.router.GET("/health", func(c *gin.Context) {
		stats := a.srv.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(stats.Started).String(),
			"service": "cryptod",
			"version": Version,
		})
	})

	a.router.GET("/ready", func(c *gin.Context) {
		status := http.StatusOK
		if !a.ready.Load() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   a.ready.Load(),
			"version": Version,
		})
	})

	a.router.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, a.srv.Stats())
	})

	a.router.GET("/session", func(c *gin.Context) {
		info, ok := a.srv.Session()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no open session"})
			return
		}
		c.JSON(http.StatusOK, info)
	})

	a.router.DELETE("/session", func(c *gin.Context) {
		reset := a.srv.Reset()
		if reset {
			a.log.Warn().Str("client_ip", c.ClientIP()).Msg("streaming session reset by admin")
		}
		c.JSON(http.StatusOK, gin.H{"reset": reset})
	})

	a.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Serve runs the admin HTTP server on ln until ctx is done.
func (a *Admin) Serve(ctx context.Context, ln net.Listener) error {
	httpSrv := &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	})
	defer stop()

	a.log.Info().Str("addr", ln.Addr().String()).Msg("admin listening")
	if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
