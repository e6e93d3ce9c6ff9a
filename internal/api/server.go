// Package api exposes a read-only introspection HTTP server.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/linkalert/internal/engine"
	"github.com/user/linkalert/internal/logger"
	"github.com/user/linkalert/internal/storage"
)

// JobTrigger schedules a named background job to run immediately.
type JobTrigger interface {
	TriggerJob(name string) bool
}

// Server serves engine state and history over HTTP. Endpoints are
// read-only except the manual job trigger; rule management stays with
// the external surface.
type Server struct {
	engine *engine.Engine
	store  storage.Store
	jobs   JobTrigger
	port   int
	srv    *http.Server
}

// New creates the introspection server.
func New(eng *engine.Engine, store storage.Store, jobs JobTrigger, port int) *Server {
	return &Server{engine: eng, store: store, jobs: jobs, port: port}
}

// Router builds the gin router with all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", s.getSourceHealth)
		api.GET("/cooldowns", s.getCooldowns)
		api.GET("/rules", s.getRules)
		api.GET("/alerts", s.getAlerts)
		api.GET("/transitions", s.getTransitions)
		api.POST("/jobs/:name/trigger", s.triggerJob)
	}

	return r
}

// Start runs the server until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Router(),
	}

	log := logger.WithComponent("api")
	log.Info().Int("port", s.port).Msg("introspection server listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) getSourceHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.HealthStates())
}

func (s *Server) getCooldowns(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Cooldowns())
}

func (s *Server) getRules(c *gin.Context) {
	rules, err := s.store.ListRules()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (s *Server) getAlerts(c *gin.Context) {
	limit := queryLimit(c, 50)
	alerts, err := s.store.RecentAlerts(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (s *Server) getTransitions(c *gin.Context) {
	limit := queryLimit(c, 50)
	transitions, err := s.store.RecentStatusChanges(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, transitions)
}

func (s *Server) triggerJob(c *gin.Context) {
	name := c.Param("name")
	if s.jobs == nil || !s.jobs.TriggerJob(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job " + name})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "triggered", "job": name})
}

func queryLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 1000 {
		return fallback
	}
	return limit
}
