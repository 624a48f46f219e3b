package server

import (
	"context"
	"net/http"
	"time"

	conf "github.com/fabdesk/backup-exporter/config"
	"github.com/fabdesk/backup-exporter/internal/errors"
	handlers "github.com/fabdesk/backup-exporter/internal/handler/http"
	"github.com/fabdesk/backup-exporter/registry"
	"github.com/fabdesk/backup-exporter/registry/consul"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	Engine   *gin.Engine
	server   *http.Server
	config   *conf.ConsulConfig
	exitChan chan error
	registry registry.ServiceRegistrator
}

// BuildServer constructs and configures the HTTP server with middleware and
// routes. Registration with Consul happens on Start, not here.
func BuildServer(config *conf.ConsulConfig, backup *handlers.BackupHandler, exitChan chan error) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(RequestIDMiddleware(), AccessLogMiddleware(), RecoveryMiddleware())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	api.POST("/accounts/:account_id/backup", backup.Start)
	api.GET("/accounts/:account_id/backups", backup.History)

	reg, err := consul.NewConsulRegistry(config)
	if err != nil {
		return nil, errors.Internal(
			err.Error(),
			errors.WithID("server.build.consul_registry.error"),
		)
	}

	return &Server{
		Engine: engine,
		server: &http.Server{
			Addr:    config.PublicAddress,
			Handler: engine,
		},
		config:   config,
		exitChan: exitChan,
		registry: reg,
	}, nil
}

// Start registers the service and serves until Stop or a listener error.
func (s *Server) Start() {
	if err := s.registry.Register(); err != nil {
		s.exitChan <- err
		return
	}
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.exitChan <- errors.Internal(
			err.Error(),
			errors.WithID("server.start.serve.error"),
		)
	}
}

// Stop deregisters the service and drains in-flight requests. Backup runs
// survive this because the pipeline detaches from request contexts.
func (s *Server) Stop() {
	if err := s.registry.Deregister(); err != nil {
		s.exitChan <- err
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = s.server.Shutdown(ctx)
}
