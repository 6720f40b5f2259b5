package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tasklist-svc/src/clients"
	"tasklist-svc/src/internal/config"
	"tasklist-svc/src/internal/dependency"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var log = *logrus.StandardLogger()

type Server struct {
	cfg  *config.Configuration
	deps *dependency.Manager
}

func New(cfg *config.Configuration) *Server {
	return &Server{cfg: cfg}
}

// Start connects the backing services, wires the dependencies and serves
// until SIGINT/SIGTERM.
func (s *Server) Start() error {
	mongodb, err := clients.NewMongoDB(&s.cfg.Database)
	if err != nil {
		return err
	}

	redisClient, err := clients.NewRedisClient(&s.cfg.Redis)
	if err != nil {
		return err
	}

	rabbitMQ, err := clients.NewRabbitMQ(&s.cfg.Queue)
	if err != nil {
		return err
	}

	if err := rabbitMQ.SetupQueue(); err != nil {
		return err
	}

	gin.SetMode(s.cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())

	s.deps = dependency.NewDependencyManager(router, mongodb, redisClient, rabbitMQ, s.cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.Database.Timeout)*time.Second)
	if err := s.deps.UserRepository.EnsureIndexes(ctx); err != nil {
		cancel()
		return err
	}
	cancel()

	SetupRoutes(s.deps)

	srv := &http.Server{
		Addr:         ":" + s.cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server is listening on port %s", s.cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Infof("Received signal %s, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
		return err
	}

	rabbitMQ.Close()
	redisClient.Close()
	mongodb.Close(shutdownCtx)

	log.Info("Server stopped")
	return nil
}
