package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"heredity/internal/api"
	"heredity/internal/concurrency"
	"heredity/internal/config"
	"heredity/internal/executor"
	"heredity/internal/heredity"
	"heredity/internal/logger"
	"heredity/internal/metrics"
	"heredity/internal/storage"
)

// Server wires the executor, storage and HTTP routes together.
type Server struct {
	cfg      *config.Config
	executor *executor.Executor
	store    *storage.SQLiteStorage
	router   *gin.Engine
}

func NewServer(cfg *config.Config) (*Server, error) {
	engine, err := heredity.NewEngine(cfg.CPT())
	if err != nil {
		return nil, fmt.Errorf("invalid model configuration: %w", err)
	}

	s := &Server{cfg: cfg}

	var st storage.Storage
	if cfg.Storage.Enabled {
		s.store, err = storage.NewSQLiteStorage(cfg.Storage.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		if _, err := s.store.RecoverInterruptedRuns(); err != nil {
			log.Printf("[Server] Warning: %v", err)
		}
		st = s.store
	}

	concCfg := concurrency.NewConfig(cfg)
	s.executor = executor.NewExecutor(engine, executor.Options{
		Concurrency:    concCfg,
		MaxIndividuals: cfg.Inference.MaxIndividuals,
		Store:          st,
	})

	s.router = gin.New()
	s.router.Use(gin.Logger(), gin.Recovery(), otelgin.Middleware(cfg.Telemetry.ServiceName))
	api.SetupRoutes(s.router, s.executor, st, concurrency.NewRateLimiter(concCfg.MaxInflight))

	return s, nil
}

func (s *Server) Close() {
	s.executor.Close()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("[Server] Failed to close storage: %v", err)
		}
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("[Server] Heredity server starting on %s", addr)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("[Server] Shutting down heredity server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Printf("[Server] Shutdown error: %v", err)
		}
	}()

	return server.ListenAndServe()
}

func main() {
	configPath := flag.String("config", "", "Path to config file (default config/config.yaml)")
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := logger.InitLogger(cfg.Logging.Dir, "server-"+logger.GenerateRunID()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	if err := metrics.InitTracing(cfg.Telemetry.ServiceName, cfg.Environment, cfg.Telemetry.OTLPEndpoint); err != nil {
		log.Printf("[Server] Warning: tracing disabled: %v", err)
	}
	defer metrics.ShutdownTracing()

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	defer server.Close()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("Server error: %v", err)
	}
}
