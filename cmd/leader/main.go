package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	grpcapi "github.com/clintrovert/lazybird/internal/api/grpc"
	"github.com/clintrovert/lazybird/internal/api/rest"
	"github.com/clintrovert/lazybird/internal/config"
	"github.com/clintrovert/lazybird/internal/credentials"
	"github.com/clintrovert/lazybird/internal/leader"
	"github.com/clintrovert/lazybird/internal/planner"
	"github.com/clintrovert/lazybird/internal/queue"
	"github.com/clintrovert/lazybird/internal/state"
	"github.com/clintrovert/lazybird/internal/temporal"
	"github.com/clintrovert/lazybird/internal/tracker"
	"github.com/clintrovert/lazybird/internal/watcher"
)

func main() {
	// Initialize logger
	logger, err := newLogger(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	defer logger.Sync()

	// Load configuration
	configPath := getEnv("LAZYBIRD_CONFIG", config.DefaultPath())
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.String("path", configPath), zap.Error(err))
	}
	cfg.ApplyTemporalEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.String("path", configPath), zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open processed set
	var processed state.Set
	switch cfg.StateBackend() {
	case config.StateBackendSQLite:
		set, err := state.OpenSQLiteSet(ctx, cfg.StatePath())
		if err != nil {
			logger.Fatal("failed to open processed set", zap.Error(err))
		}
		defer set.Close()
		processed = set
	default:
		set, err := state.LoadFileSet(cfg.StatePath(), logger)
		if err != nil {
			logger.Fatal("failed to load processed set", zap.Error(err))
		}
		processed = set
	}
	logger.Info("loaded processed issues",
		zap.String("backend", cfg.StateBackend()),
		zap.Int("count", len(processed.Keys())),
	)

	// Create queue writer
	var (
		writer   queue.Writer
		queueDir string
	)
	switch cfg.QueueBackendName() {
	case config.QueueBackendTemporal:
		temporalClient, err := temporal.NewClient(
			cfg.Temporal.Address,
			firstNonEmpty(cfg.Temporal.Namespace, "default"),
			cfg.Temporal.TaskQueue,
			logger,
		)
		if err != nil {
			logger.Fatal("failed to create temporal client", zap.Error(err))
		}
		defer temporalClient.Close()
		writer = temporalClient
	default:
		primary, fallback := cfg.QueueDirs()
		queueDir, err = queue.ResolveDir(primary, fallback, logger)
		if err != nil {
			logger.Fatal("failed to resolve queue directory", zap.Error(err))
		}
		fileWriter, err := queue.NewFileWriter(queueDir, logger)
		if err != nil {
			logger.Fatal("failed to create queue writer", zap.Error(err))
		}
		writer = fileWriter
	}

	// Optional AI planner for issues without steps
	var watcherOpts []watcher.Option
	if openaiAPIKey := getEnv("OPENAI_API_KEY", ""); openaiAPIKey != "" {
		aiPlanner := planner.NewAIPlanner(openaiAPIKey, cfg.Planner.OpenAIModel, cfg.HTTPTimeout(), logger)
		watcherOpts = append(watcherOpts, watcher.WithPlanner(aiPlanner))
	}

	// Create one watcher per project
	creds := credentials.NewStore(cfg.SecretsPath())
	var pollers []leader.ProjectPoller
	for _, project := range cfg.UsableProjects(logger) {
		token, err := creds.Token(project.ID, project.Platform)
		if err != nil {
			logger.Error("skipping project without token",
				zap.String("project", project.ID),
				zap.Strings("searched", creds.Candidates(project.ID, project.Platform)),
				zap.Error(err),
			)
			continue
		}

		source, err := tracker.New(&project, token, tracker.Options{Timeout: cfg.HTTPTimeout()}, logger)
		if err != nil {
			logger.Error("skipping project", zap.String("project", project.ID), zap.Error(err))
			continue
		}

		pollers = append(pollers, watcher.New(project, source, writer, logger, watcherOpts...))
		logger.Info("watching project",
			zap.String("project", project.ID),
			zap.String("repository", project.Repository),
			zap.Bool("enabled", project.IsEnabled()),
		)
	}

	// Create orchestrator
	orchestrator := leader.NewOrchestrator(pollers, processed, cfg.PollInterval(), logger)

	// Setup REST API
	restHandler := rest.NewHandler(orchestrator, queueDir, logger)
	restAddr := fmt.Sprintf(":%s", getEnv("LAZYBIRD_REST_PORT", firstNonEmpty(cfg.API.RESTPort, "8080")))
	restServer := &http.Server{
		Addr:              restAddr,
		Handler:           rest.NewRouter(restHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting REST API server", zap.String("address", restAddr))
		if err := restServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start REST server", zap.Error(err))
		}
	}()

	// Start gRPC health server
	grpcAddr := fmt.Sprintf(":%s", getEnv("LAZYBIRD_GRPC_PORT", firstNonEmpty(cfg.API.GRPCPort, "9090")))
	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logger.Fatal("failed to listen on gRPC port", zap.Error(err))
	}

	grpcSrv := grpc.NewServer()
	healthServer := grpcapi.NewServer(orchestrator, logger)
	healthServer.Register(grpcSrv)

	go func() {
		logger.Info("starting gRPC server", zap.String("address", grpcAddr))
		if err := grpcSrv.Serve(grpcListener); err != nil {
			logger.Fatal("failed to start gRPC server", zap.Error(err))
		}
	}()
	go healthServer.Run(ctx, 15*time.Second)

	// Start orchestrator
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := orchestrator.Run(ctx); err != nil {
			logger.Error("orchestrator failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")

	// Let the issue in progress finish its write and persist
	cancel()
	<-done

	// Shutdown servers
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	restServer.Shutdown(shutdownCtx)
	grpcSrv.GracefulStop()

	logger.Info("shutdown complete")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
