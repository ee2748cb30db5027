package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/clintrovert/lazybird/internal/activities"
	"github.com/clintrovert/lazybird/internal/config"
	"github.com/clintrovert/lazybird/internal/credentials"
	"github.com/clintrovert/lazybird/internal/temporal"
	"github.com/clintrovert/lazybird/internal/temporal/workflows"
	"github.com/clintrovert/lazybird/internal/tracker"
	"github.com/clintrovert/lazybird/pkg/types"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	configPath := getEnv("LAZYBIRD_CONFIG", config.DefaultPath())
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.String("path", configPath), zap.Error(err))
	}

	// Get configuration from environment, falling back to the config file
	cfg.ApplyTemporalEnv(os.Getenv)
	temporalAddress := firstNonEmpty(cfg.Temporal.Address, "localhost:7233")
	temporalNamespace := firstNonEmpty(cfg.Temporal.Namespace, "default")
	taskQueue := getEnv("TASK_QUEUE", firstNonEmpty(cfg.Temporal.TaskQueue, temporal.DefaultTaskQueue))
	runnerCommand := getEnv("LAZYBIRD_RUNNER_COMMAND", cfg.Temporal.RunnerCommand)
	worktreeDir := getEnv("LAZYBIRD_WORKTREE_DIR", firstNonEmpty(cfg.Temporal.WorktreeDir, filepath.Join(os.TempDir(), "lazybird")))

	if runnerCommand == "" {
		logger.Fatal("no agent runner configured; set temporal.runner_command or LAZYBIRD_RUNNER_COMMAND")
	}

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort:  temporalAddress,
		Namespace: temporalNamespace,
	})
	if err != nil {
		logger.Fatal("failed to create temporal client", zap.Error(err))
	}
	defer c.Close()

	// Trackers are built from the task snapshot, not live project config
	creds := credentials.NewStore(cfg.SecretsPath())
	sources := func(ctx context.Context, task *types.QueuedTask) (tracker.Source, error) {
		project := types.ProjectConfig{
			ID:             task.ProjectID,
			Repository:     task.Repository,
			Platform:       task.GitPlatform,
			TrackerProject: task.TrackerProject,
		}
		token, err := creds.Token(project.ID, project.Platform)
		if err != nil {
			return nil, err
		}
		return tracker.New(&project, token, tracker.Options{Timeout: cfg.HTTPTimeout()}, logger)
	}

	agentActivities := activities.New(runnerCommand, worktreeDir, sources, logger)

	// Create worker
	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.AgentTaskWorkflow)
	w.RegisterActivity(agentActivities)

	// Start worker
	logger.Info("starting worker",
		zap.String("task_queue", taskQueue),
		zap.String("namespace", temporalNamespace),
		zap.String("worktree_dir", worktreeDir),
	)

	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("worker failed", zap.Error(err))
	}

	logger.Info("worker stopped")
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
