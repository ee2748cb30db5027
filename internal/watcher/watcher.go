package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clintrovert/lazybird/internal/agent"
	"github.com/clintrovert/lazybird/internal/parser"
	"github.com/clintrovert/lazybird/internal/planner"
	"github.com/clintrovert/lazybird/internal/queue"
	"github.com/clintrovert/lazybird/internal/state"
	"github.com/clintrovert/lazybird/internal/tracker"
	"github.com/clintrovert/lazybird/pkg/types"
)

// Watcher polls one project's tracker for ready issues and queues them
type Watcher struct {
	project types.ProjectConfig
	source  tracker.Source
	writer  queue.Writer
	planner planner.Planner
	now     func() time.Time
	logger  *zap.Logger
}

// Option configures a Watcher
type Option func(*Watcher)

// WithPlanner proposes steps for issues that do not list any
func WithPlanner(p planner.Planner) Option {
	return func(w *Watcher) {
		w.planner = p
	}
}

// WithClock overrides the enqueue timestamp source
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) {
		w.now = now
	}
}

// New creates a watcher for project
func New(project types.ProjectConfig, source tracker.Source, writer queue.Writer, logger *zap.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		project: project,
		source:  source,
		writer:  writer,
		now:     time.Now,
		logger:  logger.With(zap.String("project", project.ID)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ProjectID returns the watched project's identifier
func (w *Watcher) ProjectID() string {
	return w.project.ID
}

// Enabled reports whether the project is enabled
func (w *Watcher) Enabled() bool {
	return w.project.IsEnabled()
}

// Project returns a copy of the watched project's configuration
func (w *Watcher) Project() types.ProjectConfig {
	return w.project
}

// Poll fetches ready issues and queues the ones not yet in processed. It
// returns the tasks written during this call. A failed write is reported in
// the returned error but does not stop later issues from being handled.
func (w *Watcher) Poll(ctx context.Context, processed state.Set) ([]*types.QueuedTask, error) {
	issues, err := w.source.FetchTriggerIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issues: %w", err)
	}

	var (
		queued []*types.QueuedTask
		errs   []error
	)
	for _, issue := range issues {
		key := types.ProcessedKey(w.project.ID, issue.ID)
		if processed.Contains(key) {
			continue
		}

		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		task := w.prepare(ctx, issue)

		// Once the write starts, the issue runs to completion.
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if err := w.handle(context.WithoutCancel(ctx), task, processed); err != nil {
			errs = append(errs, err)
			continue
		}
		queued = append(queued, task)
	}

	return queued, errors.Join(errs...)
}

// prepare parses issue into a task and plans steps when it lists none
func (w *Watcher) prepare(ctx context.Context, issue *types.Issue) *types.QueuedTask {
	parsed := parser.Parse(issue)
	task := types.NewQueuedTask(issue, &w.project, w.now())
	task.Complexity = parsed.Complexity
	task.Steps = parsed.Steps
	task.AcceptanceCriteria = parsed.AcceptanceCriteria

	if len(task.Steps) == 0 && w.planner != nil {
		steps, err := w.planner.Plan(ctx, task)
		if err != nil {
			w.logger.Warn("failed to plan steps", zap.Int("issue_id", issue.ID), zap.Error(err))
		} else {
			task.Steps = steps
		}
	}
	return task
}

// handle writes, relabels and records one task
func (w *Watcher) handle(ctx context.Context, task *types.QueuedTask, processed state.Set) error {
	logger := w.logger.With(zap.Int("issue_id", task.IssueID))

	handle, err := w.writer.Write(ctx, task)
	if err != nil {
		logger.Error("failed to queue issue", zap.Error(err))
		return fmt.Errorf("issue %d: %w", task.IssueID, err)
	}

	if err := w.source.RemoveLabel(ctx, task.IssueID, agent.LabelReady); err != nil {
		logger.Warn("failed to remove label",
			zap.String("label", agent.LabelReady),
			zap.Error(err),
		)
	}
	if err := w.source.AddLabel(ctx, task.IssueID, agent.LabelProcessing); err != nil {
		logger.Warn("failed to add label",
			zap.String("label", agent.LabelProcessing),
			zap.Error(err),
		)
	}

	if err := processed.Add(ctx, task.Key()); err != nil {
		logger.Error("failed to persist processed issue", zap.Error(err))
	}

	logger.Info("queued issue",
		zap.String("task", handle.Name),
		zap.String("location", handle.Location),
		zap.String("complexity", task.Complexity),
		zap.Int("steps", len(task.Steps)),
	)

	return nil
}
