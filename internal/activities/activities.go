package activities

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"go.temporal.io/sdk/activity"
	"go.uber.org/zap"

	"github.com/clintrovert/lazybird/internal/agent"
	"github.com/clintrovert/lazybird/internal/tracker"
	"github.com/clintrovert/lazybird/pkg/types"
)

// maxOutput bounds the runner output kept in results and errors
const maxOutput = 4000

// SourceFactory returns the tracker for the project a task was queued from
type SourceFactory func(ctx context.Context, task *types.QueuedTask) (tracker.Source, error)

// RunResult contains the result of one agent run
type RunResult struct {
	Attempt int
	Output  string
}

// Activities hosts the agent task activities
type Activities struct {
	runnerCommand string
	worktreeBase  string
	sources       SourceFactory
	logger        *zap.Logger
}

// New creates the agent task activities
func New(runnerCommand, worktreeBase string, sources SourceFactory, logger *zap.Logger) *Activities {
	return &Activities{
		runnerCommand: runnerCommand,
		worktreeBase:  worktreeBase,
		sources:       sources,
		logger:        logger,
	}
}

// RunAgentActivity runs the configured agent runner for task. The task JSON
// is written to the runner's stdin and the protocol variables are set in its
// environment. A non-zero exit fails the attempt.
func (a *Activities) RunAgentActivity(ctx context.Context, task *types.QueuedTask) (RunResult, error) {
	attempt := int(activity.GetInfo(ctx).Attempt)
	logger := a.logger.With(
		zap.String("project", task.ProjectID),
		zap.Int("issue_id", task.IssueID),
		zap.Int("attempt", attempt),
	)
	logger.Info("running agent", zap.String("branch", agent.BranchName(task.ProjectID, task.IssueID)))

	payload, err := json.Marshal(task)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to encode task: %w", err)
	}

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", a.runnerCommand)
	cmd.Dir = task.ProjectPath
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.Env = append(os.Environ(), agent.Environment(task, a.worktreeBase, attempt)...)

	runErr := cmd.Run()
	result := RunResult{Attempt: attempt, Output: agent.Tail(output.String(), maxOutput)}
	if runErr != nil {
		logger.Warn("agent run failed", zap.Error(runErr))
		return result, fmt.Errorf("agent runner failed: %w: %s", runErr, result.Output)
	}

	logger.Info("agent run completed")
	return result, nil
}

// MarkFailedActivity moves the issue from processing to failed and leaves a
// diagnostic comment
func (a *Activities) MarkFailedActivity(ctx context.Context, task *types.QueuedTask, attempts int, reason string) error {
	logger := a.logger.With(
		zap.String("project", task.ProjectID),
		zap.Int("issue_id", task.IssueID),
	)

	source, err := a.sources(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to create tracker client: %w", err)
	}

	if err := source.RemoveLabel(ctx, task.IssueID, agent.LabelProcessing); err != nil {
		logger.Warn("failed to remove label", zap.String("label", agent.LabelProcessing), zap.Error(err))
	}
	if err := source.AddLabel(ctx, task.IssueID, agent.LabelFailed); err != nil {
		return fmt.Errorf("failed to add %s label: %w", agent.LabelFailed, err)
	}
	if err := source.Comment(ctx, task.IssueID, agent.FailureComment(attempts, reason)); err != nil {
		return fmt.Errorf("failed to comment: %w", err)
	}

	logger.Info("marked issue failed", zap.Int("attempts", attempts))
	return nil
}
