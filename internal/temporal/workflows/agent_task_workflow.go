package workflows

import (
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/clintrovert/lazybird/internal/activities"
	"github.com/clintrovert/lazybird/internal/agent"
	"github.com/clintrovert/lazybird/pkg/types"
)

// AgentRunTimeout bounds a single agent attempt
const AgentRunTimeout = 2 * time.Hour

// AgentTaskResult is the outcome of an agent task
type AgentTaskResult struct {
	Attempts int
	Output   string
}

// AgentTaskWorkflow runs the agent for one queued task, retrying per the
// agent retry policy. When every attempt fails the issue is marked failed.
func AgentTaskWorkflow(ctx workflow.Context, task *types.QueuedTask) (*AgentTaskResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting agent task workflow",
		"project", task.ProjectID,
		"issue_id", task.IssueID,
	)

	policy := agent.DefaultRetryPolicy
	runCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: AgentRunTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Minute,
			MaximumAttempts:    int32(policy.MaxAttempts()),
		},
	})

	var a *activities.Activities
	var run activities.RunResult
	err := workflow.ExecuteActivity(runCtx, a.RunAgentActivity, task).Get(ctx, &run)
	if err == nil {
		logger.Info("agent task completed", "attempt", run.Attempt)
		return &AgentTaskResult{Attempts: run.Attempt, Output: run.Output}, nil
	}

	reason := err.Error()
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		reason = appErr.Error()
	}
	logger.Error("agent task failed", "attempts", policy.MaxAttempts(), "error", reason)

	markCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 5},
	})
	if markErr := workflow.ExecuteActivity(markCtx, a.MarkFailedActivity, task, policy.MaxAttempts(), reason).Get(ctx, nil); markErr != nil {
		logger.Error("failed to mark issue failed", "error", markErr)
	}

	return nil, fmt.Errorf("agent failed after %d attempts: %w", policy.MaxAttempts(), err)
}
