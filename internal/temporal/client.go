package temporal

import (
	"context"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/clintrovert/lazybird/internal/queue"
	"github.com/clintrovert/lazybird/internal/temporal/workflows"
	"github.com/clintrovert/lazybird/pkg/types"
)

// DefaultTaskQueue is the task queue the agent worker listens on
const DefaultTaskQueue = "lazybird-agent-tasks"

// Client hands queued tasks to Temporal as agent task workflows
type Client struct {
	temporalClient client.Client
	logger         *zap.Logger
	taskQueue      string
}

// NewClient creates a new Temporal client
func NewClient(address, namespace, taskQueue string, logger *zap.Logger) (*Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  address,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create temporal client: %w", err)
	}

	return NewClientFrom(c, taskQueue, logger), nil
}

// NewClientFrom wraps an existing SDK client
func NewClientFrom(c client.Client, taskQueue string, logger *zap.Logger) *Client {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	return &Client{
		temporalClient: c,
		logger:         logger,
		taskQueue:      taskQueue,
	}
}

// Write starts the agent task workflow for task. The workflow id is the task
// name, so a task queued again while its workflow is running attaches to that
// run instead of starting a second agent.
func (c *Client) Write(ctx context.Context, task *types.QueuedTask) (queue.Handle, error) {
	workflowID := queue.TaskName(task.ProjectID, task.IssueID)

	workflowOptions := client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                c.taskQueue,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}

	we, err := c.temporalClient.ExecuteWorkflow(ctx, workflowOptions, workflows.AgentTaskWorkflow, task)
	if err != nil {
		return queue.Handle{}, fmt.Errorf("%w: failed to start workflow %s: %w", queue.ErrWriteFailed, workflowID, err)
	}

	c.logger.Info("started workflow",
		zap.String("workflow_id", we.GetID()),
		zap.String("run_id", we.GetRunID()),
		zap.String("project", task.ProjectID),
		zap.Int("issue_id", task.IssueID),
	)

	return queue.Handle{Name: we.GetID(), Location: we.GetRunID()}, nil
}

// Close closes the Temporal client
func (c *Client) Close() {
	c.temporalClient.Close()
}
