package workflows

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/clintrovert/lazybird/internal/activities"
	"github.com/clintrovert/lazybird/internal/agent"
	"github.com/clintrovert/lazybird/pkg/types"
)

func testTask() *types.QueuedTask {
	return &types.QueuedTask{ProjectID: "demo", IssueID: 7, Title: "Add logging"}
}

func TestAgentTaskWorkflow_Success(t *testing.T) {
	s := testsuite.WorkflowTestSuite{}
	env := s.NewTestWorkflowEnvironment()

	var a *activities.Activities
	env.OnActivity(a.RunAgentActivity, mock.Anything, mock.Anything).Return(activities.RunResult{Attempt: 1, Output: "done"}, nil)

	env.ExecuteWorkflow(AgentTaskWorkflow, testTask())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result AgentTaskResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, "done", result.Output)
}

func TestAgentTaskWorkflow_RetriesThenMarksFailed(t *testing.T) {
	s := testsuite.WorkflowTestSuite{}
	env := s.NewTestWorkflowEnvironment()

	var a *activities.Activities
	runs := 0
	env.OnActivity(a.RunAgentActivity, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		runs++
	}).Return(activities.RunResult{}, errors.New("tests failed"))

	var markedAttempts int
	var markedReason string
	env.OnActivity(a.MarkFailedActivity, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		markedAttempts = args.Get(2).(int)
		markedReason = args.Get(3).(string)
	}).Return(nil)

	env.ExecuteWorkflow(AgentTaskWorkflow, testTask())

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	require.Equal(t, agent.DefaultRetryPolicy.MaxAttempts(), runs)
	require.Equal(t, 4, markedAttempts)
	require.Contains(t, markedReason, "tests failed")
}

func TestAgentTaskWorkflow_SucceedsOnRetry(t *testing.T) {
	s := testsuite.WorkflowTestSuite{}
	env := s.NewTestWorkflowEnvironment()

	var a *activities.Activities
	env.OnActivity(a.RunAgentActivity, mock.Anything, mock.Anything).Return(activities.RunResult{}, errors.New("flaky")).Once()
	env.OnActivity(a.RunAgentActivity, mock.Anything, mock.Anything).Return(activities.RunResult{Attempt: 2}, nil).Once()

	env.ExecuteWorkflow(AgentTaskWorkflow, testTask())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result AgentTaskResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, 2, result.Attempts)
}
