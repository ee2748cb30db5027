package agent

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/clintrovert/lazybird/internal/queue"
	"github.com/clintrovert/lazybird/pkg/types"
)

// Tracker labels shared with the agent runner
const (
	LabelReady      = "ready"
	LabelProcessing = "processing"
	LabelFailed     = "failed"
)

// DefaultMaxRetries is the number of retries after the first attempt
const DefaultMaxRetries = 3

// RetryPolicy bounds how often the runner re-attempts a task before it gives
// up and labels the issue failed
type RetryPolicy struct {
	MaxRetries int
}

// DefaultRetryPolicy allows 3 retries, 4 attempts in total
var DefaultRetryPolicy = RetryPolicy{MaxRetries: DefaultMaxRetries}

// MaxAttempts returns the total number of attempts including the first
func (p RetryPolicy) MaxAttempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// BranchName returns the feature branch for an issue of a project
func BranchName(projectID string, issueID int) string {
	return fmt.Sprintf("feature-%s-%d", projectID, issueID)
}

// WorktreeName returns the worktree directory name for an issue of a project
func WorktreeName(projectID string, issueID int) string {
	return fmt.Sprintf("agent-%s-%d", projectID, issueID)
}

// WorktreePath joins baseDir and the worktree name
func WorktreePath(baseDir, projectID string, issueID int) string {
	return filepath.Join(baseDir, WorktreeName(projectID, issueID))
}

// PRTitle generates a pull request title for a task
func PRTitle(task *types.QueuedTask) string {
	return fmt.Sprintf("[%s] #%d: %s", task.ProjectID, task.IssueID, task.Title)
}

// CommitMessage generates the commit message for a task
func CommitMessage(task *types.QueuedTask) string {
	return fmt.Sprintf("%s\n\nRefs %s", task.Title, issueRef(task))
}

// PRDescription generates a pull request body from a task
func PRDescription(task *types.QueuedTask) string {
	var sb strings.Builder

	sb.WriteString("## Implementation for " + issueRef(task) + "\n\n")
	sb.WriteString("**Project:** " + task.ProjectName + " (" + task.ProjectType + ")\n")
	sb.WriteString("**Issue:** " + task.URL + "\n")
	sb.WriteString("**Complexity:** " + task.Complexity + "\n\n")

	if len(task.Steps) > 0 {
		sb.WriteString("## Steps\n\n")
		for _, step := range task.Steps {
			sb.WriteString(step + "\n")
		}
		sb.WriteString("\n")
	}

	if len(task.AcceptanceCriteria) > 0 {
		sb.WriteString("## Acceptance Criteria\n\n")
		for _, criterion := range task.AcceptanceCriteria {
			sb.WriteString(criterion + "\n")
		}
		sb.WriteString("\n")
	}

	if task.TestCommand != "" {
		sb.WriteString("Tests: `" + task.TestCommand + "`\n\n")
	}

	sb.WriteString("Closes " + issueRef(task) + "\n")
	return sb.String()
}

// FailureComment is posted on the issue once every attempt has failed
func FailureComment(attempts int, reason string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Automated implementation failed after %d attempt(s).\n\n", attempts)
	if reason != "" {
		sb.WriteString("```\n")
		sb.WriteString(Tail(reason, 4000))
		sb.WriteString("\n```\n\n")
	}
	fmt.Fprintf(&sb, "Relabel with `%s` to try again.\n", LabelReady)
	return sb.String()
}

// Environment returns the variables passed to the agent runner process. The
// runner reads its execution parameters from here and from the task snapshot,
// never from live project configuration.
func Environment(task *types.QueuedTask, worktreeBase string, attempt int) []string {
	return []string{
		"LAZYBIRD_TASK=" + queue.TaskName(task.ProjectID, task.IssueID),
		"LAZYBIRD_PROJECT_ID=" + task.ProjectID,
		fmt.Sprintf("LAZYBIRD_ISSUE_ID=%d", task.IssueID),
		"LAZYBIRD_PROJECT_PATH=" + task.ProjectPath,
		"LAZYBIRD_BRANCH=" + BranchName(task.ProjectID, task.IssueID),
		"LAZYBIRD_WORKTREE=" + WorktreePath(worktreeBase, task.ProjectID, task.IssueID),
		"LAZYBIRD_TEST_COMMAND=" + task.TestCommand,
		"LAZYBIRD_BUILD_COMMAND=" + task.BuildCommand,
		"LAZYBIRD_LINT_COMMAND=" + task.LintCommand,
		"LAZYBIRD_FORMAT_COMMAND=" + task.FormatCommand,
		fmt.Sprintf("LAZYBIRD_ATTEMPT=%d", attempt),
		"LAZYBIRD_COMMIT_MESSAGE=" + CommitMessage(task),
		"LAZYBIRD_PR_TITLE=" + PRTitle(task),
		"LAZYBIRD_PR_BODY=" + PRDescription(task),
	}
}

func issueRef(task *types.QueuedTask) string {
	if task.GitPlatform == types.PlatformJira && task.TrackerProject != "" {
		return fmt.Sprintf("%s-%d", task.TrackerProject, task.IssueID)
	}
	return fmt.Sprintf("#%d", task.IssueID)
}

// Tail keeps at most the last maxLen bytes of s, where runner output usually
// explains the failure. The cut never splits a UTF-8 sequence.
func Tail(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	start := len(s) - maxLen
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
