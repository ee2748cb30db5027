package types

import (
	"fmt"
	"time"
)

// Issue represents an open issue fetched from a tracker
type Issue struct {
	ID        int
	Title     string
	Body      string
	Labels    []string
	URL       string
	CreatedAt time.Time
}

// HasLabel reports whether the issue carries the named label
func (i *Issue) HasLabel(name string) bool {
	for _, label := range i.Labels {
		if label == name {
			return true
		}
	}
	return false
}

// QueuedTask is the record handed to the agent runner. It carries a full
// snapshot of the project configuration at enqueue time and is never
// modified after it is written.
type QueuedTask struct {
	IssueID            int       `json:"issue_id"`
	Title              string    `json:"title"`
	Body               string    `json:"body"`
	Steps              []string  `json:"steps"`
	AcceptanceCriteria []string  `json:"acceptance_criteria"`
	Complexity         string    `json:"complexity"`
	URL                string    `json:"url"`
	QueuedAt           time.Time `json:"queued_at"`

	ProjectID      string   `json:"project_id"`
	ProjectName    string   `json:"project_name"`
	ProjectType    string   `json:"project_type"`
	ProjectPath    string   `json:"project_path"`
	Repository     string   `json:"repository"`
	GitPlatform    Platform `json:"git_platform"`
	TrackerProject string   `json:"tracker_project,omitempty"`
	TestCommand    string   `json:"test_command"`
	BuildCommand   string   `json:"build_command"`
	LintCommand    string   `json:"lint_command"`
	FormatCommand  string   `json:"format_command"`
}

// Key returns the processed-set key "{project_id}:{issue_id}"
func (t *QueuedTask) Key() string {
	return ProcessedKey(t.ProjectID, t.IssueID)
}

// ProcessedKey builds the dedup key for an issue of a project
func ProcessedKey(projectID string, issueID int) string {
	return fmt.Sprintf("%s:%d", projectID, issueID)
}

// NewQueuedTask snapshots project into a task for issue
func NewQueuedTask(issue *Issue, project *ProjectConfig, queuedAt time.Time) *QueuedTask {
	return &QueuedTask{
		IssueID:        issue.ID,
		Title:          issue.Title,
		Body:           issue.Body,
		URL:            issue.URL,
		QueuedAt:       queuedAt.UTC(),
		ProjectID:      project.ID,
		ProjectName:    project.Name,
		ProjectType:    project.Type,
		ProjectPath:    project.Path,
		Repository:     project.Repository,
		GitPlatform:    project.Platform,
		TrackerProject: project.TrackerProject,
		TestCommand:    project.TestCommand,
		BuildCommand:   project.BuildCommand,
		LintCommand:    project.LintCommand,
		FormatCommand:  project.FormatCommand,
	}
}
