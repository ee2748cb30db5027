package tracker

import (
	"context"
	"net/http"
	"strings"

	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"

	"github.com/clintrovert/lazybird/pkg/types"
)

// GitLabSource reads and labels issues of one GitLab project
type GitLabSource struct {
	apiClient    *gitlab.Client
	logger       *zap.Logger
	projectID    string
	triggerLabel string
}

// NewGitLabSource creates a GitLab source. projectID is the numeric project
// id when known; otherwise the repository path is used as the identifier.
func NewGitLabSource(repository, projectID, token string, opts Options, logger *zap.Logger) (*GitLabSource, error) {
	opts = opts.withDefaults()

	ref, err := ParseRepository(repository, "gitlab.com")
	if err != nil {
		return nil, err
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = ref.BaseURL()
	}

	apiClient, err := gitlab.NewClient(token,
		gitlab.WithBaseURL(strings.TrimSuffix(baseURL, "/")+"/api/v4"),
		gitlab.WithHTTPClient(opts.httpClient()),
	)
	if err != nil {
		return nil, err
	}

	if projectID == "" {
		projectID = ref.Path
	}

	return &GitLabSource{
		apiClient:    apiClient,
		logger:       logger,
		projectID:    projectID,
		triggerLabel: opts.TriggerLabel,
	}, nil
}

// FetchTriggerIssues lists opened issues with the trigger label, oldest first
func (s *GitLabSource) FetchTriggerIssues(ctx context.Context) ([]*types.Issue, error) {
	opts := &gitlab.ListProjectIssuesOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100, Page: 1},
		State:       gitlab.Ptr("opened"),
		Labels:      &gitlab.LabelOptions{s.triggerLabel},
		OrderBy:     gitlab.Ptr("created_at"),
		Sort:        gitlab.Ptr("asc"),
	}

	var issues []*types.Issue
	for {
		page, resp, err := s.apiClient.Issues.ListProjectIssues(s.projectID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, s.wrap("list issues", err)
		}

		for _, issue := range page {
			issues = append(issues, gitlabIssueToIssue(issue))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	sortOldestFirst(issues)

	s.logger.Debug("fetched gitlab issues",
		zap.String("project_id", s.projectID),
		zap.Int("count", len(issues)),
	)

	return issues, nil
}

// AddLabel adds a label to an issue
func (s *GitLabSource) AddLabel(ctx context.Context, issueID int, label string) error {
	_, _, err := s.apiClient.Issues.UpdateIssue(s.projectID, issueID, &gitlab.UpdateIssueOptions{
		AddLabels: &gitlab.LabelOptions{label},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return s.wrap("add label "+label, err)
	}
	return nil
}

// RemoveLabel removes a label from an issue
func (s *GitLabSource) RemoveLabel(ctx context.Context, issueID int, label string) error {
	_, resp, err := s.apiClient.Issues.UpdateIssue(s.projectID, issueID, &gitlab.UpdateIssueOptions{
		RemoveLabels: &gitlab.LabelOptions{label},
	}, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil
		}
		return s.wrap("remove label "+label, err)
	}
	return nil
}

// Comment posts a note on an issue
func (s *GitLabSource) Comment(ctx context.Context, issueID int, body string) error {
	_, _, err := s.apiClient.Notes.CreateIssueNote(s.projectID, issueID, &gitlab.CreateIssueNoteOptions{
		Body: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return s.wrap("create note", err)
	}
	return nil
}

func (s *GitLabSource) wrap(op string, err error) error {
	return &SourceError{
		Platform:   types.PlatformGitLab,
		Repository: s.projectID,
		Op:         op,
		Err:        err,
	}
}

func gitlabIssueToIssue(issue *gitlab.Issue) *types.Issue {
	out := &types.Issue{
		ID:     issue.IID,
		Title:  issue.Title,
		Body:   issue.Description,
		Labels: append([]string(nil), issue.Labels...),
		URL:    issue.WebURL,
	}
	if issue.CreatedAt != nil {
		out.CreatedAt = *issue.CreatedAt
	}
	return out
}
