package tracker

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"go.uber.org/zap"

	"github.com/clintrovert/lazybird/pkg/types"
)

// JiraSource reads and labels issues of one Jira project. Issue ids are the
// numeric part of the issue key, so "PROJ-7" is issue 7 of project PROJ.
type JiraSource struct {
	client       *jira.Client
	logger       *zap.Logger
	projectKey   string
	triggerLabel string
}

// NewJiraSource creates a Jira source. repository is the project URL, e.g.
// https://acme.atlassian.net/browse/PROJ; projectKey overrides the key taken
// from its last path segment. A token of the form "user:api-token" uses basic
// auth, anything else is sent as a bearer token.
func NewJiraSource(repository, projectKey, token string, opts Options, logger *zap.Logger) (*JiraSource, error) {
	opts = opts.withDefaults()

	ref, err := ParseRepository(repository, "")
	if err != nil {
		return nil, err
	}
	if projectKey == "" {
		projectKey = ref.Name()
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = ref.BaseURL()
	}

	var httpClient *http.Client
	if username, password, ok := strings.Cut(token, ":"); ok {
		tp := jira.BasicAuthTransport{
			Username: username,
			Password: password,
		}
		httpClient = tp.Client()
	} else {
		tp := jira.BearerAuthTransport{
			Token: token,
		}
		httpClient = tp.Client()
	}
	httpClient.Timeout = opts.Timeout

	client, err := jira.NewClient(httpClient, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	return &JiraSource{
		client:       client,
		logger:       logger,
		projectKey:   projectKey,
		triggerLabel: opts.TriggerLabel,
	}, nil
}

// FetchTriggerIssues searches unresolved issues with the trigger label, oldest first
func (s *JiraSource) FetchTriggerIssues(ctx context.Context) ([]*types.Issue, error) {
	jql := fmt.Sprintf("project = \"%s\" AND labels = \"%s\" AND statusCategory != Done ORDER BY created ASC",
		s.projectKey, s.triggerLabel)

	opts := &jira.SearchOptions{
		MaxResults: 100,
		Fields:     []string{"summary", "description", "labels", "created"},
	}

	var issues []*types.Issue
	for {
		page, resp, err := s.client.Issue.SearchWithContext(ctx, jql, opts)
		if err != nil {
			return nil, s.wrap("search issues", err)
		}

		for i := range page {
			issue, err := s.issueToIssue(&page[i])
			if err != nil {
				s.logger.Warn("failed to convert jira issue", zap.Error(err), zap.String("issue", page[i].Key))
				continue
			}
			issues = append(issues, issue)
		}

		opts.StartAt += len(page)
		if len(page) == 0 || resp == nil || opts.StartAt >= resp.Total {
			break
		}
	}

	sortOldestFirst(issues)

	s.logger.Debug("fetched jira issues",
		zap.String("project_key", s.projectKey),
		zap.Int("count", len(issues)),
	)

	return issues, nil
}

// AddLabel adds a label to an issue
func (s *JiraSource) AddLabel(ctx context.Context, issueID int, label string) error {
	return s.updateLabels(ctx, issueID, "add", label)
}

// RemoveLabel removes a label from an issue
func (s *JiraSource) RemoveLabel(ctx context.Context, issueID int, label string) error {
	return s.updateLabels(ctx, issueID, "remove", label)
}

// Comment adds a comment to an issue
func (s *JiraSource) Comment(ctx context.Context, issueID int, body string) error {
	_, _, err := s.client.Issue.AddCommentWithContext(ctx, s.issueKey(issueID), &jira.Comment{
		Body: body,
	})
	if err != nil {
		return s.wrap("add comment", err)
	}
	return nil
}

func (s *JiraSource) updateLabels(ctx context.Context, issueID int, verb, label string) error {
	data := map[string]interface{}{
		"update": map[string]interface{}{
			"labels": []map[string]string{{verb: label}},
		},
	}

	_, err := s.client.Issue.UpdateIssueWithContext(ctx, s.issueKey(issueID), data)
	if err != nil {
		return s.wrap(verb+" label "+label, err)
	}
	return nil
}

func (s *JiraSource) issueKey(issueID int) string {
	return fmt.Sprintf("%s-%d", s.projectKey, issueID)
}

func (s *JiraSource) wrap(op string, err error) error {
	return &SourceError{
		Platform:   types.PlatformJira,
		Repository: s.projectKey,
		Op:         op,
		Err:        err,
	}
}

// issueToIssue converts a Jira issue to an Issue
func (s *JiraSource) issueToIssue(issue *jira.Issue) (*types.Issue, error) {
	_, number, ok := strings.Cut(issue.Key, "-")
	if !ok {
		return nil, fmt.Errorf("unexpected issue key %q", issue.Key)
	}
	id, err := strconv.Atoi(number)
	if err != nil {
		return nil, fmt.Errorf("unexpected issue key %q: %w", issue.Key, err)
	}

	baseURL := s.client.GetBaseURL()
	out := &types.Issue{
		ID:  id,
		URL: strings.TrimSuffix(baseURL.String(), "/") + "/browse/" + issue.Key,
	}
	if issue.Fields != nil {
		out.Title = issue.Fields.Summary
		out.Body = issue.Fields.Description
		out.Labels = append([]string(nil), issue.Fields.Labels...)
		out.CreatedAt = time.Time(issue.Fields.Created)
	}

	return out, nil
}
