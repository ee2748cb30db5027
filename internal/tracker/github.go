package tracker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/clintrovert/lazybird/pkg/types"
)

// GitHubSource reads and labels issues of one GitHub repository
type GitHubSource struct {
	apiClient    *github.Client
	logger       *zap.Logger
	owner        string
	repo         string
	triggerLabel string
}

// NewGitHubSource creates a GitHub source for repository
func NewGitHubSource(repository, token string, opts Options, logger *zap.Logger) (*GitHubSource, error) {
	opts = opts.withDefaults()

	ref, err := ParseRepository(repository, "github.com")
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = opts.Timeout

	apiClient := github.NewClient(tc)
	switch {
	case opts.BaseURL != "":
		baseURL, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		apiClient.BaseURL = baseURL
	case ref.Host != "github.com":
		apiClient, err = apiClient.WithEnterpriseURLs(ref.BaseURL()+"/api/v3/", ref.BaseURL()+"/api/uploads/")
		if err != nil {
			return nil, fmt.Errorf("failed to configure github enterprise client: %w", err)
		}
	}

	return &GitHubSource{
		apiClient:    apiClient,
		logger:       logger,
		owner:        ref.Owner(),
		repo:         ref.Name(),
		triggerLabel: opts.TriggerLabel,
	}, nil
}

// FetchTriggerIssues lists open issues with the trigger label, oldest first
func (s *GitHubSource) FetchTriggerIssues(ctx context.Context) ([]*types.Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		Labels:      []string{s.triggerLabel},
		Sort:        "created",
		Direction:   "asc",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var issues []*types.Issue
	for {
		page, resp, err := s.apiClient.Issues.ListByRepo(ctx, s.owner, s.repo, opts)
		if err != nil {
			return nil, s.wrap("list issues", err)
		}

		for _, issue := range page {
			// The issues endpoint also returns pull requests
			if issue.IsPullRequest() {
				continue
			}
			issues = append(issues, githubIssueToIssue(issue))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	sortOldestFirst(issues)

	s.logger.Debug("fetched github issues",
		zap.String("repository", s.owner+"/"+s.repo),
		zap.Int("count", len(issues)),
	)

	return issues, nil
}

// AddLabel adds a label to an issue
func (s *GitHubSource) AddLabel(ctx context.Context, issueID int, label string) error {
	_, _, err := s.apiClient.Issues.AddLabelsToIssue(ctx, s.owner, s.repo, issueID, []string{label})
	if err != nil {
		return s.wrap("add label "+label, err)
	}
	return nil
}

// RemoveLabel removes a label from an issue. Removing an absent label succeeds.
func (s *GitHubSource) RemoveLabel(ctx context.Context, issueID int, label string) error {
	resp, err := s.apiClient.Issues.RemoveLabelForIssue(ctx, s.owner, s.repo, issueID, label)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil
		}
		return s.wrap("remove label "+label, err)
	}
	return nil
}

// Comment posts a comment on an issue
func (s *GitHubSource) Comment(ctx context.Context, issueID int, body string) error {
	_, _, err := s.apiClient.Issues.CreateComment(ctx, s.owner, s.repo, issueID, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return s.wrap("create comment", err)
	}
	return nil
}

func (s *GitHubSource) wrap(op string, err error) error {
	return &SourceError{
		Platform:   types.PlatformGitHub,
		Repository: s.owner + "/" + s.repo,
		Op:         op,
		Err:        err,
	}
}

func githubIssueToIssue(issue *github.Issue) *types.Issue {
	labels := make([]string, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		labels = append(labels, label.GetName())
	}

	return &types.Issue{
		ID:        issue.GetNumber(),
		Title:     issue.GetTitle(),
		Body:      issue.GetBody(),
		Labels:    labels,
		URL:       issue.GetHTMLURL(),
		CreatedAt: issue.GetCreatedAt().Time,
	}
}
