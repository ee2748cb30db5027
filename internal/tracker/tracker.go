package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/clintrovert/lazybird/internal/agent"
	"github.com/clintrovert/lazybird/pkg/types"
)

// DefaultTimeout bounds every tracker API call
const DefaultTimeout = 30 * time.Second

// ErrSourceUnavailable marks network and auth failures talking to a tracker.
// Callers treat it as recoverable and retry on the next poll.
var ErrSourceUnavailable = errors.New("issue source unavailable")

// Source is the capability set the watcher needs from an issue tracker
type Source interface {
	// FetchTriggerIssues returns open issues carrying the trigger label,
	// oldest first, excluding pull/merge requests
	FetchTriggerIssues(ctx context.Context) ([]*types.Issue, error)
	AddLabel(ctx context.Context, issueID int, label string) error
	RemoveLabel(ctx context.Context, issueID int, label string) error
	Comment(ctx context.Context, issueID int, body string) error
}

// SourceError wraps a failed tracker call
type SourceError struct {
	Platform   types.Platform
	Repository string
	Op         string
	Err        error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Platform, e.Repository, e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is makes every SourceError match ErrSourceUnavailable
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// Options configures a tracker client
type Options struct {
	// BaseURL overrides the API endpoint derived from the repository URL
	BaseURL string
	// TriggerLabel defaults to agent.LabelReady
	TriggerLabel string
	// Timeout bounds each HTTP request, DefaultTimeout when zero
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.TriggerLabel == "" {
		o.TriggerLabel = agent.LabelReady
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

func (o Options) httpClient() *http.Client {
	return &http.Client{Timeout: o.Timeout}
}

// New creates the Source matching the project's platform
func New(project *types.ProjectConfig, token string, opts Options, logger *zap.Logger) (Source, error) {
	opts = opts.withDefaults()
	logger = logger.With(zap.String("project", project.ID), zap.String("platform", string(project.Platform)))

	switch project.Platform {
	case types.PlatformGitHub:
		return NewGitHubSource(project.Repository, token, opts, logger)
	case types.PlatformGitLab:
		return NewGitLabSource(project.Repository, project.TrackerProject, token, opts, logger)
	case types.PlatformJira:
		return NewJiraSource(project.Repository, project.TrackerProject, token, opts, logger)
	default:
		return nil, fmt.Errorf("unsupported platform: %q", project.Platform)
	}
}

// sortOldestFirst orders issues by creation time, keeping the API order for ties
func sortOldestFirst(issues []*types.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].CreatedAt.Before(issues[j].CreatedAt)
	})
}
