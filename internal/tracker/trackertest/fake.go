// Package trackertest provides an in-memory tracker.Source for tests.
package trackertest

import (
	"context"
	"sync"

	"github.com/clintrovert/lazybird/internal/agent"
	"github.com/clintrovert/lazybird/pkg/types"
)

// Source is an in-memory issue tracker. Issues are returned in insertion order
// when they carry the ready label.
type Source struct {
	mu       sync.Mutex
	issues   []*types.Issue
	comments map[int][]string

	// FetchErr, AddErr and RemoveErr are returned by the matching calls when set
	FetchErr  error
	AddErr    error
	RemoveErr error

	Fetches int
}

// New creates a fake source holding issues
func New(issues ...*types.Issue) *Source {
	return &Source{issues: issues, comments: map[int][]string{}}
}

// Add appends an issue
func (s *Source) Add(issue *types.Issue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issues = append(s.issues, issue)
}

// FetchTriggerIssues returns copies of the issues labeled ready
func (s *Source) FetchTriggerIssues(ctx context.Context) ([]*types.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fetches++
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}

	var out []*types.Issue
	for _, issue := range s.issues {
		if issue.HasLabel(agent.LabelReady) {
			c := *issue
			c.Labels = append([]string(nil), issue.Labels...)
			out = append(out, &c)
		}
	}
	return out, nil
}

// AddLabel adds a label to the stored issue
func (s *Source) AddLabel(ctx context.Context, issueID int, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AddErr != nil {
		return s.AddErr
	}
	if issue := s.find(issueID); issue != nil && !issue.HasLabel(label) {
		issue.Labels = append(issue.Labels, label)
	}
	return nil
}

// RemoveLabel removes a label from the stored issue
func (s *Source) RemoveLabel(ctx context.Context, issueID int, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RemoveErr != nil {
		return s.RemoveErr
	}
	if issue := s.find(issueID); issue != nil {
		kept := issue.Labels[:0]
		for _, l := range issue.Labels {
			if l != label {
				kept = append(kept, l)
			}
		}
		issue.Labels = kept
	}
	return nil
}

// Comment records a comment
func (s *Source) Comment(ctx context.Context, issueID int, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[issueID] = append(s.comments[issueID], body)
	return nil
}

// Labels returns the current labels of an issue
func (s *Source) Labels(issueID int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if issue := s.find(issueID); issue != nil {
		return append([]string(nil), issue.Labels...)
	}
	return nil
}

// Comments returns the comments posted on an issue
func (s *Source) Comments(issueID int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.comments[issueID]...)
}

func (s *Source) find(issueID int) *types.Issue {
	for _, issue := range s.issues {
		if issue.ID == issueID {
			return issue
		}
	}
	return nil
}
