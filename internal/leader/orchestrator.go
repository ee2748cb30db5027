package leader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clintrovert/lazybird/internal/state"
	"github.com/clintrovert/lazybird/pkg/types"
)

// DefaultInterval is the time between the starts of two poll cycles
const DefaultInterval = 60 * time.Second

// ProjectPoller polls a single project
type ProjectPoller interface {
	ProjectID() string
	Enabled() bool
	Project() types.ProjectConfig
	Poll(ctx context.Context, processed state.Set) ([]*types.QueuedTask, error)
}

// ProjectStatus is the outcome of the most recent poll of a project
type ProjectStatus struct {
	Project   types.ProjectConfig `json:"project"`
	LastPoll  time.Time           `json:"last_poll,omitempty"`
	LastError string              `json:"last_error,omitempty"`
	Queued    int                 `json:"queued"`
}

// Orchestrator polls every enabled project in declaration order on a fixed
// interval and owns the shared processed set
type Orchestrator struct {
	pollers   []ProjectPoller
	processed state.Set
	interval  time.Duration
	logger    *zap.Logger

	trigger chan struct{}

	// cycleMu serializes poll cycles between the loop and manual triggers
	cycleMu sync.Mutex

	mu     sync.RWMutex
	status map[string]*ProjectStatus
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	pollers []ProjectPoller,
	processed state.Set,
	interval time.Duration,
	logger *zap.Logger,
) *Orchestrator {
	if interval <= 0 {
		interval = DefaultInterval
	}

	status := make(map[string]*ProjectStatus, len(pollers))
	for _, p := range pollers {
		status[p.ProjectID()] = &ProjectStatus{Project: p.Project()}
	}

	return &Orchestrator{
		pollers:   pollers,
		processed: processed,
		interval:  interval,
		logger:    logger,
		trigger:   make(chan struct{}, 1),
		status:    status,
	}
}

// Run polls until ctx is cancelled. A cycle in progress finishes the issue it
// is handling before Run returns.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("starting orchestrator",
		zap.Int("projects", len(o.pollers)),
		zap.Duration("interval", o.interval),
	)

	for {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		o.PollOnce(ctx)

		timer := time.NewTimer(nextDelay(o.interval, time.Since(start)))
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-o.trigger:
			timer.Stop()
			o.logger.Info("poll triggered")
		case <-timer.C:
		}
	}

	o.logger.Info("stopping orchestrator")
	return nil
}

// nextDelay is the remainder of interval after elapsed, never negative
func nextDelay(interval, elapsed time.Duration) time.Duration {
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}

// PollOnce runs one cycle over all enabled projects and returns the number of
// tasks queued
func (o *Orchestrator) PollOnce(ctx context.Context) int {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	total, enabled := 0, 0
	for _, p := range o.pollers {
		if ctx.Err() != nil {
			break
		}
		if !p.Enabled() {
			continue
		}
		enabled++

		tasks, err := o.pollProject(ctx, p)
		o.record(p.ProjectID(), len(tasks), err)
		total += len(tasks)

		if err != nil {
			o.logger.Error("failed to poll project",
				zap.String("project", p.ProjectID()),
				zap.Error(err),
			)
		}
	}

	if enabled == 0 {
		o.logger.Warn("no enabled projects configured")
	}

	return total
}

// pollProject polls p and converts a panic into an error
func (o *Orchestrator) pollProject(ctx context.Context, p ProjectPoller) (tasks []*types.QueuedTask, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while polling: %v", r)
		}
	}()

	return p.Poll(ctx, o.processed)
}

func (o *Orchestrator) record(projectID string, queued int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.status[projectID]
	s.LastPoll = time.Now().UTC()
	s.Queued += queued
	s.LastError = ""
	if err != nil {
		s.LastError = err.Error()
	}
}

// Trigger requests an immediate cycle. It returns false if one is already
// pending.
func (o *Orchestrator) Trigger() bool {
	select {
	case o.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Projects returns the status of every project in declaration order
func (o *Orchestrator) Projects() []ProjectStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]ProjectStatus, 0, len(o.pollers))
	for _, p := range o.pollers {
		out = append(out, *o.status[p.ProjectID()])
	}
	return out
}

// ProcessedKeys returns the processed set's keys
func (o *Orchestrator) ProcessedKeys() []string {
	return o.processed.Keys()
}
