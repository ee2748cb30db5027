package planner

import (
	"context"

	"github.com/clintrovert/lazybird/pkg/types"
)

// Planner proposes implementation steps for a task whose issue did not
// spell them out
type Planner interface {
	Plan(ctx context.Context, task *types.QueuedTask) ([]string, error)
}
