package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/clintrovert/lazybird/pkg/types"
)

// ErrInvalid marks configuration that cannot be used
var ErrInvalid = errors.New("invalid configuration")

// ValidationError lists every problem found in a configuration
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Is makes every ValidationError match ErrInvalid
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Check selects which project checks run
type Check struct {
	// Partial skips the required-field check, as when editing one field
	Partial bool
	// Path requires the project path to be an existing directory
	Path bool
}

// RequiredFields are the project fields that must be non-empty
var RequiredFields = []string{"id", "name", "type", "path", "repository", "git_platform", "test_command"}

// ProjectProblems returns what is wrong with p
func ProjectProblems(p *types.ProjectConfig, check Check) []string {
	var problems []string

	if !check.Partial {
		for _, field := range RequiredFields {
			if v, _ := fieldValue(p, field); v == "" {
				problems = append(problems, "missing required field: "+field)
			}
		}
	}

	if p.ID != "" && !ValidID(p.ID) {
		problems = append(problems, fmt.Sprintf("invalid project id %q (must be alphanumeric with dashes/underscores)", p.ID))
	}

	if p.Platform != "" && !p.Platform.Valid() {
		problems = append(problems, fmt.Sprintf("invalid git_platform %q (must be one of %s)", p.Platform, platformList()))
	}

	if p.Platform == types.PlatformJira && p.TrackerProject == "" {
		problems = append(problems, "jira projects require project_id (the jira project key)")
	}

	if check.Path && p.Path != "" {
		info, err := os.Stat(p.Path)
		switch {
		case err != nil:
			problems = append(problems, "project path does not exist: "+p.Path)
		case !info.IsDir():
			problems = append(problems, "project path is not a directory: "+p.Path)
		}
	}

	return problems
}

// ValidID reports whether id is alphanumeric with dashes and underscores
func ValidID(id string) bool {
	hasAlnum := false
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			hasAlnum = true
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return hasAlnum
}

func platformList() string {
	names := make([]string, 0, len(types.Platforms))
	for _, p := range types.Platforms {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

// Validate reports problems that make the whole configuration unusable:
// duplicate project ids and unknown backends. Problems with a single project
// are reported by UsableProjects instead.
func (c *Config) Validate() error {
	var problems []string

	seen := make(map[string]bool, len(c.Projects))
	for _, p := range c.Projects {
		if p.ID == "" {
			continue
		}
		if seen[p.ID] {
			problems = append(problems, "duplicate project id: "+p.ID)
		}
		seen[p.ID] = true
	}

	switch c.StateBackend() {
	case StateBackendJSON, StateBackendSQLite:
	default:
		problems = append(problems, fmt.Sprintf("unknown state backend %q", c.State.Backend))
	}

	switch c.QueueBackendName() {
	case QueueBackendFile:
	case QueueBackendTemporal:
		if c.Temporal.Address == "" {
			problems = append(problems, "temporal queue backend requires temporal.address")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown queue backend %q", c.QueueBackend))
	}

	if c.PollIntervalSeconds < 0 {
		problems = append(problems, "poll_interval_seconds must not be negative")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// UsableProjects returns the projects that pass validation, in declaration
// order. Each skipped project is logged with its problems.
func (c *Config) UsableProjects(logger *zap.Logger) []types.ProjectConfig {
	var usable []types.ProjectConfig
	for _, p := range c.Projects {
		if problems := ProjectProblems(&p, Check{}); len(problems) > 0 {
			logger.Error("skipping invalid project",
				zap.String("project", p.ID),
				zap.Strings("problems", problems),
			)
			continue
		}
		usable = append(usable, p)
	}
	return usable
}
