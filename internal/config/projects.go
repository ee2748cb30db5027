package config

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/clintrovert/lazybird/pkg/types"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrProjectExists   = errors.New("project already exists")
	ErrUnknownField    = errors.New("unknown project field")
)

// EditableFields lists the fields EditField accepts
var EditableFields = []string{
	"name", "type", "path", "repository", "git_platform", "project_id",
	"test_command", "build_command", "lint_command", "format_command", "enabled",
}

// FindProject returns the project with id
func (c *Config) FindProject(id string) (*types.ProjectConfig, error) {
	for i := range c.Projects {
		if c.Projects[i].ID == id {
			return &c.Projects[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
}

// AddProject appends p after validating it
func (c *Config) AddProject(p types.ProjectConfig, check Check) error {
	if _, err := c.FindProject(p.ID); err == nil {
		return fmt.Errorf("%w: %s", ErrProjectExists, p.ID)
	}
	if problems := ProjectProblems(&p, check); len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	c.Projects = append(c.Projects, p)
	return nil
}

// RemoveProject deletes the project with id and returns it
func (c *Config) RemoveProject(id string) (types.ProjectConfig, error) {
	for i, p := range c.Projects {
		if p.ID == id {
			c.Projects = append(c.Projects[:i], c.Projects[i+1:]...)
			return p, nil
		}
	}
	return types.ProjectConfig{}, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
}

// SetEnabled sets the enabled flag of a project. It reports whether the flag
// changed.
func (c *Config) SetEnabled(id string, enabled bool) (bool, error) {
	p, err := c.FindProject(id)
	if err != nil {
		return false, err
	}
	if p.IsEnabled() == enabled {
		return false, nil
	}
	p.SetEnabled(enabled)
	return true, nil
}

// EditField sets one field of a project and returns its previous value. The
// id cannot be edited since it keys processed issues and queue entries.
func (c *Config) EditField(id, field, value string) (string, error) {
	if field == "id" {
		return "", &ValidationError{Problems: []string{"project id cannot be edited"}}
	}

	p, err := c.FindProject(id)
	if err != nil {
		return "", err
	}

	old, ok := fieldValue(p, field)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	switch field {
	case "name":
		p.Name = value
	case "type":
		p.Type = value
	case "path":
		p.Path = value
	case "repository":
		p.Repository = value
	case "git_platform":
		p.Platform = types.Platform(value)
	case "project_id":
		p.TrackerProject = value
	case "test_command":
		p.TestCommand = value
	case "build_command":
		p.BuildCommand = value
	case "lint_command":
		p.LintCommand = value
	case "format_command":
		p.FormatCommand = value
	case "enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return "", &ValidationError{Problems: []string{fmt.Sprintf("invalid enabled value %q", value)}}
		}
		p.SetEnabled(enabled)
	}

	return old, nil
}

// fieldValue returns a project field by its config key
func fieldValue(p *types.ProjectConfig, field string) (string, bool) {
	switch field {
	case "id":
		return p.ID, true
	case "name":
		return p.Name, true
	case "type":
		return p.Type, true
	case "path":
		return p.Path, true
	case "repository":
		return p.Repository, true
	case "git_platform":
		return string(p.Platform), true
	case "project_id":
		return p.TrackerProject, true
	case "test_command":
		return p.TestCommand, true
	case "build_command":
		return p.BuildCommand, true
	case "lint_command":
		return p.LintCommand, true
	case "format_command":
		return p.FormatCommand, true
	case "enabled":
		return strconv.FormatBool(p.IsEnabled()), true
	}
	return "", false
}
