package types

// Platform identifies the issue tracker hosting a project
type Platform string

const (
	PlatformGitHub Platform = "github"
	PlatformGitLab Platform = "gitlab"
	PlatformJira   Platform = "jira"
)

// Platforms lists every supported tracker platform
var Platforms = []Platform{PlatformGitHub, PlatformGitLab, PlatformJira}

// Valid reports whether p is a supported platform
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// ProjectConfig describes one watched project
type ProjectConfig struct {
	ID             string   `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	Type           string   `yaml:"type" json:"type"`
	Path           string   `yaml:"path" json:"path"`
	Repository     string   `yaml:"repository" json:"repository"`
	Platform       Platform `yaml:"git_platform" json:"git_platform"`
	TrackerProject string   `yaml:"project_id,omitempty" json:"project_id,omitempty"`
	TestCommand    string   `yaml:"test_command" json:"test_command"`
	BuildCommand   string   `yaml:"build_command,omitempty" json:"build_command,omitempty"`
	LintCommand    string   `yaml:"lint_command,omitempty" json:"lint_command,omitempty"`
	FormatCommand  string   `yaml:"format_command,omitempty" json:"format_command,omitempty"`
	Enabled        *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// IsEnabled reports whether the project is enabled. Projects without an
// explicit flag are enabled.
func (p *ProjectConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// SetEnabled sets the enabled flag
func (p *ProjectConfig) SetEnabled(enabled bool) {
	p.Enabled = &enabled
}
