package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clintrovert/lazybird/internal/fsutil"
	"github.com/clintrovert/lazybird/pkg/types"
)

const (
	DefaultPollInterval = 60 * time.Second
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultQueueDir     = "/var/lib/lazy_birtd/queue"

	StateBackendJSON   = "json"
	StateBackendSQLite = "sqlite"

	QueueBackendFile     = "file"
	QueueBackendTemporal = "temporal"

	// LegacyProjectID is assigned to the project of a single-project config
	LegacyProjectID = "default"
)

// StateConfig selects where the processed set lives
type StateConfig struct {
	Backend string `yaml:"backend,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// TemporalConfig configures the temporal queue backend and worker
type TemporalConfig struct {
	Address       string `yaml:"address,omitempty"`
	Namespace     string `yaml:"namespace,omitempty"`
	TaskQueue     string `yaml:"task_queue,omitempty"`
	RunnerCommand string `yaml:"runner_command,omitempty"`
	WorktreeDir   string `yaml:"worktree_dir,omitempty"`
}

// PlannerConfig configures the optional step planner
type PlannerConfig struct {
	OpenAIModel string `yaml:"openai_model,omitempty"`
}

// APIConfig configures the status servers
type APIConfig struct {
	RESTPort string `yaml:"rest_port,omitempty"`
	GRPCPort string `yaml:"grpc_port,omitempty"`
}

// LegacyProject is the "project" block of the single-project format
type LegacyProject struct {
	Name string `yaml:"name,omitempty"`
	Type string `yaml:"type,omitempty"`
	Path string `yaml:"path,omitempty"`
}

// Config is the lazybird configuration file
type Config struct {
	PollIntervalSeconds int                   `yaml:"poll_interval_seconds,omitempty"`
	HTTPTimeoutSeconds  int                   `yaml:"http_timeout_seconds,omitempty"`
	QueueDir            string                `yaml:"queue_dir,omitempty"`
	QueueBackend        string                `yaml:"queue_backend,omitempty"`
	SecretsDir          string                `yaml:"secrets_dir,omitempty"`
	State               StateConfig           `yaml:"state,omitempty"`
	Temporal            TemporalConfig        `yaml:"temporal,omitempty"`
	Planner             PlannerConfig         `yaml:"planner,omitempty"`
	API                 APIConfig             `yaml:"api,omitempty"`
	Projects            []types.ProjectConfig `yaml:"projects"`

	Legacy        *LegacyProject `yaml:"project,omitempty"`
	Repository    string         `yaml:"repository,omitempty"`
	GitPlatform   string         `yaml:"git_platform,omitempty"`
	TestCommand   string         `yaml:"test_command,omitempty"`
	BuildCommand  string         `yaml:"build_command,omitempty"`
	LintCommand   string         `yaml:"lint_command,omitempty"`
	FormatCommand string         `yaml:"format_command,omitempty"`

	// Extra keeps keys this version does not know so Save round-trips them
	Extra map[string]any `yaml:",inline"`
}

// DefaultDir returns ~/.config/lazy_birtd
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "lazy_birtd")
}

// DefaultPath returns the config file path: config.yml, or config.json when
// only that exists
func DefaultPath() string {
	yml := filepath.Join(DefaultDir(), "config.yml")
	if _, err := os.Stat(yml); err == nil {
		return yml
	}
	jsn := filepath.Join(DefaultDir(), "config.json")
	if _, err := os.Stat(jsn); err == nil {
		return jsn
	}
	return yml
}

// Load reads the config file at path. JSON files are accepted since JSON is
// YAML. A legacy single-project file is converted to a one-project config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes config data
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.convertLegacy()
	return &cfg, nil
}

// convertLegacy moves the top-level single-project keys into Projects
func (c *Config) convertLegacy() {
	if len(c.Projects) > 0 || (c.Legacy == nil && c.Repository == "") {
		return
	}

	legacy := LegacyProject{Name: "Default Project", Type: "godot", Path: "."}
	if c.Legacy != nil {
		if c.Legacy.Name != "" {
			legacy.Name = c.Legacy.Name
		}
		if c.Legacy.Type != "" {
			legacy.Type = c.Legacy.Type
		}
		if c.Legacy.Path != "" {
			legacy.Path = c.Legacy.Path
		}
	}

	platform := types.PlatformGitHub
	if c.GitPlatform != "" {
		platform = types.Platform(c.GitPlatform)
	}

	c.Projects = []types.ProjectConfig{{
		ID:            LegacyProjectID,
		Name:          legacy.Name,
		Type:          legacy.Type,
		Path:          legacy.Path,
		Repository:    c.Repository,
		Platform:      platform,
		TestCommand:   c.TestCommand,
		BuildCommand:  c.BuildCommand,
		LintCommand:   c.LintCommand,
		FormatCommand: c.FormatCommand,
	}}

	c.Legacy = nil
	c.Repository, c.GitPlatform = "", ""
	c.TestCommand, c.BuildCommand, c.LintCommand, c.FormatCommand = "", "", "", ""
}

// Save writes c to path as YAML, or as JSON when path ends in ".json". An
// existing file is first copied to path + ".backup".
func Save(path string, c *Config) error {
	data, err := encode(c, strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := fsutil.WriteFileAtomic(BackupPath(path), existing, 0o600); err != nil {
			return fmt.Errorf("failed to back up config: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := fsutil.WriteFileAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// encode renders c as YAML. JSON output goes through the YAML document so
// the same keys, including unknown ones, are written.
func encode(c *Config, asJSON bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	if !asJSON {
		return buf.Bytes(), nil
	}

	var doc map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// BackupPath returns where Save keeps the previous version of path
func BackupPath(path string) string {
	return path + ".backup"
}

// PollInterval returns the configured interval or the default
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// HTTPTimeout returns the tracker call timeout
func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTPTimeoutSeconds <= 0 {
		return DefaultHTTPTimeout
	}
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// QueueDirs returns the queue directory and the fallback to use when it is
// not writable. An explicit queue_dir has no fallback.
func (c *Config) QueueDirs() (string, string) {
	if c.QueueDir != "" {
		return c.QueueDir, ""
	}
	return DefaultQueueDir, filepath.Join(DefaultDir(), "queue")
}

// SecretsPath returns the token directory
func (c *Config) SecretsPath() string {
	if c.SecretsDir != "" {
		return c.SecretsDir
	}
	return filepath.Join(DefaultDir(), "secrets")
}

// StateBackend returns the processed set backend
func (c *Config) StateBackend() string {
	if c.State.Backend == "" {
		return StateBackendJSON
	}
	return c.State.Backend
}

// StatePath returns the processed set location for the selected backend
func (c *Config) StatePath() string {
	if c.State.Path != "" {
		return c.State.Path
	}
	name := "processed_issues.json"
	if c.StateBackend() == StateBackendSQLite {
		name = "processed_issues.db"
	}
	return filepath.Join(DefaultDir(), "data", name)
}

// ApplyTemporalEnv overrides the temporal address and namespace with
// TEMPORAL_ADDRESS and TEMPORAL_NAMESPACE when getenv returns them set
func (c *Config) ApplyTemporalEnv(getenv func(string) string) {
	if v := getenv("TEMPORAL_ADDRESS"); v != "" {
		c.Temporal.Address = v
	}
	if v := getenv("TEMPORAL_NAMESPACE"); v != "" {
		c.Temporal.Namespace = v
	}
}

// QueueBackendName returns the selected queue backend
func (c *Config) QueueBackendName() string {
	if c.QueueBackend == "" {
		return QueueBackendFile
	}
	return c.QueueBackend
}
