package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clintrovert/lazybird/pkg/types"
)

const multiProject = `
poll_interval_seconds: 30
queue_dir: /tmp/queue
custom_key: kept
projects:
  - id: demo
    name: Demo
    type: go
    path: /src/demo
    repository: https://github.com/acme/demo
    git_platform: github
    test_command: go test ./...
  - id: tools
    name: Tools
    type: python
    path: /src/tools
    repository: https://gitlab.com/acme/tools
    git_platform: gitlab
    project_id: "42"
    test_command: pytest
    enabled: false
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(multiProject))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, 30*time.Second, cfg.PollInterval())
	require.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout())

	primary, fallback := cfg.QueueDirs()
	require.Equal(t, "/tmp/queue", primary)
	require.Empty(t, fallback)

	require.Len(t, cfg.Projects, 2)
	require.Equal(t, "demo", cfg.Projects[0].ID)
	require.True(t, cfg.Projects[0].IsEnabled())
	require.Equal(t, types.PlatformGitLab, cfg.Projects[1].Platform)
	require.Equal(t, "42", cfg.Projects[1].TrackerProject)
	require.False(t, cfg.Projects[1].IsEnabled())
	require.Equal(t, "kept", cfg.Extra["custom_key"])
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("projects: []\n"))
	require.NoError(t, err)
	require.Equal(t, DefaultPollInterval, cfg.PollInterval())
	require.Equal(t, StateBackendJSON, cfg.StateBackend())
	require.Equal(t, QueueBackendFile, cfg.QueueBackendName())
	require.Equal(t, filepath.Join(DefaultDir(), "data", "processed_issues.json"), cfg.StatePath())

	primary, fallback := cfg.QueueDirs()
	require.Equal(t, DefaultQueueDir, primary)
	require.Equal(t, filepath.Join(DefaultDir(), "queue"), fallback)
}

func TestParse_JSON(t *testing.T) {
	cfg, err := Parse([]byte(`{"poll_interval_seconds": 5, "projects": [{"id": "a", "name": "A", "git_platform": "github"}]}`))
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, cfg.PollInterval())
	require.Equal(t, "a", cfg.Projects[0].ID)
}

func TestParse_Legacy(t *testing.T) {
	cfg, err := Parse([]byte(`
project:
  name: Game
  path: /src/game
repository: https://github.com/acme/game
test_command: godot --test
`))
	require.NoError(t, err)
	require.Len(t, cfg.Projects, 1)

	p := cfg.Projects[0]
	require.Equal(t, LegacyProjectID, p.ID)
	require.Equal(t, "Game", p.Name)
	require.Equal(t, "godot", p.Type)
	require.Equal(t, "/src/game", p.Path)
	require.Equal(t, types.PlatformGitHub, p.Platform)
	require.Equal(t, "godot --test", p.TestCommand)
	require.Nil(t, cfg.Legacy)
	require.Empty(t, cfg.Repository)
}

func TestValidate(t *testing.T) {
	cfg, err := Parse([]byte(`
state:
  backend: redis
projects:
  - id: demo
  - id: demo
`))
	require.NoError(t, err)

	err = cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Problems, "duplicate project id: demo")
	require.Len(t, verr.Problems, 2)
}

func TestValidate_TemporalNeedsAddress(t *testing.T) {
	cfg := &Config{QueueBackend: QueueBackendTemporal}
	require.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg.Temporal.Address = "localhost:7233"
	require.NoError(t, cfg.Validate())
}

func TestProjectProblems(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	valid := types.ProjectConfig{
		ID: "my_proj-1", Name: "P", Type: "go", Path: dir,
		Repository: "https://github.com/acme/p", Platform: types.PlatformGitHub, TestCommand: "make test",
	}

	tests := []struct {
		name   string
		mutate func(p *types.ProjectConfig)
		check  Check
		want   []string
	}{
		{name: "valid", mutate: func(p *types.ProjectConfig) {}, check: Check{Path: true}},
		{
			name:   "missing fields",
			mutate: func(p *types.ProjectConfig) { p.Name, p.TestCommand = "", "" },
			want:   []string{"missing required field: name", "missing required field: test_command"},
		},
		{
			name:   "partial skips required",
			mutate: func(p *types.ProjectConfig) { p.Name = "" },
			check:  Check{Partial: true},
		},
		{
			name:   "bad id",
			mutate: func(p *types.ProjectConfig) { p.ID = "my proj" },
			want:   []string{`invalid project id "my proj" (must be alphanumeric with dashes/underscores)`},
		},
		{
			name:   "bad platform",
			mutate: func(p *types.ProjectConfig) { p.Platform = "bitbucket" },
			want:   []string{`invalid git_platform "bitbucket" (must be one of github, gitlab, jira)`},
		},
		{
			name:   "jira without key",
			mutate: func(p *types.ProjectConfig) { p.Platform = types.PlatformJira },
			want:   []string{"jira projects require project_id (the jira project key)"},
		},
		{
			name:   "missing path",
			mutate: func(p *types.ProjectConfig) { p.Path = filepath.Join(dir, "nope") },
			check:  Check{Path: true},
			want:   []string{"project path does not exist: " + filepath.Join(dir, "nope")},
		},
		{
			name:   "path is file",
			mutate: func(p *types.ProjectConfig) { p.Path = file },
			check:  Check{Path: true},
			want:   []string{"project path is not a directory: " + file},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			require.Equal(t, tt.want, ProjectProblems(&p, tt.check))
		})
	}
}

func TestValidID(t *testing.T) {
	require.True(t, ValidID("abc"))
	require.True(t, ValidID("a-b_c9"))
	require.False(t, ValidID(""))
	require.False(t, ValidID("--"))
	require.False(t, ValidID("a.b"))
	require.False(t, ValidID("a/b"))
}

func TestUsableProjects(t *testing.T) {
	cfg, err := Parse([]byte(multiProject + `
  - id: broken
    name: Broken
`))
	require.NoError(t, err)

	usable := cfg.UsableProjects(zap.NewNop())
	require.Len(t, usable, 2)
	require.Equal(t, "demo", usable[0].ID)
	require.Equal(t, "tools", usable[1].ID)
}

func TestSave_WritesBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(multiProject), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	_, err = cfg.SetEnabled("tools", true)
	require.NoError(t, err)
	require.NoError(t, Save(path, cfg))

	backup, err := os.ReadFile(BackupPath(path))
	require.NoError(t, err)
	require.Equal(t, multiProject, string(backup))

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, reloaded.Projects[1].IsEnabled())
	require.Equal(t, "kept", reloaded.Extra["custom_key"])
	require.Equal(t, 30, reloaded.PollIntervalSeconds)
}

func TestSave_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	require.NoError(t, Save(path, &Config{}))

	_, err := os.Stat(BackupPath(path))
	require.True(t, os.IsNotExist(err))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Empty(t, cfg.Projects)
}

func TestSave_MigratesLegacy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("repository: https://github.com/acme/game\ntest_command: make\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "id: default")
	require.NotContains(t, string(data), "\nrepository:")
}

func TestApplyTemporalEnv(t *testing.T) {
	env := map[string]string{"TEMPORAL_ADDRESS": "temporal:7233"}
	cfg := &Config{QueueBackend: QueueBackendTemporal, Temporal: TemporalConfig{Namespace: "lazybird"}}
	require.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg.ApplyTemporalEnv(func(key string) string { return env[key] })
	require.Equal(t, "temporal:7233", cfg.Temporal.Address)
	require.Equal(t, "lazybird", cfg.Temporal.Namespace)
	require.NoError(t, cfg.Validate())
}

func TestSave_JSONPathWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"poll_interval_seconds": 45, "custom_key": "kept", "projects": []}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.AddProject(types.ProjectConfig{
		ID:          "demo",
		Name:        "Demo",
		Type:        "go",
		Path:        t.TempDir(),
		Repository:  "https://github.com/acme/demo",
		Platform:    types.PlatformGitHub,
		TestCommand: "go test ./...",
	}, Check{}))
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, "kept", doc["custom_key"])
	require.EqualValues(t, 45, doc["poll_interval_seconds"])

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, reloaded.Projects, 1)
	require.Equal(t, "demo", reloaded.Projects[0].ID)
}

func TestInferRepository(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	_, err = InferRepository(sub)
	require.ErrorIs(t, err, ErrNoRemote)
	require.True(t, IsRepository(sub))

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"git@github.com:acme/demo.git"},
	})
	require.NoError(t, err)

	url, err := InferRepository(sub)
	require.NoError(t, err)
	require.Equal(t, "git@github.com:acme/demo.git", url)
}

func TestInferRepository_NotARepo(t *testing.T) {
	dir := t.TempDir()
	_, err := InferRepository(dir)
	require.Error(t, err)
	require.False(t, IsRepository(dir))
}
