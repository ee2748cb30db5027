package tracker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clintrovert/lazybird/pkg/types"
)

func TestParseRepository(t *testing.T) {
	tests := []struct {
		name      string
		repo      string
		wantHost  string
		wantOwner string
		wantName  string
	}{
		{name: "https", repo: "https://github.com/octo/demo", wantHost: "github.com", wantOwner: "octo", wantName: "demo"},
		{name: "trailing slash and .git", repo: "https://github.com/octo/demo.git/", wantHost: "github.com", wantOwner: "octo", wantName: "demo"},
		{name: "ssh", repo: "git@gitlab.com:grp/sub/demo.git", wantHost: "gitlab.com", wantOwner: "grp/sub", wantName: "demo"},
		{name: "bare", repo: "octo/demo", wantHost: "github.com", wantOwner: "octo", wantName: "demo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseRepository(tt.repo, "github.com")
			require.NoError(t, err)
			require.Equal(t, tt.wantHost, ref.Host)
			require.Equal(t, tt.wantOwner, ref.Owner())
			require.Equal(t, tt.wantName, ref.Name())
		})
	}
}

func TestParseRepository_Invalid(t *testing.T) {
	for _, repo := range []string{"", "demo", "https://github.com/", "git@github.com"} {
		_, err := ParseRepository(repo, "github.com")
		require.Error(t, err, repo)
	}
}

func TestNew_SelectsPlatform(t *testing.T) {
	logger := zap.NewNop()

	src, err := New(&types.ProjectConfig{ID: "a", Platform: types.PlatformGitHub, Repository: "o/r"}, "t", Options{}, logger)
	require.NoError(t, err)
	require.IsType(t, &GitHubSource{}, src)

	src, err = New(&types.ProjectConfig{ID: "b", Platform: types.PlatformGitLab, Repository: "o/r"}, "t", Options{}, logger)
	require.NoError(t, err)
	require.IsType(t, &GitLabSource{}, src)

	src, err = New(&types.ProjectConfig{ID: "c", Platform: types.PlatformJira, Repository: "https://acme.atlassian.net/browse/PROJ"}, "u:t", Options{}, logger)
	require.NoError(t, err)
	require.IsType(t, &JiraSource{}, src)

	_, err = New(&types.ProjectConfig{ID: "d", Platform: "bitbucket", Repository: "o/r"}, "t", Options{}, logger)
	require.Error(t, err)
}

func TestSourceError_Is(t *testing.T) {
	err := &SourceError{Platform: types.PlatformGitHub, Repository: "o/r", Op: "list issues", Err: errors.New("timeout")}
	require.ErrorIs(t, err, ErrSourceUnavailable)
	require.Contains(t, err.Error(), "list issues")
	require.NotErrorIs(t, errors.New("other"), ErrSourceUnavailable)
}
