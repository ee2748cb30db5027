package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clintrovert/lazybird/pkg/types"
)

func writeToken(t *testing.T, dir, name, value string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(value), 0o600))
}

func TestToken_FallbackOrder(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name:  "project token wins",
			files: map[string]string{"demo_token": "p", "github_token": "g", "api_token": "a"},
			want:  "p",
		},
		{
			name:  "platform token before shared",
			files: map[string]string{"github_token": "g", "api_token": "a"},
			want:  "g",
		},
		{
			name:  "shared token last",
			files: map[string]string{"api_token": "a\n"},
			want:  "a",
		},
		{
			name:  "other platform ignored",
			files: map[string]string{"gitlab_token": "l", "api_token": "a"},
			want:  "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, value := range tt.files {
				writeToken(t, dir, name, value)
			}

			got, err := NewStore(dir).Token("demo", types.PlatformGitHub)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestToken_NotFound(t *testing.T) {
	_, err := NewStore(t.TempDir()).Token("demo", types.PlatformGitLab)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestToken_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeToken(t, dir, "demo_token", "  \n")

	_, err := NewStore(dir).Token("demo", types.PlatformGitHub)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}
