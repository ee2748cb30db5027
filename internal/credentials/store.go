package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/clintrovert/lazybird/pkg/types"
)

// ErrNotFound is returned when no token file exists for a project
var ErrNotFound = errors.New("api token not found")

// Store resolves tracker tokens from files in a secrets directory
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultDir returns ~/.config/lazy_birtd/secrets
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "lazy_birtd", "secrets")
}

// Dir returns the secrets directory
func (s *Store) Dir() string {
	return s.dir
}

// Candidates returns the token files consulted for a project, in lookup order
func (s *Store) Candidates(projectID string, platform types.Platform) []string {
	return []string{
		filepath.Join(s.dir, projectID+"_token"),
		filepath.Join(s.dir, string(platform)+"_token"),
		filepath.Join(s.dir, "api_token"),
	}
}

// Token returns the token for a project. The project-specific file wins over
// the platform file, which wins over the shared api_token file.
func (s *Store) Token(projectID string, platform types.Platform) (string, error) {
	for _, path := range s.Candidates(projectID, platform) {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("failed to read token file %s: %w", path, err)
		}

		token := strings.TrimSpace(string(data))
		if token == "" {
			return "", fmt.Errorf("token file is empty: %s", path)
		}
		return token, nil
	}

	return "", fmt.Errorf("%w for project %s (looked in %s)", ErrNotFound, projectID, s.dir)
}
