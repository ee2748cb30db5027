package config

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
)

// ErrNoRemote is returned when a repository has no origin remote URL
var ErrNoRemote = errors.New("repository has no origin remote")

// InferRepository returns the origin URL of the git repository containing path
func InferRepository(path string) (string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("failed to open git repository: %w", err)
	}

	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return "", ErrNoRemote
		}
		return "", fmt.Errorf("failed to read remote: %w", err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", ErrNoRemote
	}
	return urls[0], nil
}

// IsRepository reports whether path is inside a git working tree
func IsRepository(path string) bool {
	_, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	return err == nil
}
