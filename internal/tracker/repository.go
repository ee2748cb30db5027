package tracker

import (
	"fmt"
	"net/url"
	"strings"
)

// RepositoryRef is a parsed repository location
type RepositoryRef struct {
	Scheme string
	Host   string
	Path   string
}

// Owner returns every path segment before the name, which covers nested GitLab groups
func (r RepositoryRef) Owner() string {
	parts := strings.Split(r.Path, "/")
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[:len(parts)-1], "/")
}

// Name returns the last path segment
func (r RepositoryRef) Name() string {
	parts := strings.Split(r.Path, "/")
	return parts[len(parts)-1]
}

// BaseURL returns scheme://host
func (r RepositoryRef) BaseURL() string {
	return r.Scheme + "://" + r.Host
}

// ParseRepository accepts "https://host/owner/repo", "git@host:owner/repo.git"
// and bare "owner/repo". Bare paths get defaultHost.
func ParseRepository(repo, defaultHost string) (RepositoryRef, error) {
	repo = strings.TrimSpace(repo)
	if repo == "" {
		return RepositoryRef{}, fmt.Errorf("repository is empty")
	}

	ref := RepositoryRef{Scheme: "https", Host: defaultHost}

	switch {
	case strings.Contains(repo, "://"):
		u, err := url.Parse(repo)
		if err != nil {
			return RepositoryRef{}, fmt.Errorf("invalid repository url %q: %w", repo, err)
		}
		ref.Scheme = u.Scheme
		ref.Host = u.Host
		ref.Path = u.Path
	case strings.HasPrefix(repo, "git@"):
		hostPath := strings.TrimPrefix(repo, "git@")
		host, path, ok := strings.Cut(hostPath, ":")
		if !ok {
			return RepositoryRef{}, fmt.Errorf("invalid ssh repository %q", repo)
		}
		ref.Host = host
		ref.Path = path
	default:
		ref.Path = repo
	}

	ref.Path = strings.TrimSuffix(strings.Trim(ref.Path, "/"), ".git")
	if !strings.Contains(ref.Path, "/") {
		return RepositoryRef{}, fmt.Errorf("repository %q must include owner and name", repo)
	}

	return ref, nil
}
