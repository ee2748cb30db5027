package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/clintrovert/lazybird/internal/fsutil"
)

// DefaultFileName is the processed-set file inside the data directory
const DefaultFileName = "processed_issues.json"

// FileSet is a Set persisted as a JSON array of keys. The whole file is
// rewritten atomically after every Add.
type FileSet struct {
	path   string
	logger *zap.Logger

	mu   sync.RWMutex
	keys map[string]struct{}
}

// LoadFileSet reads the set stored at path. A missing file yields an empty
// set; an unreadable or corrupt file is logged and also yields an empty set.
func LoadFileSet(path string, logger *zap.Logger) (*FileSet, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	s := &FileSet{
		path:   path,
		logger: logger,
		keys:   make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		logger.Warn("failed to load processed issues", zap.String("path", path), zap.Error(err))
		return s, nil
	}

	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		logger.Warn("failed to load processed issues", zap.String("path", path), zap.Error(err))
		return s, nil
	}
	for _, key := range keys {
		s.keys[key] = struct{}{}
	}

	logger.Info("loaded processed issues", zap.String("path", path), zap.Int("count", len(s.keys)))
	return s, nil
}

// Path returns the backing file
func (s *FileSet) Path() string {
	return s.path
}

// Contains reports whether key is present
func (s *FileSet) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[key]
	return ok
}

// Add inserts key and rewrites the file. The key stays in memory even when
// the write fails so the issue is not queued twice by this process.
func (s *FileSet) Add(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[key] = struct{}{}

	data, err := json.MarshalIndent(sortedKeys(s.keys), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode processed issues: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save processed issues: %w", err)
	}
	return nil
}

// Keys returns the keys in sorted order
func (s *FileSet) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.keys)
}
