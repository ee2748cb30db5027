package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clintrovert/lazybird/internal/fsutil"
	"github.com/clintrovert/lazybird/pkg/types"
)

const (
	namePrefix = "task-"
	fileExt    = ".json"
)

// ErrWriteFailed wraps any failure to persist a task
var ErrWriteFailed = errors.New("queue write failed")

// Handle identifies a written task
type Handle struct {
	Name     string
	Location string
}

// Writer hands a task to the agent runner
type Writer interface {
	Write(ctx context.Context, task *types.QueuedTask) (Handle, error)
}

// TaskName returns "task-{project_id}-{issue_id}"
func TaskName(projectID string, issueID int) string {
	return fmt.Sprintf("%s%s-%d", namePrefix, projectID, issueID)
}

// FileName returns the queue file name for a task
func FileName(projectID string, issueID int) string {
	return TaskName(projectID, issueID) + fileExt
}

// ParseName recovers the project and issue identity from a task or queue
// file name. Project ids may contain dashes; the issue id is the final
// dash-separated segment.
func ParseName(name string) (string, int, error) {
	base := strings.TrimSuffix(filepath.Base(name), fileExt)
	rest, ok := strings.CutPrefix(base, namePrefix)
	if !ok {
		return "", 0, fmt.Errorf("not a task name: %q", name)
	}

	idx := strings.LastIndex(rest, "-")
	if idx <= 0 || idx == len(rest)-1 {
		return "", 0, fmt.Errorf("not a task name: %q", name)
	}

	issueID, err := strconv.Atoi(rest[idx+1:])
	if err != nil || issueID < 0 {
		return "", 0, fmt.Errorf("not a task name: %q", name)
	}

	return rest[:idx], issueID, nil
}

// FileWriter writes tasks as JSON files into a directory
type FileWriter struct {
	dir    string
	logger *zap.Logger
}

// NewFileWriter creates a writer for dir, creating it if needed
func NewFileWriter(dir string, logger *zap.Logger) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create queue directory: %w", err)
	}
	return &FileWriter{dir: dir, logger: logger}, nil
}

// ResolveDir returns primary when it can be created, otherwise fallback
func ResolveDir(primary, fallback string, logger *zap.Logger) (string, error) {
	if err := os.MkdirAll(primary, 0o755); err == nil {
		if check, err := os.CreateTemp(primary, ".writable-*"); err == nil {
			check.Close()
			os.Remove(check.Name())
			return primary, nil
		}
	}

	if fallback == "" {
		return "", fmt.Errorf("queue directory %s is not writable", primary)
	}
	if err := os.MkdirAll(fallback, 0o755); err != nil {
		return "", fmt.Errorf("failed to create fallback queue directory: %w", err)
	}

	logger.Warn("using fallback queue directory", zap.String("primary", primary), zap.String("fallback", fallback))
	return fallback, nil
}

// Dir returns the queue directory
func (w *FileWriter) Dir() string {
	return w.dir
}

// Write serializes task to task-{project}-{issue}.json. The file appears
// atomically; an existing file of the same name is replaced.
func (w *FileWriter) Write(ctx context.Context, task *types.QueuedTask) (Handle, error) {
	name := TaskName(task.ProjectID, task.IssueID)
	path := filepath.Join(w.dir, name+fileExt)

	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return Handle{}, fmt.Errorf("%w: failed to encode %s: %v", ErrWriteFailed, name, err)
	}

	if _, err := os.Stat(path); err == nil {
		w.logger.Warn("replacing existing queue file",
			zap.String("project", task.ProjectID),
			zap.Int("issue_id", task.IssueID),
			zap.String("path", path),
		)
	}

	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return Handle{}, fmt.Errorf("%w: %s: %w", ErrWriteFailed, name, err)
	}

	w.logger.Info("queued task",
		zap.String("project", task.ProjectID),
		zap.Int("issue_id", task.IssueID),
		zap.String("title", task.Title),
		zap.String("path", path),
	)

	return Handle{Name: name, Location: path}, nil
}

// Entry describes a queue file
type Entry struct {
	Name      string    `json:"name"`
	ProjectID string    `json:"project_id"`
	IssueID   int       `json:"issue_id"`
	Path      string    `json:"path"`
	ModTime   time.Time `json:"mod_time"`
}

// List returns the queue files in dir ordered by modification time. Names are
// decoded without opening the files; a missing directory is an empty queue.
func List(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read queue directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), fileExt) {
			continue
		}
		projectID, issueID, err := ParseName(de.Name())
		if err != nil {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:      strings.TrimSuffix(de.Name(), fileExt),
			ProjectID: projectID,
			IssueID:   issueID,
			Path:      filepath.Join(dir, de.Name()),
			ModTime:   info.ModTime(),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ModTime.Before(entries[j].ModTime)
	})
	return entries, nil
}

// Read loads a queue file
func Read(path string) (*types.QueuedTask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var task types.QueuedTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &task, nil
}
