package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clintrovert/lazybird/internal/leader"
	"github.com/clintrovert/lazybird/pkg/types"
)

type fakeStatus struct {
	keys     []string
	triggers int
}

func (s *fakeStatus) Projects() []leader.ProjectStatus {
	return []leader.ProjectStatus{{Project: types.ProjectConfig{ID: "demo"}, Queued: 2}}
}

func (s *fakeStatus) ProcessedKeys() []string { return s.keys }

func (s *fakeStatus) Trigger() bool {
	s.triggers++
	return s.triggers == 1
}

func serve(t *testing.T, h *Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(t, NewHandler(&fakeStatus{}, "", zap.NewNop()), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetProjects(t *testing.T) {
	rec := serve(t, NewHandler(&fakeStatus{}, "", zap.NewNop()), http.MethodGet, "/api/v1/projects")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProjectsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Projects, 1)
	require.Equal(t, "demo", resp.Projects[0].Project.ID)
	require.Equal(t, 2, resp.Projects[0].Queued)
}

func TestGetProcessed(t *testing.T) {
	rec := serve(t, NewHandler(&fakeStatus{keys: []string{"demo:1", "demo:2"}}, "", zap.NewNop()), http.MethodGet, "/api/v1/processed")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProcessedResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 2, resp.Total)
	require.Equal(t, []string{"demo:1", "demo:2"}, resp.Keys)

	rec = serve(t, NewHandler(&fakeStatus{}, "", zap.NewNop()), http.MethodGet, "/api/v1/processed")
	require.JSONEq(t, `{"keys": [], "total": 0}`, rec.Body.String())
}

func TestGetQueue(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "task-my-proj-12.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))

	rec := serve(t, NewHandler(&fakeStatus{}, dir, zap.NewNop()), http.MethodGet, "/api/v1/queue")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QueueResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Entries, 1)
	require.Equal(t, "my-proj", resp.Entries[0].ProjectID)
	require.Equal(t, 12, resp.Entries[0].IssueID)
}

func TestGetQueue_NoFileQueue(t *testing.T) {
	rec := serve(t, NewHandler(&fakeStatus{}, "", zap.NewNop()), http.MethodGet, "/api/v1/queue")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"entries": []}`, rec.Body.String())
}

func TestTriggerPoll(t *testing.T) {
	status := &fakeStatus{}
	h := NewHandler(status, "", zap.NewNop())

	rec := serve(t, h, http.MethodPost, "/api/v1/poll")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.JSONEq(t, `{"scheduled": true}`, rec.Body.String())

	rec = serve(t, h, http.MethodPost, "/api/v1/poll")
	require.JSONEq(t, `{"scheduled": false}`, rec.Body.String())

	rec = serve(t, h, http.MethodGet, "/api/v1/poll")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
