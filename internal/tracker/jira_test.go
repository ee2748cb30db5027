package tracker

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestJiraSource(t *testing.T) {
	var calls []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "bot@example.com", user)
		require.Equal(t, "tok", pass)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasSuffix(r.URL.Path, "/search"):
			jql := r.URL.Query().Get("jql")
			require.Contains(t, jql, `project = "PROJ"`)
			require.Contains(t, jql, `labels = "ready"`)
			io.WriteString(w, `{"startAt": 0, "maxResults": 100, "total": 3, "issues": [
				{"key": "PROJ-12", "fields": {"summary": "Later", "labels": ["ready"], "created": "2024-01-03T10:00:00.000+0000"}},
				{"key": "BROKEN", "fields": {"summary": "bad key"}},
				{"key": "PROJ-4", "fields": {"summary": "Earlier", "description": "desc", "labels": ["ready", "simple"],
				 "created": "2024-01-01T10:00:00.000+0000"}}
			]}`)
		case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/issue/PROJ-4"):
			body, _ := io.ReadAll(r.Body)
			calls = append(calls, string(body))
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/issue/PROJ-4/comment"):
			calls = append(calls, "comment")
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"id": "1", "body": "x"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	src, err := NewJiraSource("https://acme.atlassian.net/browse/PROJ", "", "bot@example.com:tok", Options{BaseURL: server.URL}, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	issues, err := src.FetchTriggerIssues(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	require.Equal(t, 4, issues[0].ID)
	require.Equal(t, "desc", issues[0].Body)
	require.Equal(t, server.URL+"/browse/PROJ-4", issues[0].URL)
	require.Equal(t, 12, issues[1].ID)

	require.NoError(t, src.RemoveLabel(ctx, 4, "ready"))
	require.NoError(t, src.AddLabel(ctx, 4, "processing"))
	require.NoError(t, src.Comment(ctx, 4, "done"))

	require.Len(t, calls, 3)
	require.Contains(t, calls[0], `"remove":"ready"`)
	require.Contains(t, calls[1], `"add":"processing"`)
}
