package rest

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/clintrovert/lazybird/internal/leader"
	"github.com/clintrovert/lazybird/internal/queue"
)

// Status is the orchestrator state exposed over REST
type Status interface {
	Projects() []leader.ProjectStatus
	ProcessedKeys() []string
	Trigger() bool
}

// Handler handles REST API requests
type Handler struct {
	status   Status
	queueDir string
	logger   *zap.Logger
}

// NewHandler creates a new REST handler. queueDir is empty when tasks are not
// queued as files.
func NewHandler(status Status, queueDir string, logger *zap.Logger) *Handler {
	return &Handler{
		status:   status,
		queueDir: queueDir,
		logger:   logger,
	}
}

// ProjectsResponse lists project status
type ProjectsResponse struct {
	Projects []leader.ProjectStatus `json:"projects"`
}

// ProcessedResponse lists processed issue keys
type ProcessedResponse struct {
	Keys  []string `json:"keys"`
	Total int      `json:"total"`
}

// QueueResponse lists queue files awaiting the agent runner
type QueueResponse struct {
	Dir     string        `json:"dir,omitempty"`
	Entries []queue.Entry `json:"entries"`
}

// PollResponse reports whether a poll was scheduled
type PollResponse struct {
	Scheduled bool `json:"scheduled"`
}

// GetProjects handles GET /projects
func (h *Handler) GetProjects(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, ProjectsResponse{Projects: h.status.Projects()})
}

// GetProcessed handles GET /processed
func (h *Handler) GetProcessed(w http.ResponseWriter, r *http.Request) {
	keys := h.status.ProcessedKeys()
	if keys == nil {
		keys = []string{}
	}
	h.writeJSON(w, http.StatusOK, ProcessedResponse{Keys: keys, Total: len(keys)})
}

// GetQueue handles GET /queue
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	resp := QueueResponse{Dir: h.queueDir, Entries: []queue.Entry{}}
	if h.queueDir != "" {
		entries, err := queue.List(h.queueDir)
		if err != nil {
			h.logger.Error("failed to list queue", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if entries != nil {
			resp.Entries = entries
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// TriggerPoll handles POST /poll
func (h *Handler) TriggerPoll(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusAccepted, PollResponse{Scheduled: h.status.Trigger()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to write response", zap.Error(err))
	}
}

// RegisterRoutes registers REST API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/projects", h.GetProjects)
	r.Get("/processed", h.GetProcessed)
	r.Get("/queue", h.GetQueue)
	r.Post("/poll", h.TriggerPoll)
}

// NewRouter returns the full REST router with /health and /api/v1
func NewRouter(h *Handler) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Route("/api/v1", func(r chi.Router) {
		h.RegisterRoutes(r)
	})
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return router
}
