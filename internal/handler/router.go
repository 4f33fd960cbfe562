package handler

import (
	"net/http"

	"github.com/PratikLad0/job-search-automation/pkg/middleware"
)

// Router handles HTTP routing
type Router struct {
	jobHandler     *JobHandler
	taskHandler    *TaskHandler
	profileHandler *ProfileHandler
	historyHandler *HistoryHandler
	streamHandler  *StreamHandler
	healthHandler  *HealthHandler
	corsConfig     middleware.CORSConfig
}

// NewRouter creates a new router
func NewRouter(
	jobHandler *JobHandler,
	taskHandler *TaskHandler,
	profileHandler *ProfileHandler,
	historyHandler *HistoryHandler,
	streamHandler *StreamHandler,
	healthHandler *HealthHandler,
	corsConfig middleware.CORSConfig,
) *Router {
	return &Router{
		jobHandler:     jobHandler,
		taskHandler:    taskHandler,
		profileHandler: profileHandler,
		historyHandler: historyHandler,
		streamHandler:  streamHandler,
		healthHandler:  healthHandler,
		corsConfig:     corsConfig,
	}
}

// Handler returns the configured HTTP handler with middleware
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health endpoints (no middleware)
	mux.HandleFunc("/health", rt.healthHandler.Health)
	mux.HandleFunc("/ready", rt.healthHandler.Ready)

	// API endpoints
	mux.HandleFunc("/api/v1/jobs", rt.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", rt.handleJobsWithID)
	mux.HandleFunc("/api/v1/tasks", rt.method(http.MethodGet, rt.taskHandler.List))
	mux.HandleFunc("/api/v1/tasks/", rt.method(http.MethodGet, rt.taskHandler.Get))
	mux.HandleFunc("/api/v1/chat", rt.method(http.MethodPost, rt.taskHandler.Chat))
	mux.HandleFunc("/api/v1/profile", rt.handleProfile)
	mux.HandleFunc("/api/v1/runs", rt.method(http.MethodGet, rt.historyHandler.List))
	mux.Handle("/api/v1/ws", rt.streamHandler)

	// Apply middleware (CORS first to handle preflight requests)
	handler := middleware.CORS(rt.corsConfig)(mux)
	handler = middleware.Recovery(handler)
	handler = middleware.Logging(handler)
	handler = middleware.CorrelationID(handler)

	return handler
}

// method restricts a handler to one HTTP method
func (rt *Router) method(m string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		next(w, r)
	}
}

// handleJobs routes job collection endpoints
func (rt *Router) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.jobHandler.List(w, r)
	case http.MethodPost:
		rt.jobHandler.Create(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleJobsWithID routes /api/v1/jobs/{id}[/apply|/cover-letter]
func (rt *Router) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r.URL.Path, "/api/v1/jobs/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		rt.jobHandler.Get(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "apply" && r.Method == http.MethodPost:
		rt.jobHandler.Apply(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "cover-letter" && r.Method == http.MethodPost:
		rt.jobHandler.CoverLetter(w, r, parts[0])
	case len(parts) == 1 || (len(parts) == 2 && (parts[1] == "apply" || parts[1] == "cover-letter")):
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		writeError(w, http.StatusNotFound, "Endpoint not found")
	}
}

// handleProfile routes the candidate profile endpoint
func (rt *Router) handleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.profileHandler.Get(w, r)
	case http.MethodPut:
		rt.profileHandler.Update(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
