package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/PratikLad0/job-search-automation/internal/database"
	"github.com/PratikLad0/job-search-automation/internal/model"
	"github.com/PratikLad0/job-search-automation/internal/worker"
)

// TaskQueue is the coordinator surface used by handlers
type TaskQueue interface {
	Submit(kind string, fn worker.TaskFunc) (string, error)
	Get(id string) (model.TaskDetail, bool)
	List(status model.TaskStatus) []model.TaskDetail
	Current() (model.TaskDetail, bool)
	QueueLength() int
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// QueuedResponse is returned when work has been queued on the coordinator
type QueuedResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// writeServiceError maps service and storage errors to HTTP status codes
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrInvalidID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrCoordinatorStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// parseQueryInt parses an integer query parameter with a default value
func parseQueryInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil || intValue < 1 {
		return defaultValue
	}

	return intValue
}

// pageParams reads page and limit, capping limit at 100
func pageParams(r *http.Request) (int, int) {
	page := parseQueryInt(r, "page", 1)
	limit := parseQueryInt(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// pathSegments splits the path after prefix, e.g. "/api/v1/jobs/" + "abc/apply" -> [abc apply]
func pathSegments(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
