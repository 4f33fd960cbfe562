package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/PratikLad0/job-search-automation/internal/model"
	"github.com/PratikLad0/job-search-automation/internal/service"
)

// TaskHandler exposes coordinator task state and chat submission
type TaskHandler struct {
	queue TaskQueue
	text  *service.TextService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(queue TaskQueue, text *service.TextService) *TaskHandler {
	return &TaskHandler{
		queue: queue,
		text:  text,
	}
}

// TaskListResponse represents the task list response
type TaskListResponse struct {
	Total       int                `json:"total"`
	QueueLength int                `json:"queue_length"`
	Current     *model.TaskDetail  `json:"current,omitempty"`
	Results     []model.TaskDetail `json:"results"`
}

// List handles GET /api/v1/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	status := model.TaskStatus(r.URL.Query().Get("status"))
	switch status {
	case "", model.TaskStatusQueued, model.TaskStatusProcessing, model.TaskStatusCompleted, model.TaskStatusFailed:
	default:
		writeError(w, http.StatusBadRequest, "invalid status filter: "+string(status))
		return
	}

	tasks := h.queue.List(status)
	response := TaskListResponse{
		Total:       len(tasks),
		QueueLength: h.queue.QueueLength(),
		Results:     tasks,
	}
	if current, ok := h.queue.Current(); ok {
		response.Current = &current
	}

	writeJSON(w, http.StatusOK, response)
}

// Get handles GET /api/v1/tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/tasks/"), "/")

	task, ok := h.queue.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// Chat handles POST /api/v1/chat
func (h *TaskHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req service.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	taskID, err := h.queue.Submit(service.KindChat, h.text.ChatTask(req))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, QueuedResponse{
		TaskID:  taskID,
		Status:  string(model.TaskStatusQueued),
		Message: "Chat request queued",
	})
}
