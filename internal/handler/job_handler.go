package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/PratikLad0/job-search-automation/internal/model"
	"github.com/PratikLad0/job-search-automation/internal/service"
	"github.com/PratikLad0/job-search-automation/pkg/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JobHandler handles job catalogue and per-job task endpoints
type JobHandler struct {
	jobs  *service.JobService
	apps  *service.ApplicationService
	text  *service.TextService
	queue TaskQueue
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs *service.JobService, apps *service.ApplicationService, text *service.TextService, queue TaskQueue) *JobHandler {
	return &JobHandler{
		jobs:  jobs,
		apps:  apps,
		text:  text,
		queue: queue,
	}
}

// JobListResponse represents the job list response
type JobListResponse struct {
	Total   int64               `json:"total"`
	Page    int                 `json:"page"`
	Limit   int                 `json:"limit"`
	Results []model.JobListItem `json:"results"`
}

// Create handles POST /api/v1/jobs
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var job model.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	job.ID = primitive.NilObjectID

	if err := job.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.jobs.Create(r.Context(), &job); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, job)
}

// List handles GET /api/v1/jobs
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	status := r.URL.Query().Get("status")
	source := r.URL.Query().Get("source")

	items, total, err := h.jobs.List(r.Context(), status, source, page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, JobListResponse{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Results: items,
	})
}

// Get handles GET /api/v1/jobs/{id}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Apply handles POST /api/v1/jobs/{id}/apply
func (h *JobHandler) Apply(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if job.ResumePath == "" {
		writeError(w, http.StatusBadRequest, "Resume must be generated before applying")
		return
	}

	taskID, err := h.apps.Submit(h.queue, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	slog.Info("Application queued",
		"task_id", taskID,
		"job_id", id,
		"correlation_id", middleware.GetCorrelationID(r.Context()),
	)

	writeJSON(w, http.StatusAccepted, QueuedResponse{
		TaskID:  taskID,
		Status:  string(model.TaskStatusQueued),
		Message: "Automated application queued",
	})
}

// CoverLetter handles POST /api/v1/jobs/{id}/cover-letter
func (h *JobHandler) CoverLetter(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.jobs.Get(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	taskID, err := h.queue.Submit(service.KindCoverLetterGeneration, h.text.CoverLetterTask(id))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	slog.Info("Cover letter generation queued",
		"task_id", taskID,
		"job_id", id,
		"correlation_id", middleware.GetCorrelationID(r.Context()),
	)

	writeJSON(w, http.StatusAccepted, QueuedResponse{
		TaskID:  taskID,
		Status:  string(model.TaskStatusQueued),
		Message: "Cover letter generation queued",
	})
}
