package handler

import (
	"net/http"

	"github.com/PratikLad0/job-search-automation/internal/model"
	"github.com/PratikLad0/job-search-automation/internal/service"
)

// HistoryHandler handles application run history queries
type HistoryHandler struct {
	service *service.RunService
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(service *service.RunService) *HistoryHandler {
	return &HistoryHandler{
		service: service,
	}
}

// RunListResponse represents the run list response
type RunListResponse struct {
	Total   int64              `json:"total"`
	Page    int                `json:"page"`
	Limit   int                `json:"limit"`
	Results []model.RunSummary `json:"results"`
}

// List handles GET /api/v1/runs
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	page, limit := pageParams(r)

	summaries, total, err := h.service.List(r.Context(), jobID, page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RunListResponse{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Results: summaries,
	})
}
