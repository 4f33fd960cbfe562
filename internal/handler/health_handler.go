package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger checks a backing store
type Pinger interface {
	Ping(ctx context.Context) error
}

// ObserverCounter reports how many event observers are subscribed
type ObserverCounter interface {
	Count() int
}

// HealthHandler handles service health and readiness checks
type HealthHandler struct {
	db        Pinger
	queue     TaskQueue
	observers ObserverCounter
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, queue TaskQueue, observers ObserverCounter, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		queue:     queue,
		observers: observers,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Timestamp     string `json:"timestamp"`
	MongoDB       string `json:"mongodb"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Ready       bool   `json:"ready"`
	MongoDB     string `json:"mongodb"`
	QueueLength int    `json:"queue_length"`
	CurrentTask string `json:"current_task,omitempty"`
	Observers   int    `json:"observers"`
}

func (h *HealthHandler) mongoStatus(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}

// Health returns the service health status
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		MongoDB:       h.mongoStatus(r.Context()),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	writeJSON(w, http.StatusOK, response)
}

// Ready returns the service readiness status
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	mongoStatus := h.mongoStatus(r.Context())
	ready := mongoStatus == "connected"

	response := ReadyResponse{
		Ready:       ready,
		MongoDB:     mongoStatus,
		QueueLength: h.queue.QueueLength(),
		Observers:   h.observers.Count(),
	}
	if current, ok := h.queue.Current(); ok {
		response.CurrentTask = current.ID
	}

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, response)
}
