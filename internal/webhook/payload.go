package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/PratikLad0/job-search-automation/internal/broadcast"
)

// EventPayload is the JSON body posted for a lifecycle event.
// Text makes the payload readable by chat webhooks.
type EventPayload struct {
	Text      string      `json:"text"`
	Event     string      `json:"event"`
	TaskID    string      `json:"task_id,omitempty"`
	Kind      string      `json:"kind,omitempty"`
	Status    string      `json:"status,omitempty"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type taskFields struct {
	ID     string  `json:"id"`
	Kind   string  `json:"kind"`
	Status string  `json:"status"`
	Error  *string `json:"error"`
}

// FormatEventPayload builds the webhook body for an event
func FormatEventPayload(event broadcast.Event) EventPayload {
	var task taskFields
	if raw, err := json.Marshal(event.Data); err == nil {
		_ = json.Unmarshal(raw, &task)
	}

	return EventPayload{
		Text:      summarize(event.Type, task),
		Event:     event.Type,
		TaskID:    task.ID,
		Kind:      task.Kind,
		Status:    task.Status,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Data:      event.Data,
	}
}

func summarize(eventType string, task taskFields) string {
	label := task.Kind
	if label == "" {
		label = "task"
	}
	switch eventType {
	case broadcast.EventTaskQueued:
		return fmt.Sprintf("Queued %s %s", label, task.ID)
	case broadcast.EventTaskStarted:
		return fmt.Sprintf("Started %s %s", label, task.ID)
	case broadcast.EventTaskFinished:
		if task.Error != nil {
			return fmt.Sprintf("%s %s failed: %s", label, task.ID, *task.Error)
		}
		return fmt.Sprintf("%s %s %s", label, task.ID, task.Status)
	default:
		return eventType
	}
}
