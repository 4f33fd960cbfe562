package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeliveryAttempt represents a single webhook delivery attempt
type DeliveryAttempt struct {
	AttemptNumber int       `json:"attempt_number" bson:"attempt_number"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
	StatusCode    int       `json:"status_code,omitempty" bson:"status_code,omitempty"`
	ResponseBody  string    `json:"response_body,omitempty" bson:"response_body,omitempty"`
	Error         string    `json:"error,omitempty" bson:"error,omitempty"`
	DurationMs    int64     `json:"duration_ms" bson:"duration_ms"`
}

// Delivery statuses
const (
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
	DeliveryRetrying  = "retrying"
)

// DeliveryLog records how one event was pushed to a webhook
type DeliveryLog struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	EventType   string             `json:"event_type" bson:"event_type"`
	TaskID      string             `json:"task_id,omitempty" bson:"task_id,omitempty"`
	WebhookURL  string             `json:"webhook_url" bson:"webhook_url"`
	Attempts    []DeliveryAttempt  `json:"attempts" bson:"attempts"`
	FinalStatus string             `json:"final_status" bson:"final_status"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	CompletedAt time.Time          `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}
