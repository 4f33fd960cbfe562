package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SchedulerLease is a named distributed lock held by one process at a time
type SchedulerLease struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`             // e.g. "auto_apply_sweep"
	LockedBy  string             `json:"locked_by" bson:"locked_by"`   // hostname or uuid
	LockedAt  time.Time          `json:"locked_at" bson:"locked_at"`   // acquisition timestamp
	ExpiresAt time.Time          `json:"expires_at" bson:"expires_at"` // TTL
}
