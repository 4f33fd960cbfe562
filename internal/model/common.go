package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Metadata represents common metadata fields
type Metadata struct {
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
	Tags      []string  `json:"tags,omitempty" bson:"tags,omitempty"`
}

// RetryConfig represents webhook retry configuration
type RetryConfig struct {
	MaxAttempts    int     `json:"max_attempts" bson:"max_attempts"`
	InitialDelayMs int     `json:"initial_delay_ms" bson:"initial_delay_ms"`
	MaxDelayMs     int     `json:"max_delay_ms" bson:"max_delay_ms"`
	Multiplier     float64 `json:"multiplier" bson:"multiplier"`
}

// SetDefaults sets default values for retry configuration
func (rc *RetryConfig) SetDefaults() {
	if rc.MaxAttempts == 0 {
		rc.MaxAttempts = 3
	}
	if rc.InitialDelayMs == 0 {
		rc.InitialDelayMs = 500
	}
	if rc.MaxDelayMs == 0 {
		rc.MaxDelayMs = 10000
	}
	if rc.Multiplier == 0 {
		rc.Multiplier = 2.0
	}
}

// EventWebhook is the destination for task lifecycle events pushed over HTTP
type EventWebhook struct {
	URL         string            `json:"url"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers,omitempty"`
	EventTypes  []string          `json:"event_types,omitempty"` // empty means all
	RetryConfig RetryConfig       `json:"retry_config,omitempty"`
}

// Validate validates webhook configuration
func (w *EventWebhook) Validate() error {
	if w.URL == "" {
		return errors.New("webhook URL is required")
	}

	parsedURL, err := url.Parse(w.URL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("webhook URL must start with http:// or https://")
	}

	if w.Method == "" {
		w.Method = "POST"
	}
	w.Method = strings.ToUpper(w.Method)

	w.RetryConfig.SetDefaults()

	return nil
}

// Wants reports whether the webhook subscribes to the event type
func (w *EventWebhook) Wants(eventType string) bool {
	if len(w.EventTypes) == 0 {
		return true
	}
	for _, t := range w.EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}
