package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PratikLad0/job-search-automation/internal/broadcast"
	"github.com/PratikLad0/job-search-automation/internal/model"
)

// ErrCircuitOpen is returned when the breaker rejects a delivery
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Dispatcher posts events to a webhook with retry and a circuit breaker
type Dispatcher struct {
	httpClient     *http.Client
	circuitBreaker *CircuitBreaker
}

// NewDispatcher creates a new webhook dispatcher
func NewDispatcher(client *http.Client, breaker *CircuitBreaker) *Dispatcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if breaker == nil {
		breaker = NewCircuitBreaker(5, 2, time.Minute)
	}
	return &Dispatcher{
		httpClient:     client,
		circuitBreaker: breaker,
	}
}

// Send delivers one event and returns the delivery log of every attempt
func (d *Dispatcher) Send(ctx context.Context, webhook model.EventWebhook, event broadcast.Event) (*model.DeliveryLog, error) {
	payload := FormatEventPayload(event)

	deliveryLog := &model.DeliveryLog{
		EventType:   event.Type,
		TaskID:      payload.TaskID,
		WebhookURL:  webhook.URL,
		Attempts:    make([]model.DeliveryAttempt, 0),
		FinalStatus: model.DeliveryRetrying,
		CreatedAt:   time.Now().UTC(),
	}
	finish := func(status string) {
		deliveryLog.FinalStatus = status
		deliveryLog.CompletedAt = time.Now().UTC()
	}

	if !d.circuitBreaker.CanAttempt() {
		slog.Warn("Circuit breaker is open, skipping webhook delivery",
			"event_type", event.Type,
			"task_id", payload.TaskID,
			"webhook_url", webhook.URL,
		)
		finish(model.DeliveryFailed)
		return deliveryLog, ErrCircuitOpen
	}

	body, err := json.Marshal(payload)
	if err != nil {
		finish(model.DeliveryFailed)
		return deliveryLog, fmt.Errorf("failed to marshal payload: %w", err)
	}

	retry := NewRetryStrategy(webhook.RetryConfig)

	for attempt := 1; attempt <= retry.MaxAttempts(); attempt++ {
		result, transportErr := d.deliver(ctx, webhook, body)
		result.AttemptNumber = attempt
		deliveryLog.Attempts = append(deliveryLog.Attempts, result)

		if transportErr == nil && result.StatusCode >= 200 && result.StatusCode < 300 {
			slog.Debug("Webhook delivered",
				"event_type", event.Type,
				"task_id", payload.TaskID,
				"attempt", attempt,
				"status_code", result.StatusCode,
			)
			finish(model.DeliveryDelivered)
			d.circuitBreaker.RecordSuccess()
			return deliveryLog, nil
		}

		if !retry.ShouldRetry(attempt, result.StatusCode, transportErr) {
			break
		}

		slog.Warn("Webhook delivery failed, retrying",
			"event_type", event.Type,
			"task_id", payload.TaskID,
			"attempt", attempt,
			"next_retry_ms", retry.Delay(attempt).Milliseconds(),
			"error", result.Error,
		)
		if err := retry.Wait(ctx, attempt); err != nil {
			finish(model.DeliveryFailed)
			return deliveryLog, err
		}
	}

	attempts := len(deliveryLog.Attempts)
	slog.Error("Webhook delivery failed",
		"event_type", event.Type,
		"task_id", payload.TaskID,
		"webhook_url", webhook.URL,
		"attempts", attempts,
	)
	finish(model.DeliveryFailed)
	d.circuitBreaker.RecordFailure()
	return deliveryLog, fmt.Errorf("webhook delivery failed after %d attempts", attempts)
}

// deliver performs one HTTP attempt. The error is non-nil only for transport failures.
func (d *Dispatcher) deliver(ctx context.Context, webhook model.EventWebhook, body []byte) (model.DeliveryAttempt, error) {
	start := time.Now()
	attempt := model.DeliveryAttempt{Timestamp: start.UTC()}

	method := webhook.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, webhook.URL, bytes.NewReader(body))
	if err != nil {
		attempt.Error = fmt.Sprintf("failed to create request: %v", err)
		attempt.DurationMs = time.Since(start).Milliseconds()
		return attempt, err
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range webhook.Headers {
		req.Header.Set(key, value)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		attempt.Error = fmt.Sprintf("request failed: %v", err)
		attempt.DurationMs = time.Since(start).Milliseconds()
		return attempt, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		slog.Warn("Failed to read webhook response body", "error", err)
	}

	attempt.StatusCode = resp.StatusCode
	attempt.ResponseBody = string(respBody)
	attempt.DurationMs = time.Since(start).Milliseconds()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		attempt.Error = fmt.Sprintf("webhook returned status %d", resp.StatusCode)
	}

	return attempt, nil
}

// CircuitState returns the breaker state name
func (d *Dispatcher) CircuitState() string {
	return d.circuitBreaker.State().String()
}
