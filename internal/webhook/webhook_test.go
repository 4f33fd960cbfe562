package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PratikLad0/job-search-automation/internal/broadcast"
	"github.com/PratikLad0/job-search-automation/internal/model"
)

func fastRetry(attempts int) model.RetryConfig {
	return model.RetryConfig{MaxAttempts: attempts, InitialDelayMs: 1, MaxDelayMs: 2, Multiplier: 2}
}

func finishedEvent() broadcast.Event {
	msg := "boom"
	return broadcast.Event{
		Type: broadcast.EventTaskFinished,
		Data: map[string]interface{}{
			"id":     "task-1",
			"kind":   "job_application",
			"status": "failed",
			"error":  msg,
		},
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRetryDelay(t *testing.T) {
	rs := NewRetryStrategy(model.RetryConfig{MaxAttempts: 5, InitialDelayMs: 100, MaxDelayMs: 350, Multiplier: 2})

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 350 * time.Millisecond},
		{4, 350 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := rs.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryShouldRetry(t *testing.T) {
	rs := NewRetryStrategy(model.RetryConfig{MaxAttempts: 3})

	tests := []struct {
		name    string
		attempt int
		status  int
		err     error
		want    bool
	}{
		{"transport error", 1, 0, errors.New("refused"), true},
		{"server error", 1, 500, nil, true},
		{"rate limited", 2, 429, nil, true},
		{"bad request", 1, 400, nil, false},
		{"not found", 1, 404, nil, false},
		{"success", 1, 204, nil, false},
		{"attempts exhausted", 3, 500, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rs.ShouldRetry(tt.attempt, tt.status, tt.err); got != tt.want {
				t.Errorf("ShouldRetry = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryWaitHonoursContext(t *testing.T) {
	rs := NewRetryStrategy(model.RetryConfig{MaxAttempts: 2, InitialDelayMs: 60000, MaxDelayMs: 60000, Multiplier: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rs.Wait(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait error = %v, want context.Canceled", err)
	}
}

func TestCircuitBreakerLifecycle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, 1, time.Minute)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	if cb.State() != StateClosed {
		t.Fatalf("state after 1 failure = %s, want closed", cb.State())
	}
	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("state after 2 failures = %s, want open", cb.State())
	}
	if cb.CanAttempt() {
		t.Fatal("open breaker allowed an attempt before cooldown")
	}

	now = now.Add(time.Minute)
	if !cb.CanAttempt() {
		t.Fatal("breaker did not allow a probe after cooldown")
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %s, want half-open", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("failed probe left state %s, want open", cb.State())
	}

	now = now.Add(time.Minute)
	cb.CanAttempt()
	cb.RecordSuccess()
	if cb.State() != StateClosed {
		t.Errorf("state after successful probe = %s, want closed", cb.State())
	}
}

func TestFormatEventPayload(t *testing.T) {
	payload := FormatEventPayload(finishedEvent())

	if payload.TaskID != "task-1" || payload.Kind != "job_application" || payload.Status != "failed" {
		t.Errorf("unexpected task fields: %+v", payload)
	}
	if payload.Text != "job_application task-1 failed: boom" {
		t.Errorf("Text = %q", payload.Text)
	}
	if payload.Timestamp != "2026-01-02T03:04:05Z" {
		t.Errorf("Timestamp = %q", payload.Timestamp)
	}
}

func TestDispatcherDelivers(t *testing.T) {
	var got EventPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "secret" {
			t.Errorf("missing custom header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := NewDispatcher(server.Client(), nil)
	hook := model.EventWebhook{URL: server.URL, Headers: map[string]string{"X-Token": "secret"}, RetryConfig: fastRetry(3)}

	log, err := d.Send(context.Background(), hook, finishedEvent())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if log.FinalStatus != model.DeliveryDelivered {
		t.Errorf("FinalStatus = %q", log.FinalStatus)
	}
	if len(log.Attempts) != 1 || log.Attempts[0].StatusCode != http.StatusNoContent {
		t.Errorf("unexpected attempts: %+v", log.Attempts)
	}
	if got.Event != broadcast.EventTaskFinished || got.TaskID != "task-1" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestDispatcherRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDispatcher(server.Client(), nil)
	log, err := d.Send(context.Background(), model.EventWebhook{URL: server.URL, RetryConfig: fastRetry(3)}, finishedEvent())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(log.Attempts) != 3 {
		t.Errorf("attempts = %d, want 3", len(log.Attempts))
	}
	if log.Attempts[0].Error == "" {
		t.Error("failed attempt has no error message")
	}
}

func TestDispatcherDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	d := NewDispatcher(server.Client(), nil)
	log, err := d.Send(context.Background(), model.EventWebhook{URL: server.URL, RetryConfig: fastRetry(3)}, finishedEvent())
	if err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if log.FinalStatus != model.DeliveryFailed {
		t.Errorf("FinalStatus = %q", log.FinalStatus)
	}
}

func TestDispatcherOpenCircuitSkipsDelivery(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := NewDispatcher(server.Client(), NewCircuitBreaker(1, 1, time.Hour))
	hook := model.EventWebhook{URL: server.URL, RetryConfig: fastRetry(1)}

	if _, err := d.Send(context.Background(), hook, finishedEvent()); err == nil {
		t.Fatal("expected first delivery to fail")
	}
	if d.CircuitState() != "open" {
		t.Fatalf("CircuitState = %q, want open", d.CircuitState())
	}

	_, err := d.Send(context.Background(), hook, finishedEvent())
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

type memoryStore struct {
	mu   sync.Mutex
	logs []*model.DeliveryLog
}

func (s *memoryStore) Create(_ context.Context, log *model.DeliveryLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}

func TestObserverFiltersAndStoresDeliveries(t *testing.T) {
	var bodies []string
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p EventPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		bodies = append(bodies, p.Event)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := &memoryStore{}
	hook := model.EventWebhook{
		URL:         server.URL,
		EventTypes:  []string{broadcast.EventTaskFinished},
		RetryConfig: fastRetry(1),
	}
	obs := NewObserver(hook, NewDispatcher(server.Client(), nil), store, 10)
	if !strings.HasPrefix(obs.ID(), "webhook:") {
		t.Errorf("ID = %q", obs.ID())
	}

	b := broadcast.NewBroadcaster()
	b.Subscribe(obs)
	obs.Start()

	b.Publish(context.Background(), broadcast.EventTaskStarted, map[string]string{"id": "a"})
	b.Publish(context.Background(), broadcast.EventTaskFinished, map[string]string{"id": "a"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	obs.Stop(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 1 || bodies[0] != broadcast.EventTaskFinished {
		t.Errorf("delivered events = %v, want only task_finished", bodies)
	}
	if store.count() != 1 {
		t.Errorf("stored logs = %d, want 1", store.count())
	}
	if b.Count() != 1 {
		t.Errorf("observer was pruned from broadcaster")
	}
}

func TestObserverDropsWhenBacklogFull(t *testing.T) {
	obs := NewObserver(model.EventWebhook{URL: "http://127.0.0.1:1"}, NewDispatcher(nil, nil), nil, 1)

	for i := 0; i < 3; i++ {
		if err := obs.Deliver(context.Background(), finishedEvent()); err != nil {
			t.Fatalf("Deliver returned error: %v", err)
		}
	}
	if len(obs.events) != 1 {
		t.Errorf("backlog = %d, want 1", len(obs.events))
	}
}
