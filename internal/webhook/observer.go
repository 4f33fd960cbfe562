package webhook

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/PratikLad0/job-search-automation/internal/broadcast"
	"github.com/PratikLad0/job-search-automation/internal/model"
)

// DeliveryStore persists delivery logs
type DeliveryStore interface {
	Create(ctx context.Context, log *model.DeliveryLog) error
}

// Observer forwards broadcast events to a webhook from a background goroutine,
// so a slow endpoint never blocks publishers or gets pruned.
type Observer struct {
	webhook    model.EventWebhook
	dispatcher *Dispatcher
	store      DeliveryStore
	events     chan broadcast.Event

	wg       sync.WaitGroup
	stopOnce sync.Once
	cancel   context.CancelFunc
}

// NewObserver creates an observer with a bounded backlog. store may be nil.
func NewObserver(webhook model.EventWebhook, dispatcher *Dispatcher, store DeliveryStore, backlog int) *Observer {
	if backlog <= 0 {
		backlog = 100
	}
	return &Observer{
		webhook:    webhook,
		dispatcher: dispatcher,
		store:      store,
		events:     make(chan broadcast.Event, backlog),
	}
}

// ID identifies the observer in the broadcaster
func (o *Observer) ID() string {
	return "webhook:" + o.webhook.URL
}

// Deliver queues the event. A full backlog drops the event without
// unsubscribing the observer.
func (o *Observer) Deliver(_ context.Context, event broadcast.Event) error {
	if !o.webhook.Wants(event.Type) {
		return nil
	}
	select {
	case o.events <- event:
	default:
		slog.Warn("Webhook backlog full, dropping event",
			"event_type", event.Type,
			"webhook_url", o.webhook.URL,
		)
	}
	return nil
}

// Start runs the delivery loop until Stop
func (o *Observer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for event := range o.events {
			o.send(ctx, event)
		}
	}()

	slog.Info("Event webhook observer started", "webhook_url", o.webhook.URL)
}

// Stop drains queued events, giving up when ctx ends
func (o *Observer) Stop(ctx context.Context) {
	o.stopOnce.Do(func() {
		close(o.events)

		done := make(chan struct{})
		go func() {
			o.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			slog.Warn("Event webhook observer stopped before draining")
		}
		if o.cancel != nil {
			o.cancel()
		}
	})
}

func (o *Observer) send(ctx context.Context, event broadcast.Event) {
	deliveryLog, err := o.dispatcher.Send(ctx, o.webhook, event)
	if err != nil {
		slog.Warn("Event webhook delivery failed", "event_type", event.Type, "error", err)
	}
	if o.store == nil || deliveryLog == nil {
		return
	}

	storeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.store.Create(storeCtx, deliveryLog); err != nil {
		slog.Error("Failed to save delivery log", "event_type", event.Type, "error", err)
	}
}
