package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type recordingObserver struct {
	id     string
	fail   bool
	panics bool

	mu     sync.Mutex
	events []Event
}

func (o *recordingObserver) ID() string { return o.id }

func (o *recordingObserver) Deliver(_ context.Context, event Event) error {
	if o.panics {
		panic("socket closed")
	}
	if o.fail {
		return errors.New("write failed")
	}
	o.mu.Lock()
	o.events = append(o.events, event)
	o.mu.Unlock()
	return nil
}

func (o *recordingObserver) received() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Event(nil), o.events...)
}

func TestPublishWithNoObservers(t *testing.T) {
	b := NewBroadcaster()
	if n := b.Publish(context.Background(), EventTaskQueued, map[string]int{"queue_size": 1}); n != 0 {
		t.Errorf("delivered = %d, want 0", n)
	}
}

func TestPublishPrunesFailingObserver(t *testing.T) {
	b := NewBroadcaster()
	good := &recordingObserver{id: "good"}
	bad := &recordingObserver{id: "bad", fail: true}
	b.Subscribe(good)
	b.Subscribe(bad)

	if n := b.Publish(context.Background(), EventTaskStarted, "first"); n != 1 {
		t.Errorf("delivered = %d, want 1", n)
	}
	if b.Count() != 1 {
		t.Fatalf("Count = %d, want 1", b.Count())
	}

	b.Publish(context.Background(), EventTaskFinished, "second")

	got := good.received()
	if len(got) != 2 {
		t.Fatalf("good observer got %d events, want 2", len(got))
	}
	if got[0].Type != EventTaskStarted || got[1].Type != EventTaskFinished {
		t.Errorf("unexpected event order: %q, %q", got[0].Type, got[1].Type)
	}
	if got[0].Timestamp.IsZero() {
		t.Error("event timestamp not set")
	}
}

func TestPublishRecoversObserverPanic(t *testing.T) {
	b := NewBroadcaster()
	good := &recordingObserver{id: "good"}
	b.Subscribe(&recordingObserver{id: "panicky", panics: true})
	b.Subscribe(good)

	if n := b.Publish(context.Background(), EventTaskQueued, nil); n != 1 {
		t.Errorf("delivered = %d, want 1", n)
	}
	if b.Count() != 1 || len(good.received()) != 1 {
		t.Errorf("panicking observer should be pruned without affecting others")
	}
}

func TestSubscribeReplacesSameID(t *testing.T) {
	b := NewBroadcaster()
	first := &recordingObserver{id: "conn-1"}
	second := &recordingObserver{id: "conn-1"}
	b.Subscribe(first)
	b.Subscribe(second)

	b.Publish(context.Background(), EventTaskQueued, nil)

	if b.Count() != 1 {
		t.Errorf("Count = %d, want 1", b.Count())
	}
	if len(first.received()) != 0 || len(second.received()) != 1 {
		t.Error("expected only the replacement observer to receive the event")
	}

	b.Unsubscribe("conn-1")
	b.Unsubscribe("unknown")
	if b.Count() != 0 {
		t.Errorf("Count = %d, want 0", b.Count())
	}
}
