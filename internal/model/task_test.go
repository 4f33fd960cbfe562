package model

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestTaskLifecycleCompleted(t *testing.T) {
	now := time.Now().UTC()
	task := NewTask("t1", "chat", now)

	if task.Status != TaskStatusQueued {
		t.Fatalf("Status = %q, want %q", task.Status, TaskStatusQueued)
	}
	if err := task.Start(now.Add(time.Second)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := task.Complete(now.Add(2*time.Second), "ok"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if task.Status != TaskStatusCompleted || task.Result != "ok" {
		t.Errorf("got status %q result %v", task.Status, task.Result)
	}
	if !task.Status.Terminal() {
		t.Error("completed should be terminal")
	}
}

func TestTaskRejectsIllegalTransitions(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name string
		run  func(*Task) error
	}{
		{"complete while queued", func(tk *Task) error { return tk.Complete(now, nil) }},
		{"fail while queued", func(tk *Task) error { return tk.Fail(now, "boom") }},
		{"start twice", func(tk *Task) error {
			_ = tk.Start(now)
			return tk.Start(now)
		}},
		{"revert after completion", func(tk *Task) error {
			_ = tk.Start(now)
			_ = tk.Complete(now, nil)
			return tk.Fail(now, "late")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewTask("t", "k", now)
			if err := tt.run(task); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("err = %v, want ErrInvalidTransition", err)
			}
		})
	}
}

func TestTaskSnapshotNullsUnsetFields(t *testing.T) {
	task := NewTask("t1", "job_application", time.Now().UTC())
	snap := task.Snapshot()
	if snap.StartedAt != nil || snap.FinishedAt != nil || snap.Error != nil {
		t.Errorf("expected nil optional fields, got %+v", snap)
	}

	_ = task.Start(time.Now().UTC())
	_ = task.Fail(time.Now().UTC(), "browser crashed")
	snap = task.Snapshot()
	if snap.StartedAt == nil || snap.FinishedAt == nil {
		t.Fatal("expected timestamps to be set")
	}
	if snap.Error == nil || *snap.Error != "browser crashed" {
		t.Errorf("Error = %v, want %q", snap.Error, "browser crashed")
	}
}

func TestTaskStoreUpdateKeepsTaskOnError(t *testing.T) {
	store := NewTaskStore()
	store.Add(NewTask("t1", "chat", time.Now().UTC()))

	_, err := store.Update("t1", func(tk *Task) error {
		tk.Kind = "mutated"
		return errors.New("reject")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	got, ok := store.Get("t1")
	if !ok {
		t.Fatal("task missing")
	}
	if got.Kind != "chat" {
		t.Errorf("Kind = %q, want %q", got.Kind, "chat")
	}

	if _, err := store.Update("missing", func(*Task) error { return nil }); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestTaskStoreListNewestFirst(t *testing.T) {
	store := NewTaskStore()
	base := time.Now().UTC()
	store.Add(NewTask("old", "chat", base))
	store.Add(NewTask("new", "chat", base.Add(time.Minute)))

	list := store.List("")
	if len(list) != 2 || list[0].ID != "new" {
		t.Fatalf("unexpected order: %+v", list)
	}
	if got := store.List(TaskStatusCompleted); len(got) != 0 {
		t.Errorf("expected no completed tasks, got %d", len(got))
	}
}

func TestTaskStoreListOrdersSameTickNewestFirst(t *testing.T) {
	store := NewTaskStore()
	now := time.Now().UTC()
	for i := 0; i < 20; i++ {
		store.Add(NewTask(fmt.Sprintf("t%02d", i), "chat", now))
	}

	for round := 0; round < 5; round++ {
		list := store.List("")
		if len(list) != 20 {
			t.Fatalf("len = %d, want 20", len(list))
		}
		for i, task := range list {
			if want := fmt.Sprintf("t%02d", 19-i); task.ID != want {
				t.Fatalf("position %d = %s, want %s", i, task.ID, want)
			}
		}
	}
}
