package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/PratikLad0/job-search-automation/internal/model"
	"github.com/PratikLad0/job-search-automation/internal/worker"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeLeases struct {
	mu       sync.Mutex
	holder   map[string]string
	released int
}

func (f *fakeLeases) AcquireLock(_ context.Context, name, podID string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.holder == nil {
		f.holder = make(map[string]string)
	}
	if owner, ok := f.holder[name]; ok && owner != podID {
		return false, nil
	}
	f.holder[name] = podID
	return true, nil
}

func (f *fakeLeases) ReleaseAllLocks(_ context.Context, podID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, owner := range f.holder {
		if owner == podID {
			delete(f.holder, name)
		}
	}
	f.released++
	return nil
}

func (f *fakeLeases) CleanExpiredLocks(context.Context) (int64, error) { return 0, nil }

type fakeFinder struct {
	jobs []model.Job
}

func (f fakeFinder) FindReadyToApply(_ context.Context, limit int) ([]model.Job, error) {
	if len(f.jobs) > limit {
		return f.jobs[:limit], nil
	}
	return f.jobs, nil
}

type fakeTasks map[string]model.TaskStatus

func (f fakeTasks) Get(id string) (model.TaskDetail, bool) {
	status, ok := f[id]
	if !ok {
		return model.TaskDetail{}, false
	}
	return model.TaskDetail{TaskSnapshot: model.TaskSnapshot{ID: id, Status: status}}, true
}

func readyJobs(n int) []model.Job {
	jobs := make([]model.Job, n)
	for i := range jobs {
		jobs[i] = model.Job{ID: primitive.NewObjectID(), Status: model.JobStatusResumeGenerated, ResumePath: "/tmp/cv.pdf"}
	}
	return jobs
}

func newTestScheduler(t *testing.T, leases *fakeLeases, jobs []model.Job, tasks TaskLookup, submit SubmitFunc) (*Scheduler, *time.Time) {
	t.Helper()
	s, err := NewScheduler(Options{Schedule: "0 9 * * *", BatchSize: 2}, leases, fakeFinder{jobs}, tasks, submit)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.next = s.schedule.Next(now)
	return s, &now
}

func TestNewSchedulerRejectsBadCron(t *testing.T) {
	if _, err := NewScheduler(Options{Schedule: "every day"}, &fakeLeases{}, fakeFinder{}, nil, nil); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestTickWaitsForSchedule(t *testing.T) {
	var submitted []string
	s, now := newTestScheduler(t, &fakeLeases{}, readyJobs(3), nil, func(id string) (string, error) {
		submitted = append(submitted, id)
		return "task-" + id, nil
	})

	if n := s.Tick(context.Background()); n != 0 {
		t.Fatalf("submitted %d before the schedule was due", n)
	}

	*now = now.Add(time.Hour)
	if n := s.Tick(context.Background()); n != 2 {
		t.Fatalf("submitted = %d, want batch size 2", n)
	}
	if len(submitted) != 2 {
		t.Errorf("submit called %d times", len(submitted))
	}

	want := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	if !s.NextRun().Equal(want) {
		t.Errorf("NextRun = %v, want %v", s.NextRun(), want)
	}
	if n := s.Tick(context.Background()); n != 0 {
		t.Errorf("second tick in the same window submitted %d", n)
	}
}

func TestTickSkipsWhenLeaseHeldElsewhere(t *testing.T) {
	leases := &fakeLeases{holder: map[string]string{SweepLease: "other-pod"}}
	calls := 0
	s, now := newTestScheduler(t, leases, readyJobs(1), nil, func(string) (string, error) {
		calls++
		return "t", nil
	})
	*now = now.Add(time.Hour)

	if n := s.Tick(context.Background()); n != 0 || calls != 0 {
		t.Errorf("submitted %d (calls %d) without the lease", n, calls)
	}
}

func TestTickSkipsJobsStillQueued(t *testing.T) {
	jobs := readyJobs(1)
	tasks := fakeTasks{}
	calls := 0
	s, now := newTestScheduler(t, &fakeLeases{}, jobs, tasks, func(string) (string, error) {
		calls++
		tasks["t1"] = model.TaskStatusQueued
		return "t1", nil
	})

	*now = now.Add(time.Hour)
	s.Tick(context.Background())

	*now = now.Add(24 * time.Hour)
	if n := s.Tick(context.Background()); n != 0 {
		t.Errorf("resubmitted a job whose task is still queued")
	}

	tasks["t1"] = model.TaskStatusFailed
	*now = now.Add(24 * time.Hour)
	if n := s.Tick(context.Background()); n != 0 {
		t.Errorf("resubmitted a failed job before its backoff elapsed")
	}

	*now = now.Add(24 * time.Hour)
	if n := s.Tick(context.Background()); n != 1 {
		t.Errorf("job with a finished task was not resubmitted after the backoff")
	}
	if calls != 2 {
		t.Errorf("submit calls = %d, want 2", calls)
	}
}

func TestTickBackoffDoublesPerAttempt(t *testing.T) {
	tasks := fakeTasks{}
	var perTick []int
	calls := 0
	s, now := newTestScheduler(t, &fakeLeases{}, readyJobs(1), tasks, func(string) (string, error) {
		calls++
		id := fmt.Sprintf("t%d", calls)
		tasks[id] = model.TaskStatusFailed
		return id, nil
	})

	for i := 0; i < 6; i++ {
		*now = now.Add(24 * time.Hour)
		perTick = append(perTick, s.Tick(context.Background()))
	}

	// submit, wait 1 day, submit, wait 2 days, submit
	want := []int{1, 0, 1, 0, 0, 1}
	if fmt.Sprint(perTick) != fmt.Sprint(want) {
		t.Errorf("submissions per sweep = %v, want %v", perTick, want)
	}
}

func TestTickFillsBatchPastSkippedJobs(t *testing.T) {
	jobs := readyJobs(3)
	tasks := fakeTasks{}
	var submitted []string
	s, now := newTestScheduler(t, &fakeLeases{}, jobs, tasks, func(id string) (string, error) {
		submitted = append(submitted, id)
		tasks["t-"+id] = model.TaskStatusProcessing
		return "t-" + id, nil
	})

	*now = now.Add(time.Hour)
	if n := s.Tick(context.Background()); n != 2 {
		t.Fatalf("first sweep submitted %d, want 2", n)
	}

	*now = now.Add(24 * time.Hour)
	if n := s.Tick(context.Background()); n != 1 {
		t.Fatalf("second sweep submitted %d, want the remaining job", n)
	}
	if submitted[2] != jobs[2].ID.Hex() {
		t.Errorf("submitted = %v, want %s last", submitted, jobs[2].ID.Hex())
	}
}

func TestTickForgetsJobsThatLeaveReadySet(t *testing.T) {
	jobs := readyJobs(2)
	finder := &fakeFinder{jobs: jobs}
	tasks := fakeTasks{}
	s, err := NewScheduler(Options{Schedule: "0 9 * * *", BatchSize: 2}, &fakeLeases{}, finder, tasks, func(id string) (string, error) {
		return "t-" + id, nil
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.next = now

	s.Tick(context.Background())
	tasks["t-"+jobs[0].ID.Hex()] = model.TaskStatusProcessing
	tasks["t-"+jobs[1].ID.Hex()] = model.TaskStatusCompleted

	now = now.Add(24 * time.Hour)
	if n := s.Tick(context.Background()); n != 0 {
		t.Fatalf("second sweep submitted %d, want 0", n)
	}
	if len(s.inFlight) != 1 || len(s.retries) != 1 {
		t.Fatalf("inFlight = %v retries = %v, want one of each", s.inFlight, s.retries)
	}

	finder.jobs = nil
	now = now.Add(24 * time.Hour)
	s.Tick(context.Background())
	if len(s.inFlight) != 0 || len(s.retries) != 0 {
		t.Errorf("inFlight = %v retries = %v, want both empty", s.inFlight, s.retries)
	}
}

func TestTickStopsOnFullQueue(t *testing.T) {
	calls := 0
	s, now := newTestScheduler(t, &fakeLeases{}, readyJobs(2), nil, func(string) (string, error) {
		calls++
		return "", worker.ErrQueueFull
	})
	*now = now.Add(time.Hour)

	if n := s.Tick(context.Background()); n != 0 {
		t.Errorf("submitted = %d, want 0", n)
	}
	if calls != 1 {
		t.Errorf("submit calls = %d, want 1", calls)
	}
}

func TestStopReleasesLeases(t *testing.T) {
	leases := &fakeLeases{}
	s, now := newTestScheduler(t, leases, nil, nil, func(string) (string, error) { return "", nil })
	*now = now.Add(time.Hour)
	s.Tick(context.Background())

	s.Start(context.Background())
	s.Stop(context.Background())
	s.Stop(context.Background())

	if leases.released != 1 {
		t.Errorf("ReleaseAllLocks called %d times, want 1", leases.released)
	}
	if len(leases.holder) != 0 {
		t.Errorf("leases still held: %v", leases.holder)
	}
}
