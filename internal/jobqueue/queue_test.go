package jobqueue

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adcondev/fiscal-daemon/internal/fiscal"
)

// recordingRunner logs the order jobs arrive in and can fail or panic on
// selected actions.
type recordingRunner struct {
	mu      sync.Mutex
	actions []string
	delay   time.Duration
	failOn  string
	panicOn string
}

func (r *recordingRunner) Run(job *PrintJob) Result {
	r.mu.Lock()
	r.actions = append(r.actions, job.Action)
	r.mu.Unlock()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if job.Action == r.panicOn {
		panic("runner exploded")
	}
	var status fiscal.DeviceStatus
	if job.Action == r.failOn {
		status.AddError("E201", "General error")
	}
	return Result{Status: status}
}

func (r *recordingRunner) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.actions...)
}

func TestQueue_RunSyncCompletesJob(t *testing.T) {
	runner := &recordingRunner{}
	q := New(runner, 4)
	q.Start()
	defer q.Stop()

	task, err := q.RunSync("dt518293", "print-receipt", json.RawMessage(`{}`), 2000)
	if err != nil {
		t.Fatalf("RunSync() error: %v", err)
	}
	if !task.Found || task.Status != StatusFinished {
		t.Fatalf("task = %+v; want a finished snapshot", task)
	}
	if task.Result == nil || !task.Result.Status.Ok() {
		t.Errorf("result = %+v; want Ok", task.Result)
	}
	if got := runner.seen(); len(got) != 1 || got[0] != "print-receipt" {
		t.Errorf("runner saw %v", got)
	}
}

func TestQueue_RunSyncZeroTimeoutDetaches(t *testing.T) {
	runner := &recordingRunner{delay: 50 * time.Millisecond}
	q := New(runner, 4)
	q.Start()
	defer q.Stop()

	task, err := q.RunSync("dt518293", "daily-report", nil, 0)
	if err != nil {
		t.Fatalf("RunSync() error: %v", err)
	}
	if !task.Found {
		t.Fatal("job not registered")
	}
	if task.Status == StatusFinished {
		t.Error("zero-timeout call waited for completion")
	}

	// The caller polls until the worker is done.
	deadline := time.Now().Add(2 * time.Second)
	for q.TaskInfo(task.ID).Status != StatusFinished {
		if time.Now().After(deadline) {
			t.Fatal("job never finished")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestQueue_FIFOOrder(t *testing.T) {
	runner := &recordingRunner{}
	q := New(runner, 8)
	defer q.Stop()

	// The single worker drains the channel in enqueue order.
	var last *PrintJob
	for _, action := range []string{"first", "second", "third"} {
		job, err := q.Enqueue("dt518293", action, nil)
		if err != nil {
			t.Fatalf("Enqueue(%s) error: %v", action, err)
		}
		last = job
	}

	select {
	case <-last.done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not drain")
	}
	got := runner.seen()
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("execution order = %v; want %v", got, want)
		}
	}
}

// gatedRunner parks every job until released, so tests can hold the worker
// busy at a known point.
type gatedRunner struct {
	started chan struct{}
	release chan struct{}
}

func (r *gatedRunner) Run(*PrintJob) Result {
	r.started <- struct{}{}
	<-r.release
	return Result{}
}

func TestQueue_EnqueueFull(t *testing.T) {
	runner := &gatedRunner{started: make(chan struct{}, 4), release: make(chan struct{})}
	q := New(runner, 1)
	defer q.Stop()
	defer close(runner.release)

	// The first job occupies the worker, the second fills the single slot.
	if _, err := q.Enqueue("dt518293", "print-receipt", nil); err != nil {
		t.Fatalf("first Enqueue() error: %v", err)
	}
	<-runner.started
	if _, err := q.Enqueue("dt518293", "print-receipt", nil); err != nil {
		t.Fatalf("second Enqueue() error: %v", err)
	}

	_, err := q.Enqueue("dt518293", "print-receipt", nil)
	if err == nil || !strings.Contains(err.Error(), "queue is full") {
		t.Fatalf("err = %v; want queue-full rejection", err)
	}
	if q.Pending() != 2 {
		t.Errorf("Pending() = %d; the rejected job must not linger", q.Pending())
	}
}

func TestQueue_EnqueueRestartsStoppedWorker(t *testing.T) {
	runner := &recordingRunner{}
	q := New(runner, 4)
	q.Start()
	q.Stop()

	// A job submitted after Stop must not sit queued forever.
	task, err := q.RunSync("dt518293", "print-receipt", nil, 2000)
	if err != nil {
		t.Fatalf("RunSync() error: %v", err)
	}
	if task.Status != StatusFinished {
		t.Fatalf("task = %+v; want finished", task)
	}
	if got := runner.seen(); len(got) != 1 {
		t.Errorf("runner saw %v; want one job", got)
	}
	q.Stop()
}

func TestQueue_TaskInfoUnknownID(t *testing.T) {
	q := New(&recordingRunner{}, 4)

	task := q.TaskInfo("no-such-job")
	if task.Found {
		t.Error("unknown id reported Found=true")
	}
	if task.ID != "no-such-job" {
		t.Errorf("ID = %q; want the queried id echoed", task.ID)
	}
}

func TestQueue_PanicBecomesFailedResult(t *testing.T) {
	runner := &recordingRunner{panicOn: "explode"}
	q := New(runner, 4)
	q.Start()
	defer q.Stop()

	task, err := q.RunSync("dt518293", "explode", nil, 2000)
	if err != nil {
		t.Fatalf("RunSync() error: %v", err)
	}
	if task.Status != StatusFinished {
		t.Fatalf("task = %+v; want finished", task)
	}
	if task.Result == nil || task.Result.Status.Ok() {
		t.Fatal("panicking job reported Ok")
	}
	msg := task.Result.Status.FirstErrorText()
	if !strings.Contains(msg, "internal error") {
		t.Errorf("error text = %q", msg)
	}

	// The worker survives and keeps processing.
	next, err := q.RunSync("dt518293", "print-receipt", nil, 2000)
	if err != nil || next.Status != StatusFinished {
		t.Fatalf("worker dead after panic: %+v, %v", next, err)
	}
}

func TestQueue_StatsCounters(t *testing.T) {
	runner := &recordingRunner{failOn: "bad"}
	q := New(runner, 4)
	q.Start()
	defer q.Stop()

	if _, err := q.RunSync("dt518293", "good", nil, 2000); err != nil {
		t.Fatalf("RunSync() error: %v", err)
	}
	if _, err := q.RunSync("dt518293", "bad", nil, 2000); err != nil {
		t.Fatalf("RunSync() error: %v", err)
	}

	stats := q.Stats()
	if !stats.IsRunning {
		t.Error("IsRunning = false while started")
	}
	if stats.JobsProcessed != 1 || stats.JobsFailed != 1 {
		t.Errorf("counters = %d processed / %d failed; want 1/1", stats.JobsProcessed, stats.JobsFailed)
	}
	if stats.LastJobTime.IsZero() {
		t.Error("LastJobTime not recorded")
	}
}

func TestQueue_StartStopIdempotent(t *testing.T) {
	q := New(&recordingRunner{}, 4)
	q.Start()
	q.Start()
	q.Stop()
	q.Stop()
}
