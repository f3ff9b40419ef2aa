// Package jobqueue serializes printer work: all device commands go through
// one queue and one worker goroutine, so a fiscal printer never sees two
// receipts interleaved.
package jobqueue

import (
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adcondev/fiscal-daemon/internal/fiscal"
)

// JobStatus is the life-cycle phase of a queued job.
type JobStatus string

const (
	StatusQueued   JobStatus = "queued"
	StatusRunning  JobStatus = "running"
	StatusFinished JobStatus = "finished"
)

// Result is what a finished job reports back: the device status plus any
// action-specific payload (receipt info, date-time, device state).
type Result struct {
	Status fiscal.DeviceStatus `json:"status"`
	Data   any                 `json:"data,omitempty"`
}

// PrintJob is one unit of printer work.
type PrintJob struct {
	ID        string          `json:"id"`
	PrinterID string          `json:"printerId"`
	Action    string          `json:"action"`
	Document  json.RawMessage `json:"document,omitempty"`
	Status    JobStatus       `json:"status"`
	Result    *Result         `json:"result,omitempty"`
	Created   time.Time       `json:"created"`
	Finished  time.Time       `json:"finished,omitempty"`

	done chan struct{}
}

// TaskInfo is a point-in-time snapshot of a job, safe to hand out.
type TaskInfo struct {
	ID       string    `json:"id"`
	Found    bool      `json:"found"`
	Status   JobStatus `json:"status,omitempty"`
	Result   *Result   `json:"result,omitempty"`
	Finished time.Time `json:"finished,omitempty"`
}

// Runner executes one job against a device. The worker package provides it.
type Runner interface {
	Run(job *PrintJob) Result
}

// Statistics holds queue runtime counters.
type Statistics struct {
	IsRunning     bool      `json:"is_running"`
	Pending       int       `json:"pending"`
	JobsProcessed int64     `json:"jobs_processed"`
	JobsFailed    int64     `json:"jobs_failed"`
	LastJobTime   time.Time `json:"last_job_time,omitempty"`
}

// Queue is a FIFO of print jobs with a single consumer goroutine.
type Queue struct {
	runner Runner

	mu            sync.Mutex
	jobs          map[string]*PrintJob
	pending       chan *PrintJob
	stopChan      chan struct{}
	wg            sync.WaitGroup
	isRunning     bool
	jobsProcessed int64
	jobsFailed    int64
	lastJobTime   time.Time
}

// New creates a queue holding at most capacity pending jobs.
func New(runner Runner, capacity int) *Queue {
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue{
		runner:  runner,
		jobs:    make(map[string]*PrintJob),
		pending: make(chan *PrintJob, capacity),
	}
}

// Start begins the worker goroutine.
func (q *Queue) Start() {
	q.mu.Lock()
	if q.isRunning {
		q.mu.Unlock()
		return
	}
	q.isRunning = true
	q.stopChan = make(chan struct{})
	q.mu.Unlock()

	q.wg.Add(1)
	go q.run()

	log.Println("[WORKER] ✅ Print worker started and ready")
}

// Stop drains nothing: it stops after the job in flight, leaving queued
// jobs in place for a later Start.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return
	}
	q.isRunning = false
	stop := q.stopChan
	q.mu.Unlock()

	close(stop)
	q.wg.Wait()

	log.Printf("[WORKER] 🛑 Print worker stopped (processed: %d, failed: %d)", q.jobsProcessed, q.jobsFailed)
}

// Enqueue registers a new job and queues it, starting the worker if none is
// running. It fails fast when the queue is full instead of blocking the
// caller.
func (q *Queue) Enqueue(printerID, action string, document json.RawMessage) (*PrintJob, error) {
	job := &PrintJob{
		ID:        uuid.NewString(),
		PrinterID: printerID,
		Action:    action,
		Document:  document,
		Status:    StatusQueued,
		Created:   time.Now(),
		done:      make(chan struct{}),
	}

	q.mu.Lock()
	q.jobs[job.ID] = job
	q.mu.Unlock()

	select {
	case q.pending <- job:
	default:
		q.mu.Lock()
		delete(q.jobs, job.ID)
		q.mu.Unlock()
		log.Printf("[QUEUE] 🚫 Queue full, rejecting job: %s (%d/%d)", job.ID, len(q.pending), cap(q.pending))
		return nil, fmt.Errorf("print queue is full (%d jobs pending)", len(q.pending))
	}

	// A job must never sit queued with no worker to pick it up.
	q.Start()

	log.Printf("[QUEUE] 📥 Job queued: %s %s -> %s (queue: %d/%d)",
		job.ID, job.Action, job.PrinterID, len(q.pending), cap(q.pending))
	return job, nil
}

// RunSync queues a job and waits up to timeoutMs for it to finish. With a
// zero timeout the job id is returned immediately and the caller polls via
// TaskInfo. On timeout the snapshot shows the job still queued or running.
func (q *Queue) RunSync(printerID, action string, document json.RawMessage, timeoutMs int) (TaskInfo, error) {
	job, err := q.Enqueue(printerID, action, document)
	if err != nil {
		return TaskInfo{}, err
	}
	if timeoutMs <= 0 {
		return q.TaskInfo(job.ID), nil
	}

	select {
	case <-job.done:
	case <-time.After(time.Duration(timeoutMs) * time.Millisecond):
		log.Printf("[QUEUE] ⏳ Job %s still pending after %dms, detaching caller", job.ID, timeoutMs)
	}
	return q.TaskInfo(job.ID), nil
}

// TaskInfo returns a snapshot of the job with the given id. An unknown id
// is reported with Found=false, not an error: the daemon may have restarted
// since the job was queued.
func (q *Queue) TaskInfo(id string) TaskInfo {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return TaskInfo{ID: id, Found: false}
	}
	return TaskInfo{
		ID:       job.ID,
		Found:    true,
		Status:   job.Status,
		Result:   job.Result,
		Finished: job.Finished,
	}
}

// Pending counts jobs that are queued or running.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, job := range q.jobs {
		if job.Status != StatusFinished {
			n++
		}
	}
	return n
}

// Stats returns current queue statistics.
func (q *Queue) Stats() Statistics {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Statistics{
		IsRunning:     q.isRunning,
		Pending:       len(q.pending),
		JobsProcessed: q.jobsProcessed,
		JobsFailed:    q.jobsFailed,
		LastJobTime:   q.lastJobTime,
	}
}

func (q *Queue) run() {
	defer q.wg.Done()

	log.Println("[WORKER] 👂 Waiting for print jobs...")

	for {
		select {
		case <-q.stopChan:
			log.Println("[WORKER] 📴 Received stop signal")
			return

		case job, ok := <-q.pending:
			if !ok {
				log.Println("[WORKER] 📴 Job channel closed, exiting")
				return
			}
			q.processJob(job)
		}
	}
}

func (q *Queue) processJob(job *PrintJob) {
	startTime := time.Now()
	log.Printf("[WORKER] 🔄 Processing job: %s", job.ID)

	q.mu.Lock()
	job.Status = StatusRunning
	q.mu.Unlock()

	result := q.execute(job)

	duration := time.Since(startTime)

	q.mu.Lock()
	job.Status = StatusFinished
	job.Result = &result
	job.Finished = time.Now()
	q.lastJobTime = job.Finished
	if result.Status.Ok() {
		q.jobsProcessed++
	} else {
		q.jobsFailed++
	}
	q.mu.Unlock()

	close(job.done)

	if result.Status.Ok() {
		log.Printf("[WORKER] ✅ Job %s completed in %v", job.ID, duration.Round(time.Millisecond))
	} else {
		log.Printf("[WORKER] ❌ Job %s FAILED after %v: %s", job.ID, duration.Round(time.Millisecond), result.Status.FirstErrorText())
	}
}

// execute runs the job through the runner, converting any panic into a
// failed result so one broken document cannot kill the worker.
func (q *Queue) execute(job *PrintJob) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WORKER] 💥 Panic in job %s: %v\nStack: %s", job.ID, r, debug.Stack())
			var status fiscal.DeviceStatus
			status.AddError(fiscal.CodeInvalidArgument, fmt.Sprintf("internal error while processing job: %v", r))
			result = Result{Status: status}
		}
	}()
	return q.runner.Run(job)
}
