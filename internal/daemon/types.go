package daemon

import (
	"github.com/adcondev/fiscal-daemon/internal/printer"
)

// HealthResponse is the /health JSON body.
type HealthResponse struct {
	Status   string          `json:"status"`
	Queue    QueueStatus     `json:"queue"`
	Worker   WorkerStatus    `json:"worker"`
	Printers printer.Summary `json:"printers"`
	Build    BuildInfo       `json:"build"`
	Uptime   int             `json:"uptime_seconds"`
	Log      LogStatus       `json:"log"`
}

// LogStatus describes the service log file.
type LogStatus struct {
	SizeBytes int64 `json:"size_bytes"`
	Verbose   bool  `json:"verbose"`
}

// QueueStatus describes the fiscal job queue.
type QueueStatus struct {
	Current     int     `json:"current"`
	Capacity    int     `json:"capacity"`
	Utilization float64 `json:"utilization"`
}

// WorkerStatus describes the single job worker.
type WorkerStatus struct {
	Running       bool  `json:"running"`
	JobsProcessed int64 `json:"jobs_processed"`
	JobsFailed    int64 `json:"jobs_failed"`
}

// BuildInfo carries the ldflags-injected build identity.
type BuildInfo struct {
	Env  string `json:"env"`
	Date string `json:"date"`
	Time string `json:"time"`
}
