package events

import (
	"github.com/smazurov/ffdrive/internal/process"
)

// Event type constants for kelindar/event.
const (
	TypeJobCreated uint32 = iota + 1
	TypeJobStarted
	TypeJobStateChanged
	TypeJobProgress
	TypeJobFinished
	TypeJobMediaInfo
	TypeJobMetrics
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// JobCreatedEvent represents a newly registered job.
type JobCreatedEvent struct {
	JobID     string `json:"job_id" example:"job-001" doc:"Job identifier"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for JobCreatedEvent.
func (e JobCreatedEvent) Type() uint32 { return TypeJobCreated }

// JobStartedEvent represents a job whose process has been spawned.
type JobStartedEvent struct {
	JobID     string `json:"job_id" example:"job-001" doc:"Job identifier"`
	PID       int    `json:"pid" example:"12345" doc:"OS process id"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for JobStartedEvent.
func (e JobStartedEvent) Type() uint32 { return TypeJobStarted }

// JobStateChangedEvent represents a job state transition.
type JobStateChangedEvent struct {
	JobID     string `json:"job_id" example:"job-001" doc:"Job identifier"`
	OldState  string `json:"old_state" example:"running" doc:"Previous state"`
	NewState  string `json:"new_state" example:"paused" doc:"New state"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for JobStateChangedEvent.
func (e JobStateChangedEvent) Type() uint32 { return TypeJobStateChanged }

// JobProgressEvent carries one decoded progress snapshot.
type JobProgressEvent struct {
	JobID     string           `json:"job_id" example:"job-001" doc:"Job identifier"`
	Progress  process.Progress `json:"progress" doc:"Decoded progress snapshot"`
	Timestamp string           `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for JobProgressEvent.
func (e JobProgressEvent) Type() uint32 { return TypeJobProgress }

// JobFinishedEvent represents a job reaching its terminal state.
type JobFinishedEvent struct {
	JobID     string `json:"job_id" example:"job-001" doc:"Job identifier"`
	Error     string `json:"error,omitempty" doc:"Classified error message, empty on success"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for JobFinishedEvent.
func (e JobFinishedEvent) Type() uint32 { return TypeJobFinished }

// JobMediaInfoEvent signals that input metadata has been reconstructed
// from the diagnostic stream.
type JobMediaInfoEvent struct {
	JobID     string `json:"job_id" example:"job-001" doc:"Job identifier"`
	Inputs    int    `json:"inputs" example:"1" doc:"Number of parsed inputs"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for JobMediaInfoEvent.
func (e JobMediaInfoEvent) Type() uint32 { return TypeJobMediaInfo }

// JobMetricsEvent is a periodic aggregate snapshot of a job's encoder
// statistics, published by the metrics exporter.
type JobMetricsEvent struct {
	EventType       string `json:"event_type" example:"job_metrics" doc:"Event type"`
	JobID           string `json:"job_id" example:"job-001" doc:"Job identifier"`
	FPS             string `json:"fps" example:"30.00" doc:"Current encoding FPS"`
	Speed           string `json:"speed" example:"1.50" doc:"Processing speed multiplier"`
	DroppedFrames   string `json:"dropped_frames" example:"0" doc:"Total dropped frames"`
	DuplicateFrames string `json:"duplicate_frames" example:"0" doc:"Total duplicate frames"`
}

// Type returns the event type identifier for JobMetricsEvent.
func (e JobMetricsEvent) Type() uint32 { return TypeJobMetrics }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
