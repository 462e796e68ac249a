package models

import (
	"time"

	"github.com/smazurov/ffdrive/internal/config"
	"github.com/smazurov/ffdrive/internal/mediainfo"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.21.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Job models
type JobData struct {
	ID         string                `json:"id" example:"job-001" doc:"Unique job identifier"`
	Name       string                `json:"name" example:"Nightly transcode" doc:"Human-readable job name"`
	Enabled    bool                  `json:"enabled" example:"true" doc:"Whether the job starts automatically"`
	State      string                `json:"state" example:"running" doc:"Current runtime state"`
	PID        int                   `json:"pid,omitempty" example:"12345" doc:"OS process id when running"`
	GlobalArgs []string              `json:"global_args,omitempty" doc:"Arguments preceding every input"`
	Inputs     []config.InputConfig  `json:"inputs" doc:"Input specifications"`
	Outputs    []config.OutputConfig `json:"outputs" doc:"Output specifications"`
	CreatedAt  time.Time             `json:"created_at" doc:"When the job was created"`
	UpdatedAt  time.Time             `json:"updated_at" doc:"When the job was last modified"`
}

type JobListData struct {
	Jobs  []JobData `json:"jobs" doc:"List of configured jobs"`
	Count int       `json:"count" example:"2" doc:"Number of jobs"`
}

type JobListResponse struct {
	Body JobListData
}

type JobRequestData struct {
	ID         string                `json:"id" pattern:"^[a-zA-Z0-9_-]+$" minLength:"1" maxLength:"50" example:"job-001" doc:"User-defined job identifier (alphanumeric, dashes, underscores only)"`
	Name       string                `json:"name,omitempty" example:"Nightly transcode" doc:"Human-readable job name"`
	Enabled    bool                  `json:"enabled,omitempty" example:"true" doc:"Whether the job starts automatically"`
	GlobalArgs []string              `json:"global_args,omitempty" doc:"Arguments preceding every input"`
	Inputs     []config.InputConfig  `json:"inputs" minItems:"1" doc:"Input specifications"`
	Outputs    []config.OutputConfig `json:"outputs" doc:"Output specifications"`
}

type JobRequest struct {
	Body JobRequestData
}

type JobResponse struct {
	Body JobData
}

// Job status models
type JobStatusData struct {
	JobID        string    `json:"job_id" example:"job-001" doc:"Job identifier"`
	State        string    `json:"state" example:"running" doc:"Current runtime state"`
	PID          int       `json:"pid,omitempty" example:"12345" doc:"OS process id when running"`
	StartedAt    time.Time `json:"started_at,omitempty" doc:"When the current process started"`
	RestartCount int       `json:"restart_count" example:"0" doc:"Restarts since first start"`
	LastError    string    `json:"last_error,omitempty" doc:"Classified error from the last exit"`
}

type JobStatusResponse struct {
	Body JobStatusData
}

// Progress snapshot models
type JobProgressData struct {
	JobID           string  `json:"job_id" example:"job-001" doc:"Job identifier"`
	Frame           int64   `json:"frame" example:"1024" doc:"Frames processed so far"`
	FPS             float64 `json:"fps" example:"29.97" doc:"Current processing rate"`
	Bitrate         float64 `json:"bitrate" example:"1200.5" doc:"Output bitrate in kbits/s"`
	OutputBytes     int64   `json:"output_bytes" example:"1048576" doc:"Bytes written so far"`
	DroppedFrames   int64   `json:"dropped_frames" example:"0" doc:"Frames dropped"`
	DuplicateFrames int64   `json:"duplicate_frames" example:"0" doc:"Frames duplicated"`
	Speed           float64 `json:"speed" example:"1.5" doc:"Processing speed relative to realtime"`
}

type JobProgressResponse struct {
	Body JobProgressData
}

// Media info models
type JobMediaData struct {
	JobID  string             `json:"job_id" example:"job-001" doc:"Job identifier"`
	Inputs []*mediainfo.Input `json:"inputs" doc:"Metadata reconstructed from the diagnostic stream"`
}

type JobMediaResponse struct {
	Body JobMediaData
}

// Argument preview models
type JobArgsData struct {
	JobID string   `json:"job_id" example:"job-001" doc:"Job identifier"`
	Args  []string `json:"args" doc:"Argument vector the job would run with"`
}

type JobArgsResponse struct {
	Body JobArgsData
}

// Error response
type ErrorData struct {
	Status  string `json:"status" example:"error" doc:"Error status"`
	Message string `json:"message" example:"Job not found" doc:"Error message"`
}

type ErrorResponse struct {
	Body ErrorData
}
