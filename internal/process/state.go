package process

import "time"

// State is the lifecycle phase of a supervised ffmpeg run.
type State string

// Lifecycle states. Transitions run idle -> starting -> running, with
// paused reachable only from running via SIGSTOP. Error is terminal
// until the next Start.
const (
	StateIdle     State = "idle"     // no process
	StateStarting State = "starting" // spawn in flight
	StateRunning  State = "running"  // process alive
	StatePaused   State = "paused"   // SIGSTOP sent, resumable
	StateStopping State = "stopping" // shutdown requested
	StateError    State = "error"    // spawn failed or crashed
)

// Info is a point-in-time snapshot of a supervised run, safe to hand
// to API handlers.
type Info struct {
	ID           string
	State        State
	PID          int
	StartedAt    time.Time
	RestartCount int
	LastError    error
}
