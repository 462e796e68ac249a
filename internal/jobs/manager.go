// Package jobs supervises transcode jobs. A Manager maps job IDs from the
// job store to running FFmpeg handles and tracks their lifecycle states.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smazurov/ffdrive/internal/config"
	"github.com/smazurov/ffdrive/internal/events"
	"github.com/smazurov/ffdrive/internal/ffmpeg"
	"github.com/smazurov/ffdrive/internal/logging"
	"github.com/smazurov/ffdrive/internal/mediainfo"
	"github.com/smazurov/ffdrive/internal/metrics"
	"github.com/smazurov/ffdrive/internal/process"
)

const stopTimeout = 10 * time.Second

// StateChangeCallback is called when a job state changes.
type StateChangeCallback func(id string, oldState, newState process.State, err error)

// Options configures a new Manager.
type Options struct {
	// Store provides job configurations (required).
	Store *config.JobStore

	// Bus receives job lifecycle, progress and media-info events (optional).
	Bus *events.Bus

	// Binary is the FFmpeg executable. Defaults to "ffmpeg" from PATH.
	Binary string

	// OnStateChange is called on every state transition (optional).
	OnStateChange StateChangeCallback

	// Logger for manager operations. If nil, uses the jobs module logger.
	Logger logging.Logger

	// ProcessLogger receives re-leveled FFmpeg diagnostic lines (optional).
	ProcessLogger logging.Logger
}

// mediaFeeder routes diagnostic lines into a job's metadata parser with
// the log level prefix stripped.
type mediaFeeder struct {
	mj *managedJob
}

func (f *mediaFeeder) HandleLine(source, line string) {
	if source != "stderr" {
		return
	}
	_, msg := ffmpeg.ParseLogLevel(line)
	f.mj.mediaMu.Lock()
	f.mj.media.Feed(msg)
	f.mj.mediaMu.Unlock()
}

// managedJob tracks one running job within the manager.
type managedJob struct {
	id           string
	handle       *process.Handle
	state        process.State
	startedAt    time.Time
	restartCount int
	lastError    error
	cancel       context.CancelFunc
	done         chan struct{}

	mediaMu sync.Mutex
	media   *mediainfo.Parser
}

// Manager supervises multiple named jobs with lifecycle control.
type Manager struct {
	opts   Options
	jobs   map[string]*managedJob
	mu     sync.RWMutex
	logger logging.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a job manager on top of a job store.
func NewManager(opts Options) *Manager {
	if opts.Store == nil {
		panic("jobs.Options requires a Store")
	}
	if opts.Binary == "" {
		opts.Binary = "ffmpeg"
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("jobs")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		opts:   opts,
		jobs:   make(map[string]*managedJob),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches a job by ID. Returns an error when the job is unknown or
// already active.
func (m *Manager) Start(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mj, exists := m.jobs[id]; exists {
		switch mj.state {
		case process.StateRunning, process.StateStarting, process.StatePaused:
			return fmt.Errorf("job %s already running", id)
		}
	}

	job, ok := m.opts.Store.GetJob(id)
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}

	return m.startJob(job)
}

// startJob spawns the job's FFmpeg process (must hold lock).
func (m *Manager) startJob(job config.JobConfig) error {
	ctx, cancel := context.WithCancel(m.ctx)

	mj := &managedJob{
		id:        job.ID,
		state:     process.StateStarting,
		startedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
		media:     mediainfo.NewParser(),
	}
	if prev, exists := m.jobs[job.ID]; exists {
		mj.restartCount = prev.restartCount + 1
	}

	handle, err := job.BuildPipeline(m.logger).Start(ctx, m.opts.Binary, process.Options{
		Logger:        m.logger,
		ProcessLogger: m.opts.ProcessLogger,
		OutputHandler: &mediaFeeder{mj: mj},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start job %s: %w", job.ID, err)
	}

	mj.handle = handle
	m.jobs[job.ID] = mj

	m.publish(events.JobStartedEvent{
		JobID:     job.ID,
		PID:       handle.Pid(),
		Timestamp: timestamp(),
	})
	m.notifyStateChange(job.ID, process.StateIdle, process.StateStarting, nil)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(mj.done)
		m.runJob(ctx, mj)
	}()

	return nil
}

// runJob follows the process to its terminal state.
func (m *Manager) runJob(ctx context.Context, mj *managedJob) {
	m.transition(mj, process.StateRunning, nil)

	var mediaOnce sync.Once
	for p := range mj.handle.Progress() {
		metrics.ObserveJobProgress(mj.id, p)
		m.publish(events.JobProgressEvent{
			JobID:     mj.id,
			Progress:  p,
			Timestamp: timestamp(),
		})

		// The input headers are fully printed before the first progress
		// record, so the reconstructed metadata is complete here.
		mediaOnce.Do(func() { m.publishMediaInfo(mj) })
	}

	err := mj.handle.Wait(context.Background())

	var final process.State
	switch {
	case ctx.Err() != nil:
		final = process.StateIdle
		err = nil
	case err != nil:
		final = process.StateError
		m.logger.Error("Job failed", "id", mj.id, "error", err)
	default:
		final = process.StateIdle
	}

	m.transition(mj, final, err)
	metrics.DeleteJobMetrics(mj.id)

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	m.publish(events.JobFinishedEvent{
		JobID:     mj.id,
		Error:     errMsg,
		Timestamp: timestamp(),
	})
	m.logger.Info("Job stopped", "id", mj.id)
}

func (m *Manager) publishMediaInfo(mj *managedJob) {
	mj.mediaMu.Lock()
	inputs := len(mj.media.Inputs())
	mj.mediaMu.Unlock()
	if inputs == 0 {
		return
	}
	m.publish(events.JobMediaInfoEvent{
		JobID:     mj.id,
		Inputs:    inputs,
		Timestamp: timestamp(),
	})
}

// Stop gracefully stops a job by ID. The process is asked to quit through
// its control channel first; the context cancel escalates to a signal and
// the spawn-time kill delay guarantees termination.
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	mj, exists := m.jobs[id]
	if !exists {
		m.mu.Unlock()
		return nil
	}

	switch mj.state {
	case process.StateRunning, process.StateStarting, process.StatePaused:
	default:
		m.mu.Unlock()
		return nil
	}

	oldState := mj.state
	mj.state = process.StateStopping
	m.mu.Unlock()

	m.notifyStateChange(id, oldState, process.StateStopping, nil)
	m.logger.Info("Stopping job", "id", id)

	// A paused process cannot read the quit request.
	if oldState == process.StatePaused {
		mj.handle.Resume()
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := mj.handle.Abort(ctx); err != nil {
		mj.cancel()
	}

	select {
	case <-mj.done:
	case <-time.After(stopTimeout):
		m.logger.Warn("Timeout waiting for job to stop", "id", id)
		mj.cancel()
		<-mj.done
	}

	m.mu.Lock()
	delete(m.jobs, id)
	m.mu.Unlock()

	return nil
}

// Restart stops and restarts a job.
func (m *Manager) Restart(id string) error {
	m.logger.Info("Restarting job", "id", id)
	if err := m.Stop(id); err != nil {
		return fmt.Errorf("failed to stop job: %w", err)
	}
	return m.Start(id)
}

// Pause suspends a running job's process.
func (m *Manager) Pause(id string) error {
	m.mu.Lock()
	mj, exists := m.jobs[id]
	if !exists || mj.state != process.StateRunning {
		m.mu.Unlock()
		return fmt.Errorf("job %s not running", id)
	}
	if !mj.handle.Pause() {
		m.mu.Unlock()
		return fmt.Errorf("job %s already exited", id)
	}
	mj.state = process.StatePaused
	m.mu.Unlock()

	m.notifyStateChange(id, process.StateRunning, process.StatePaused, nil)
	return nil
}

// Resume continues a paused job's process.
func (m *Manager) Resume(id string) error {
	m.mu.Lock()
	mj, exists := m.jobs[id]
	if !exists || mj.state != process.StatePaused {
		m.mu.Unlock()
		return fmt.Errorf("job %s not paused", id)
	}
	if !mj.handle.Resume() {
		m.mu.Unlock()
		return fmt.Errorf("job %s already exited", id)
	}
	mj.state = process.StateRunning
	m.mu.Unlock()

	m.notifyStateChange(id, process.StatePaused, process.StateRunning, nil)
	return nil
}

// GetStatus returns job runtime info. Unknown jobs report the idle state.
func (m *Manager) GetStatus(id string) *process.Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mj, exists := m.jobs[id]
	if !exists {
		return &process.Info{ID: id, State: process.StateIdle}
	}

	return &process.Info{
		ID:           id,
		State:        mj.state,
		PID:          mj.handle.Pid(),
		StartedAt:    mj.startedAt,
		RestartCount: mj.restartCount,
		LastError:    mj.lastError,
	}
}

// IsRunning checks whether a job is currently running or paused.
func (m *Manager) IsRunning(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mj, exists := m.jobs[id]
	return exists && (mj.state == process.StateRunning || mj.state == process.StatePaused)
}

// MediaInfo returns the metadata reconstructed from a running job's
// diagnostic output so far. Returns nil for unknown jobs.
func (m *Manager) MediaInfo(id string) []*mediainfo.Input {
	m.mu.RLock()
	mj, exists := m.jobs[id]
	m.mu.RUnlock()
	if !exists {
		return nil
	}

	mj.mediaMu.Lock()
	defer mj.mediaMu.Unlock()
	return mj.media.Inputs()
}

// StartEnabled launches every enabled job from the store. Failures are
// logged and do not prevent the remaining jobs from starting.
func (m *Manager) StartEnabled() {
	for id := range m.opts.Store.GetEnabledJobs() {
		if err := m.Start(id); err != nil {
			m.logger.Error("Failed to start job", "id", id, "error", err)
		}
	}
}

// StopAll gracefully stops all running jobs.
func (m *Manager) StopAll() {
	m.logger.Info("Stopping all jobs")

	m.mu.RLock()
	ids := make([]string, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		_ = m.Stop(id)
	}

	m.cancel()
	m.wg.Wait()
	m.logger.Info("All jobs stopped")
}

// transition moves a job to a new state and notifies observers.
func (m *Manager) transition(mj *managedJob, newState process.State, err error) {
	m.mu.Lock()
	oldState := mj.state
	mj.state = newState
	mj.lastError = err
	m.mu.Unlock()

	m.notifyStateChange(mj.id, oldState, newState, err)
}

// notifyStateChange publishes a state change to the bus and the optional
// callback.
func (m *Manager) notifyStateChange(id string, oldState, newState process.State, err error) {
	if oldState == newState {
		return
	}
	m.publish(events.JobStateChangedEvent{
		JobID:     id,
		OldState:  string(oldState),
		NewState:  string(newState),
		Timestamp: timestamp(),
	})
	if m.opts.OnStateChange != nil {
		m.opts.OnStateChange(id, oldState, newState, err)
	}
}

func (m *Manager) publish(ev events.Event) {
	if m.opts.Bus != nil {
		m.opts.Bus.Publish(ev)
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
