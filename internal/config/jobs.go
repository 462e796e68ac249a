package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/ffdrive/internal/ffmpeg"
	"github.com/smazurov/ffdrive/internal/logging"
)

// InputConfig describes one input block of a job.
type InputConfig struct {
	URL  string   `toml:"url" json:"url"`
	Args []string `toml:"args,omitempty" json:"args,omitempty"`
}

// FilterConfig describes one filter of an output's chain.
type FilterConfig struct {
	Name string            `toml:"name" json:"name"`
	Args []string          `toml:"args,omitempty" json:"args,omitempty"`
	Opts map[string]string `toml:"opts,omitempty" json:"opts,omitempty"`
}

// OutputConfig describes one output block of a job. An empty URL list
// discards the output; multiple URLs are multiplexed.
type OutputConfig struct {
	URLs         []string       `toml:"urls,omitempty" json:"urls,omitempty"`
	Args         []string       `toml:"args,omitempty" json:"args,omitempty"`
	VideoFilters []FilterConfig `toml:"video_filters,omitempty" json:"video_filters,omitempty"`
	AudioFilters []FilterConfig `toml:"audio_filters,omitempty" json:"audio_filters,omitempty"`
}

// JobConfig represents a single transcode job configuration.
type JobConfig struct {
	ID      string `toml:"id" json:"id"`
	Name    string `toml:"name" json:"name"`
	Enabled bool   `toml:"enabled" json:"enabled"`

	GlobalArgs []string       `toml:"global_args,omitempty" json:"global_args,omitempty"`
	Inputs     []InputConfig  `toml:"inputs" json:"inputs"`
	Outputs    []OutputConfig `toml:"outputs" json:"outputs"`

	// Metadata
	CreatedAt time.Time `toml:"created_at" json:"created_at"`
	UpdatedAt time.Time `toml:"updated_at" json:"updated_at"`
}

// JobsConfig represents the complete jobs configuration file.
type JobsConfig struct {
	Version int                  `toml:"version" json:"version"`
	Jobs    map[string]JobConfig `toml:"jobs" json:"jobs"`
}

// JobStore manages job configurations backed by a TOML file. Safe for
// concurrent use: API handlers and the job manager share one store.
type JobStore struct {
	configPath string
	mu         sync.RWMutex
	config     *JobsConfig
}

// NewJobStore creates a new job store.
func NewJobStore(configPath string) *JobStore {
	if configPath == "" {
		configPath = "jobs.toml"
	}

	return &JobStore{
		configPath: configPath,
		config: &JobsConfig{
			Version: 1,
			Jobs:    make(map[string]JobConfig),
		},
	}
}

// Load loads the jobs configuration from file.
func (js *JobStore) Load() error {
	if _, err := os.Stat(js.configPath); os.IsNotExist(err) {
		// File doesn't exist, use empty config
		return nil
	}

	data, err := os.ReadFile(js.configPath)
	if err != nil {
		return fmt.Errorf("failed to read jobs config: %w", err)
	}

	js.mu.Lock()
	defer js.mu.Unlock()

	if err := toml.Unmarshal(data, js.config); err != nil {
		return fmt.Errorf("failed to parse jobs config: %w", err)
	}

	if js.config.Jobs == nil {
		js.config.Jobs = make(map[string]JobConfig)
	}
	if js.config.Version == 0 {
		js.config.Version = 1
	}

	return nil
}

// Save saves the jobs configuration to file.
func (js *JobStore) Save() error {
	js.mu.RLock()
	defer js.mu.RUnlock()
	return js.saveLocked()
}

// saveLocked writes the config file. Callers must hold js.mu.
func (js *JobStore) saveLocked() error {
	dir := filepath.Dir(js.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(js.config)
	if err != nil {
		return fmt.Errorf("failed to marshal jobs config: %w", err)
	}

	if err := os.WriteFile(js.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write jobs config: %w", err)
	}

	return nil
}

// AddJob adds a new job to the configuration.
func (js *JobStore) AddJob(job JobConfig) error {
	if job.ID == "" {
		return fmt.Errorf("job ID cannot be empty")
	}
	if len(job.Inputs) == 0 {
		return fmt.Errorf("job %s has no inputs", job.ID)
	}
	if job.Name == "" {
		job.Name = job.ID
	}

	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	js.mu.Lock()
	defer js.mu.Unlock()
	js.config.Jobs[job.ID] = job
	return js.saveLocked()
}

// UpdateJob updates an existing job configuration.
func (js *JobStore) UpdateJob(id string, updates JobConfig) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	existing, exists := js.config.Jobs[id]
	if !exists {
		return fmt.Errorf("job %s not found", id)
	}

	// Preserve creation time and ID
	updates.ID = existing.ID
	updates.CreatedAt = existing.CreatedAt
	updates.UpdatedAt = time.Now()

	if updates.Name == "" {
		updates.Name = existing.Name
	}

	js.config.Jobs[id] = updates
	return js.saveLocked()
}

// RemoveJob removes a job from the configuration.
func (js *JobStore) RemoveJob(id string) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	if _, exists := js.config.Jobs[id]; !exists {
		return fmt.Errorf("job %s not found", id)
	}

	delete(js.config.Jobs, id)
	return js.saveLocked()
}

// GetJob retrieves a job by ID.
func (js *JobStore) GetJob(id string) (JobConfig, bool) {
	js.mu.RLock()
	defer js.mu.RUnlock()

	job, exists := js.config.Jobs[id]
	return job, exists
}

// GetJobs returns a snapshot of all jobs.
func (js *JobStore) GetJobs() map[string]JobConfig {
	js.mu.RLock()
	defer js.mu.RUnlock()

	jobs := make(map[string]JobConfig, len(js.config.Jobs))
	for id, job := range js.config.Jobs {
		jobs[id] = job
	}
	return jobs
}

// GetEnabledJobs returns only enabled jobs.
func (js *JobStore) GetEnabledJobs() map[string]JobConfig {
	js.mu.RLock()
	defer js.mu.RUnlock()

	enabled := make(map[string]JobConfig)
	for id, job := range js.config.Jobs {
		if job.Enabled {
			enabled[id] = job
		}
	}
	return enabled
}

// EnableJob enables a job.
func (js *JobStore) EnableJob(id string) error {
	return js.setEnabled(id, true)
}

// DisableJob disables a job.
func (js *JobStore) DisableJob(id string) error {
	return js.setEnabled(id, false)
}

func (js *JobStore) setEnabled(id string, enabled bool) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	job, exists := js.config.Jobs[id]
	if !exists {
		return fmt.Errorf("job %s not found", id)
	}

	job.Enabled = enabled
	job.UpdatedAt = time.Now()
	js.config.Jobs[id] = job
	return js.saveLocked()
}

// BuildPipeline converts a job configuration into an argument pipeline.
func (job JobConfig) BuildPipeline(logger logging.Logger) *ffmpeg.Pipeline {
	p := ffmpeg.NewPipeline(logger)
	p.GlobalArgs(job.GlobalArgs...)

	for _, in := range job.Inputs {
		p.AddInput(in.URL).Args(in.Args...)
	}

	for _, out := range job.Outputs {
		targets := make([]ffmpeg.Target, len(out.URLs))
		for i, url := range out.URLs {
			targets[i] = ffmpeg.URLTarget(url)
		}
		o := p.AddOutput(targets...)
		o.VideoFilters(toFilters(out.VideoFilters)...)
		o.AudioFilters(toFilters(out.AudioFilters)...)
		o.Args(out.Args...)
	}

	return p
}

func toFilters(configs []FilterConfig) []ffmpeg.Filter {
	filters := make([]ffmpeg.Filter, len(configs))
	for i, fc := range configs {
		filters[i] = ffmpeg.Filter{Name: fc.Name, Args: fc.Args, Opts: fc.Opts}
	}
	return filters
}
