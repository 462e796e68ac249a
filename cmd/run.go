package cmd

import (
	"os"
	"os/signal"
	"slices"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/smazurov/ffdrive/internal/config"
	"github.com/smazurov/ffdrive/internal/jobs"
	"github.com/smazurov/ffdrive/internal/logging"
	"github.com/smazurov/ffdrive/internal/process"
	"github.com/spf13/cobra"
)

// CreateRunCmd creates the run command.
func CreateRunCmd() *cobra.Command {
	var configFile string
	var binary string
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "run [job-id]",
		Short: "Run a single transcode job",
		Long: `Spawns and supervises an FFmpeg process for the specified job ID. ` +
			`Loads configuration from jobs.toml and handles process lifecycle including graceful shutdown.`,
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			jobID := args[0]

			// Initialize minimal logging
			loggingConfig := logging.Config{
				Level:  "info",
				Format: "text",
			}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			// Create logger with job_id context for journal integration
			logger := logging.GetLogger("jobs").With("job_id", jobID)

			logger.Info("Starting run command", "config", configFile)

			// Load job store
			jobStore := config.NewJobStore(configFile)
			if err := jobStore.Load(); err != nil {
				logger.Error("Failed to load jobs configuration", "error", err, "config", configFile)
				os.Exit(1)
			}

			// Verify job exists
			job, exists := jobStore.GetJob(jobID)
			if !exists {
				logger.Error("Job not found")
				os.Exit(1)
			}

			// Capture the argument vector used for change detection on reload
			currentArgs, err := buildJobArgs(job)
			if err != nil {
				logger.Error("Failed to build job arguments", "error", err)
				os.Exit(1)
			}

			// Signal when the job reaches a terminal state. Transitions
			// caused by a hot-reload restart are not terminal.
			done := make(chan int, 1)
			var doneOnce sync.Once
			var restarting atomic.Bool
			finish := func(code int) {
				doneOnce.Do(func() { done <- code })
			}

			manager := jobs.NewManager(jobs.Options{
				Store:         jobStore,
				Binary:        binary,
				Logger:        logger,
				ProcessLogger: logging.GetLogger("ffmpeg"),
				OnStateChange: func(_ string, _, newState process.State, err error) {
					if newState != process.StateIdle && newState != process.StateError {
						return
					}
					if restarting.Load() {
						return
					}
					if err != nil {
						finish(1)
						return
					}
					finish(0)
				},
			})

			// Create typed config watcher with fresh config loading
			jobsLoader := func(path string) (map[string]config.JobConfig, error) {
				s := config.NewJobStore(path)
				if err := s.Load(); err != nil {
					return nil, err
				}
				return s.GetJobs(), nil
			}

			watcher := config.NewConfigWatcher(
				configFile,
				jobsLoader,
				logging.GetLogger("jobs"),
				config.WithDebounce[map[string]config.JobConfig](1500*time.Millisecond),
			)

			watcher.OnReload(func(allJobs map[string]config.JobConfig) {
				// Check if job still exists in fresh config
				freshJob, ok := allJobs[jobID]
				if !ok {
					logger.Warn("Job removed from config, shutting down")
					if err := manager.Stop(jobID); err != nil {
						logger.Warn("Failed to stop job", "error", err)
					}
					finish(0)
					return
				}

				// Regenerate arguments with fresh job config
				newArgs, err := buildJobArgs(freshJob)
				if err != nil {
					logger.Warn("Failed to regenerate arguments", "error", err)
					return
				}

				// Compare and restart if arguments changed
				if !slices.Equal(newArgs, currentArgs) {
					logger.Info("Arguments changed, restarting job")
					if err := jobStore.Load(); err != nil {
						logger.Warn("Failed to reload job store", "error", err)
						return
					}
					restarting.Store(true)
					err := manager.Restart(jobID)
					restarting.Store(false)
					if err != nil {
						logger.Error("Failed to restart job", "error", err)
						finish(1)
						return
					}
					currentArgs = newArgs
				} else {
					logger.Debug("Config reloaded, arguments unchanged")
				}
			})

			// Start config watcher (non-fatal if it fails)
			if err := watcher.Start(); err != nil {
				logger.Warn("Failed to start config watcher, hot-reload disabled", "error", err)
			} else {
				defer func() { _ = watcher.Stop() }()
			}

			if err := manager.Start(jobID); err != nil {
				logger.Error("Failed to start job", "error", err)
				os.Exit(1)
			}

			// Handle shutdown signals
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			var exitCode int
			select {
			case sig := <-sigCh:
				logger.Info("Received signal, stopping job", "signal", sig.String())
				if err := manager.Stop(jobID); err != nil {
					logger.Warn("Failed to stop job", "error", err)
				}
				exitCode = <-done
			case exitCode = <-done:
			}
			manager.StopAll()

			logger.Info("Run command exiting", "exit_code", exitCode)
			os.Exit(exitCode)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "jobs.toml", "Path to jobs configuration file")
	cmd.Flags().StringVar(&binary, "ffmpeg", "ffmpeg", "Path to the FFmpeg binary")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}

// buildJobArgs renders a job's full FFmpeg argument vector without
// starting anything. Conduit endpoints are discarded afterwards.
func buildJobArgs(job config.JobConfig) ([]string, error) {
	p := job.BuildPipeline(nil)
	defer p.Close()
	return p.Args()
}
