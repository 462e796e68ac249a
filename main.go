package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/ffdrive/cmd"
	"github.com/smazurov/ffdrive/internal/api"
	"github.com/smazurov/ffdrive/internal/config"
	"github.com/smazurov/ffdrive/internal/events"
	"github.com/smazurov/ffdrive/internal/jobs"
	"github.com/smazurov/ffdrive/internal/logging"
	"github.com/smazurov/ffdrive/internal/metrics/exporters"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Jobs settings
	JobsConfigFile string `help:"Job definitions file" default:"jobs.toml" toml:"jobs.config_file" env:"JOBS_CONFIG_FILE"`
	JobsAutostart  bool   `help:"Start enabled jobs on launch" default:"true" toml:"jobs.autostart" env:"JOBS_AUTOSTART"`

	// FFmpeg settings
	FFmpegBinary string `help:"FFmpeg executable" default:"ffmpeg" toml:"ffmpeg.binary" env:"FFMPEG_BINARY"`

	// Metrics settings
	MetricsPrometheusEnabled bool `help:"Enable Prometheus endpoint" default:"true" toml:"metrics.prometheus_enabled" env:"METRICS_PROMETHEUS_ENABLED"`
	MetricsSSEEnabled        bool `help:"Enable SSE metrics export" default:"true" toml:"metrics.sse_enabled" env:"METRICS_SSE_ENABLED"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingProcess string `help:"Process supervision logging level" default:"info" toml:"logging.process" env:"LOGGING_PROCESS"`
	LoggingFFmpeg  string `help:"FFmpeg diagnostic logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingJobs    string `help:"Job manager logging level" default:"info" toml:"logging.jobs" env:"LOGGING_JOBS"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func main() {
	// Create Huma CLI
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		loggingConfig := logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"process": opts.LoggingProcess,
				"ffmpeg":  opts.LoggingFFmpeg,
				"jobs":    opts.LoggingJobs,
				"api":     opts.LoggingAPI,
			},
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()

		// Bridge log entries onto the bus for the SSE log stream
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		// Load job definitions
		jobStore := config.NewJobStore(opts.JobsConfigFile)
		if loadErr := jobStore.Load(); loadErr != nil {
			logger.Warn("Failed to load job definitions", "error", loadErr)
		}

		manager := jobs.NewManager(jobs.Options{
			Store:         jobStore,
			Bus:           eventBus,
			Binary:        opts.FFmpegBinary,
			Logger:        logging.GetLogger("jobs"),
			ProcessLogger: logging.GetLogger("ffmpeg"),
		})

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Manager:      manager,
			Store:        jobStore,
			EventBus:     eventBus,
		}

		// Add Prometheus handler if enabled
		if opts.MetricsPrometheusEnabled {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
		}

		server := api.NewServer(apiOpts)

		// Wire up periodic SSE metrics snapshots if configured
		var sseExporter *exporters.SSEExporter
		if opts.MetricsSSEEnabled {
			sseExporter = exporters.NewSSEExporter(eventBus)
		}

		hooks.OnStart(func() {
			if sseExporter != nil {
				sseExporter.Start(context.Background())
			}

			if opts.JobsAutostart {
				manager.StartEnabled()
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Stop all FFmpeg processes after the server stops accepting
			// new requests
			manager.StopAll()

			if sseExporter != nil {
				sseExporter.Stop()
			}
		})
	})

	// Add run command for one-off pipelines
	cli.Root().AddCommand(cmd.CreateRunCmd())

	// Add args command for dry-run inspection
	cli.Root().AddCommand(cmd.CreateArgsCmd())

	// Run the CLI
	cli.Run()
}
