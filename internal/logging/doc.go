// Package logging builds the per-module slog loggers used across
// ffdrive and fans every record out to up to three destinations: the
// systemd journal, stdout, and an in-memory ring buffer backing the
// /api/logs/stream endpoint.
//
// # Usage
//
// Initialize once at startup, then hand out module loggers:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"process": "debug",
//			"api":     "warn",
//		},
//	})
//
//	logger := logging.GetLogger("jobs").With("job_id", id)
//	logger.Info("Job started", "pid", pid)
//
// GetLogger is safe before Initialize; loggers created early are
// retuned when configuration arrives, because each module's level
// lives in its own [log/slog.LevelVar].
//
// # Destinations
//
// Destinations are detected, not configured. The journal is used when
// [github.com/coreos/go-systemd/v22/journal.Enabled] reports a socket,
// stdout when the descriptor is usable, and the ring buffer always.
// With journald running:
//
//	journalctl -t ffdrive -f
//	journalctl -t ffdrive MODULE=process JOB_ID=archive
//
// # Levels
//
// The global level applies to every module without an override, and
// overrides win per module:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	process = "debug"
//	ffmpeg = "error"
package logging
