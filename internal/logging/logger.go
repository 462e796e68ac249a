package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// historyCapacity bounds how many entries the log stream endpoint can
// replay to a newly connected client.
const historyCapacity = 1000

// Logger is the four-method surface the rest of ffdrive logs through.
// *slog.Logger satisfies it, so module loggers pass as-is while tests
// can substitute a discard logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

var (
	regMu         sync.RWMutex
	initialized   bool
	activeConfig  Config
	defaultLevel  = &slog.LevelVar{}
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevels  = make(map[string]*slog.LevelVar)
	history       *RingBuffer
	entryCallback LogCallback
)

// Initialize configures the logging system. Module loggers handed out
// before this call keep working: their LevelVars are retuned and their
// handlers rebuilt so the ring buffer and journal attach retroactively.
func Initialize(config Config) {
	regMu.Lock()
	defer regMu.Unlock()

	activeConfig = config
	initialized = true
	history = NewRingBuffer(historyCapacity)

	level, ok := parseLevel(config.Level)
	if !ok {
		level = slog.LevelInfo
	}
	defaultLevel.Set(level)

	for module, lv := range moduleLevels {
		lv.Set(levelFor(module, level))
		moduleLoggers[module] = slog.New(newHandlerChain(config.Format, lv)).With("module", module)
	}

	slog.SetDefault(slog.New(newHandlerChain(config.Format, defaultLevel)))
}

// levelFor resolves a module's level from the active config. Callers must
// hold regMu.
func levelFor(module string, fallback slog.Level) slog.Level {
	if s, ok := activeConfig.Modules[module]; ok {
		if level, ok := parseLevel(s); ok {
			return level
		}
	}
	return fallback
}

// GetBuffer returns the ring buffer holding recent log entries.
func GetBuffer() *RingBuffer {
	regMu.RLock()
	defer regMu.RUnlock()
	return history
}

// SetLogCallback registers a callback invoked for every new log entry.
// The server uses it to publish entries on the event bus.
func SetLogCallback(callback LogCallback) {
	regMu.Lock()
	defer regMu.Unlock()
	entryCallback = callback
}

// GetLogger returns the logger for a module, creating it on first use.
// Each module carries its own LevelVar so levels can change at runtime.
func GetLogger(module string) *slog.Logger {
	regMu.RLock()
	if logger, ok := moduleLoggers[module]; ok {
		regMu.RUnlock()
		return logger
	}
	regMu.RUnlock()

	regMu.Lock()
	defer regMu.Unlock()

	// Another goroutine may have won the upgrade race.
	if logger, ok := moduleLoggers[module]; ok {
		return logger
	}

	level := slog.LevelInfo
	format := "text"
	if initialized {
		if l, ok := parseLevel(activeConfig.Level); ok {
			level = l
		}
		level = levelFor(module, level)
		format = activeConfig.Format
	}

	lv := &slog.LevelVar{}
	lv.Set(level)

	logger := slog.New(newHandlerChain(format, lv)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevels[module] = lv
	return logger
}

// newHandlerChain assembles the output fan-out for one logger: stdout
// when something is attached to it, the journal when running under
// systemd, and always the ring buffer feeding the log stream endpoint.
// Level is a Leveler so LevelVar retunes apply without a rebuild.
func newHandlerChain(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdout slog.Handler
	if format == "json" {
		stdout = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdout = slog.NewTextHandler(os.Stdout, opts)
	}

	var handlers []slog.Handler
	if stdoutAttached() {
		handlers = append(handlers, stdout)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	handlers = append(handlers, NewBufferHandler(level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// stdoutAttached reports whether stdout goes anywhere useful. A terminal,
// pipe, socket or regular file counts; /dev/null does not.
func stdoutAttached() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}

// parseLevel maps a config string to a slog level.
func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}

// resetRegistry clears all logger state. Test use only.
func resetRegistry() {
	regMu.Lock()
	defer regMu.Unlock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevels = make(map[string]*slog.LevelVar)
	activeConfig = Config{}
	initialized = false
}
