package ffmpeg

import "strings"

// diagnosticLevels are the level names FFmpeg prefixes to diagnostic
// lines when run with -loglevel level+info.
var diagnosticLevels = map[string]bool{
	"quiet":   true,
	"panic":   true,
	"fatal":   true,
	"error":   true,
	"warning": true,
	"info":    true,
	"verbose": true,
	"debug":   true,
	"trace":   true,
}

// ParseLogLevel splits a diagnostic line into its level and message.
// Plain lines look like "[info] message"; component-attributed lines
// look like "[matroska @ 0x...] [error] message". The level bracket is
// stripped, the component bracket is kept so classification can still
// see where the message came from. Lines without a recognizable level
// pass through at info.
func ParseLogLevel(line string) (level, msg string) {
	if len(line) < 3 || line[0] != '[' {
		return "info", line
	}

	end := strings.Index(line, "] ")
	if end == -1 {
		return "info", line
	}

	if bracket := line[1:end]; diagnosticLevels[bracket] {
		return bracket, line[end+2:]
	}

	// First bracket is a component; the level may follow it.
	component := line[:end+2]
	rest := line[end+2:]
	if len(rest) > 2 && rest[0] == '[' {
		if restEnd := strings.Index(rest, "] "); restEnd != -1 {
			if bracket := rest[1:restEnd]; diagnosticLevels[bracket] {
				return bracket, component + rest[restEnd+2:]
			}
		}
	}

	return "info", line
}
