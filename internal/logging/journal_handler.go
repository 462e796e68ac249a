package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// journalIdentifier is the SYSLOG_IDENTIFIER attached to every entry
// so journalctl -t ffdrive finds them.
const journalIdentifier = "ffdrive"

// JournalHandler is a slog.Handler that writes structured entries to
// the systemd journal. Attribute keys become uppercase journal fields
// with group names joined by underscores.
type JournalHandler struct {
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewJournalHandler creates a journal handler gated at level.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level}
}

func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle sends one record to the journal. On journal failure the
// record is echoed to stderr so it is not lost entirely.
func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	priority := journalPriority(r.Level)

	fields := map[string]string{
		"PRIORITY":          strconv.Itoa(int(priority)),
		"MESSAGE":           r.Message,
		"SYSLOG_IDENTIFIER": journalIdentifier,
	}
	for _, attr := range h.attrs {
		flattenJournalAttr(fields, attr, h.groups)
	}
	r.Attrs(func(attr slog.Attr) bool {
		flattenJournalAttr(fields, attr, h.groups)
		return true
	})

	if err := journal.Send(r.Message, priority, fields); err != nil {
		fmt.Fprintf(os.Stderr, "journal write failed: %v\n", err)
		return err
	}
	return nil
}

func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := slices.Clip(slices.Clone(h.attrs))
	return &JournalHandler{
		level:  h.level,
		attrs:  append(merged, attrs...),
		groups: h.groups,
	}
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &JournalHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: append(slices.Clip(slices.Clone(h.groups)), name),
	}
}

// journalPriority maps slog levels onto syslog priorities.
func journalPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// flattenJournalAttr renders one attribute into journal fields, recursing
// through groups with an underscore-joined key prefix.
func flattenJournalAttr(fields map[string]string, attr slog.Attr, groups []string) {
	if attr.Equal(slog.Attr{}) {
		return
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, "_") + "_" + key
	}
	key = strings.ToUpper(key)

	switch attr.Value.Kind() {
	case slog.KindString:
		fields[key] = attr.Value.String()
	case slog.KindInt64:
		fields[key] = strconv.FormatInt(attr.Value.Int64(), 10)
	case slog.KindUint64:
		fields[key] = strconv.FormatUint(attr.Value.Uint64(), 10)
	case slog.KindFloat64:
		fields[key] = strconv.FormatFloat(attr.Value.Float64(), 'f', -1, 64)
	case slog.KindBool:
		fields[key] = strconv.FormatBool(attr.Value.Bool())
	case slog.KindDuration:
		fields[key] = attr.Value.Duration().String()
	case slog.KindTime:
		fields[key] = attr.Value.Time().Format("2006-01-02T15:04:05.000Z07:00")
	case slog.KindGroup:
		nested := append(slices.Clone(groups), key)
		for _, a := range attr.Value.Group() {
			flattenJournalAttr(fields, a, nested)
		}
	default:
		fields[key] = attr.Value.String()
	}
}

// IsJournalAvailable reports whether a systemd journal socket is
// reachable from this process.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
