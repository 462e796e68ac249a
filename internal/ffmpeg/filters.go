package ffmpeg

import (
	"sort"
	"strings"
)

// Filter describes one node of a filter graph. It stringifies to the
// filter-graph syntax FFmpeg expects, with labels in brackets and options
// separated by colons:
//
//	[0:v]scale=w=1280:h=720[scaled]
type Filter struct {
	Name    string
	Inputs  []string
	Outputs []string
	Args    []string          // positional option values
	Opts    map[string]string // keyed option values
}

// String renders the filter in graph syntax. Positional args come first,
// keyed options follow in sorted key order so output is deterministic.
func (f Filter) String() string {
	var b strings.Builder

	for _, in := range f.Inputs {
		b.WriteString("[" + in + "]")
	}

	b.WriteString(f.Name)

	parts := make([]string, 0, len(f.Args)+len(f.Opts))
	for _, a := range f.Args {
		parts = append(parts, escapeFilterValue(a))
	}
	keys := make([]string, 0, len(f.Opts))
	for k := range f.Opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+escapeFilterValue(f.Opts[k]))
	}
	if len(parts) > 0 {
		b.WriteString("=" + strings.Join(parts, ":"))
	}

	for _, out := range f.Outputs {
		b.WriteString("[" + out + "]")
	}

	return b.String()
}

// joinFilters renders a filter chain joined with commas, the form -filter:v
// and -filter:a take.
func joinFilters(filters []Filter) string {
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = f.String()
	}
	return strings.Join(parts, ",")
}

// escapeFilterValue backslash-escapes the characters that are syntax inside
// a filter description. This rule is distinct from tee-component escaping.
func escapeFilterValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\', '\'', ':', ',', ';', '[', ']':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
