// Package mediainfo reconstructs structured per-input format, stream and
// chapter records from FFmpeg's human-readable diagnostic output.
package mediainfo

import "time"

// Metadata is an ordered key→value mapping. FFmpeg wraps long metadata
// values across lines; continuation lines are appended to the most
// recently set key with a newline separator.
type Metadata struct {
	keys    []string
	values  map[string]string
	lastKey string
}

// Set stores a value under key, preserving first-insertion order.
func (m *Metadata) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
	m.lastKey = key
}

// Continue appends a continuation line to the previously set key.
// A continuation before any key has been set is dropped.
func (m *Metadata) Continue(value string) {
	if m.lastKey == "" {
		return
	}
	m.values[m.lastKey] += "\n" + value
}

// Get returns the value for key and whether it was present.
func (m *Metadata) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Metadata) Keys() []string {
	return m.keys
}

// Len returns the number of keys.
func (m *Metadata) Len() int {
	return len(m.keys)
}

// Map returns a plain map copy of the metadata.
func (m *Metadata) Map() map[string]string {
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Format describes one input's container-level information.
type Format struct {
	Filename string
	Name     string // container name(s) as reported, e.g. "matroska,webm"
	Start    time.Duration
	Duration *time.Duration // nil when reported as N/A
	BitRate  *int64         // bits per second, nil when reported as N/A
	Metadata Metadata
}

// Stream describes one elementary stream within an input.
type Stream struct {
	ID       string // "N:M" as printed, e.g. "0:1"
	Desc     string // remainder of the stream line, e.g. "(eng): Video: h264 ..."
	Metadata Metadata
}

// Chapter describes one chapter within an input.
type Chapter struct {
	ID       string
	Start    time.Duration
	End      time.Duration
	Metadata Metadata
}

// Input is the fully reconstructed record for one "Input #N" section.
type Input struct {
	Index    int
	Format   Format
	Streams  []Stream
	Chapters []Chapter
}
