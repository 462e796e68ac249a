package ffmpeg

import (
	"io"
	"os"
	"strings"
)

// Target is one destination of an output: a literal path/URL or an
// in-process writer. Build targets with URLTarget and WriterTarget.
type Target struct {
	url    string
	writer io.WriteCloser
}

// URLTarget addresses a destination FFmpeg can open itself.
func URLTarget(url string) Target {
	return Target{url: url}
}

// WriterTarget delivers output bytes to an in-process writer through a
// sink conduit. The writer is closed when FFmpeg finishes writing.
func WriterTarget(w io.WriteCloser) Target {
	return Target{writer: w}
}

// Output is one output block of the argument vector.
type Output struct {
	pipeline     *Pipeline
	addr         string
	args         []string
	videoFilters []Filter
	audioFilters []Filter
	streamed     bool
}

// AddOutput registers an output. Resolution depends on the target set:
// zero targets discard the output to the null device (the pipeline still
// runs, callers may only want progress or metadata), a single literal
// target is used verbatim, and any other combination shares one sink
// conduit among all writers and composes a tee address over every
// component.
func (p *Pipeline) AddOutput(targets ...Target) *Output {
	out := &Output{pipeline: p}
	out.addr, out.streamed = p.resolveOutput(targets)
	p.outputs = append(p.outputs, out)
	return out
}

func (p *Pipeline) resolveOutput(targets []Target) (addr string, streamed bool) {
	if len(targets) == 0 {
		return os.DevNull, false
	}
	if len(targets) == 1 && targets[0].writer == nil {
		return targets[0].url, false
	}

	var writers []io.WriteCloser
	var components []string
	conduitAdded := false
	for _, t := range targets {
		if t.writer != nil {
			writers = append(writers, t.writer)
			if !conduitAdded {
				// All writers share one conduit; it occupies the
				// position of the first writer target.
				components = append(components, "")
				conduitAdded = true
			}
			continue
		}
		components = append(components, t.url)
	}

	if len(writers) > 0 {
		conduitAddr := p.newSinkConduit(writers)
		for i, comp := range components {
			if comp == "" && conduitAdded {
				components[i] = conduitAddr
				conduitAdded = false
			}
		}
		streamed = true
	}

	if len(components) == 1 {
		return components[0], streamed
	}

	escaped := make([]string, len(components))
	for i, comp := range components {
		escaped[i] = escapeTeeComponent(comp)
	}
	return "tee:" + strings.Join(escaped, "|"), streamed
}

// Args appends output-specific arguments, emitted after the filter chains
// and before this output's address.
func (o *Output) Args(args ...string) *Output {
	o.args = append(o.args, args...)
	return o
}

// VideoFilters appends to the output's video filter chain, joined with
// commas into a single -filter:v value.
func (o *Output) VideoFilters(filters ...Filter) *Output {
	o.videoFilters = append(o.videoFilters, filters...)
	return o
}

// AudioFilters appends to the output's audio filter chain.
func (o *Output) AudioFilters(filters ...Filter) *Output {
	o.audioFilters = append(o.audioFilters, filters...)
	return o
}

// Streamed reports whether this output feeds at least one in-process
// writer.
func (o *Output) Streamed() bool {
	return o.streamed
}

// Addr returns the resolved output address.
func (o *Output) Addr() string {
	return o.addr
}

// escapeTeeComponent backslash-escapes the characters the tee addressing
// syntax treats as structure. This rule is distinct from filter escaping.
func escapeTeeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\', '\'', ' ', '|', '[', ']':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
