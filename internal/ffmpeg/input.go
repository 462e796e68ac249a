package ffmpeg

import (
	"bytes"
	"io"
)

// Input is one input block of the argument vector. Its address is either
// the literal path/URL the caller gave or a generated conduit address when
// the source is an in-process byte stream.
type Input struct {
	pipeline *Pipeline
	addr     string
	args     []string
	streamed bool
}

// AddInput registers a literal path or URL input. The address is passed to
// FFmpeg verbatim.
func (p *Pipeline) AddInput(url string) *Input {
	in := &Input{pipeline: p, addr: url}
	p.inputs = append(p.inputs, in)
	return in
}

// AddInputReader registers a streamed input. The reader is bridged through
// a freshly allocated source conduit; its address never equals a literal
// path.
func (p *Pipeline) AddInputReader(r io.Reader) *Input {
	in := &Input{pipeline: p, addr: p.newSourceConduit(r), streamed: true}
	p.inputs = append(p.inputs, in)
	return in
}

// AddInputBuffer registers an in-memory byte slice as a streamed input.
func (p *Pipeline) AddInputBuffer(b []byte) *Input {
	return p.AddInputReader(bytes.NewReader(b))
}

// Args appends input-specific arguments. They are emitted before this
// input's -i marker, in the order given.
func (in *Input) Args(args ...string) *Input {
	in.args = append(in.args, args...)
	return in
}

// Streamed reports whether this input goes through a conduit.
func (in *Input) Streamed() bool {
	return in.streamed
}

// Addr returns the resolved input address.
func (in *Input) Addr() string {
	return in.addr
}
