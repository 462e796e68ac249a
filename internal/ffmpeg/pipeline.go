// Package ffmpeg assembles FFmpeg argument vectors. A Pipeline collects
// global arguments, ordered inputs and ordered outputs; sources and
// destinations that are not plain paths or URLs are bridged through
// conduits so FFmpeg can open them by address.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/smazurov/ffdrive/internal/conduit"
	"github.com/smazurov/ffdrive/internal/logging"
	"github.com/smazurov/ffdrive/internal/process"
)

// ErrEmptyPipeline is returned by Args when the pipeline has no inputs or
// no outputs. This is always a caller bug, never a runtime condition.
var ErrEmptyPipeline = errors.New("pipeline requires at least one input and one output")

// machineChannelArgs pin FFmpeg's three channels to known roles: stdout
// carries key=value progress records, stderr carries leveled diagnostic
// lines, stdin stays available as the control channel.
var machineChannelArgs = []string{
	"-hide_banner",
	"-loglevel", "level+info",
	"-nostats",
	"-progress", "pipe:1",
	"-y",
}

// Pipeline accumulates the specification for one FFmpeg invocation. It is
// mutated only by its own configuration calls; once Start has been called
// the argument vector is fixed.
type Pipeline struct {
	logger     logging.Logger
	globalArgs []string
	inputs     []*Input
	outputs    []*Output
	conduits   []*conduit.Conduit
	err        error
}

// NewPipeline returns an empty pipeline. A nil logger falls back to the
// package module logger.
func NewPipeline(logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.GetLogger("ffmpeg")
	}
	return &Pipeline{logger: logger}
}

// GlobalArgs appends arguments that precede every input block, such as
// hardware device selection.
func (p *Pipeline) GlobalArgs(args ...string) *Pipeline {
	p.globalArgs = append(p.globalArgs, args...)
	return p
}

// Err reports the first configuration or conduit error recorded while
// building the pipeline. Once set it sticks; Args and Start return it.
func (p *Pipeline) Err() error {
	return p.err
}

// setErr records the first error and closes nothing: conduit cleanup is
// deferred to closeConduits so a failed build tears down uniformly.
func (p *Pipeline) setErr(err error) {
	if p.err == nil {
		p.err = err
	}
}

// newSourceConduit allocates a source conduit and tracks it for cleanup.
// On failure the pipeline error is set and an empty address returned.
func (p *Pipeline) newSourceConduit(r io.Reader) string {
	c, err := conduit.NewSource(r, p.logger)
	if err != nil {
		p.setErr(fmt.Errorf("failed to allocate source conduit: %w", err))
		return ""
	}
	p.conduits = append(p.conduits, c)
	return c.Addr()
}

// newSinkConduit allocates a sink conduit shared by the given writers.
func (p *Pipeline) newSinkConduit(ws []io.WriteCloser) string {
	c, err := conduit.NewSink(ws, p.logger)
	if err != nil {
		p.setErr(fmt.Errorf("failed to allocate sink conduit: %w", err))
		return ""
	}
	p.conduits = append(p.conduits, c)
	return c.Addr()
}

// closeConduits tears down every allocated conduit. Safe to call more than
// once, conduit close is idempotent.
func (p *Pipeline) closeConduits() {
	for _, c := range p.conduits {
		c.Close()
	}
}

// Close releases the pipeline's conduits without starting a process. Used
// when a built pipeline is discarded, for example after a dry-run of Args.
func (p *Pipeline) Close() {
	p.closeConduits()
}

// Args materializes the final argument vector: machine-channel prefix,
// global args, then each input's args and address, then each output's filter
// chains, args and address. Insertion order is preserved because it
// determines FFmpeg's positional stream indices.
func (p *Pipeline) Args() ([]string, error) {
	if p.err != nil {
		return nil, p.err
	}
	if len(p.inputs) == 0 || len(p.outputs) == 0 {
		return nil, ErrEmptyPipeline
	}

	args := make([]string, 0, 32)
	args = append(args, machineChannelArgs...)
	args = append(args, p.globalArgs...)

	for _, in := range p.inputs {
		args = append(args, in.args...)
		args = append(args, "-i", in.addr)
	}

	for _, out := range p.outputs {
		if len(out.videoFilters) > 0 {
			args = append(args, "-filter:v", joinFilters(out.videoFilters))
		}
		if len(out.audioFilters) > 0 {
			args = append(args, "-filter:a", joinFilters(out.audioFilters))
		}
		args = append(args, out.args...)
		args = append(args, out.addr)
	}

	return args, nil
}

// Start materializes the arguments and spawns FFmpeg. Every conduit is
// already listening by this point, so the process can never connect before
// a listener exists. Ownership of conduit shutdown passes to the handle's
// exit observer; on spawn failure the conduits are closed here instead.
// The caller supplies spawn options; the pipeline adds its conduits to the
// cleanup set and fills in a logger when none is given.
func (p *Pipeline) Start(ctx context.Context, binary string, opts process.Options) (*process.Handle, error) {
	args, err := p.Args()
	if err != nil {
		p.closeConduits()
		return nil, err
	}

	for _, c := range p.conduits {
		opts.Cleanup = append(opts.Cleanup, io.Closer(c))
	}
	if opts.Logger == nil {
		opts.Logger = p.logger
	}
	if opts.LogParser == nil {
		opts.LogParser = ParseLogLevel
	}

	handle, err := process.Spawn(ctx, binary, args, opts)
	if err != nil {
		p.closeConduits()
		return nil, err
	}
	return handle, nil
}
