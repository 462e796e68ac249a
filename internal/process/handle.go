package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/smazurov/ffdrive/internal/logging"
)

// OutputHandler receives diagnostic lines from the subprocess.
// Implementations can feed metadata parsers, store tails, etc.
type OutputHandler interface {
	HandleLine(source, line string)
}

// LogParser parses a diagnostic line and returns the log level and message.
// Used to extract structured log info from process output.
type LogParser func(line string) (level, msg string)

// ErrAlreadyExited is returned by Abort when the process has already
// reached a terminal state. Aborting an exited process is a caller bug.
var ErrAlreadyExited = errors.New("cannot abort: process already exited")

// Options configures a spawned process.
type Options struct {
	// Logger for lifecycle events. If nil, the package module logger is
	// used.
	Logger logging.Logger

	// ProcessLogger receives the subprocess's re-logged diagnostic lines
	// (nil = use Logger).
	ProcessLogger logging.Logger

	// LogParser extracts log levels from diagnostic lines (nil = every
	// line logs at info).
	LogParser LogParser

	// OutputHandler observes every diagnostic line (optional).
	OutputHandler OutputHandler

	// Cleanup is closed when the process exits, whatever the outcome.
	// Used to tear down conduits still listening after a failed launch.
	Cleanup []io.Closer

	// KillDelay bounds how long exit waits after a cancelled context's
	// interrupt before force-killing. Zero means 5s.
	KillDelay time.Duration
}

// Handle wraps one spawned process instance. Created by Spawn, mutated
// only by the process's own exit notification.
type Handle struct {
	binary string
	args   []string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger logging.Logger

	progress chan Progress
	tail     *tailBuffer

	exited  atomic.Bool
	done    chan struct{}
	waitErr error

	cleanup []io.Closer
}

// Spawn starts the binary with the given argument vector. stdout is
// consumed as the machine-readable progress channel, stderr as the
// diagnostic channel, and stdin is kept open as the control channel.
// Every conduit in opts.Cleanup must already be listening: the process can
// try to connect the moment it starts.
func Spawn(ctx context.Context, binary string, args []string, opts Options) (*Handle, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("process")
	}
	killDelay := opts.KillDelay
	if killDelay == 0 {
		killDelay = 5 * time.Second
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.SysProcAttr = sysProcAttr()
	// Context cancellation asks the process to stop before the WaitDelay
	// force kill.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = killDelay

	stdin, err := cmd.StdinPipe()
	if err != nil {
		closeAll(opts.Cleanup)
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		closeAll(opts.Cleanup)
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		closeAll(opts.Cleanup)
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		closeAll(opts.Cleanup)
		return nil, fmt.Errorf("failed to start %s: %w", binary, err)
	}

	logger.Info("Process started", "binary", binary, "pid", cmd.Process.Pid)

	h := &Handle{
		binary:   binary,
		args:     args,
		cmd:      cmd,
		stdin:    stdin,
		logger:   logger,
		progress: make(chan Progress, 8),
		tail:     newTailBuffer(tailLines),
		done:     make(chan struct{}),
		cleanup:  opts.Cleanup,
	}

	outputDone := make(chan struct{}, 2)
	go func() {
		h.decodeProgress(stdout)
		outputDone <- struct{}{}
	}()
	go func() {
		h.streamDiagnostics(stderr, opts)
		outputDone <- struct{}{}
	}()
	go h.observeExit(outputDone)

	return h, nil
}

// Pid returns the OS process id.
func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

// Binary returns the executable path the process was spawned with.
func (h *Handle) Binary() string {
	return h.binary
}

// Args returns the argument vector the process was spawned with.
func (h *Handle) Args() []string {
	return h.args
}

// Exited reports whether the process has reached a terminal state.
func (h *Handle) Exited() bool {
	return h.exited.Load()
}

// Done is closed once the process has exited and cleanup has run.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Progress returns the snapshot sequence decoded from the progress
// channel. The same channel is returned on every call: the sequence is
// finite and not restartable. It is closed after the end-of-stream record
// or when the channel goes away.
func (h *Handle) Progress() <-chan Progress {
	return h.progress
}

// Wait blocks until the process reaches its terminal state and returns
// the classified outcome. Idempotent: the error is derived once from exit
// code and drained diagnostics, then cached, so repeated calls see
// identical diagnostics.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.waitErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Abort requests graceful termination by writing the quit command on the
// control channel, then waits for completion. Calling Abort after exit
// returns ErrAlreadyExited without sending anything.
func (h *Handle) Abort(ctx context.Context) error {
	if h.exited.Load() {
		return ErrAlreadyExited
	}
	if _, err := io.WriteString(h.stdin, "q"); err != nil {
		return fmt.Errorf("failed to write quit command: %w", err)
	}
	h.logger.Info("Abort requested", "pid", h.cmd.Process.Pid)
	return h.Wait(ctx)
}

// Pause suspends the process at the OS level. Returns false without
// effect once the process has exited; callers are not required to check
// state first.
func (h *Handle) Pause() bool {
	if h.exited.Load() {
		return false
	}
	if err := suspendProcess(h.cmd.Process.Pid); err != nil {
		h.logger.Warn("Failed to suspend process", "pid", h.cmd.Process.Pid, "error", err)
		return false
	}
	return true
}

// Resume continues a paused process. Returns false once exited.
func (h *Handle) Resume() bool {
	if h.exited.Load() {
		return false
	}
	if err := resumeProcess(h.cmd.Process.Pid); err != nil {
		h.logger.Warn("Failed to resume process", "pid", h.cmd.Process.Pid, "error", err)
		return false
	}
	return true
}

// Kill delivers a signal directly, bypassing Abort's graceful-quit
// contract. Escape hatch for callers with their own deadlines.
func (h *Handle) Kill(sig os.Signal) error {
	if err := h.cmd.Process.Signal(sig); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return err
	}
	return nil
}

// observeExit waits for both output streams to drain, reaps the process,
// classifies the outcome once, and closes every cleanup closer. Conduit
// close is idempotent so racing an explicit Close is harmless.
func (h *Handle) observeExit(outputDone <-chan struct{}) {
	<-outputDone
	<-outputDone

	err := h.cmd.Wait()
	h.waitErr = h.classifyExit(err)
	h.exited.Store(true)

	if h.waitErr == nil {
		h.logger.Info("Process exited", "pid", h.cmd.Process.Pid, "exit_code", 0)
	} else {
		h.logger.Error("Process exited with error", "pid", h.cmd.Process.Pid, "error", h.waitErr)
	}

	closeAll(h.cleanup)
	close(h.done)
}

// streamDiagnostics consumes the diagnostic channel line by line: the
// tail ring feeds error classification, the handler feeds metadata
// parsing, and each line is re-logged at its parsed level.
func (h *Handle) streamDiagnostics(r io.Reader, opts Options) {
	logger := opts.ProcessLogger
	if logger == nil {
		logger = h.logger
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		h.tail.add(line)

		if opts.OutputHandler != nil {
			opts.OutputHandler.HandleLine("stderr", line)
		}

		level, msg := "info", line
		if opts.LogParser != nil {
			level, msg = opts.LogParser(line)
		}
		switch level {
		case "panic", "fatal", "error":
			logger.Error(msg)
		case "warning":
			logger.Warn(msg)
		case "verbose", "debug", "trace":
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
	}

	if err := scanner.Err(); err != nil {
		h.logger.Warn("Error reading diagnostics", "error", err)
	}
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		c.Close()
	}
}
