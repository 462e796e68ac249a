package process

import (
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
)

// tailLines bounds how many trailing diagnostic lines are kept for error
// classification.
const tailLines = 40

// ExitError is the classified outcome of a non-zero exit. Message holds
// the most specific diagnostic line found in the drained tail, empty when
// none qualified.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("exited with code %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("exited with code %d", e.Code)
}

var (
	// Matches FFmpeg's component-attributed messages, the most specific
	// diagnostic shape: [matroska @ 0x5591...] Cannot write header.
	componentMsgRe = regexp.MustCompile(`\[[^\[\]@]+ @ [^\[\]]+\]\s*(.+)$`)

	// Matches generic "<label>: <detail>" diagnostics such as
	// "out.mkv: No such file or directory".
	labelMsgRe = regexp.MustCompile(`^([^\s:][^:]*): (.+)$`)
)

// classifyExit turns the raw wait error into the cached terminal outcome.
// Non-zero exits scan the diagnostic tail for the most specific message:
// a component-attributed line wins over a label line, which wins over the
// bare exit code.
func (h *Handle) classifyExit(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return err
	}
	return &ExitError{
		Code:    exitErr.ExitCode(),
		Message: mostSpecificMessage(h.tail.lines()),
	}
}

// mostSpecificMessage scans trailing diagnostic lines newest-first.
func mostSpecificMessage(lines []string) string {
	var labelMsg string
	for i := len(lines) - 1; i >= 0; i-- {
		line := stripLevelPrefix(lines[i])
		if m := componentMsgRe.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(line)
		}
		if labelMsg == "" {
			if m := labelMsgRe.FindStringSubmatch(line); m != nil {
				labelMsg = strings.TrimSpace(line)
			}
		}
	}
	return labelMsg
}

// stripLevelPrefix drops the "[level] " prefix that -loglevel level+info
// prepends, leaving component prefixes intact.
func stripLevelPrefix(line string) string {
	if len(line) < 3 || line[0] != '[' {
		return line
	}
	end := strings.Index(line, "] ")
	if end == -1 {
		return line
	}
	switch line[1:end] {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return line[end+2:]
	}
	return line
}

// tailBuffer is a fixed-size ring of the newest diagnostic lines.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []string
	next  int
	count int
}

func newTailBuffer(size int) *tailBuffer {
	return &tailBuffer{buf: make([]string, size)}
}

func (t *tailBuffer) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf[t.next] = line
	t.next = (t.next + 1) % len(t.buf)
	if t.count < len(t.buf) {
		t.count++
	}
}

// lines returns the retained lines oldest-first.
func (t *tailBuffer) lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, t.count)
	start := t.next - t.count
	if start < 0 {
		start += len(t.buf)
	}
	for i := 0; i < t.count; i++ {
		out = append(out, t.buf[(start+i)%len(t.buf)])
	}
	return out
}
