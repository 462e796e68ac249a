package ffmpeg

import (
	"fmt"
	"strings"
)

// ConcatEntry is one source in a concatenation. Duration, InPoint and
// OutPoint are in milliseconds; zero means the directive is omitted.
type ConcatEntry struct {
	Path     string
	Duration int64
	InPoint  int64
	OutPoint int64
}

// ConcatOptions adjusts concat input behavior.
type ConcatOptions struct {
	// Protocols widens the protocol whitelist beyond the conduit's own
	// delivery protocol. By default the entries may only reference the
	// protocol used to deliver the concat document itself, which keeps a
	// hostile entry list from reaching arbitrary protocols.
	Protocols []string
}

// AddConcatInput synthesizes an ffconcat directive document from the
// entries and feeds it through a source conduit, so the list itself never
// touches the filesystem.
func (p *Pipeline) AddConcatInput(entries []ConcatEntry, opts *ConcatOptions) *Input {
	doc := buildConcatDocument(entries)
	addr := p.newSourceConduit(strings.NewReader(doc))

	whitelist := []string{deliveryProtocol(addr)}
	if opts != nil {
		whitelist = append(whitelist, opts.Protocols...)
	}

	in := &Input{pipeline: p, addr: addr, streamed: true}
	in.Args(
		"-f", "concat",
		"-safe", "0",
		"-protocol_whitelist", strings.Join(whitelist, ","),
	)
	p.inputs = append(p.inputs, in)
	return in
}

// buildConcatDocument renders the ffconcat v1.0 directive form. Millisecond
// fields become fractional seconds; file paths are single-quoted with
// embedded quotes escaped the shell-like way FFmpeg expects.
func buildConcatDocument(entries []ConcatEntry) string {
	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	for _, e := range entries {
		b.WriteString("file '" + escapeConcatPath(e.Path) + "'\n")
		if e.Duration > 0 {
			fmt.Fprintf(&b, "duration %s\n", millisToSeconds(e.Duration))
		}
		if e.InPoint > 0 {
			fmt.Fprintf(&b, "inpoint %s\n", millisToSeconds(e.InPoint))
		}
		if e.OutPoint > 0 {
			fmt.Fprintf(&b, "outpoint %s\n", millisToSeconds(e.OutPoint))
		}
	}
	return b.String()
}

func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}

func millisToSeconds(ms int64) string {
	return fmt.Sprintf("%d.%03d", ms/1000, ms%1000)
}

// deliveryProtocol extracts the scheme of a conduit address, the one
// protocol concat entries may use unless the caller widens the whitelist.
func deliveryProtocol(addr string) string {
	if scheme, _, ok := strings.Cut(addr, "://"); ok {
		return scheme
	}
	return "file"
}
