package ffmpeg

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func isConduitAddr(addr string) bool {
	return strings.HasPrefix(addr, "unix://") || strings.HasPrefix(addr, "tcp://")
}

func TestArgsRequiresInputAndOutput(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *Pipeline)
	}{
		{"empty pipeline", func(p *Pipeline) {}},
		{"input only", func(p *Pipeline) { p.AddInput("in.mkv") }},
		{"output only", func(p *Pipeline) { p.AddOutput(URLTarget("out.mkv")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(testLogger())
			tt.setup(p)
			defer p.closeConduits()

			if _, err := p.Args(); !errors.Is(err, ErrEmptyPipeline) {
				t.Errorf("expected ErrEmptyPipeline, got %v", err)
			}
		})
	}
}

func TestArgsOrder(t *testing.T) {
	p := NewPipeline(testLogger())
	p.GlobalArgs("-hwaccel", "vaapi")
	p.AddInput("first.mkv").Args("-ss", "10")
	p.AddInput("second.mkv")
	p.AddOutput(URLTarget("out.mkv")).
		VideoFilters(Filter{Name: "hflip"}).
		AudioFilters(Filter{Name: "anull"}).
		Args("-c:v", "libx264")

	args, err := p.Args()
	if err != nil {
		t.Fatalf("Args failed: %v", err)
	}

	expected := append(slices.Clone(machineChannelArgs),
		"-hwaccel", "vaapi",
		"-ss", "10", "-i", "first.mkv",
		"-i", "second.mkv",
		"-filter:v", "hflip",
		"-filter:a", "anull",
		"-c:v", "libx264",
		"out.mkv",
	)
	if !slices.Equal(args, expected) {
		t.Errorf("argument order mismatch:\n got %q\nwant %q", args, expected)
	}
}

func TestStreamedInputsGetUniqueConduitAddresses(t *testing.T) {
	p := NewPipeline(testLogger())
	defer p.closeConduits()

	a := p.AddInputBuffer([]byte("abc"))
	b := p.AddInputReader(strings.NewReader("def"))

	for name, in := range map[string]*Input{"buffer": a, "reader": b} {
		if !in.Streamed() {
			t.Errorf("%s input not marked streamed", name)
		}
		if !isConduitAddr(in.Addr()) {
			t.Errorf("%s input address %q is not a conduit address", name, in.Addr())
		}
	}
	if a.Addr() == b.Addr() {
		t.Errorf("two streamed inputs share address %q", a.Addr())
	}
}

func TestOutputResolution(t *testing.T) {
	t.Run("zero targets discard", func(t *testing.T) {
		p := NewPipeline(testLogger())
		out := p.AddOutput()
		if out.Addr() != os.DevNull {
			t.Errorf("expected %q, got %q", os.DevNull, out.Addr())
		}
		if out.Streamed() {
			t.Error("discard output should not be streamed")
		}
	})

	t.Run("single literal verbatim", func(t *testing.T) {
		p := NewPipeline(testLogger())
		out := p.AddOutput(URLTarget("rtmp://example/live"))
		if out.Addr() != "rtmp://example/live" {
			t.Errorf("expected literal address, got %q", out.Addr())
		}
	})

	t.Run("single writer gets conduit", func(t *testing.T) {
		p := NewPipeline(testLogger())
		defer p.closeConduits()

		out := p.AddOutput(WriterTarget(nopWriteCloser{io.Discard}))
		if !isConduitAddr(out.Addr()) {
			t.Errorf("expected conduit address, got %q", out.Addr())
		}
		if !out.Streamed() {
			t.Error("writer output should be streamed")
		}
	})

	t.Run("two literals multiplexed", func(t *testing.T) {
		p := NewPipeline(testLogger())
		out := p.AddOutput(URLTarget("a.mkv"), URLTarget("b.mkv"))
		if out.Addr() != "tee:a.mkv|b.mkv" {
			t.Errorf("expected tee address, got %q", out.Addr())
		}
		if out.Streamed() {
			t.Error("literal-only tee should not be streamed")
		}
	})

	t.Run("writer plus literal multiplexed", func(t *testing.T) {
		p := NewPipeline(testLogger())
		defer p.closeConduits()

		out := p.AddOutput(
			WriterTarget(nopWriteCloser{io.Discard}),
			URLTarget("archive.mkv"),
		)
		addr := out.Addr()
		if !strings.HasPrefix(addr, "tee:") {
			t.Fatalf("expected tee address, got %q", addr)
		}
		if !strings.HasSuffix(addr, "|archive.mkv") {
			t.Errorf("expected literal component last, got %q", addr)
		}
	})
}

func TestTeeComponentEscaping(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{`plain.mkv`, `plain.mkv`},
		{`with space.mkv`, `with\ space.mkv`},
		{`pipe|name`, `pipe\|name`},
		{`back\slash`, `back\\slash`},
		{`quo'te`, `quo\'te`},
		{`bra[cket]s`, `bra\[cket\]s`},
	}
	for _, tt := range tests {
		if got := escapeTeeComponent(tt.in); got != tt.expected {
			t.Errorf("escapeTeeComponent(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestConcatDocument(t *testing.T) {
	doc := buildConcatDocument([]ConcatEntry{
		{Path: "clip one.mkv", Duration: 1500},
		{Path: "it's.mkv", InPoint: 250, OutPoint: 10000},
	})

	expected := "ffconcat version 1.0\n" +
		"file 'clip one.mkv'\n" +
		"duration 1.500\n" +
		"file 'it'\\''s.mkv'\n" +
		"inpoint 0.250\n" +
		"outpoint 10.000\n"
	if doc != expected {
		t.Errorf("concat document mismatch:\n got %q\nwant %q", doc, expected)
	}
}

func TestConcatInputRestrictsProtocols(t *testing.T) {
	p := NewPipeline(testLogger())
	defer p.closeConduits()

	in := p.AddConcatInput([]ConcatEntry{{Path: "a.mkv"}}, nil)
	if !isConduitAddr(in.Addr()) {
		t.Fatalf("expected conduit address, got %q", in.Addr())
	}

	scheme, _, _ := strings.Cut(in.Addr(), "://")
	wantArgs := []string{"-f", "concat", "-safe", "0", "-protocol_whitelist", scheme}
	if !slices.Equal(in.args, wantArgs) {
		t.Errorf("concat args mismatch:\n got %q\nwant %q", in.args, wantArgs)
	}
}

func TestConcatInputWidenedProtocols(t *testing.T) {
	p := NewPipeline(testLogger())
	defer p.closeConduits()

	in := p.AddConcatInput(
		[]ConcatEntry{{Path: "a.mkv"}},
		&ConcatOptions{Protocols: []string{"file", "https"}},
	)
	scheme, _, _ := strings.Cut(in.Addr(), "://")
	want := scheme + ",file,https"
	if got := in.args[len(in.args)-1]; got != want {
		t.Errorf("expected whitelist %q, got %q", want, got)
	}
}
