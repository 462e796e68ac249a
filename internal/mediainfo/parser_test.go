package mediainfo

import (
	"strings"
	"testing"
	"time"
)

func feed(p *Parser, lines ...string) {
	for _, line := range lines {
		p.Feed(line)
	}
}

func TestInputHeader(t *testing.T) {
	p := NewParser()
	feed(p, "Input #0, matroska,webm, from 'x.mkv':")

	inputs := p.Inputs()
	if len(inputs) != 1 {
		t.Fatalf("expected 1 input, got %d", len(inputs))
	}
	in := inputs[0]
	if in.Index != 0 {
		t.Errorf("Index = %d, want 0", in.Index)
	}
	if in.Format.Name != "matroska,webm" {
		t.Errorf("Format.Name = %q, want %q", in.Format.Name, "matroska,webm")
	}
	if in.Format.Filename != "x.mkv" {
		t.Errorf("Format.Filename = %q, want %q", in.Format.Filename, "x.mkv")
	}
}

func TestFormatMetadataContinuation(t *testing.T) {
	p := NewParser()
	feed(p,
		"Input #0, matroska, from 'x.mkv':",
		"  Metadata:",
		"    title   : a",
		"                : b",
	)

	inputs := p.Inputs()
	if len(inputs) != 1 {
		t.Fatalf("expected 1 input, got %d", len(inputs))
	}
	title, ok := inputs[0].Format.Metadata.Get("title")
	if !ok {
		t.Fatal("title metadata missing")
	}
	if title != "a\nb" {
		t.Errorf("title = %q, want %q", title, "a\nb")
	}
}

func TestDurationLine(t *testing.T) {
	tests := []struct {
		name         string
		line         string
		wantStart    time.Duration
		wantDuration *time.Duration
		wantBitRate  *int64
	}{
		{
			name:      "negative start with N/A bitrate",
			line:      "  Duration: 00:01:00.02, start: -1.010000, bitrate: N/A",
			wantStart: -1010 * time.Millisecond,
			wantDuration: func() *time.Duration {
				d := 60020 * time.Millisecond
				return &d
			}(),
		},
		{
			name:      "N/A duration with bitrate",
			line:      "  Duration: N/A, start: 0.000000, bitrate: 2963 kb/s",
			wantStart: 0,
			wantBitRate: func() *int64 {
				b := int64(2963000)
				return &b
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser()
			feed(p, "Input #0, matroska, from 'x.mkv':", tt.line)

			f := p.Inputs()[0].Format
			if f.Start != tt.wantStart {
				t.Errorf("Start = %v, want %v", f.Start, tt.wantStart)
			}
			switch {
			case tt.wantDuration == nil && f.Duration != nil:
				t.Errorf("Duration = %v, want nil", *f.Duration)
			case tt.wantDuration != nil && f.Duration == nil:
				t.Errorf("Duration = nil, want %v", *tt.wantDuration)
			case tt.wantDuration != nil && *f.Duration != *tt.wantDuration:
				t.Errorf("Duration = %v, want %v", *f.Duration, *tt.wantDuration)
			}
			switch {
			case tt.wantBitRate == nil && f.BitRate != nil:
				t.Errorf("BitRate = %v, want nil", *f.BitRate)
			case tt.wantBitRate != nil && f.BitRate == nil:
				t.Errorf("BitRate = nil, want %v", *tt.wantBitRate)
			case tt.wantBitRate != nil && *f.BitRate != *tt.wantBitRate:
				t.Errorf("BitRate = %v, want %v", *f.BitRate, *tt.wantBitRate)
			}
		})
	}
}

func TestChaptersAndStreams(t *testing.T) {
	p := NewParser()
	feed(p,
		"Input #0, matroska,webm, from 'movie.mkv':",
		"  Metadata:",
		"    encoder : libebml",
		"  Duration: 01:30:00.00, start: 0.000000, bitrate: 4000 kb/s",
		"    Chapter #0:0: start 0.000000, end 600.500000",
		"    Metadata:",
		"        title : Opening",
		"    Chapter #0:1: start 600.500000, end 1200.000000",
		"  Stream #0:0(eng): Video: h264 (High), yuv420p, 1920x1080",
		"    Metadata:",
		"        title : Main video",
		"  Stream #0:1(jpn): Audio: aac, 48000 Hz, stereo",
	)

	in := p.Inputs()[0]

	if len(in.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(in.Chapters))
	}
	if in.Chapters[0].Start != 0 || in.Chapters[0].End != 600500*time.Millisecond {
		t.Errorf("chapter 0 range = [%v, %v], want [0s, 10m0.5s]",
			in.Chapters[0].Start, in.Chapters[0].End)
	}
	if title, _ := in.Chapters[0].Metadata.Get("title"); title != "Opening" {
		t.Errorf("chapter 0 title = %q, want %q", title, "Opening")
	}
	if in.Chapters[1].Metadata.Len() != 0 {
		t.Errorf("chapter 1 should have no metadata, got %d keys", in.Chapters[1].Metadata.Len())
	}

	if len(in.Streams) != 2 {
		t.Fatalf("expected 2 streams, got %d", len(in.Streams))
	}
	if in.Streams[0].ID != "0:0" {
		t.Errorf("stream 0 ID = %q, want %q", in.Streams[0].ID, "0:0")
	}
	if !strings.Contains(in.Streams[0].Desc, "Video: h264") {
		t.Errorf("stream 0 desc = %q, want video descriptor", in.Streams[0].Desc)
	}
	if title, _ := in.Streams[0].Metadata.Get("title"); title != "Main video" {
		t.Errorf("stream 0 title = %q, want %q", title, "Main video")
	}
	if in.Streams[1].Metadata.Len() != 0 {
		t.Errorf("stream 1 should have no metadata, got %d keys", in.Streams[1].Metadata.Len())
	}
}

func TestInputBoundaryFromStreamState(t *testing.T) {
	// A new input header right after a stream section, with no chapters in
	// between, must start a fresh record.
	p := NewParser()
	feed(p,
		"Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'a.mp4':",
		"  Duration: 00:00:10.00, start: 0.000000, bitrate: 128 kb/s",
		"  Stream #0:0: Audio: aac",
		"Input #1, matroska, from 'b.mkv':",
		"  Duration: 00:00:20.00, start: 0.000000, bitrate: 256 kb/s",
		"  Stream #1:0: Video: h264",
	)

	inputs := p.Inputs()
	if len(inputs) != 2 {
		t.Fatalf("expected 2 inputs, got %d", len(inputs))
	}
	if inputs[1].Index != 1 {
		t.Errorf("second input index = %d, want 1", inputs[1].Index)
	}
	if len(inputs[0].Streams) != 1 || len(inputs[1].Streams) != 1 {
		t.Errorf("stream counts = %d/%d, want 1/1",
			len(inputs[0].Streams), len(inputs[1].Streams))
	}
	if inputs[1].Format.Filename != "b.mkv" {
		t.Errorf("second input filename = %q, want %q", inputs[1].Format.Filename, "b.mkv")
	}
}

func TestStreamMetadataContinuation(t *testing.T) {
	p := NewParser()
	feed(p,
		"Input #0, matroska, from 'x.mkv':",
		"  Duration: 00:00:10.00, start: 0.000000, bitrate: N/A",
		"  Stream #0:0: Video: h264",
		"    Metadata:",
		"        handler_name : first",
		"                     : second",
	)

	md := p.Inputs()[0].Streams[0].Metadata
	if v, _ := md.Get("handler_name"); v != "first\nsecond" {
		t.Errorf("handler_name = %q, want %q", v, "first\nsecond")
	}
}

func TestUnrecognizedLinesIgnored(t *testing.T) {
	p := NewParser()
	feed(p,
		"ffmpeg version 6.0 Copyright (c) 2000-2023",
		"  built with gcc",
		"Input #0, matroska, from 'x.mkv':",
		"some future diagnostic format",
		"  Duration: 00:00:01.00, start: 0.000000, bitrate: N/A",
		"[libx264 @ 0x55d1] frame I:1",
	)

	inputs := p.Inputs()
	if len(inputs) != 1 {
		t.Fatalf("expected 1 input, got %d", len(inputs))
	}
	if inputs[0].Format.Duration == nil {
		t.Error("duration should still be parsed around garbage lines")
	}
}

func TestMetadataOrdering(t *testing.T) {
	var md Metadata
	md.Set("b", "1")
	md.Set("a", "2")
	md.Set("b", "3")

	keys := md.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Errorf("Keys() = %v, want [b a]", keys)
	}
	if v, _ := md.Get("b"); v != "3" {
		t.Errorf("b = %q, want %q", v, "3")
	}
}

func TestContinuationWithoutKeyDropped(t *testing.T) {
	var md Metadata
	md.Continue("orphan")
	if md.Len() != 0 {
		t.Errorf("expected empty metadata, got %d keys", md.Len())
	}
}
