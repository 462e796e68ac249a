package mediainfo

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// parser states, one per section of the input dump.
type state int

const (
	stateDefault state = iota
	stateFormat
	stateFormatMeta
	stateChapter
	stateChapterMeta
	stateStream
	stateStreamMeta
)

var (
	inputRe    = regexp.MustCompile(`^Input #(\d+), (.*), from '(.*)':`)
	durationRe = regexp.MustCompile(`^ {2}Duration: (N/A|\d+:\d{2}:\d{2}\.\d+), start: (-?\d+(?:\.\d+)?), bitrate: (N/A|\d+(?:\.\d+)? kb/s)`)
	chapterRe  = regexp.MustCompile(`^ {4}Chapter #(\d+[:.]\d+): start (-?\d+(?:\.\d+)?), end (-?\d+(?:\.\d+)?)`)
	streamRe   = regexp.MustCompile(`^ {2,4}Stream #(\d+[:.]\d+)(.*)$`)
	metaKVRe   = regexp.MustCompile(`^ {4,}([^:]*?)\s*: ?(.*)$`)
)

// Parser is a line-oriented automaton over FFmpeg's diagnostic output.
// Feed lines strictly in arrival order; unrecognized lines are ignored so
// unknown or future output formats degrade to missing metadata rather
// than a parse failure.
type Parser struct {
	mu     sync.Mutex
	state  state
	inputs []*Input
}

// NewParser creates an empty parser in the default state.
func NewParser() *Parser {
	return &Parser{}
}

// Inputs returns the inputs reconstructed so far, in arrival order.
func (p *Parser) Inputs() []*Input {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Input, len(p.inputs))
	copy(out, p.inputs)
	return out
}

// Feed consumes one diagnostic line.
func (p *Parser) Feed(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// An input header is recognized from any state and always starts a
	// fresh record.
	if m := inputRe.FindStringSubmatch(line); m != nil {
		idx, _ := strconv.Atoi(m[1])
		p.inputs = append(p.inputs, &Input{
			Index: idx,
			Format: Format{
				Name:     m[2],
				Filename: m[3],
			},
		})
		p.state = stateFormat
		return
	}

	in := p.current()
	if in == nil {
		return
	}

	switch p.state {
	case stateFormat:
		if line == "  Metadata:" {
			p.state = stateFormatMeta
		} else if p.tryDuration(in, line) {
			p.state = stateChapter
		}

	case stateFormatMeta:
		if p.tryDuration(in, line) {
			p.state = stateChapter
		} else if key, value, ok := matchMetaKV(line); ok {
			if key == "" {
				in.Format.Metadata.Continue(value)
			} else {
				in.Format.Metadata.Set(key, value)
			}
		}

	case stateChapter:
		switch {
		case line == "    Metadata:" && len(in.Chapters) > 0:
			p.state = stateChapterMeta
		case p.tryChapter(in, line):
		case p.tryStream(in, line):
			p.state = stateStream
		}

	case stateChapterMeta:
		switch {
		case p.tryChapter(in, line):
			p.state = stateChapter
		case p.tryStream(in, line):
			p.state = stateStream
		default:
			if key, value, ok := matchMetaKV(line); ok {
				md := &in.Chapters[len(in.Chapters)-1].Metadata
				if key == "" {
					md.Continue(value)
				} else {
					md.Set(key, value)
				}
			}
		}

	case stateStream:
		switch {
		case line == "    Metadata:" && len(in.Streams) > 0:
			p.state = stateStreamMeta
		case p.tryStream(in, line):
		}

	case stateStreamMeta:
		if p.tryStream(in, line) {
			p.state = stateStream
		} else if key, value, ok := matchMetaKV(line); ok {
			md := &in.Streams[len(in.Streams)-1].Metadata
			if key == "" {
				md.Continue(value)
			} else {
				md.Set(key, value)
			}
		}
	}
}

func (p *Parser) current() *Input {
	if len(p.inputs) == 0 {
		return nil
	}
	return p.inputs[len(p.inputs)-1]
}

// tryDuration finalizes the format record from a Duration line.
func (p *Parser) tryDuration(in *Input, line string) bool {
	m := durationRe.FindStringSubmatch(line)
	if m == nil {
		return false
	}

	if m[1] != "N/A" {
		if d, ok := parseTimestamp(m[1]); ok {
			in.Format.Duration = &d
		}
	}
	if sec, err := strconv.ParseFloat(m[2], 64); err == nil {
		in.Format.Start = secondsToDuration(sec)
	}
	if m[3] != "N/A" {
		kbps, err := strconv.ParseFloat(strings.TrimSuffix(m[3], " kb/s"), 64)
		if err == nil {
			bps := int64(math.Round(kbps * 1000))
			in.Format.BitRate = &bps
		}
	}
	return true
}

func (p *Parser) tryChapter(in *Input, line string) bool {
	m := chapterRe.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	start, _ := strconv.ParseFloat(m[2], 64)
	end, _ := strconv.ParseFloat(m[3], 64)
	in.Chapters = append(in.Chapters, Chapter{
		ID:    strings.ReplaceAll(m[1], ".", ":"),
		Start: secondsToDuration(start),
		End:   secondsToDuration(end),
	})
	return true
}

func (p *Parser) tryStream(in *Input, line string) bool {
	m := streamRe.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	in.Streams = append(in.Streams, Stream{
		ID:   strings.ReplaceAll(m[1], ".", ":"),
		Desc: strings.TrimPrefix(m[2], ":"),
	})
	return true
}

// matchMetaKV splits an indented "key : value" metadata line. An empty key
// marks a continuation of the previous key's value.
func matchMetaKV(line string) (key, value string, ok bool) {
	m := metaKVRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), m[2], true
}

// parseTimestamp converts "HH:MM:SS.cc" to a duration with millisecond
// precision.
func parseTimestamp(ts string) (time.Duration, bool) {
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	s, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	sec := float64(h)*3600 + float64(m)*60 + s
	return secondsToDuration(sec), true
}

// secondsToDuration converts fractional seconds to a duration rounded to
// whole milliseconds, preserving sign.
func secondsToDuration(sec float64) time.Duration {
	return time.Duration(math.Round(sec*1000)) * time.Millisecond
}
