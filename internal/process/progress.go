package process

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Progress is one self-contained decoding of the machine-readable
// progress channel. All fields are numeric and NaN-free: a field that
// fails to parse keeps its zero value rather than poisoning the snapshot.
type Progress struct {
	Frame      int64
	FPS        float64
	Bitrate    float64 // kbit/s
	TotalSize  int64
	OutTime    time.Duration
	DupFrames  int64
	DropFrames int64
	Speed      float64
}

// decodeProgress incrementally parses newline-delimited key=value records
// from the progress channel. The literal key "progress" terminates a
// record: the accumulated snapshot is emitted and, when the value signals
// end-of-stream, the sequence stops. Malformed fields are skipped so one
// bad data point never loses the rest.
func (h *Handle) decodeProgress(r io.Reader) {
	defer close(h.progress)

	scanner := bufio.NewScanner(r)
	var pending Progress
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if key == "progress" {
			if value == "end" {
				// The channel closes right after the terminal
				// snapshot, so give a draining consumer a bounded
				// chance to take it before giving up.
				select {
				case h.progress <- pending:
				case <-time.After(time.Second):
				}
				return
			}
			// A slow consumer drops snapshots rather than stalling
			// the scanner and, through the pipe, the process itself.
			select {
			case h.progress <- pending:
			default:
			}
			pending = Progress{}
			continue
		}

		applyProgressField(&pending, key, value)
	}
}

func applyProgressField(p *Progress, key, value string) {
	switch key {
	case "frame":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.Frame = v
		}
	case "fps":
		p.FPS = parseProgressFloat(value, "")
	case "bitrate":
		p.Bitrate = parseProgressFloat(value, "kbits/s")
	case "total_size":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.TotalSize = v
		}
	case "out_time_us":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.OutTime = time.Duration(v) * time.Microsecond
		}
	case "dup_frames":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.DupFrames = v
		}
	case "drop_frames":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.DropFrames = v
		}
	case "speed":
		p.Speed = parseProgressFloat(value, "x")
	}
}

// parseProgressFloat parses a float with an optional unit suffix. "N/A",
// garbage and non-finite values all leave the field at zero.
func parseProgressFloat(value, suffix string) float64 {
	value = strings.TrimSpace(strings.TrimSuffix(value, suffix))
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
