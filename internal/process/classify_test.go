package process

import "testing"

func TestMostSpecificMessage(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		expected string
	}{
		{
			name:     "no qualifying lines",
			lines:    []string{"Press q to stop", "frame catching up"},
			expected: "",
		},
		{
			name: "component line preferred over label line",
			lines: []string{
				"out.mkv: No such file or directory",
				"[matroska @ 0x5591] Cannot write header",
			},
			expected: "[matroska @ 0x5591] Cannot write header",
		},
		{
			name: "component line wins even when label line is newer",
			lines: []string{
				"[mp4 @ 0x7f00] muxer does not support non seekable output",
				"Could not write header for output file #0: Invalid argument",
			},
			expected: "[mp4 @ 0x7f00] muxer does not support non seekable output",
		},
		{
			name: "label line as fallback",
			lines: []string{
				"some noise",
				"missing.mkv: No such file or directory",
			},
			expected: "missing.mkv: No such file or directory",
		},
		{
			name: "newest component line wins",
			lines: []string{
				"[matroska @ 0x1] first failure",
				"[matroska @ 0x2] second failure",
			},
			expected: "[matroska @ 0x2] second failure",
		},
		{
			name: "level prefix stripped before matching",
			lines: []string{
				"[error] [matroska @ 0x5591] Cannot write header",
			},
			expected: "[matroska @ 0x5591] Cannot write header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mostSpecificMessage(tt.lines); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestTailBufferKeepsNewestLines(t *testing.T) {
	tb := newTailBuffer(3)
	for _, line := range []string{"a", "b", "c", "d", "e"} {
		tb.add(line)
	}

	got := tb.lines()
	want := []string{"c", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestExitErrorMessage(t *testing.T) {
	withMsg := &ExitError{Code: 1, Message: "[matroska @ 0x1] bad header"}
	if withMsg.Error() != "exited with code 1: [matroska @ 0x1] bad header" {
		t.Errorf("unexpected error string: %q", withMsg.Error())
	}

	bare := &ExitError{Code: 187}
	if bare.Error() != "exited with code 187" {
		t.Errorf("unexpected error string: %q", bare.Error())
	}
}
