package process

import (
	"slices"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		expected []string
		wantErr  bool
	}{
		{
			name:     "simple command",
			command:  "ffmpeg -i input.mkv output.mkv",
			expected: []string{"ffmpeg", "-i", "input.mkv", "output.mkv"},
		},
		{
			name:     "double quoted argument",
			command:  `ffmpeg -i "my file.mkv" out.mkv`,
			expected: []string{"ffmpeg", "-i", "my file.mkv", "out.mkv"},
		},
		{
			name:     "single quoted argument",
			command:  "ffmpeg -metadata title='a b'",
			expected: []string{"ffmpeg", "-metadata", "title=a b"},
		},
		{
			name:     "escaped space",
			command:  `ffmpeg -i my\ file.mkv`,
			expected: []string{"ffmpeg", "-i", "my file.mkv"},
		},
		{
			name:     "collapsed whitespace",
			command:  "  ffmpeg   -version  ",
			expected: []string{"ffmpeg", "-version"},
		},
		{
			name:    "unclosed quote",
			command: `ffmpeg -i "broken`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.command)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCommand failed: %v", err)
			}
			if !slices.Equal(got, tt.expected) {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
