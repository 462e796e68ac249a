package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// serverOptions mirrors the shape of the CLI options struct: a Config
// field naming the TOML file plus tagged fields for each setting.
type serverOptions struct {
	Config string `help:"Config file path"`

	Host       string   `toml:"server.host" env:"HOST"`
	Port       int      `toml:"server.port" env:"PORT"`
	AuthKey    string   `toml:"server.auth_key" env:"AUTH_KEY"`
	Debug      bool     `toml:"server.debug" env:"DEBUG"`
	CORSHosts  []string `toml:"server.cors_hosts" env:"CORS_HOSTS"`
	FFmpegPath string   `toml:"ffmpeg.path" env:"FFMPEG_PATH"`
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffdrive.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeConfigFile(t, `
[server]
host = "0.0.0.0"
port = 9090
debug = true
cors_hosts = ["http://localhost:3000", "http://nas.local"]

[ffmpeg]
path = "/opt/ffmpeg/bin/ffmpeg"
`)

	opts := &serverOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if opts.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want 0.0.0.0", opts.Host)
	}
	if opts.Port != 9090 {
		t.Errorf("Port = %d, want 9090", opts.Port)
	}
	if !opts.Debug {
		t.Error("Debug = false, want true")
	}
	wantCORS := []string{"http://localhost:3000", "http://nas.local"}
	if !reflect.DeepEqual(opts.CORSHosts, wantCORS) {
		t.Errorf("CORSHosts = %v, want %v", opts.CORSHosts, wantCORS)
	}
	if opts.FFmpegPath != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("FFmpegPath = %q, want /opt/ffmpeg/bin/ffmpeg", opts.FFmpegPath)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("FFDRIVE_HOST", "127.0.0.1")
	t.Setenv("FFDRIVE_PORT", "8123")
	t.Setenv("FFDRIVE_DEBUG", "true")
	t.Setenv("FFDRIVE_CORS_HOSTS", "http://a.local, http://b.local")

	opts := &serverOptions{}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if opts.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want 127.0.0.1", opts.Host)
	}
	if opts.Port != 8123 {
		t.Errorf("Port = %d, want 8123", opts.Port)
	}
	if !opts.Debug {
		t.Error("Debug = false, want true")
	}
	wantCORS := []string{"http://a.local", "http://b.local"}
	if !reflect.DeepEqual(opts.CORSHosts, wantCORS) {
		t.Errorf("CORSHosts = %v, want %v", opts.CORSHosts, wantCORS)
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	path := writeConfigFile(t, `
[server]
host = "file.local"
port = 9090

[ffmpeg]
path = "/usr/bin/ffmpeg"
`)
	t.Setenv("FFDRIVE_HOST", "env.local")

	opts := &serverOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if opts.Host != "env.local" {
		t.Errorf("Host = %q, want env override env.local", opts.Host)
	}
	if opts.Port != 9090 {
		t.Errorf("Port = %d, want 9090 from file", opts.Port)
	}
	if opts.FFmpegPath != "/usr/bin/ffmpeg" {
		t.Errorf("FFmpegPath = %q, want /usr/bin/ffmpeg from file", opts.FFmpegPath)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &serverOptions{
		Config: filepath.Join(t.TempDir(), "does-not-exist.toml"),
		Host:   "default.local",
	}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("missing file should not be an error, got %v", err)
	}
	if opts.Host != "default.local" {
		t.Errorf("Host = %q, defaults must survive a missing file", opts.Host)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := writeConfigFile(t, "[server\nnot toml")
	opts := &serverOptions{Config: path}
	if err := LoadConfig(opts, nil); err == nil {
		t.Fatal("expected parse error for malformed TOML")
	}
}

func TestLoadConfigModuleLogLevels(t *testing.T) {
	type loggingOptions struct {
		Config         string `help:"Config file path"`
		LoggingLevel   string `toml:"logging.level" env:"LOGGING_LEVEL"`
		LoggingFormat  string `toml:"logging.format" env:"LOGGING_FORMAT"`
		LoggingProcess string `toml:"logging.process" env:"LOGGING_PROCESS"`
		LoggingFFmpeg  string `toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
		LoggingJobs    string `toml:"logging.jobs" env:"LOGGING_JOBS"`
		LoggingAPI     string `toml:"logging.api" env:"LOGGING_API"`
	}

	path := writeConfigFile(t, `
[logging]
level = "info"
format = "json"
process = "debug"
ffmpeg = "debug"
jobs = "warn"
api = "error"
`)

	opts := &loggingOptions{
		Config:         path,
		LoggingLevel:   "info",
		LoggingFormat:  "text",
		LoggingProcess: "info",
		LoggingFFmpeg:  "info",
		LoggingJobs:    "info",
		LoggingAPI:     "info",
	}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	checks := []struct {
		name string
		got  string
		want string
	}{
		{"LoggingLevel", opts.LoggingLevel, "info"},
		{"LoggingFormat", opts.LoggingFormat, "json"},
		{"LoggingProcess", opts.LoggingProcess, "debug"},
		{"LoggingFFmpeg", opts.LoggingFFmpeg, "debug"},
		{"LoggingJobs", opts.LoggingJobs, "warn"},
		{"LoggingAPI", opts.LoggingAPI, "error"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"server": map[string]any{
			"host": "0.0.0.0",
			"tls": map[string]any{
				"cert": "/etc/ffdrive/cert.pem",
			},
		},
		"debug": true,
	}

	tests := []struct {
		path string
		want any
	}{
		{"debug", true},
		{"server.host", "0.0.0.0"},
		{"server.tls.cert", "/etc/ffdrive/cert.pem"},
		{"server.missing", nil},
		{"missing", nil},
		{"debug.not_a_table", nil},
	}
	for _, tt := range tests {
		if got := getNestedValue(data, tt.path); got != tt.want {
			t.Errorf("getNestedValue(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSetFieldValue(t *testing.T) {
	var target struct {
		S  string
		B  bool
		N  int
		SS []string
	}
	v := reflect.ValueOf(&target).Elem()

	setFieldValue(v.FieldByName("S"), "ffmpeg")
	setFieldValue(v.FieldByName("B"), true)
	setFieldValue(v.FieldByName("N"), int64(8080))
	setFieldValue(v.FieldByName("SS"), []any{"x", "y"})

	if target.S != "ffmpeg" {
		t.Errorf("S = %q, want ffmpeg", target.S)
	}
	if !target.B {
		t.Error("B = false, want true")
	}
	if target.N != 8080 {
		t.Errorf("N = %d, want 8080", target.N)
	}
	if !reflect.DeepEqual(target.SS, []string{"x", "y"}) {
		t.Errorf("SS = %v, want [x y]", target.SS)
	}
}

func TestSetFieldValueFromString(t *testing.T) {
	var target struct {
		S  string
		B  bool
		N  int
		SS []string
	}
	v := reflect.ValueOf(&target).Elem()

	setFieldValueFromString(v.FieldByName("S"), "ffprobe")
	setFieldValueFromString(v.FieldByName("B"), "true")
	setFieldValueFromString(v.FieldByName("N"), "42")
	setFieldValueFromString(v.FieldByName("SS"), " a , b , c ")

	if target.S != "ffprobe" {
		t.Errorf("S = %q, want ffprobe", target.S)
	}
	if !target.B {
		t.Error("B = false, want true")
	}
	if target.N != 42 {
		t.Errorf("N = %d, want 42", target.N)
	}
	if !reflect.DeepEqual(target.SS, []string{"a", "b", "c"}) {
		t.Errorf("SS = %v, want trimmed [a b c]", target.SS)
	}
}
