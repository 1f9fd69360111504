package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/algo-axis/timing"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if !cfg.Cache.Enabled {
		t.Fatal("cache should be enabled by default")
	}
	if cfg.Output.HighpassHz != 60 {
		t.Fatalf("highpass = %v, want 60", cfg.Output.HighpassHz)
	}
	if cfg.Timing.TailMode != "stretch" {
		t.Fatalf("tail mode = %q, want stretch", cfg.Timing.TailMode)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `
threads: 2
analysis:
  hop_ms: 2.5
voicing:
  median_width: 7
timing:
  tail_mode: loop
cache:
  dir: /tmp/axis-test
  temp_max_age: 30m
plugins:
  - path: a.so
    enabled: true
  - path: b.so
    enabled: false
  - path: c.so
    enabled: true
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Threads != 2 {
		t.Fatalf("threads = %d, want 2", cfg.Threads)
	}
	if cfg.Analysis.HopMs != 2.5 {
		t.Fatalf("hop = %v, want 2.5", cfg.Analysis.HopMs)
	}
	if cfg.Analysis.WindowMs != Default().Analysis.WindowMs {
		t.Fatalf("window = %v, want default", cfg.Analysis.WindowMs)
	}
	if cfg.Voicing.MedianWidth != 7 || cfg.Voicing.StayVoiced != Default().Voicing.StayVoiced {
		t.Fatalf("voicing = %+v", cfg.Voicing)
	}

	dir, err := cfg.CacheDir()
	if err != nil || dir != "/tmp/axis-test" {
		t.Fatalf("CacheDir() = %q, %v", dir, err)
	}
	age, err := cfg.TempMaxAge()
	if err != nil || age != 30*time.Minute {
		t.Fatalf("TempMaxAge() = %v, %v", age, err)
	}

	paths := cfg.PluginPaths()
	if strings.Join(paths, ",") != "a.so,c.so" {
		t.Fatalf("PluginPaths() = %v", paths)
	}

	if got := len(cfg.MapperOptions()); got != 1 {
		t.Fatalf("MapperOptions() = %d options", got)
	}
	m := timing.NewMapper(cfg.MapperOptions()...)
	if m.TailMode() != timing.TailLoop {
		t.Fatalf("mapper tail mode = %v, want loop", m.TailMode())
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "syntax", body: "analysis: [", want: "parse"},
		{name: "even median", body: "voicing:\n  median_width: 4\n", want: "voicing"},
		{name: "pitch range", body: "analysis:\n  min_pitch_hz: 500\n  max_pitch_hz: 100\n", want: "analysis"},
		{name: "harmonics", body: "synthesis:\n  max_harmonics: 0\n", want: "synthesis"},
		{name: "tail mode", body: "timing:\n  tail_mode: bounce\n", want: "timing"},
		{name: "temp age", body: "cache:\n  temp_max_age: soon\n", want: "cache"},
		{name: "plugin path", body: "plugins:\n  - enabled: true\n", want: "plugins[0]"},
		{name: "log level", body: "log:\n  level: loud\n", want: "log"},
		{name: "threads", body: "threads: -1\n", want: "threads"},
		{name: "sample rate", body: "output:\n  sample_rate: -8000\n", want: "output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeFile(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := Load(missing); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load(missing) error = %v, want ErrNotExist", err)
	}

	cfg, err := LoadOrDefault(missing)
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Voicing != Default().Voicing {
		t.Fatal("LoadOrDefault should return defaults for a missing file")
	}

	if _, err := LoadOrDefault(writeFile(t, "threads: -3\n")); err == nil {
		t.Fatal("LoadOrDefault should report invalid files")
	}
}

func TestCacheDirDisabled(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Cache.Enabled = false
	cfg.Cache.Dir = "/somewhere"
	dir, err := cfg.CacheDir()
	if err != nil || dir != "" {
		t.Fatalf("CacheDir() = %q, %v; want disabled", dir, err)
	}
}

func TestOptionsFollowThreads(t *testing.T) {
	t.Parallel()

	cfg := Default()
	base := len(cfg.AnalysisOptions())
	synthBase := len(cfg.SynthOptions())

	cfg.Threads = 3
	if got := len(cfg.AnalysisOptions()); got != base+1 {
		t.Fatalf("analysis options = %d, want %d", got, base+1)
	}
	if got := len(cfg.SynthOptions()); got != synthBase+1 {
		t.Fatalf("synth options = %d, want %d", got, synthBase+1)
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]slog.Level{
		"":        slog.LevelWarn,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLogLevel("trace"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
