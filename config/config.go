// Package config holds the per-invocation parameter bundle.
//
// A Config is read from a YAML file over the defaults returned by
// [Default], so a file only needs the keys it changes:
//
//	analysis:
//	  hop_ms: 5
//	voicing:
//	  median_width: 7
//	cache:
//	  dir: /tmp/axis-cache
//	plugins:
//	  - path: ./plugins/formant.so
//	    enabled: true
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/cwbudde/algo-axis/analysis"
	"github.com/cwbudde/algo-axis/synth"
	"github.com/cwbudde/algo-axis/timing"
	"github.com/cwbudde/algo-axis/voicing"
)

// FileName is the configuration file looked up beside the executable.
const FileName = "axis.yaml"

// Config is immutable once loaded.
type Config struct {
	// Threads bounds analysis and synthesis workers; 0 uses every CPU.
	Threads   int             `yaml:"threads"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Voicing   VoicingConfig   `yaml:"voicing"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Timing    TimingConfig    `yaml:"timing"`
	Cache     CacheConfig     `yaml:"cache"`
	Output    OutputConfig    `yaml:"output"`
	Plugins   []PluginConfig  `yaml:"plugins"`
	Log       LogConfig       `yaml:"log"`
}

// AnalysisConfig mirrors analysis.Params.
type AnalysisConfig struct {
	HopMs            float64 `yaml:"hop_ms"`
	WindowMs         float64 `yaml:"window_ms"`
	MinPitchHz       float64 `yaml:"min_pitch_hz"`
	MaxPitchHz       float64 `yaml:"max_pitch_hz"`
	SilenceDB        float64 `yaml:"silence_db"`
	OctaveTolerance  float64 `yaml:"octave_tolerance"`
	MinConfidence    float64 `yaml:"min_confidence"`
	UnvoicedSmoothHz float64 `yaml:"unvoiced_smooth_hz"`
}

// VoicingConfig holds the HMM and pitch smoothing settings.
type VoicingConfig struct {
	StayVoiced       float64 `yaml:"stay_voiced"`
	StayUnvoiced     float64 `yaml:"stay_unvoiced"`
	Threshold        float64 `yaml:"threshold"`
	Slope            float64 `yaml:"slope"`
	MedianWidth      int     `yaml:"median_width"`
	MaxStepSemitones float64 `yaml:"max_step_semitones"`
	MaxIterations    int     `yaml:"max_iterations"`
}

// SynthesisConfig holds the synthesizer settings.
type SynthesisConfig struct {
	MaxHarmonics int     `yaml:"max_harmonics"`
	CrossfadeMs  float64 `yaml:"crossfade_ms"`
	ChunkFrames  int     `yaml:"chunk_frames"`
	NoiseSeed    uint64  `yaml:"noise_seed"`
}

// TimingConfig holds the mapper settings.
type TimingConfig struct {
	// TailMode is "stretch" or "loop".
	TailMode string `yaml:"tail_mode"`
}

// CacheConfig controls the on-disk feature cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	// Dir defaults to <user cache dir>/axis.
	Dir string `yaml:"dir"`
	// TempMaxAge is the age after which orphaned temp files are removed,
	// as a Go duration string. Empty disables cleanup.
	TempMaxAge string `yaml:"temp_max_age"`
}

// OutputConfig controls post-processing and the written file.
type OutputConfig struct {
	// SampleRate converts the output; 0 keeps the input rate.
	SampleRate int `yaml:"sample_rate"`
	// HighpassHz is the zero-phase high-pass cutoff; 0 disables it.
	HighpassHz float64 `yaml:"highpass_hz"`
	// Dither adds TPDF dither when converting to 16-bit PCM.
	Dither bool `yaml:"dither"`
}

// PluginConfig is one plugin file.
type PluginConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// LogConfig sets the default log level, overridden by AXIS_LOG_LEVEL.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	p := analysis.DefaultParams()
	return &Config{
		Analysis: AnalysisConfig{
			HopMs:            p.HopMs,
			WindowMs:         p.WindowMs,
			MinPitchHz:       p.MinPitchHz,
			MaxPitchHz:       p.MaxPitchHz,
			SilenceDB:        p.SilenceDB,
			OctaveTolerance:  p.OctaveTolerance,
			MinConfidence:    p.MinConfidence,
			UnvoicedSmoothHz: p.UnvoicedSmoothHz,
		},
		Voicing: VoicingConfig{
			StayVoiced:       0.95,
			StayUnvoiced:     0.85,
			Threshold:        0.35,
			Slope:            12,
			MedianWidth:      5,
			MaxStepSemitones: 1.5,
			MaxIterations:    64,
		},
		Synthesis: SynthesisConfig{
			MaxHarmonics: 256,
			CrossfadeMs:  10,
			ChunkFrames:  32,
			NoiseSeed:    0x41584953,
		},
		Timing: TimingConfig{TailMode: timing.TailStretch.String()},
		Cache:  CacheConfig{Enabled: true, TempMaxAge: "1h"},
		Output: OutputConfig{HighpassHz: 60, Dither: true},
		Log:    LogConfig{Level: "warn"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, returning the defaults when the file does not
// exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks every section by building its components.
func (c *Config) Validate() error {
	if c.Threads < 0 {
		return fmt.Errorf("threads must be >= 0: %d", c.Threads)
	}
	if _, err := analysis.NewExtractor(c.AnalysisOptions()...); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if _, err := voicing.NewModel(c.VoicingOptions()...); err != nil {
		return fmt.Errorf("voicing: %w", err)
	}
	if _, err := synth.NewSynthesizer(c.SynthOptions()...); err != nil {
		return fmt.Errorf("synthesis: %w", err)
	}
	if _, err := timing.ParseTailMode(c.Timing.TailMode); err != nil {
		return fmt.Errorf("timing: %w", err)
	}
	if _, err := c.TempMaxAge(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if c.Output.SampleRate < 0 {
		return fmt.Errorf("output: sample rate must be >= 0: %d", c.Output.SampleRate)
	}
	if c.Output.HighpassHz < 0 {
		return fmt.Errorf("output: highpass must be >= 0: %v", c.Output.HighpassHz)
	}
	for i, p := range c.Plugins {
		if p.Enabled && p.Path == "" {
			return fmt.Errorf("plugins[%d]: path is required", i)
		}
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// AnalysisOptions returns the extractor options for c.
func (c *Config) AnalysisOptions() []analysis.Option {
	a := c.Analysis
	opts := []analysis.Option{
		analysis.WithHopMs(a.HopMs),
		analysis.WithWindowMs(a.WindowMs),
		analysis.WithPitchRange(a.MinPitchHz, a.MaxPitchHz),
		analysis.WithSilenceDB(a.SilenceDB),
		analysis.WithOctaveTolerance(a.OctaveTolerance),
		analysis.WithMinConfidence(a.MinConfidence),
		analysis.WithUnvoicedSmoothHz(a.UnvoicedSmoothHz),
	}
	if c.Threads > 0 {
		opts = append(opts, analysis.WithWorkers(c.Threads))
	}
	return opts
}

// VoicingOptions returns the voicing model options for c.
func (c *Config) VoicingOptions() []voicing.Option {
	v := c.Voicing
	return []voicing.Option{
		voicing.WithStayProbabilities(v.StayVoiced, v.StayUnvoiced),
		voicing.WithEmission(v.Threshold, v.Slope),
		voicing.WithMedianWidth(v.MedianWidth),
		voicing.WithMaxStepSemitones(v.MaxStepSemitones),
		voicing.WithMaxIterations(v.MaxIterations),
	}
}

// SynthOptions returns the synthesizer options for c.
func (c *Config) SynthOptions() []synth.Option {
	s := c.Synthesis
	opts := []synth.Option{
		synth.WithMaxHarmonics(s.MaxHarmonics),
		synth.WithCrossfadeMs(s.CrossfadeMs),
		synth.WithChunkFrames(s.ChunkFrames),
		synth.WithNoiseSeed(s.NoiseSeed),
	}
	if c.Threads > 0 {
		opts = append(opts, synth.WithWorkers(c.Threads))
	}
	return opts
}

// MapperOptions returns the timing mapper options for c.
func (c *Config) MapperOptions() []timing.Option {
	mode, _ := timing.ParseTailMode(c.Timing.TailMode)
	return []timing.Option{timing.WithTailMode(mode)}
}

// CacheDir returns the cache directory, or "" when caching is disabled.
func (c *Config) CacheDir() (string, error) {
	if !c.Cache.Enabled {
		return "", nil
	}
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine cache directory: %w", err)
	}
	return filepath.Join(base, "axis"), nil
}

// TempMaxAge parses Cache.TempMaxAge. Zero means no cleanup.
func (c *Config) TempMaxAge() (time.Duration, error) {
	if c.Cache.TempMaxAge == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Cache.TempMaxAge)
	if err != nil {
		return 0, fmt.Errorf("temp_max_age: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("temp_max_age must be >= 0: %s", d)
	}
	return d, nil
}

// PluginPaths returns the enabled plugin files in configuration order.
func (c *Config) PluginPaths() []string {
	var out []string
	for _, p := range c.Plugins {
		if p.Enabled {
			out = append(out, p.Path)
		}
	}
	return out
}

// ParseLogLevel maps debug, info, warn and error to slog levels. An empty
// string selects warn.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("unknown log level %q", s)
	}
}
