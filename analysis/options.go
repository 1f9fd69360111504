package analysis

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
)

const (
	defaultHopMs            = 5.0
	defaultWindowMs         = 40.0
	defaultMinPitchHz       = 60.0
	defaultMaxPitchHz       = 1100.0
	defaultSilenceDB        = -70.0
	defaultOctaveTolerance  = 0.9
	defaultMinConfidence    = 0.3
	defaultUnvoicedSmoothHz = 200.0
)

// Params are the analysis settings that determine the extracted features.
type Params struct {
	HopMs            float64
	WindowMs         float64
	MinPitchHz       float64
	MaxPitchHz       float64
	SilenceDB        float64
	OctaveTolerance  float64
	MinConfidence    float64
	UnvoicedSmoothHz float64
}

// Option configures an [Extractor].
type Option func(*config)

type config struct {
	params  Params
	workers int
	logger  *slog.Logger
}

// DefaultParams returns the analysis settings used when no option
// overrides them.
func DefaultParams() Params {
	return Params{
		HopMs:            defaultHopMs,
		WindowMs:         defaultWindowMs,
		MinPitchHz:       defaultMinPitchHz,
		MaxPitchHz:       defaultMaxPitchHz,
		SilenceDB:        defaultSilenceDB,
		OctaveTolerance:  defaultOctaveTolerance,
		MinConfidence:    defaultMinConfidence,
		UnvoicedSmoothHz: defaultUnvoicedSmoothHz,
	}
}

func defaultConfig() config {
	return config{
		params:  DefaultParams(),
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
	}
}

// WithHopMs sets the frame period in milliseconds.
func WithHopMs(ms float64) Option {
	return func(c *config) { c.params.HopMs = ms }
}

// WithWindowMs sets the analysis window length in milliseconds.
func WithWindowMs(ms float64) Option {
	return func(c *config) { c.params.WindowMs = ms }
}

// WithPitchRange sets the searched fundamental range in Hz.
func WithPitchRange(minHz, maxHz float64) Option {
	return func(c *config) {
		c.params.MinPitchHz = minHz
		c.params.MaxPitchHz = maxHz
	}
}

// WithSilenceDB sets the frame RMS level (dBFS) below which a frame is
// treated as silent.
func WithSilenceDB(db float64) Option {
	return func(c *config) { c.params.SilenceDB = db }
}

// WithOctaveTolerance sets the fraction of the strongest autocorrelation
// peak that a shorter-lag peak must reach to be preferred.
func WithOctaveTolerance(v float64) Option {
	return func(c *config) { c.params.OctaveTolerance = v }
}

// WithMinConfidence sets the peak height below which no pitch is reported.
func WithMinConfidence(v float64) Option {
	return func(c *config) { c.params.MinConfidence = v }
}

// WithUnvoicedSmoothHz sets the envelope smoothing width for frames without
// a pitch.
func WithUnvoicedSmoothHz(hz float64) Option {
	return func(c *config) { c.params.UnvoicedSmoothHz = hz }
}

// WithWorkers bounds the number of analysis goroutines. Values < 1 are ignored.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// Validate checks that the parameters describe a usable analysis.
func (p Params) Validate() error {
	switch {
	case !positive(p.HopMs):
		return fmt.Errorf("analysis hop must be positive and finite: %f", p.HopMs)
	case !positive(p.WindowMs):
		return fmt.Errorf("analysis window must be positive and finite: %f", p.WindowMs)
	case p.WindowMs < p.HopMs:
		return fmt.Errorf("analysis window %f ms shorter than hop %f ms", p.WindowMs, p.HopMs)
	case !positive(p.MinPitchHz) || !positive(p.MaxPitchHz) || p.MinPitchHz >= p.MaxPitchHz:
		return fmt.Errorf("analysis pitch range invalid: [%f, %f]", p.MinPitchHz, p.MaxPitchHz)
	case 2000/p.MinPitchHz > p.WindowMs:
		return fmt.Errorf("analysis window %f ms too short for %f Hz (need two periods)", p.WindowMs, p.MinPitchHz)
	case math.IsNaN(p.SilenceDB) || p.SilenceDB > 0:
		return fmt.Errorf("analysis silence threshold must be <= 0 dBFS: %f", p.SilenceDB)
	case !(p.OctaveTolerance > 0 && p.OctaveTolerance <= 1):
		return fmt.Errorf("analysis octave tolerance must be in (0,1]: %f", p.OctaveTolerance)
	case !(p.MinConfidence >= 0 && p.MinConfidence < 1):
		return fmt.Errorf("analysis minimum confidence must be in [0,1): %f", p.MinConfidence)
	case !positive(p.UnvoicedSmoothHz):
		return fmt.Errorf("analysis unvoiced smoothing must be positive and finite: %f", p.UnvoicedSmoothHz)
	}
	return nil
}

// ID returns a stable identifier for the parameter set. Any change to a
// parameter changes the identifier.
func (p Params) ID() string {
	return fmt.Sprintf("analysis/v1 hop=%g win=%g f0=%g-%g sil=%g oct=%g conf=%g us=%g bins=%d",
		p.HopMs, p.WindowMs, p.MinPitchHz, p.MaxPitchHz, p.SilenceDB,
		p.OctaveTolerance, p.MinConfidence, p.UnvoicedSmoothHz, envelopeBins)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
