package synth

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
)

const (
	defaultMaxHarmonics = 256
	defaultCrossfadeMs  = 10.0
	defaultChunkFrames  = 32
	defaultNoiseSeed    = 0x41584953 // "AXIS"
)

var errNoHarmonics = errors.New("zero harmonics configured")

// Option configures a [Synthesizer].
type Option func(*config)

type config struct {
	maxHarmonics int
	crossfadeMs  float64
	chunkFrames  int
	noiseSeed    uint64
	workers      int
	logger       *slog.Logger
}

func defaultConfig() config {
	return config{
		maxHarmonics: defaultMaxHarmonics,
		crossfadeMs:  defaultCrossfadeMs,
		chunkFrames:  defaultChunkFrames,
		noiseSeed:    defaultNoiseSeed,
		workers:      runtime.GOMAXPROCS(0),
		logger:       slog.Default(),
	}
}

// WithMaxHarmonics caps the number of harmonics in the voiced stream.
func WithMaxHarmonics(n int) Option {
	return func(c *config) { c.maxHarmonics = n }
}

// WithCrossfadeMs sets the width of the voiced/unvoiced blend.
func WithCrossfadeMs(ms float64) Option {
	return func(c *config) { c.crossfadeMs = ms }
}

// WithChunkFrames sets the number of frames rendered per work unit.
func WithChunkFrames(n int) Option {
	return func(c *config) { c.chunkFrames = n }
}

// WithNoiseSeed sets the seed of the noise generators.
func WithNoiseSeed(seed uint64) Option {
	return func(c *config) { c.noiseSeed = seed }
}

// WithWorkers bounds the number of chunks rendered concurrently.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger used for render diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func (c config) validate() error {
	switch {
	case c.maxHarmonics < 1:
		return errNoHarmonics
	case !(c.crossfadeMs >= 0) || math.IsInf(c.crossfadeMs, 0):
		return fmt.Errorf("crossfade must be finite and >= 0: %v", c.crossfadeMs)
	case c.chunkFrames < 1:
		return fmt.Errorf("chunk frames must be >= 1: %d", c.chunkFrames)
	}
	return nil
}
