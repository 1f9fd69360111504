package dither

import (
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	defaultBitDepth = 16
	defaultSeed     = 0x5444
	minBitDepth     = 2
	maxBitDepth     = 32
)

// Option configures a [Quantizer].
type Option func(*config) error

type config struct {
	bitDepth int
	typ      Type
	shaping  Shaping
	seed     uint64
}

// WithBitDepth sets the target bit depth (2-32, default 16).
func WithBitDepth(bits int) Option {
	return func(c *config) error {
		if bits < minBitDepth || bits > maxBitDepth {
			return fmt.Errorf("dither: bit depth must be in [%d, %d]: %d", minBitDepth, maxBitDepth, bits)
		}
		c.bitDepth = bits
		return nil
	}
}

// WithType sets the dither PDF (default [Triangular]).
func WithType(t Type) Option {
	return func(c *config) error {
		if !t.Valid() {
			return fmt.Errorf("dither: invalid dither type: %d", t)
		}
		c.typ = t
		return nil
	}
}

// WithShaping sets the error-feedback curve (default [ShapingNone]).
func WithShaping(s Shaping) Option {
	return func(c *config) error {
		if !s.Valid() {
			return fmt.Errorf("dither: invalid shaping: %d", s)
		}
		c.shaping = s
		return nil
	}
}

// WithSeed seeds the dither generator.
func WithSeed(seed uint64) Option {
	return func(c *config) error {
		c.seed = seed
		return nil
	}
}

// Quantizer maps samples in [-1, 1] to signed integers. It keeps error
// history and is not safe for concurrent use.
type Quantizer struct {
	bitDepth int
	typ      Type
	rng      *rand.Rand

	coeffs  []float64
	history []float64
	pos     int

	scale float64
	lo    int
	hi    int
}

// NewQuantizer returns a 16-bit TPDF quantizer unless options say otherwise.
func NewQuantizer(opts ...Option) (*Quantizer, error) {
	cfg := config{bitDepth: defaultBitDepth, typ: Triangular, seed: defaultSeed}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	coeffs := shapingCoeffs[cfg.shaping]
	full := math.Exp2(float64(cfg.bitDepth - 1))

	return &Quantizer{
		bitDepth: cfg.bitDepth,
		typ:      cfg.typ,
		rng:      rand.New(rand.NewPCG(cfg.seed, uint64(cfg.bitDepth))),
		coeffs:   coeffs,
		history:  make([]float64, len(coeffs)),
		scale:    full - 1,
		lo:       -int(full),
		hi:       int(full) - 1,
	}, nil
}

// BitDepth returns the target bit depth.
func (q *Quantizer) BitDepth() int { return q.bitDepth }

// Range returns the smallest and largest representable integers.
func (q *Quantizer) Range() (lo, hi int) { return q.lo, q.hi }

// ProcessInteger quantizes one sample. Non-finite input maps to 0.
func (q *Quantizer) ProcessInteger(x float64) int {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		x = 0
	}

	shaped := q.scale * x
	for i, c := range q.coeffs {
		idx := (q.pos - 1 - i + 2*len(q.coeffs)) % len(q.coeffs)
		shaped -= c * q.history[idx]
	}

	noise := 0.0
	if q.typ == Triangular {
		noise = q.rng.Float64() - q.rng.Float64()
	}

	out := int(math.Round(shaped + noise))
	out = max(q.lo, min(q.hi, out))

	if n := len(q.history); n > 0 {
		q.history[q.pos] = float64(out) - shaped
		q.pos = (q.pos + 1) % n
	}

	return out
}

// ProcessInts quantizes src into dst, which must be at least as long.
func (q *Quantizer) ProcessInts(dst []int, src []float64) error {
	if len(dst) < len(src) {
		return fmt.Errorf("dither: destination too short: %d < %d", len(dst), len(src))
	}
	for i, v := range src {
		dst[i] = q.ProcessInteger(v)
	}
	return nil
}

// Reset clears the error history. The dither sequence continues.
func (q *Quantizer) Reset() {
	for i := range q.history {
		q.history[i] = 0
	}
	q.pos = 0
}
