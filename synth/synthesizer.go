package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-axis/axiserr"
	"github.com/cwbudde/algo-axis/dsp/core"
	"github.com/cwbudde/algo-axis/feature"
)

const (
	opNew    = "synth.new"
	opRender = "synth.render"

	// harmonicCeiling is the share of Nyquist below which harmonics are
	// rendered.
	harmonicCeiling = 0.95
)

var (
	errNilFeatures = errors.New("no mapped features")
)

// Synthesizer renders mapped features. It is immutable and safe for
// concurrent use; all per-render state lives in a renderContext.
type Synthesizer struct {
	cfg config
}

// NewSynthesizer validates the options and returns a Synthesizer.
func NewSynthesizer(opts ...Option) (*Synthesizer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, axiserr.Synthesis(opNew, err)
	}

	return &Synthesizer{cfg: cfg}, nil
}

// Render synthesizes m and returns exactly m.Samples samples.
func (s *Synthesizer) Render(ctx context.Context, m *feature.Mapped) ([]float64, error) {
	if m == nil {
		return nil, axiserr.Synthesis(opRender, errNilFeatures)
	}
	if err := m.Validate(); err != nil {
		return nil, axiserr.Synthesis(opRender, err)
	}

	start := time.Now()
	rc := newRenderContext(m, s.cfg)

	chunks := (rc.frames + s.cfg.chunkFrames - 1) / s.cfg.chunkFrames
	workers := max(1, min(s.cfg.workers, chunks))
	perWorker := (chunks + workers - 1) / workers

	results := make([]chunkNoise, chunks)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for wi := 0; wi < workers; wi++ {
		lo := wi * perWorker
		hi := min(lo+perWorker, chunks)
		if lo >= hi {
			continue
		}

		wg.Add(1)
		go func(idx, lo, hi int) {
			defer wg.Done()
			errs[idx] = rc.renderChunks(ctx, lo, hi, results)
		}(wi, lo, hi)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, axiserr.Synthesis(opRender, err)
	}

	// Chunk noise buffers overlap by one hop on each side; merge in chunk
	// order so the sums do not depend on scheduling.
	for c := range results {
		r := results[c]
		vecmath.AddBlockInPlace(rc.voicedNoise[r.offset:r.offset+len(r.voiced)], r.voiced)
		vecmath.AddBlockInPlace(rc.unvoicedNoise[r.offset:r.offset+len(r.unvoiced)], r.unvoiced)
	}

	out := rc.mix()

	s.cfg.logger.Debug("synthesis complete",
		slog.Int("samples", len(out)),
		slog.Int("frames", rc.frames),
		slog.Int("harmonics", rc.harmonics),
		slog.Int("chunks", chunks),
		slog.Int("workers", workers),
		slog.Duration("elapsed", time.Since(start)))

	return out, nil
}

// renderContext is the per-render synthesis state: harmonic amplitudes,
// the fundamental phase at each frame start and the stream buffers.
type renderContext struct {
	m           *feature.Mapped
	cfg         config
	sr          float64
	hop         int
	frames      int
	harmonics   int
	maxHarmonic float64

	// amps[j][k-1] is the amplitude of harmonic k at frame j.
	amps [][]float64
	// phase[j] is the fundamental phase (radians, wrapped) at sample j*hop.
	phase []float64

	// harmonic covers samples [0, frames*hop).
	harmonic []float64
	// Noise buffers cover samples [-hop, frames*hop+hop); index = sample+hop.
	voicedNoise   []float64
	unvoicedNoise []float64

	noise noiseShape
}

func newRenderContext(m *feature.Mapped, cfg config) *renderContext {
	sr := float64(m.SampleRate)
	frames := m.Frames()
	hop := m.Hop

	rc := &renderContext{
		m:             m,
		cfg:           cfg,
		sr:            sr,
		hop:           hop,
		frames:        frames,
		maxHarmonic:   harmonicCeiling * sr / 2,
		harmonic:      make([]float64, frames*hop),
		voicedNoise:   make([]float64, (frames+2)*hop),
		unvoicedNoise: make([]float64, (frames+2)*hop),
		noise:         newNoiseShape(sr, hop),
	}

	lowest := math.Inf(1)
	for _, p := range m.Pitch {
		lowest = math.Min(lowest, p)
	}
	rc.harmonics = max(1, min(cfg.maxHarmonics, int(rc.maxHarmonic/lowest)))

	rc.amps = make([][]float64, frames)
	for j := range rc.amps {
		rc.amps[j] = rc.harmonicAmplitudes(j)
	}
	rc.phase = phasePrefix(m.Pitch, hop, sr)

	return rc
}

// harmonicAmplitudes evaluates the envelope at multiples of the frame's
// pitch. A harmonic with power spectral density S spread over one harmonic
// spacing f0 has amplitude sqrt(2*f0*S); its periodic share is
// sqrt(1-ap) of that.
func (rc *renderContext) harmonicAmplitudes(j int) []float64 {
	f0 := rc.m.Pitch[j]
	env := rc.m.Envelope[j]
	ap := rc.m.Aperiodicity[j]

	amps := make([]float64, rc.harmonics)
	for k := 1; k <= rc.harmonics; k++ {
		freq := float64(k) * f0
		if freq >= rc.maxHarmonic {
			break
		}
		psd := mathExp(feature.EnvelopeAt(env, freq, rc.m.SampleRate))
		periodic := 1 - core.Clamp(ap[feature.BandIndex(freq)], 0, 1)
		amps[k-1] = mathSqrt(2*f0*psd) * mathSqrt(periodic)
	}

	return amps
}

// phasePrefix returns the fundamental phase at each frame start for a
// pitch that moves linearly from frame to frame, sample by sample.
func phasePrefix(pitch []float64, hop int, sr float64) []float64 {
	out := make([]float64, len(pitch))
	h := float64(hop)
	for j := 1; j < len(pitch); j++ {
		a, b := pitch[j-1], pitch[j]
		cycles := h*a + (b-a)*(h-1)/2
		out[j] = math.Mod(out[j-1]+2*math.Pi*cycles/sr, 2*math.Pi)
	}
	return out
}

// chunkNoise holds the noise a chunk rendered into its own buffers, placed
// at offset in the render's noise buffers.
type chunkNoise struct {
	offset   int
	voiced   []float64
	unvoiced []float64
}

func (rc *renderContext) renderChunks(ctx context.Context, lo, hi int, results []chunkNoise) error {
	gen, err := rc.noise.newGenerator()
	if err != nil {
		return err
	}

	for c := lo; c < hi; c++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		first := c * rc.cfg.chunkFrames
		last := min(first+rc.cfg.chunkFrames, rc.frames)

		rc.renderHarmonics(first, last)

		r, err := rc.renderNoise(gen, first, last)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", c, err)
		}
		results[c] = r
	}

	return nil
}

// renderHarmonics writes the voiced harmonic stream for frames
// [first, last). Each harmonic keeps its own phase accumulator, started at
// k times the chunk's fundamental phase.
func (rc *renderContext) renderHarmonics(first, last int) {
	phases := make([]float64, rc.harmonics)
	for k := range phases {
		phases[k] = math.Mod(float64(k+1)*rc.phase[first], 2*math.Pi)
	}

	h := float64(rc.hop)
	for j := first; j < last; j++ {
		next := min(j+1, rc.frames-1)
		f0a, f0b := rc.m.Pitch[j], rc.m.Pitch[next]
		ampA, ampB := rc.amps[j], rc.amps[next]
		out := rc.harmonic[j*rc.hop : (j+1)*rc.hop]

		for n := range out {
			t := float64(n) / h
			step := 2 * math.Pi * (f0a + (f0b-f0a)*t) / rc.sr

			sum := 0.0
			for k, ph := range phases {
				a := ampA[k] + (ampB[k]-ampA[k])*t
				if a != 0 {
					sum += a * math.Sin(ph)
				}
				phases[k] = ph + float64(k+1)*step
			}
			out[n] = sum
		}

		for k := range phases {
			phases[k] = math.Mod(phases[k], 2*math.Pi)
		}
	}
}

// mix blends the streams with equal-power gains and trims to the
// requested length.
func (rc *renderContext) mix() []float64 {
	n := rc.m.Samples
	v := voicingWeights(rc.m.Voiced, rc.hop, n, int(math.Round(rc.cfg.crossfadeMs*rc.sr/1000)))

	gainV := make([]float64, n)
	gainU := make([]float64, n)
	for i, w := range v {
		gainV[i] = math.Sin(math.Pi / 2 * w)
		gainU[i] = math.Cos(math.Pi / 2 * w)
	}

	voiced := make([]float64, n)
	copy(voiced, rc.harmonic[:n])
	vecmath.AddBlockInPlace(voiced, rc.voicedNoise[rc.hop:rc.hop+n])
	vecmath.MulBlockInPlace(voiced, gainV)

	out := make([]float64, n)
	vecmath.MulBlock(out, rc.unvoicedNoise[rc.hop:rc.hop+n], gainU)
	vecmath.AddBlockInPlace(out, voiced)

	return out
}
