package synth

import (
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-axis/dsp/core"
	"github.com/cwbudde/algo-axis/dsp/spectrum"
	"github.com/cwbudde/algo-axis/dsp/window"
	"github.com/cwbudde/algo-axis/feature"
)

const (
	streamVoiced uint64 = iota
	streamUnvoiced
)

// noiseShape is the frame geometry shared by all noise generators of a
// render. Frame j spans samples [(j-1)*hop, (j+1)*hop) under a sine window,
// so adjacent frames sum to unit power.
type noiseShape struct {
	sr    float64
	hop   int
	size  int
	binHz float64
	// gain maps unit-variance complex bins to a one-sided PSD of 1/Hz after
	// the 1/size inverse transform.
	gain float64
	win  []float64
}

func newNoiseShape(sr float64, hop int) noiseShape {
	size := core.NextPowerOfTwo(max(2*hop, 2))
	return noiseShape{
		sr:    sr,
		hop:   hop,
		size:  size,
		binHz: sr / float64(size),
		gain:  math.Sqrt(sr * float64(size) / 4),
		win:   window.Generate(window.TypeSine, 2*hop),
	}
}

// noiseGenerator renders shaped noise frames. It is owned by one goroutine.
type noiseGenerator struct {
	shape *noiseShape
	tr    *spectrum.Transform
	frame []float64
	pcg   *rand.PCG
	rng   *rand.Rand
}

func (s *noiseShape) newGenerator() (*noiseGenerator, error) {
	tr, err := spectrum.NewTransform(s.size)
	if err != nil {
		return nil, err
	}

	pcg := rand.NewPCG(0, 0)
	return &noiseGenerator{
		shape: s,
		tr:    tr,
		frame: make([]float64, 2*s.hop),
		pcg:   pcg,
		rng:   rand.New(pcg),
	}, nil
}

// addFrame synthesizes one windowed noise frame whose PSD is
// exp(env(f)) * weights[band(f)] and adds it to dst. The generator is
// reseeded from (seed, frame, stream), so the frame does not depend on
// what was rendered before it.
func (g *noiseGenerator) addFrame(dst []float64, env []float64, weights *[feature.Bands]float64, seed uint64, frame int, stream uint64) error {
	s := g.shape
	g.pcg.Seed(seed, uint64(frame)<<1|stream)

	buf := g.tr.Buffer()
	half := s.size / 2
	buf[0] = 0
	buf[half] = 0

	sr := int(s.sr)
	for k := 1; k < half; k++ {
		re, im := g.rng.NormFloat64(), g.rng.NormFloat64()

		freq := float64(k) * s.binHz
		w := weights[feature.BandIndex(freq)]
		if w <= 0 {
			buf[k] = 0
			continue
		}

		a := s.gain * mathSqrt(mathExp(feature.EnvelopeAt(env, freq, sr))*w)
		buf[k] = complex(a*re, a*im)
	}
	g.tr.MirrorHermitian()

	if err := g.tr.InverseReal(g.frame); err != nil {
		return err
	}
	if err := window.ApplyCoefficientsInPlace(g.frame, s.win); err != nil {
		return err
	}
	vecmath.AddBlockInPlace(dst[:len(g.frame)], g.frame)

	return nil
}

// renderNoise renders the noise frames of [first, last) into chunk-local
// buffers. The final chunk renders one extra frame, held from the last
// one, so the tail keeps full overlap.
func (rc *renderContext) renderNoise(g *noiseGenerator, first, last int) (chunkNoise, error) {
	end := last
	if last == rc.frames {
		end++
	}

	hop := rc.hop
	r := chunkNoise{
		offset:   first * hop,
		voiced:   make([]float64, (end-first+1)*hop),
		unvoiced: make([]float64, (end-first+1)*hop),
	}

	var apWeights, flatWeights [feature.Bands]float64
	for j := first; j < end; j++ {
		p := min(j, rc.frames-1)
		env := rc.m.Envelope[p]
		loc := (j - first) * hop

		for b := range apWeights {
			apWeights[b] = core.Clamp(rc.m.Aperiodicity[p][b], 0, 1)
		}
		if err := g.addFrame(r.voiced[loc:], env, &apWeights, rc.cfg.noiseSeed, j, streamVoiced); err != nil {
			return chunkNoise{}, err
		}

		u := 1 - core.Clamp(rc.m.Confidence[p], 0, 1)
		for b := range flatWeights {
			flatWeights[b] = u * u
		}
		if err := g.addFrame(r.unvoiced[loc:], env, &flatWeights, rc.cfg.noiseSeed, j, streamUnvoiced); err != nil {
			return chunkNoise{}, err
		}
	}

	return r, nil
}
