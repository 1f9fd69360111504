package analysis

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-axis/dsp/core"
	"github.com/cwbudde/algo-axis/dsp/spectrum"
	"github.com/cwbudde/algo-axis/feature"
)

const (
	envelopeFloor   = 1e-14
	minAperiodicity = 0.001
	// harmonicGuard widens the Hann main-lobe half width when deciding
	// whether harmonics are resolvable.
	harmonicGuard = 1.25
)

var errNonFiniteSpectrum = errors.New("non-finite spectrum")

// frameAnalyzer owns the per-goroutine scratch state.
type frameAnalyzer struct {
	g      *geometry
	params Params
	tr     *spectrum.Transform

	frame  []float64
	power  []float64
	psd    []float64
	smooth []float64
	ac     []float64
}

func newFrameAnalyzer(g *geometry, p Params) (*frameAnalyzer, error) {
	tr, err := spectrum.NewTransform(g.fftSize)
	if err != nil {
		return nil, err
	}

	half := g.fftSize/2 + 1
	return &frameAnalyzer{
		g:      g,
		params: p,
		tr:     tr,
		frame:  make([]float64, g.win),
		power:  make([]float64, half),
		psd:    make([]float64, half),
		smooth: make([]float64, half),
		ac:     make([]float64, g.fftSize),
	}, nil
}

// analyze fills out with the features of the frame centred on center.
func (a *frameAnalyzer) analyze(samples []float64, center int, out *feature.Frame) error {
	g := a.g
	start := center - g.win/2

	sum, count := 0.0, 0
	for i := range a.frame {
		j := start + i
		if j >= 0 && j < len(samples) {
			a.frame[i] = samples[j]
			sum += samples[j]
			count++
		} else {
			a.frame[i] = 0
		}
	}

	out.Envelope = make([]float64, envelopeBins)
	out.Aperiodicity = make([]float64, feature.Bands)

	if core.LinearToDB(core.RMS(a.frame)) < a.params.SilenceDB {
		a.silent(out)
		return nil
	}

	if count > 0 {
		mean := sum / float64(count)
		for i := range a.frame {
			j := start + i
			if j >= 0 && j < len(samples) {
				a.frame[i] -= mean
			}
		}
	}
	for i := range a.frame {
		a.frame[i] *= g.hann[i]
	}

	spec, err := a.tr.ForwardReal(a.frame)
	if err != nil {
		return err
	}
	spectrum.PowerInto(a.power, spec)
	if !core.AllFinite(a.power) {
		return errNonFiniteSpectrum
	}

	pitch, conf, err := a.pitch()
	if err != nil {
		return err
	}
	out.Pitch = pitch
	out.Confidence = conf

	if err := a.envelope(pitch, out.Envelope); err != nil {
		return err
	}
	a.aperiodicity(pitch, conf, out.Aperiodicity)

	return nil
}

func (a *frameAnalyzer) silent(out *feature.Frame) {
	floor := math.Log(envelopeFloor)
	for i := range out.Envelope {
		out.Envelope[i] = floor
	}
	for i := range out.Aperiodicity {
		out.Aperiodicity[i] = 1
	}
	out.Pitch = 0
	out.Confidence = 0
}

// pitch estimates the fundamental from the window-normalized
// autocorrelation of the current power spectrum.
func (a *frameAnalyzer) pitch() (float64, float64, error) {
	g := a.g
	n := g.fftSize

	buf := a.tr.Buffer()
	for k := 0; k <= n/2; k++ {
		buf[k] = complex(a.power[k], 0)
	}
	a.tr.MirrorHermitian()
	if err := a.tr.InverseReal(a.ac); err != nil {
		return 0, 0, err
	}

	r0 := a.ac[0]
	if r0 <= 0 {
		return 0, 0, nil
	}

	norm := func(lag int) float64 {
		w := g.windowAC[lag]
		if w <= 1e-6 {
			return 0
		}
		return a.ac[lag] / r0 / w
	}

	best := 0.0
	for lag := g.minLag + 1; lag < g.maxLag; lag++ {
		v := norm(lag)
		if v > norm(lag-1) && v >= norm(lag+1) && v > best {
			best = v
		}
	}
	if best <= 0 {
		return 0, 0, nil
	}

	threshold := a.params.OctaveTolerance * best
	for lag := g.minLag + 1; lag < g.maxLag; lag++ {
		y1 := norm(lag)
		y0, y2 := norm(lag-1), norm(lag+1)
		if !(y1 > y0 && y1 >= y2 && y1 >= threshold) {
			continue
		}

		delta := 0.0
		if den := y0 - 2*y1 + y2; den < 0 {
			delta = 0.5 * (y0 - y2) / den
		}
		peak := y1 - 0.25*(y0-y2)*delta
		conf := core.Clamp(peak, 0, 1)
		if conf < a.params.MinConfidence {
			return 0, conf, nil
		}

		return g.sampleRate / (float64(lag) + delta), conf, nil
	}

	return 0, 0, nil
}

// envelope writes the log power spectral density smoothed over one
// harmonic spacing into env.
func (a *frameAnalyzer) envelope(pitch float64, env []float64) error {
	g := a.g
	binHz := g.sampleRate / float64(g.fftSize)

	scale := 2 / (g.sampleRate * g.hannEnergy)
	for k, p := range a.power {
		a.psd[k] = p * scale
	}

	width := a.params.UnvoicedSmoothHz
	if pitch > 0 {
		width = pitch
	}
	half := max(0, int(math.Round((width/binHz-1)/2)))
	if err := spectrum.BoxSmooth(a.smooth, a.psd, half); err != nil {
		return err
	}

	nyquist := g.sampleRate / 2
	last := len(a.smooth) - 1
	for b := range env {
		pos := float64(b) * nyquist / float64(len(env)-1) / binHz
		i := int(pos)
		v := a.smooth[min(i, last)]
		if i < last {
			v = core.Lerp(a.smooth[i], a.smooth[i+1], pos-float64(i))
		}
		env[b] = math.Log(math.Max(v, envelopeFloor))
	}

	return nil
}

// aperiodicity compares the power between harmonics with the mean band
// power. Frames whose harmonics overlap within the window's main lobe fall
// back to 1-confidence.
func (a *frameAnalyzer) aperiodicity(pitch, conf float64, ap []float64) {
	g := a.g
	if pitch <= 0 {
		for b := range ap {
			ap[b] = 1
		}
		return
	}

	fallback := core.Clamp(1-conf, minAperiodicity, 1)
	lobeHalfWidth := 2 * g.sampleRate / float64(g.win)
	if pitch/2 <= harmonicGuard*lobeHalfWidth {
		for b := range ap {
			ap[b] = fallback
		}
		return
	}

	binHz := g.sampleRate / float64(g.fftSize)
	nyquist := g.sampleRate / 2
	last := len(a.power) - 1

	for b := range ap {
		lo := feature.BandEdges[b]
		hi := nyquist
		if b+1 < feature.Bands {
			hi = math.Min(feature.BandEdges[b+1], nyquist)
		}
		if lo >= nyquist {
			if b > 0 {
				ap[b] = ap[b-1]
			} else {
				ap[b] = fallback
			}
			continue
		}

		kLo := int(math.Ceil(lo / binHz))
		kHi := min(int(math.Floor(hi/binHz)), last)
		bandSum, bandN := 0.0, 0
		for k := kLo; k <= kHi; k++ {
			bandSum += a.power[k]
			bandN++
		}

		gapSum, gapN := 0.0, 0
		for h := math.Floor(lo/pitch) + 0.5; h*pitch < hi; h++ {
			f := h * pitch
			if f < lo || f <= 0 {
				continue
			}
			k := int(math.Round(f / binHz))
			if k > last {
				break
			}
			gapSum += a.power[k]
			gapN++
		}

		if bandN == 0 || gapN == 0 || bandSum <= 0 {
			ap[b] = fallback
			continue
		}

		ratio := (gapSum / float64(gapN)) / (bandSum / float64(bandN))
		ap[b] = core.Clamp(ratio, minAperiodicity, 1)
	}
}
