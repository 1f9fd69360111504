package synth

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/cwbudde/algo-axis/axiserr"
	"github.com/cwbudde/algo-axis/feature"
	"github.com/cwbudde/algo-axis/internal/testutil"
)

const (
	testRate = 16000
	testHop  = 80
)

type frameSpec struct {
	pitch  float64
	logPSD float64
	// slope is added to logPSD per Hz.
	slope  float64
	ap     float64
	conf   float64
	voiced bool
}

func mapped(samples int, spec func(j int) frameSpec) *feature.Mapped {
	frames := feature.FrameCount(samples, testHop)
	m := feature.NewMapped(testRate, testHop, samples, frames)
	for j := 0; j < frames; j++ {
		s := spec(j)
		m.Pitch[j] = s.pitch
		m.Source[j] = float64(j)
		m.Confidence[j] = s.conf
		m.Voiced[j] = s.voiced
		for k := range m.Envelope[j] {
			freq := float64(k) * testRate / 2 / float64(feature.EnvelopeBins-1)
			m.Envelope[j][k] = s.logPSD + s.slope*freq
		}
		for b := range m.Aperiodicity[j] {
			m.Aperiodicity[j][b] = s.ap
		}
	}
	return m
}

func voicedSpec(pitch float64) frameSpec {
	return frameSpec{pitch: pitch, logPSD: math.Log(1e-3), conf: 1, voiced: true}
}

func mustSynth(t *testing.T, opts ...Option) *Synthesizer {
	t.Helper()
	s, err := NewSynthesizer(opts...)
	if err != nil {
		t.Fatalf("NewSynthesizer() error = %v", err)
	}
	return s
}

func mustRender(t *testing.T, s *Synthesizer, m *feature.Mapped) []float64 {
	t.Helper()
	out, err := s.Render(context.Background(), m)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	testutil.RequireFinite(t, out)
	return out
}

func power(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum / float64(len(x))
}

func TestRenderLengthIsExact(t *testing.T) {
	t.Parallel()

	s := mustSynth(t)
	for _, samples := range []int{1, 79, 80, 81, 1234, testRate} {
		m := mapped(samples, func(int) frameSpec { return voicedSpec(200) })
		out := mustRender(t, s, m)
		if len(out) != samples {
			t.Fatalf("len(out) = %d, want %d", len(out), samples)
		}
	}
}

func TestRenderHarmonicAmplitude(t *testing.T) {
	t.Parallel()

	// A single harmonic over a flat PSD S has amplitude sqrt(2*f0*S).
	m := mapped(testRate, func(int) frameSpec { return voicedSpec(250) })
	out := mustRender(t, mustSynth(t, WithMaxHarmonics(1)), m)

	want := 2 * 250 * 1e-3 / 2
	if got := power(out); math.Abs(got-want)/want > 1e-3 {
		t.Fatalf("power = %v, want %v", got, want)
	}
}

func TestRenderDominantFrequency(t *testing.T) {
	t.Parallel()

	m := mapped(testRate, func(int) frameSpec {
		s := voicedSpec(220)
		s.slope = -1.0 / 200
		return s
	})
	out := mustRender(t, mustSynth(t), m)

	got := testutil.DominantFrequency(out, testRate)
	if testutil.RelativeError(got, 220) > 0.01 {
		t.Fatalf("dominant frequency = %.2f Hz, want 220 Hz within 1%%", got)
	}
}

func TestRenderPhaseIsContinuous(t *testing.T) {
	t.Parallel()

	frames := feature.FrameCount(testRate, testHop)
	m := mapped(testRate, func(j int) frameSpec {
		return voicedSpec(200 + 200*float64(j)/float64(frames-1))
	})
	out := mustRender(t, mustSynth(t, WithMaxHarmonics(1), WithChunkFrames(3)), m)

	// Largest possible step of a 400 Hz sine with amplitude sqrt(0.8).
	limit := 1.1 * math.Sqrt(0.8) * 2 * math.Pi * 400 / testRate
	for i := 1; i < len(out); i++ {
		if d := math.Abs(out[i] - out[i-1]); d > limit {
			t.Fatalf("discontinuity at sample %d: step %v > %v", i, d, limit)
		}
	}
}

func TestRenderIndependentOfWorkers(t *testing.T) {
	t.Parallel()

	frames := feature.FrameCount(testRate/2, testHop)
	m := mapped(testRate/2, func(j int) frameSpec {
		s := voicedSpec(180 + 40*math.Sin(float64(j)/10))
		s.ap = 0.3
		s.conf = 0.7
		s.voiced = j < frames/3 || j > 2*frames/3
		return s
	})

	one := mustRender(t, mustSynth(t, WithWorkers(1), WithChunkFrames(7)), m)
	many := mustRender(t, mustSynth(t, WithWorkers(5), WithChunkFrames(7)), m)
	if !slices.Equal(one, many) {
		t.Fatal("output depends on worker count")
	}
}

func TestRenderNoiseCalibration(t *testing.T) {
	t.Parallel()

	const psd = 1e-5
	m := mapped(testRate, func(int) frameSpec {
		return frameSpec{pitch: 200, logPSD: math.Log(psd), ap: 1}
	})
	out := mustRender(t, mustSynth(t), m)

	want := psd * testRate / 2
	if got := power(out); math.Abs(got-want)/want > 0.1 {
		t.Fatalf("noise power = %v, want %v within 10%%", got, want)
	}
}

func TestRenderVoicedToUnvoicedEnergy(t *testing.T) {
	t.Parallel()

	const psd = 1e-5
	frames := feature.FrameCount(testRate, testHop)
	m := mapped(testRate, func(j int) frameSpec {
		if j < frames/2 {
			return frameSpec{pitch: 200, logPSD: math.Log(psd), conf: 1, voiced: true}
		}
		return frameSpec{pitch: 200, logPSD: math.Log(psd), ap: 1}
	})
	out := mustRender(t, mustSynth(t), m)

	const win = 160 // two pitch periods
	mid := (frames / 2) * testHop
	pv := power(out[mid-4000 : mid-1000])
	pu := power(out[mid+1000 : mid+4000])
	hi := 1.6 * math.Max(pv, pu)
	lo := 0.4 * math.Min(pv, pu)

	for start := mid - 800; start+win <= mid+800; start += win / 4 {
		p := power(out[start : start+win])
		if p > hi || p < lo {
			t.Fatalf("window at %d: power %v outside [%v, %v]", start, p, lo, hi)
		}
	}
}

func TestVoicingWeights(t *testing.T) {
	t.Parallel()

	voiced := []bool{true, true, true, false, false, false}
	w := voicingWeights(voiced, 10, 60, 10)

	if w[0] != 1 || w[59] != 0 {
		t.Fatalf("edges = %v, %v; want 1, 0", w[0], w[59])
	}
	for i := 1; i < len(w); i++ {
		if w[i] > w[i-1] {
			t.Fatalf("weight rises at %d: %v > %v", i, w[i], w[i-1])
		}
		if d := w[i-1] - w[i]; d > 0.1+1e-12 {
			t.Fatalf("weight drops by %v at %d, want a 10-sample ramp", d, i)
		}
	}

	for i, g := range voicingWeights(voiced, 10, 60, 0) {
		want := 0.0
		if (i+5)/10 < 3 {
			want = 1
		}
		if g != want {
			t.Fatalf("unsmoothed weight %d = %v, want %v", i, g, want)
		}
	}
}

func TestRenderErrors(t *testing.T) {
	t.Parallel()

	if _, err := NewSynthesizer(WithMaxHarmonics(0)); !errors.Is(err, axiserr.ErrSynthesis) {
		t.Fatalf("NewSynthesizer(0 harmonics) error = %v", err)
	}
	if _, err := NewSynthesizer(WithChunkFrames(0)); err == nil {
		t.Fatal("expected chunk size error")
	}

	s := mustSynth(t)
	for _, tc := range []struct {
		name string
		edit func(*feature.Mapped)
	}{
		{name: "nan pitch", edit: func(m *feature.Mapped) { m.Pitch[2] = math.NaN() }},
		{name: "zero pitch", edit: func(m *feature.Mapped) { m.Pitch[0] = 0 }},
		{name: "short envelope", edit: func(m *feature.Mapped) { m.Envelope[1] = m.Envelope[1][:10] }},
		{name: "missing frame", edit: func(m *feature.Mapped) { m.Voiced = m.Voiced[1:] }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m := mapped(800, func(int) frameSpec { return voicedSpec(200) })
			tc.edit(m)
			if _, err := s.Render(context.Background(), m); !errors.Is(err, axiserr.ErrSynthesis) {
				t.Fatalf("Render() error = %v, want synthesis error", err)
			}
		})
	}

	if _, err := s.Render(context.Background(), nil); !errors.Is(err, axiserr.ErrSynthesis) {
		t.Fatalf("Render(nil) error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := mapped(800, func(int) frameSpec { return voicedSpec(200) })
	if _, err := s.Render(ctx, m); !errors.Is(err, context.Canceled) {
		t.Fatalf("Render(cancelled) error = %v", err)
	}
}
