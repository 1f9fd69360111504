package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// HarmonicTone generates a tone with the given number of harmonics whose
// amplitudes fall off as 1/k, peak-normalized to amplitude.
func HarmonicTone(f0, sampleRate, amplitude float64, harmonics, length int) []float64 {
	out := make([]float64, length)
	peak := 0.0
	for i := range out {
		t := float64(i) / sampleRate
		v := 0.0
		for k := 1; k <= harmonics; k++ {
			if float64(k)*f0 >= sampleRate/2 {
				break
			}
			v += math.Sin(2*math.Pi*float64(k)*f0*t) / float64(k)
		}
		out[i] = v
		peak = math.Max(peak, math.Abs(v))
	}
	if peak > 0 {
		for i := range out {
			out[i] *= amplitude / peak
		}
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Silence returns length zero samples.
func Silence(length int) []float64 {
	return make([]float64, length)
}

// Concat joins signals end to end into a new slice.
func Concat(parts ...[]float64) []float64 {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]float64, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
