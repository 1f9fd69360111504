package testutil

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// DominantFrequency estimates the frequency of the strongest spectral peak
// in x. The signal is Hann-windowed and zero-padded four times before the
// transform, and the peak is refined by parabolic interpolation of the log
// magnitude. It returns 0 for signals shorter than two samples.
func DominantFrequency(x []float64, sampleRate float64) float64 {
	if len(x) < 2 {
		return 0
	}

	n := 1
	for n < 4*len(x) {
		n <<= 1
	}

	buf := make([]float64, n)
	for i, v := range x {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(len(x)-1))
		buf[i] = v * w
	}

	spec := fft.FFTReal(buf)

	best := 1
	for k := 1; k < n/2; k++ {
		if cmplx.Abs(spec[k]) > cmplx.Abs(spec[best]) {
			best = k
		}
	}

	delta := 0.0
	if best > 1 && best < n/2-1 {
		a := math.Log(cmplx.Abs(spec[best-1]) + 1e-300)
		b := math.Log(cmplx.Abs(spec[best]) + 1e-300)
		c := math.Log(cmplx.Abs(spec[best+1]) + 1e-300)
		if den := a - 2*b + c; den != 0 {
			delta = 0.5 * (a - c) / den
		}
	}

	return (float64(best) + delta) * sampleRate / float64(n)
}

// RelativeError returns |got-want|/|want|.
func RelativeError(got, want float64) float64 {
	if want == 0 {
		return math.Abs(got)
	}
	return math.Abs(got-want) / math.Abs(want)
}
