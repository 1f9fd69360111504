package spectrum

import (
	"fmt"
	"sync"

	"github.com/cwbudde/algo-vecmath"
)

// scratchBuf holds pooled scratch memory for complex-to-real unpacking.
type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

func getScratch(n int) (re, im []float64, buf *scratchBuf) {
	buf = scratchPool.Get().(*scratchBuf)
	need := 2 * n
	if cap(buf.data) < need {
		buf.data = make([]float64, need)
	} else {
		buf.data = buf.data[:need]
	}
	return buf.data[:n], buf.data[n:need], buf
}

func putScratch(buf *scratchBuf) {
	scratchPool.Put(buf)
}

// Power returns |X[k]|^2 for each complex spectrum bin.
func Power(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	out := make([]float64, len(in))
	PowerInto(out, in)
	return out
}

// PowerInto writes |X[k]|^2 for the first len(dst) bins of in into dst.
// Scratch buffers are pooled, so in steady state this does not allocate.
func PowerInto(dst []float64, in []complex128) {
	n := len(dst)
	if n > len(in) {
		n = len(in)
	}
	if n == 0 {
		return
	}

	re, im, buf := getScratch(n)
	for i := 0; i < n; i++ {
		re[i] = real(in[i])
		im[i] = imag(in[i])
	}

	vecmath.Power(dst[:n], re, im)
	putScratch(buf)
}

// Magnitude returns |X[k]| for each complex spectrum bin.
func Magnitude(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	out := make([]float64, len(in))
	re, im, buf := getScratch(len(in))

	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	vecmath.Magnitude(out, re, im)
	putScratch(buf)
	return out
}

// BoxSmooth averages src over a centered rectangular window spanning
// 2*halfWidth+1 bins and writes the result into dst. The window shrinks at
// the edges so every output is a mean of in-range bins only.
func BoxSmooth(dst, src []float64, halfWidth int) error {
	if len(dst) != len(src) {
		return fmt.Errorf("box smooth length mismatch: %d != %d", len(dst), len(src))
	}
	if halfWidth < 0 {
		return fmt.Errorf("box smooth half width must be >= 0: %d", halfWidth)
	}

	n := len(src)
	if n == 0 {
		return nil
	}

	if halfWidth == 0 {
		copy(dst, src)
		return nil
	}

	prefix := make([]float64, n+1)
	for i, v := range src {
		prefix[i+1] = prefix[i] + v
	}

	for i := range dst {
		lo := i - halfWidth
		if lo < 0 {
			lo = 0
		}
		hi := i + halfWidth + 1
		if hi > n {
			hi = n
		}
		dst[i] = (prefix[hi] - prefix[lo]) / float64(hi-lo)
	}

	return nil
}
