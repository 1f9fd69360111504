package spectrum

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Transform is a fixed-size complex FFT with a reusable work buffer.
// A Transform is not safe for concurrent use; create one per goroutine.
type Transform struct {
	size int
	plan *algofft.Plan[complex128]
	buf  []complex128
}

// NewTransform creates a transform of the given power-of-two size.
func NewTransform(size int) (*Transform, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("spectrum: fft size must be a power of two >= 2: %d", size)
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("spectrum: failed to create FFT plan: %w", err)
	}

	return &Transform{
		size: size,
		plan: plan,
		buf:  make([]complex128, size),
	}, nil
}

// Size returns the FFT length.
func (t *Transform) Size() int { return t.size }

// Buffer returns the transform's work buffer. Its contents are overwritten
// by ForwardReal.
func (t *Transform) Buffer() []complex128 { return t.buf }

// ForwardReal zero-pads x to the transform size and returns its spectrum.
// The returned slice aliases the work buffer.
func (t *Transform) ForwardReal(x []float64) ([]complex128, error) {
	if len(x) > t.size {
		return nil, fmt.Errorf("spectrum: frame length %d exceeds fft size %d", len(x), t.size)
	}

	for i := range t.buf {
		if i < len(x) {
			t.buf[i] = complex(x[i], 0)
		} else {
			t.buf[i] = 0
		}
	}

	if err := t.plan.Forward(t.buf, t.buf); err != nil {
		return nil, fmt.Errorf("spectrum: forward FFT failed: %w", err)
	}

	return t.buf, nil
}

// InverseReal transforms the Hermitian spectrum in the work buffer back to
// the time domain and writes the real part into dst.
func (t *Transform) InverseReal(dst []float64) error {
	if len(dst) > t.size {
		return fmt.Errorf("spectrum: output length %d exceeds fft size %d", len(dst), t.size)
	}

	if err := t.plan.Inverse(t.buf, t.buf); err != nil {
		return fmt.Errorf("spectrum: inverse FFT failed: %w", err)
	}

	for i := range dst {
		dst[i] = real(t.buf[i])
	}

	return nil
}

// MirrorHermitian fills the upper half of the work buffer from bins
// 1..size/2-1 so the inverse transform is real. DC and Nyquist imaginary
// parts are cleared.
func (t *Transform) MirrorHermitian() {
	half := t.size / 2
	t.buf[0] = complex(real(t.buf[0]), 0)
	t.buf[half] = complex(real(t.buf[half]), 0)
	for k := 1; k < half; k++ {
		v := t.buf[k]
		t.buf[t.size-k] = complex(real(v), -imag(v))
	}
}
