package feature

import (
	"fmt"
	"math"
)

// Timeline is the target pitch and source position of every output frame.
// Output frame j starts at sample j*Hop.
type Timeline struct {
	SampleRate int
	Hop        int
	// Samples is the exact requested output length.
	Samples int
	// Pitch is the target fundamental in Hz per output frame.
	Pitch []float64
	// Source is the fractional source frame index per output frame.
	Source []float64
}

// Frames returns the number of output frames.
func (t *Timeline) Frames() int { return len(t.Pitch) }

// Mapped holds the warped features for one output note. Plugins may edit
// the arrays in place as long as their lengths stay consistent.
type Mapped struct {
	Timeline

	Confidence   []float64
	Voiced       []bool
	Envelope     [][]float64
	Aperiodicity [][]float64
}

// Validate checks that every per-frame array has one entry per output frame,
// that envelopes and bands have the expected sizes, that every pitch is
// positive and that all values are finite.
func (m *Mapped) Validate() error {
	if m.Samples <= 0 {
		return errMappedNoSamples
	}
	if m.SampleRate <= 0 {
		return errBadSampleRate
	}
	if m.Hop <= 0 {
		return errBadHop
	}

	n := len(m.Pitch)
	if n == 0 || len(m.Source) != n || len(m.Confidence) != n || len(m.Voiced) != n ||
		len(m.Envelope) != n || len(m.Aperiodicity) != n {
		return errMappedMismatch
	}

	for j := 0; j < n; j++ {
		if len(m.Envelope[j]) != EnvelopeBins || len(m.Aperiodicity[j]) != Bands {
			return fmt.Errorf("%w: frame %d", errMappedMismatch, j)
		}
		if p := m.Pitch[j]; !finite(p) || p <= 0 {
			return fmt.Errorf("%w: %v at frame %d", errMappedPitch, p, j)
		}
		if !finite(m.Source[j]) || !finite(m.Confidence[j]) {
			return fmt.Errorf("%w: frame %d", errMappedValue, j)
		}
		for _, v := range m.Envelope[j] {
			if !finite(v) {
				return fmt.Errorf("%w: envelope at frame %d", errMappedValue, j)
			}
		}
		for _, v := range m.Aperiodicity[j] {
			if !finite(v) {
				return fmt.Errorf("%w: aperiodicity at frame %d", errMappedValue, j)
			}
		}
	}

	return nil
}

// UnvoiceZeroPitch turns every frame whose pitch is exactly zero into an
// unvoiced, fully aperiodic frame and restores its pitch from prev, so the
// noise stream keeps a valid frame rate. Frames beyond the shortest of the
// arrays involved are left alone. It returns the number of frames changed.
func (m *Mapped) UnvoiceZeroPitch(prev []float64) int {
	n := min(len(m.Pitch), len(prev), len(m.Voiced), len(m.Aperiodicity))
	changed := 0
	for j := 0; j < n; j++ {
		if m.Pitch[j] != 0 {
			continue
		}
		m.Pitch[j] = prev[j]
		m.Voiced[j] = false
		for b := range m.Aperiodicity[j] {
			m.Aperiodicity[j][b] = 1
		}
		changed++
	}
	return changed
}

// Clone returns a deep copy of m.
func (m *Mapped) Clone() *Mapped {
	out := &Mapped{
		Timeline: Timeline{
			SampleRate: m.SampleRate,
			Hop:        m.Hop,
			Samples:    m.Samples,
			Pitch:      append([]float64(nil), m.Pitch...),
			Source:     append([]float64(nil), m.Source...),
		},
		Confidence:   append([]float64(nil), m.Confidence...),
		Voiced:       append([]bool(nil), m.Voiced...),
		Envelope:     make([][]float64, len(m.Envelope)),
		Aperiodicity: make([][]float64, len(m.Aperiodicity)),
	}
	for j := range m.Envelope {
		out.Envelope[j] = append([]float64(nil), m.Envelope[j]...)
	}
	for j := range m.Aperiodicity {
		out.Aperiodicity[j] = append([]float64(nil), m.Aperiodicity[j]...)
	}
	return out
}

// NewMapped allocates a Mapped with frames output frames.
func NewMapped(sampleRate, hop, samples, frames int) *Mapped {
	m := &Mapped{
		Timeline: Timeline{
			SampleRate: sampleRate,
			Hop:        hop,
			Samples:    samples,
			Pitch:      make([]float64, frames),
			Source:     make([]float64, frames),
		},
		Confidence:   make([]float64, frames),
		Voiced:       make([]bool, frames),
		Envelope:     make([][]float64, frames),
		Aperiodicity: make([][]float64, frames),
	}
	for j := 0; j < frames; j++ {
		m.Envelope[j] = make([]float64, EnvelopeBins)
		m.Aperiodicity[j] = make([]float64, Bands)
	}
	return m
}

// MaxPitch returns the largest finite pitch in the timeline.
func (t *Timeline) MaxPitch() float64 {
	best := 0.0
	for _, p := range t.Pitch {
		if !math.IsNaN(p) && !math.IsInf(p, 0) && p > best {
			best = p
		}
	}
	return best
}
