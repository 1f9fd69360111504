package feature

import (
	"errors"
	"fmt"
	"math"
)

// EnvelopeBins is the number of envelope samples per frame.
const EnvelopeBins = 257

// BandEdges are the lower edges (Hz) of the aperiodicity bands. The last
// band extends to Nyquist.
var BandEdges = [...]float64{0, 1000, 2000, 4000, 8000}

// Bands is the number of aperiodicity values per frame.
const Bands = len(BandEdges)

var (
	errNoFrames        = errors.New("feature set has no frames")
	errBadHop          = errors.New("feature set hop must be > 0")
	errBadSampleRate   = errors.New("feature set sample rate must be > 0")
	errPathLength      = errors.New("voicing path length does not match frame count")
	errMappedMismatch  = errors.New("mapped feature arrays have inconsistent lengths")
	errMappedNoSamples = errors.New("mapped output length must be > 0")
	errMappedPitch     = errors.New("mapped pitch must be finite and > 0")
	errMappedValue     = errors.New("mapped features contain a non-finite value")
)

// Waveform is an immutable mono sample buffer.
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the waveform length in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Frame is the analysis result for one hop.
type Frame struct {
	// Pitch is the fundamental in Hz; 0 means undefined.
	Pitch      float64
	Confidence float64
	// Envelope is the log power spectral density on EnvelopeBins bins.
	Envelope []float64
	// Aperiodicity is the noise-to-total power ratio per band, in [0,1].
	Aperiodicity []float64
}

// Set is the ordered frame sequence of one source waveform.
type Set struct {
	SampleRate int
	Hop        int
	ParamsID   string
	Frames     []Frame
}

// FrameCount returns the number of frames expected for n samples.
func FrameCount(n, hop int) int {
	if hop <= 0 {
		return 0
	}
	return n/hop + 1
}

// HopSeconds returns the frame period in seconds.
func (s *Set) HopSeconds() float64 {
	return float64(s.Hop) / float64(s.SampleRate)
}

// Validate checks structural invariants: positive rate and hop, at least one
// frame, uniform envelope and band sizes, and finite values.
func (s *Set) Validate() error {
	if s.SampleRate <= 0 {
		return errBadSampleRate
	}
	if s.Hop <= 0 {
		return errBadHop
	}
	if len(s.Frames) == 0 {
		return errNoFrames
	}

	for i := range s.Frames {
		f := &s.Frames[i]
		if len(f.Envelope) != EnvelopeBins {
			return fmt.Errorf("frame %d: envelope has %d bins, want %d", i, len(f.Envelope), EnvelopeBins)
		}
		if len(f.Aperiodicity) != Bands {
			return fmt.Errorf("frame %d: aperiodicity has %d bands, want %d", i, len(f.Aperiodicity), Bands)
		}
		if !finite(f.Pitch) || f.Pitch < 0 {
			return fmt.Errorf("frame %d: invalid pitch %v", i, f.Pitch)
		}
		if !finite(f.Confidence) || f.Confidence < 0 || f.Confidence > 1 {
			return fmt.Errorf("frame %d: confidence %v outside [0,1]", i, f.Confidence)
		}
		for _, v := range f.Envelope {
			if !finite(v) {
				return fmt.Errorf("frame %d: non-finite envelope value", i)
			}
		}
		for _, v := range f.Aperiodicity {
			if !finite(v) || v < 0 || v > 1 {
				return fmt.Errorf("frame %d: aperiodicity %v outside [0,1]", i, v)
			}
		}
	}

	return nil
}

// Clone returns a deep copy of s that shares no slices with it.
func (s *Set) Clone() *Set {
	out := &Set{
		SampleRate: s.SampleRate,
		Hop:        s.Hop,
		ParamsID:   s.ParamsID,
		Frames:     make([]Frame, len(s.Frames)),
	}
	for i, f := range s.Frames {
		out.Frames[i] = Frame{
			Pitch:        f.Pitch,
			Confidence:   f.Confidence,
			Envelope:     append([]float64(nil), f.Envelope...),
			Aperiodicity: append([]float64(nil), f.Aperiodicity...),
		}
	}
	return out
}

// Pitches returns the per-frame pitch track.
func (s *Set) Pitches() []float64 {
	out := make([]float64, len(s.Frames))
	for i, f := range s.Frames {
		out[i] = f.Pitch
	}
	return out
}

// State is the voicing decision of one frame.
type State uint8

const (
	Unvoiced State = iota
	Voiced
)

// String implements fmt.Stringer.
func (s State) String() string {
	if s == Voiced {
		return "V"
	}
	return "U"
}

// Path is the per-frame voicing decision sequence.
type Path []State

// ValidateFor checks that the path covers every frame of s.
func (p Path) ValidateFor(s *Set) error {
	if len(p) != len(s.Frames) {
		return fmt.Errorf("%w: %d != %d", errPathLength, len(p), len(s.Frames))
	}
	return nil
}

// VoicedCount returns the number of voiced frames.
func (p Path) VoicedCount() int {
	n := 0
	for _, st := range p {
		if st == Voiced {
			n++
		}
	}
	return n
}

// BandIndex returns the aperiodicity band containing freq.
func BandIndex(freq float64) int {
	for b := Bands - 1; b > 0; b-- {
		if freq >= BandEdges[b] {
			return b
		}
	}
	return 0
}

// EnvelopeAt linearly interpolates the log envelope at freq (Hz) for a set
// with the given sample rate. Frequencies outside [0, Nyquist] clamp.
func EnvelopeAt(env []float64, freq float64, sampleRate int) float64 {
	if len(env) == 0 {
		return math.Inf(-1)
	}
	nyquist := float64(sampleRate) / 2
	pos := freq / nyquist * float64(len(env)-1)
	if pos <= 0 {
		return env[0]
	}
	last := float64(len(env) - 1)
	if pos >= last {
		return env[len(env)-1]
	}
	i := int(pos)
	t := pos - float64(i)
	return env[i] + t*(env[i+1]-env[i])
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
