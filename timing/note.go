package timing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultBreathiness leaves aperiodicity unchanged.
	DefaultBreathiness = 50.0

	// MaxPitchBendPoints bounds a decoded pitch-bend curve. It covers ten
	// minutes at 1000 BPM.
	MaxPitchBendPoints = 10 * 60 * 1000 * 8 / 5
)

var (
	errEmptyNote     = errors.New("note name is empty")
	errBadTempo      = errors.New("tempo must be a positive number")
	errBadPitchBend  = errors.New("invalid pitch-bend data")
	errNoteRange     = errors.New("note outside MIDI range 0..127")
	errLength        = errors.New("requested length must be > 0")
	errPitchRange    = errors.New("target pitch outside supported range")
	errTempoRequired = errors.New("pitch bend requires a positive tempo")
	errNotFinite     = errors.New("note parameter must be finite")
)

// Note is one resampling request.
type Note struct {
	// MIDI is the target note number.
	MIDI int
	// Velocity scales the consonant length by 2^(1-Velocity/100).
	Velocity float64
	Flags    Flags
	// OffsetMs is where the note starts in the source.
	OffsetMs float64
	// LengthMs is the requested output duration.
	LengthMs float64
	// ConsonantMs is the unstretched head length in the source.
	ConsonantMs float64
	// CutoffMs trims the source end; negative values are measured from
	// OffsetMs instead.
	CutoffMs float64
	// Volume is the output gain in percent.
	Volume float64
	// Modulation is the percentage of the source's own pitch movement kept.
	Modulation float64
	// Tempo is in BPM and sets the pitch-bend point rate.
	Tempo float64
	// PitchBend is in semitones, one point per 5/(8*Tempo) seconds.
	PitchBend []float64
}

// Validate checks the parts of n that do not depend on the source.
func (n Note) Validate() error {
	if n.MIDI < 0 || n.MIDI > 127 {
		return fmt.Errorf("%w: %d", errNoteRange, n.MIDI)
	}
	if !(n.LengthMs > 0) || math.IsInf(n.LengthMs, 0) {
		return fmt.Errorf("%w: %v", errLength, n.LengthMs)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"velocity", n.Velocity},
		{"offset", n.OffsetMs},
		{"consonant", n.ConsonantMs},
		{"cutoff", n.CutoffMs},
		{"volume", n.Volume},
		{"modulation", n.Modulation},
		{"tempo", n.Tempo},
		{"gender", n.Flags.Gender},
		{"breathiness", n.Flags.Breathiness},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is %v", errNotFinite, f.name, f.v)
		}
	}
	for i, v := range n.PitchBend {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: pitch bend point %d is %v", errNotFinite, i, v)
		}
	}
	if len(n.PitchBend) > 0 && !(n.Tempo > 0) {
		return errTempoRequired
	}
	return nil
}

// Flags are the resampler flags understood by the mapper.
type Flags struct {
	// Gender warps the envelope by 2^(Gender/120) along frequency.
	Gender float64
	// Breathiness mixes aperiodicity toward 1 by Breathiness/100 unless it
	// equals DefaultBreathiness.
	Breathiness float64
}

// DefaultFlags returns neutral flags.
func DefaultFlags() Flags {
	return Flags{Breathiness: DefaultBreathiness}
}

// ParseFlags reads g<n> and B<n> from a host flag string. Unknown flags and
// malformed values are ignored.
func ParseFlags(s string) Flags {
	f := DefaultFlags()
	s = strings.ReplaceAll(s, "/", "")

	for i := 0; i < len(s); {
		c := s[i]
		if c != 'g' && c != 'G' && c != 'b' && c != 'B' {
			i++
			continue
		}

		j := i + 1
		for j < len(s) && (s[j] >= '0' && s[j] <= '9' || s[j] == '-' || s[j] == '.') {
			j++
		}
		if v, err := strconv.ParseFloat(s[i+1:j], 64); err == nil {
			if c == 'g' || c == 'G' {
				f.Gender = v
			} else {
				f.Breathiness = v
			}
		}
		i = j
	}

	return f
}

var noteOffsets = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// ParseNote accepts a MIDI number ("60") or a note name with optional
// accidental and octave ("C4", "C#4", "Db3", "A-1"). C4 is 60.
func ParseNote(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyNote
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}

	base, ok := noteOffsets[byte(strings.ToUpper(s[:1])[0])]
	if !ok {
		return 0, fmt.Errorf("invalid note name %q", s)
	}

	rest := s[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		base++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		base--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid octave in note %q", s)
	}

	return (octave+1)*12 + base, nil
}

// ParseTempo parses a BPM value with an optional "!" prefix.
func ParseTempo(s string) (float64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "!")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errBadTempo, s)
	}
	if !(v > 0) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v", errBadTempo, v)
	}
	return v, nil
}

// DecodePitchBend decodes the host pitch-bend string into semitones. Each
// point is two base64 digits forming a 12-bit two's complement value in
// cents. "#n#" repeats the previous point n more times. A trailing odd
// digit is ignored.
func DecodePitchBend(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}

	var out []float64
	for i, chunk := range strings.Split(s, "#") {
		if i%2 == 1 {
			if chunk == "" {
				continue
			}
			n, err := strconv.Atoi(chunk)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: run length %q", errBadPitchBend, chunk)
			}
			if len(out) == 0 {
				continue
			}
			if n > MaxPitchBendPoints-len(out) {
				return nil, fmt.Errorf("%w: more than %d points", errBadPitchBend, MaxPitchBendPoints)
			}
			last := out[len(out)-1]
			for k := 0; k < n; k++ {
				out = append(out, last)
			}
			continue
		}

		for k := 0; k+1 < len(chunk); k += 2 {
			hi, ok1 := base64Digit(chunk[k])
			lo, ok2 := base64Digit(chunk[k+1])
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("%w: digit pair %q", errBadPitchBend, chunk[k:k+2])
			}
			if len(out) >= MaxPitchBendPoints {
				return nil, fmt.Errorf("%w: more than %d points", errBadPitchBend, MaxPitchBendPoints)
			}
			v := hi<<6 | lo
			if v > 2047 {
				v -= 4096
			}
			out = append(out, float64(v)/100)
		}
	}

	return out, nil
}

func base64Digit(c byte) (int, bool) {
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c - 'A'), true
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 26, true
	case c >= '0' && c <= '9':
		return int(c-'0') + 52, true
	case c == '+':
		return 62, true
	case c == '/':
		return 63, true
	}
	return 0, false
}
