package timing

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/algo-axis/axiserr"
	"github.com/cwbudde/algo-axis/dsp/core"
	"github.com/cwbudde/algo-axis/dsp/interp"
	"github.com/cwbudde/algo-axis/feature"
)

// MinPitchHz is the lowest target pitch the synthesizer accepts. The upper
// limit is a quarter of the sample rate.
const MinPitchHz = 20.0

const opMap = "timing.map"

// Mapper warps source features onto a note's output timeline. A Mapper is
// immutable and safe for concurrent use.
type Mapper struct {
	tail   TailMode
	logger *slog.Logger
}

// NewMapper returns a Mapper with the given options.
func NewMapper(opts ...Option) *Mapper {
	m := &Mapper{tail: TailStretch, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// TailMode returns the configured tail strategy.
func (m *Mapper) TailMode() TailMode { return m.tail }

// region describes the source span played for one note, in milliseconds.
type region struct {
	start, consonantEnd, end float64
	headOut                  float64
	remain                   float64
}

// Map builds the output features for note from a smoothed set and its
// voicing path. sourcePitch is the reference the source's pitch deviation
// is measured against. The result has exactly round(LengthMs*sr/1000)
// samples and one frame per hop.
func (m *Mapper) Map(set *feature.Set, path feature.Path, sourcePitch float64, note Note) (*feature.Mapped, error) {
	if err := note.Validate(); err != nil {
		return nil, axiserr.Synthesis(opMap, err)
	}
	if err := set.Validate(); err != nil {
		return nil, axiserr.Synthesis(opMap, err)
	}
	if err := path.ValidateFor(set); err != nil {
		return nil, axiserr.Synthesis(opMap, err)
	}

	sr := set.SampleRate
	samples := int(math.Round(note.LengthMs * float64(sr) / 1000))
	if samples <= 0 {
		return nil, axiserr.Synthesis(opMap, fmt.Errorf("%w: %v ms is shorter than one sample", errLength, note.LengthMs))
	}

	frames := feature.FrameCount(samples, set.Hop)
	hopMs := 1000 * float64(set.Hop) / float64(sr)
	last := float64(len(set.Frames) - 1)
	reg := m.region(note, last*hopMs)

	out := feature.NewMapped(sr, set.Hop, samples, frames)
	maxPitch := float64(sr) / 4
	warp := math.Exp2(note.Flags.Gender / 120)
	pps := 8 * note.Tempo / 5
	mod := note.Modulation / 100
	scratch := make([]float64, feature.EnvelopeBins)

	for j := 0; j < frames; j++ {
		t := float64(j) * hopMs
		pos := core.Clamp(m.sourceTime(reg, t)/hopMs, 0, last)
		out.Source[j] = pos

		i0 := int(math.Floor(pos))
		i1 := min(i0+1, len(set.Frames)-1)
		frac := pos - float64(i0)
		a, b := &set.Frames[i0], &set.Frames[i1]

		out.Confidence[j] = interp.Linear2(frac, a.Confidence, b.Confidence)
		out.Voiced[j] = path[int(math.Round(pos))] == feature.Voiced

		env := out.Envelope[j]
		if warp == 1 {
			interp.LinearVector(env, a.Envelope, b.Envelope, frac)
		} else {
			interp.LinearVector(scratch, a.Envelope, b.Envelope, frac)
			warpEnvelope(env, scratch, warp)
		}

		ap := out.Aperiodicity[j]
		interp.LinearVector(ap, a.Aperiodicity, b.Aperiodicity, frac)
		shapeAperiodicity(ap, note.Flags.Breathiness, out.Voiced[j])

		deviation := 0.0
		if src := interp.Linear2(frac, a.Pitch, b.Pitch); src > 0 && sourcePitch > 0 {
			deviation = core.SemitonesBetween(sourcePitch, src)
		}
		bend := 0.0
		if len(note.PitchBend) > 0 {
			bend = interp.HermiteAt(note.PitchBend, t/1000*pps)
		}

		f0 := core.MIDIToHz(float64(note.MIDI) + bend + mod*deviation)
		if !core.IsFinite(f0) || f0 < MinPitchHz || f0 > maxPitch {
			return nil, axiserr.Synthesis(opMap, fmt.Errorf("%w: %.2f Hz at frame %d (allowed %.0f..%.0f)",
				errPitchRange, f0, j, MinPitchHz, maxPitch))
		}
		out.Pitch[j] = f0
	}

	m.logger.Debug("mapped note",
		"midi", note.MIDI,
		"samples", samples,
		"frames", frames,
		"head_ms", reg.headOut,
		"tail_ms", reg.end-reg.consonantEnd,
		"tail_mode", m.tail.String())

	return out, nil
}

// region resolves the note's source span against a source of srcMs
// milliseconds. Every bound is clamped into the source.
func (m *Mapper) region(note Note, srcMs float64) region {
	start := core.Clamp(note.OffsetMs, 0, srcMs)
	consEnd := core.Clamp(start+math.Max(note.ConsonantMs, 0), start, srcMs)

	var end float64
	if note.CutoffMs < 0 {
		end = note.OffsetMs - note.CutoffMs
	} else {
		end = srcMs - note.CutoffMs
	}
	end = core.Clamp(end, consEnd, srcMs)

	head := math.Max(note.ConsonantMs, 0) * math.Exp2(1-note.Velocity/100)

	return region{
		start:        start,
		consonantEnd: consEnd,
		end:          end,
		headOut:      head,
		remain:       math.Max(note.LengthMs-head, 0),
	}
}

// sourceTime returns the source time (ms) played at output time t (ms).
func (m *Mapper) sourceTime(r region, t float64) float64 {
	if t < r.headOut {
		return r.start + t/r.headOut*(r.consonantEnd-r.start)
	}

	u := t - r.headOut
	tail := r.end - r.consonantEnd
	switch {
	case tail <= 0:
		return r.consonantEnd
	case tail >= r.remain:
		return r.consonantEnd + u
	case m.tail == TailLoop:
		p := math.Mod(u, 2*tail)
		if p > tail {
			p = 2*tail - p
		}
		return r.consonantEnd + p
	default:
		return r.consonantEnd + u*tail/r.remain
	}
}

// warpEnvelope resamples src along frequency so that dst[k] = src[k*ratio],
// holding the edge bins outside the range.
func warpEnvelope(dst, src []float64, ratio float64) {
	for k := range dst {
		dst[k] = interp.LinearAt(src, float64(k)*ratio)
	}
}

// shapeAperiodicity applies the breathiness flag and forces unvoiced frames
// fully aperiodic.
func shapeAperiodicity(ap []float64, breathiness float64, voiced bool) {
	if !voiced {
		for b := range ap {
			ap[b] = 1
		}
		return
	}
	if breathiness == DefaultBreathiness {
		return
	}

	mix := core.Clamp(breathiness/100, 0, 1)
	for b := range ap {
		ap[b] = core.Clamp(ap[b]+(1-ap[b])*mix, 0, 1)
	}
}
