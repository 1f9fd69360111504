package timing

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-axis/axiserr"
	"github.com/cwbudde/algo-axis/dsp/core"
	"github.com/cwbudde/algo-axis/feature"
)

const (
	testRate = 16000
	testHop  = 80 // 5 ms
)

// sourceSet returns a 1 s source whose envelope value encodes the frame
// index, so mapped envelopes reveal the source position.
func sourceSet(pitch float64) (*feature.Set, feature.Path) {
	n := feature.FrameCount(testRate, testHop)
	set := &feature.Set{SampleRate: testRate, Hop: testHop, Frames: make([]feature.Frame, n)}
	path := make(feature.Path, n)
	for i := range set.Frames {
		f := feature.Frame{
			Pitch:        pitch,
			Confidence:   0.9,
			Envelope:     make([]float64, feature.EnvelopeBins),
			Aperiodicity: make([]float64, feature.Bands),
		}
		for k := range f.Envelope {
			f.Envelope[k] = -float64(i) / 1000
		}
		for b := range f.Aperiodicity {
			f.Aperiodicity[b] = 0.2
		}
		set.Frames[i] = f
		path[i] = feature.Voiced
	}
	return set, path
}

func baseNote() Note {
	return Note{
		MIDI:       57,
		Velocity:   100,
		Flags:      DefaultFlags(),
		LengthMs:   500,
		Volume:     100,
		Modulation: 0,
		Tempo:      120,
	}
}

func mustMap(t *testing.T, m *Mapper, set *feature.Set, path feature.Path, note Note) *feature.Mapped {
	t.Helper()
	out, err := m.Map(set, path, 220, note)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("mapped features invalid: %v", err)
	}
	return out
}

func requireSource(t *testing.T, out *feature.Mapped, j int, want float64) {
	t.Helper()
	if math.Abs(out.Source[j]-want) > 1e-9 {
		t.Fatalf("Source[%d] = %v, want %v", j, out.Source[j], want)
	}
	if env := -out.Envelope[j][0] * 1000; math.Abs(env-want) > 1e-6 {
		t.Fatalf("envelope at %d encodes position %v, want %v", j, env, want)
	}
}

func TestMapOutputLengthIsExact(t *testing.T) {
	t.Parallel()

	set, path := sourceSet(220)
	m := NewMapper()

	for _, length := range []float64{0.07, 1, 5.01, 123.456, 999.97, 2500, 10000} {
		note := baseNote()
		note.LengthMs = length
		note.OffsetMs = 30
		note.ConsonantMs = 80
		note.CutoffMs = -400

		out := mustMap(t, m, set, path, note)
		want := int(math.Round(length * testRate / 1000))
		if out.Samples != want {
			t.Fatalf("length %v: Samples = %d, want %d", length, out.Samples, want)
		}
		if out.Frames() != want/testHop+1 {
			t.Fatalf("length %v: frames = %d, want %d", length, out.Frames(), want/testHop+1)
		}
		for j, p := range out.Source {
			if p < 0 || p > float64(len(set.Frames)-1) {
				t.Fatalf("length %v: Source[%d] = %v outside source", length, j, p)
			}
		}
	}
}

func TestMapHeadRegion(t *testing.T) {
	t.Parallel()

	set, path := sourceSet(220)
	m := NewMapper()

	note := baseNote()
	note.OffsetMs = 100
	note.ConsonantMs = 200
	note.LengthMs = 800

	out := mustMap(t, m, set, path, note)
	for j := 0; j < 40; j++ {
		requireSource(t, out, j, 20+float64(j))
	}

	note.Velocity = 200
	out = mustMap(t, m, set, path, note)
	for j := 0; j < 20; j++ {
		requireSource(t, out, j, 20+2*float64(j))
	}
}

func TestMapTailModes(t *testing.T) {
	t.Parallel()

	set, path := sourceSet(220)

	note := baseNote()
	note.ConsonantMs = 100
	note.LengthMs = 500

	t.Run("natural", func(t *testing.T) {
		t.Parallel()
		out := mustMap(t, NewMapper(), set, path, note)
		for j := range out.Source {
			requireSource(t, out, j, float64(j))
		}
	})

	short := note
	short.CutoffMs = -300 // tail covers 100..300 ms

	t.Run("stretch", func(t *testing.T) {
		t.Parallel()
		out := mustMap(t, NewMapper(), set, path, short)
		for j := 20; j < out.Frames(); j++ {
			requireSource(t, out, j, 20+float64(j-20)/2)
		}
		requireSource(t, out, out.Frames()-1, 60)
	})

	t.Run("loop", func(t *testing.T) {
		t.Parallel()
		out := mustMap(t, NewMapper(WithTailMode(TailLoop)), set, path, short)
		for j := 20; j < out.Frames(); j++ {
			if out.Source[j] < 20-1e-9 || out.Source[j] > 60+1e-9 {
				t.Fatalf("Source[%d] = %v outside tail", j, out.Source[j])
			}
		}
		requireSource(t, out, 60, 60)
		requireSource(t, out, 80, 40)
		requireSource(t, out, 100, 20)
	})

	t.Run("degenerate", func(t *testing.T) {
		t.Parallel()
		n := note
		n.CutoffMs = -50 // ends before the consonant does
		out := mustMap(t, NewMapper(), set, path, n)
		for j := 20; j < out.Frames(); j++ {
			requireSource(t, out, j, 20)
		}
	})
}

func TestMapPitch(t *testing.T) {
	t.Parallel()

	m := NewMapper()

	set, path := sourceSet(220)
	out := mustMap(t, m, set, path, baseNote())
	for j, p := range out.Pitch {
		if p != core.MIDIToHz(57) {
			t.Fatalf("Pitch[%d] = %v, want %v", j, p, core.MIDIToHz(57))
		}
	}

	bent := baseNote()
	bent.PitchBend = []float64{1, 1, 1}
	out = mustMap(t, m, set, path, bent)
	if got, want := out.Pitch[len(out.Pitch)-1], core.MIDIToHz(58); math.Abs(got-want) > 1e-9 {
		t.Fatalf("bent pitch = %v, want %v", got, want)
	}

	// Source sits one semitone above its reference; full modulation keeps it.
	sharp, sharpPath := sourceSet(220 * math.Exp2(1.0/12))
	modulated := baseNote()
	modulated.Modulation = 100
	out = mustMap(t, m, sharp, sharpPath, modulated)
	if got, want := out.Pitch[3], core.MIDIToHz(58); math.Abs(got-want) > 1e-9 {
		t.Fatalf("modulated pitch = %v, want %v", got, want)
	}
}

func TestMapVoicingAndFlags(t *testing.T) {
	t.Parallel()

	set, path := sourceSet(220)
	for i := 40; i < 60; i++ {
		path[i] = feature.Unvoiced
	}

	note := baseNote()
	out := mustMap(t, NewMapper(), set, path, note)
	for j := range out.Voiced {
		wantVoiced := j < 40 || j >= 60
		if out.Voiced[j] != wantVoiced {
			t.Fatalf("Voiced[%d] = %v, want %v", j, out.Voiced[j], wantVoiced)
		}
		wantAp := 0.2
		if !wantVoiced {
			wantAp = 1
		}
		if math.Abs(out.Aperiodicity[j][0]-wantAp) > 1e-12 {
			t.Fatalf("Aperiodicity[%d] = %v, want %v", j, out.Aperiodicity[j][0], wantAp)
		}
	}

	note.Flags.Breathiness = 100
	out = mustMap(t, NewMapper(), set, path, note)
	if out.Aperiodicity[0][0] != 1 {
		t.Fatalf("breathy aperiodicity = %v, want 1", out.Aperiodicity[0][0])
	}
}

func TestWarpEnvelope(t *testing.T) {
	t.Parallel()

	src := make([]float64, feature.EnvelopeBins)
	for k := range src {
		src[k] = float64(k)
	}
	dst := make([]float64, len(src))

	warpEnvelope(dst, src, 2)
	if dst[10] != 20 || dst[200] != 256 {
		t.Fatalf("warp = %v, %v; want 20, 256", dst[10], dst[200])
	}
}

func TestMapErrors(t *testing.T) {
	t.Parallel()

	set, path := sourceSet(220)
	m := NewMapper()

	for _, tc := range []struct {
		name string
		edit func(*Note)
	}{
		{name: "zero length", edit: func(n *Note) { n.LengthMs = 0 }},
		{name: "negative length", edit: func(n *Note) { n.LengthMs = -10 }},
		{name: "sub-sample length", edit: func(n *Note) { n.LengthMs = 0.01 }},
		{name: "note above range", edit: func(n *Note) { n.MIDI = 128 }},
		{name: "note below range", edit: func(n *Note) { n.MIDI = -1 }},
		{name: "pitch above quarter rate", edit: func(n *Note) { n.MIDI = 120 }},
		{name: "pitch below floor", edit: func(n *Note) { n.MIDI = 10 }},
		{name: "bend without tempo", edit: func(n *Note) { n.PitchBend = []float64{0}; n.Tempo = 0 }},
		{name: "nan velocity", edit: func(n *Note) { n.Velocity = math.NaN() }},
		{name: "nan offset", edit: func(n *Note) { n.OffsetMs = math.NaN() }},
		{name: "nan cutoff", edit: func(n *Note) { n.CutoffMs = math.NaN() }},
		{name: "infinite consonant", edit: func(n *Note) { n.ConsonantMs = math.Inf(1) }},
		{name: "infinite modulation", edit: func(n *Note) { n.Modulation = math.Inf(-1) }},
		{name: "nan volume", edit: func(n *Note) { n.Volume = math.NaN() }},
		{name: "nan gender", edit: func(n *Note) { n.Flags.Gender = math.NaN() }},
		{name: "nan bend point", edit: func(n *Note) { n.PitchBend = []float64{0, math.NaN()} }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			note := baseNote()
			tc.edit(&note)
			_, err := m.Map(set, path, 220, note)
			if !errors.Is(err, axiserr.ErrSynthesis) {
				t.Fatalf("Map() error = %v, want synthesis error", err)
			}
		})
	}

	if _, err := m.Map(set, path[:3], 220, baseNote()); !errors.Is(err, axiserr.ErrSynthesis) {
		t.Fatalf("Map() path mismatch error = %v", err)
	}
}
