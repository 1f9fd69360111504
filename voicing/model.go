package voicing

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-axis/axiserr"
	"github.com/cwbudde/algo-axis/feature"
)

const (
	opDecode = "voicing.decode"
	opSmooth = "voicing.smooth"

	minEmission = 1e-6
)

var errLengthMismatch = errors.New("pitch track and voicing path lengths differ")

// Model is a two-state voicing HMM with pitch smoothing. It is immutable
// and safe for concurrent use.
type Model struct {
	cfg config
	// logTrans[from][to], index 0 = unvoiced, 1 = voiced.
	logTrans [2][2]float64
}

// NewModel validates the options and returns a Model.
func NewModel(opts ...Option) (*Model, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m := &Model{cfg: cfg}
	m.logTrans[0][0] = math.Log(cfg.stayUnvoiced)
	m.logTrans[0][1] = math.Log(1 - cfg.stayUnvoiced)
	m.logTrans[1][1] = math.Log(cfg.stayVoiced)
	m.logTrans[1][0] = math.Log(1 - cfg.stayVoiced)

	return m, nil
}

// ParamsID identifies the model parameters for cache fingerprints.
func (m *Model) ParamsID() string {
	c := m.cfg
	return fmt.Sprintf("voicing/v1 stay=%g,%g emit=%g,%g med=%d step=%g iter=%d",
		c.stayVoiced, c.stayUnvoiced, c.threshold, c.slope, c.medianWidth, c.maxStep, c.maxIter)
}

// VoicedProbability maps a frame to P(voiced | observation). The score is
// the pitch confidence times the periodic share of the frame's energy,
// using aperiodicity weighted by each band's envelope energy.
func (m *Model) VoicedProbability(f feature.Frame, sampleRate int) float64 {
	if f.Pitch <= 0 {
		return minEmission
	}

	score := f.Confidence * (1 - weightedAperiodicity(f, sampleRate))
	p := 1 / (1 + math.Exp(-m.cfg.slope*(score-m.cfg.threshold)))

	return math.Min(math.Max(p, minEmission), 1-minEmission)
}

// Decode returns the most likely voicing path for set. Ties resolve to
// unvoiced.
func (m *Model) Decode(set *feature.Set) (feature.Path, error) {
	n := len(set.Frames)
	if n == 0 {
		return nil, axiserr.Extraction(opDecode, errors.New("no frames to decode"))
	}

	type cell struct{ u, v float64 }

	emit := func(i int) cell {
		p := m.VoicedProbability(set.Frames[i], set.SampleRate)
		return cell{u: math.Log(1 - p), v: math.Log(p)}
	}

	back := make([][2]feature.State, n)
	e := emit(0)
	score := cell{u: math.Log(0.5) + e.u, v: math.Log(0.5) + e.v}

	for i := 1; i < n; i++ {
		e = emit(i)

		var next cell
		// into unvoiced
		fromU := score.u + m.logTrans[0][0]
		fromV := score.v + m.logTrans[1][0]
		if fromV > fromU {
			next.u, back[i][0] = fromV+e.u, feature.Voiced
		} else {
			next.u, back[i][0] = fromU+e.u, feature.Unvoiced
		}
		// into voiced
		fromU = score.u + m.logTrans[0][1]
		fromV = score.v + m.logTrans[1][1]
		if fromV > fromU {
			next.v, back[i][1] = fromV+e.v, feature.Voiced
		} else {
			next.v, back[i][1] = fromU+e.v, feature.Unvoiced
		}

		score = next
	}

	path := make(feature.Path, n)
	state := feature.Unvoiced
	if score.v > score.u {
		state = feature.Voiced
	}
	for i := n - 1; i >= 0; i-- {
		path[i] = state
		if i > 0 {
			state = back[i][state]
		}
	}

	return path, nil
}

// Smooth decodes the voicing path and returns a new set whose pitch track
// has been smoothed. Voiced frames without a pitch estimate are marked
// unvoiced. The input set is not modified.
func (m *Model) Smooth(set *feature.Set) (*feature.Set, feature.Path, error) {
	path, err := m.Decode(set)
	if err != nil {
		return nil, nil, err
	}

	for i, f := range set.Frames {
		if f.Pitch <= 0 {
			path[i] = feature.Unvoiced
		}
	}

	pitch, err := m.SmoothF0(set.Pitches(), path)
	if err != nil {
		return nil, nil, err
	}

	out := set.Clone()
	for i := range out.Frames {
		out.Frames[i].Pitch = pitch[i]
	}

	return out, path, nil
}

func weightedAperiodicity(f feature.Frame, sampleRate int) float64 {
	if len(f.Envelope) < 2 || len(f.Aperiodicity) == 0 {
		return 1
	}

	var energy [feature.Bands]float64
	nyquist := float64(sampleRate) / 2
	for b, v := range f.Envelope {
		freq := float64(b) * nyquist / float64(len(f.Envelope)-1)
		energy[feature.BandIndex(freq)] += math.Exp(v)
	}

	num, den := 0.0, 0.0
	for b := 0; b < len(f.Aperiodicity) && b < feature.Bands; b++ {
		num += energy[b] * f.Aperiodicity[b]
		den += energy[b]
	}
	if den <= 0 {
		return 1
	}

	return num / den
}
