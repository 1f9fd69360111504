package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cwbudde/algo-axis/axiserr"
	"github.com/cwbudde/algo-axis/dsp/core"
	"github.com/cwbudde/algo-axis/dsp/spectrum"
	"github.com/cwbudde/algo-axis/dsp/window"
	"github.com/cwbudde/algo-axis/feature"
)

const (
	opExtract    = "analysis.extract"
	envelopeBins = feature.EnvelopeBins
)

var (
	errShortInput   = errors.New("waveform shorter than one analysis window")
	errSampleRate   = errors.New("sample rate must be > 0")
	errNonFinite    = errors.New("waveform contains non-finite samples")
	errDegenerateFr = errors.New("analysis window shorter than two samples")
)

// Extractor computes feature sets. It is safe for concurrent use.
type Extractor struct {
	cfg config
}

// NewExtractor validates the options and returns an Extractor.
func NewExtractor(opts ...Option) (*Extractor, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if err := cfg.params.Validate(); err != nil {
		return nil, err
	}

	return &Extractor{cfg: cfg}, nil
}

// Params returns the effective analysis parameters.
func (e *Extractor) Params() Params { return e.cfg.params }

// ParamsID identifies the parameters for cache fingerprints.
func (e *Extractor) ParamsID() string { return e.cfg.params.ID() }

// geometry holds the sample-rate dependent sizes shared by all workers.
type geometry struct {
	sampleRate float64
	hop        int
	win        int
	fftSize    int
	minLag     int
	maxLag     int
	hann       []float64
	hannEnergy float64
	// windowAC is the window autocorrelation normalized to 1 at lag 0.
	windowAC []float64
}

func (e *Extractor) geometry(sampleRate int) (*geometry, error) {
	p := e.cfg.params
	sr := float64(sampleRate)

	g := &geometry{
		sampleRate: sr,
		hop:        max(1, int(math.Round(sr*p.HopMs/1000))),
		win:        int(math.Round(sr * p.WindowMs / 1000)),
	}
	if g.win < 2 {
		return nil, errDegenerateFr
	}

	g.fftSize = core.NextPowerOfTwo(2 * g.win)
	g.minLag = max(2, int(math.Floor(sr/p.MaxPitchHz)))
	g.maxLag = min(int(math.Ceil(sr/p.MinPitchHz)), g.win/2)

	hann, err := window.Hann(g.win, window.WithPeriodic())
	if err != nil {
		return nil, err
	}
	g.hann = hann
	g.hannEnergy = window.Energy(hann)

	tr, err := spectrum.NewTransform(g.fftSize)
	if err != nil {
		return nil, err
	}
	g.windowAC, err = autocorrelation(tr, hann, g.maxLag+2)
	if err != nil {
		return nil, err
	}

	return g, nil
}

// Extract analyses w and returns the raw (unsmoothed) feature set.
func (e *Extractor) Extract(ctx context.Context, w feature.Waveform) (*feature.Set, error) {
	if w.SampleRate <= 0 {
		return nil, axiserr.Input(opExtract, errSampleRate)
	}
	if !core.AllFinite(w.Samples) {
		return nil, axiserr.Extraction(opExtract, errNonFinite)
	}

	g, err := e.geometry(w.SampleRate)
	if err != nil {
		return nil, axiserr.Extraction(opExtract, err)
	}
	if len(w.Samples) < g.win {
		return nil, axiserr.Input(opExtract, fmt.Errorf("%w: %d < %d samples", errShortInput, len(w.Samples), g.win))
	}

	start := time.Now()
	frames := make([]feature.Frame, feature.FrameCount(len(w.Samples), g.hop))

	workers := min(e.cfg.workers, len(frames))
	chunk := (len(frames) + workers - 1) / workers
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for wi := 0; wi < workers; wi++ {
		lo := wi * chunk
		hi := min(lo+chunk, len(frames))
		if lo >= hi {
			continue
		}

		wg.Add(1)
		go func(idx, lo, hi int) {
			defer wg.Done()
			errs[idx] = e.extractRange(ctx, g, w.Samples, frames[lo:hi], lo)
		}(wi, lo, hi)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, axiserr.Extraction(opExtract, err)
	}

	set := &feature.Set{
		SampleRate: w.SampleRate,
		Hop:        g.hop,
		ParamsID:   e.ParamsID(),
		Frames:     frames,
	}
	if err := set.Validate(); err != nil {
		return nil, axiserr.Extraction(opExtract, err)
	}

	e.cfg.logger.Debug("analysis complete",
		slog.Int("frames", len(frames)),
		slog.Int("hop", g.hop),
		slog.Int("workers", workers),
		slog.Duration("elapsed", time.Since(start)))

	return set, nil
}

func (e *Extractor) extractRange(ctx context.Context, g *geometry, samples []float64, out []feature.Frame, first int) error {
	a, err := newFrameAnalyzer(g, e.cfg.params)
	if err != nil {
		return err
	}

	for i := range out {
		if err := ctx.Err(); err != nil {
			return err
		}
		idx := first + i
		if err := a.analyze(samples, idx*g.hop, &out[i]); err != nil {
			return fmt.Errorf("frame %d: %w", idx, err)
		}
	}

	return nil
}

// autocorrelation returns the autocorrelation of x for lags [0, lags),
// normalized so that lag 0 equals 1.
func autocorrelation(tr *spectrum.Transform, x []float64, lags int) ([]float64, error) {
	spec, err := tr.ForwardReal(x)
	if err != nil {
		return nil, err
	}

	n := tr.Size()
	for k := 0; k <= n/2; k++ {
		re, im := real(spec[k]), imag(spec[k])
		spec[k] = complex(re*re+im*im, 0)
	}
	tr.MirrorHermitian()

	r := make([]float64, n)
	if err := tr.InverseReal(r); err != nil {
		return nil, err
	}

	lags = min(lags, n)
	out := make([]float64, lags)
	if r[0] <= 0 {
		return out, nil
	}
	for i := range out {
		out[i] = r[i] / r[0]
	}

	return out, nil
}
