package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-axis/analysis"
	"github.com/cwbudde/algo-axis/axiserr"
	"github.com/cwbudde/algo-axis/cache"
	"github.com/cwbudde/algo-axis/dsp/filter/biquad"
	"github.com/cwbudde/algo-axis/dsp/filter/design"
	"github.com/cwbudde/algo-axis/dsp/level"
	"github.com/cwbudde/algo-axis/feature"
	"github.com/cwbudde/algo-axis/plugin"
	"github.com/cwbudde/algo-axis/synth"
	"github.com/cwbudde/algo-axis/timing"
	"github.com/cwbudde/algo-axis/voicing"
)

const (
	opNew    = "render.new"
	opRender = "render"
)

var (
	errMissingStage = errors.New("pipeline stage is nil")
	errEmptyInput   = errors.New("input waveform is empty")
	errSampleRate   = errors.New("sample rate must be > 0")
)

// Result is a rendered note.
type Result struct {
	Samples    []float64
	SampleRate int
	// CacheHit reports whether the features came from the cache.
	CacheHit bool
	// Level describes the final samples.
	Level level.Stats
	// Warnings holds the recovered cache and plugin errors.
	Warnings []error
}

// Renderer holds the configured pipeline stages. It is safe for concurrent
// use when its stages are.
type Renderer struct {
	extractor *analysis.Extractor
	model     *voicing.Model
	mapper    *timing.Mapper
	synth     *synth.Synthesizer

	store      *cache.Store
	plugins    *plugin.Dispatcher
	highpassHz float64
	logger     *slog.Logger

	paramsID string
}

// New returns a Renderer over the given stages.
func New(ex *analysis.Extractor, model *voicing.Model, mapper *timing.Mapper, syn *synth.Synthesizer, opts ...Option) (*Renderer, error) {
	if ex == nil || model == nil || mapper == nil || syn == nil {
		return nil, axiserr.Input(opNew, errMissingStage)
	}

	r := &Renderer{
		extractor:  ex,
		model:      model,
		mapper:     mapper,
		synth:      syn,
		store:      cache.New(""),
		plugins:    plugin.NewDispatcher(nil),
		highpassHz: defaultHighpassHz,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.highpassHz < 0 || math.IsNaN(r.highpassHz) || math.IsInf(r.highpassHz, 0) {
		return nil, axiserr.Input(opNew, fmt.Errorf("highpass cutoff must be finite and >= 0: %v", r.highpassHz))
	}

	r.paramsID = ex.ParamsID() + "|" + model.ParamsID()
	return r, nil
}

// ParamsID identifies the analysis and smoothing parameters. It is part of
// every cache fingerprint.
func (r *Renderer) ParamsID() string { return r.paramsID }

// Render produces note from w.
func (r *Renderer) Render(ctx context.Context, w feature.Waveform, note timing.Note) (*Result, error) {
	if w.SampleRate <= 0 {
		return nil, axiserr.Input(opRender, errSampleRate)
	}
	if len(w.Samples) == 0 {
		return nil, axiserr.Input(opRender, errEmptyInput)
	}

	start := time.Now()
	res := &Result{SampleRate: w.SampleRate}

	set, path, err := r.features(ctx, w, res)
	if err != nil {
		return nil, err
	}
	analysed := time.Now()

	src := analysis.SourcePitch(set, path)
	mapped, err := r.mapper.Map(set, path, src, note)
	if err != nil {
		return nil, err
	}

	res.Warnings = append(res.Warnings, r.plugins.ProcessFeatures(mapped)...)

	samples, err := r.synth.Render(ctx, mapped)
	if err != nil {
		return nil, err
	}
	synthesized := time.Now()

	res.Warnings = append(res.Warnings, r.plugins.ProcessAudio(samples, w.SampleRate)...)

	r.finish(samples, note.Volume, w.SampleRate)
	res.Samples = samples
	res.Level = level.Measure(samples)

	if res.Level.Clipped > 0 {
		r.logger.Warn("output exceeds full scale",
			slog.Int("clipped", res.Level.Clipped),
			slog.Float64("peak_db", res.Level.PeakdB()))
	}

	r.logger.Info("note rendered",
		slog.Bool("cache_hit", res.CacheHit),
		slog.Float64("source_pitch", src),
		slog.Int("samples", len(samples)),
		slog.Float64("rms_db", res.Level.RMSdB()),
		slog.Duration("features", analysed.Sub(start)),
		slog.Duration("synthesis", synthesized.Sub(analysed)),
		slog.Int("warnings", len(res.Warnings)))

	return res, nil
}

// features returns the smoothed feature set and voicing path for w, from
// the cache when possible.
func (r *Renderer) features(ctx context.Context, w feature.Waveform, res *Result) (*feature.Set, feature.Path, error) {
	fp := feature.NewFingerprint(r.paramsID, w)

	entry, err := r.store.Get(fp, r.paramsID)
	if err == nil {
		res.CacheHit = true
		return entry.Set, entry.Path, nil
	}
	if axiserr.KindOf(err) == axiserr.KindCache {
		res.Warnings = append(res.Warnings, err)
	}

	raw, err := r.extractor.Extract(ctx, w)
	if err != nil {
		return nil, nil, err
	}

	set, path, err := r.model.Smooth(raw)
	if err != nil {
		return nil, nil, err
	}
	set.ParamsID = r.paramsID

	if err := r.store.Put(ctx, fp, set, path); err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		r.logger.Warn("cache write failed", "fingerprint", fp, "error", err)
		res.Warnings = append(res.Warnings, err)
	}

	return set, path, nil
}

// finish applies the volume and the output high-pass in place.
func (r *Renderer) finish(samples []float64, volume float64, sampleRate int) {
	if len(samples) == 0 {
		return
	}

	vecmath.ScaleBlock(samples, samples, volume/100)

	if r.highpassHz > 0 && r.highpassHz < float64(sampleRate)/2 {
		biquad.ZeroPhase(design.Highpass(r.highpassHz, highpassQ, float64(sampleRate)), samples)
	}
}
