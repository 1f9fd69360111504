package commands

import (
	"context"
	"log/slog"

	"github.com/cwbudde/algo-axis/analysis"
	"github.com/cwbudde/algo-axis/axiserr"
	"github.com/cwbudde/algo-axis/cache"
	"github.com/cwbudde/algo-axis/config"
	"github.com/cwbudde/algo-axis/feature"
	"github.com/cwbudde/algo-axis/internal/wavio"
	"github.com/cwbudde/algo-axis/plugin"
	"github.com/cwbudde/algo-axis/render"
	"github.com/cwbudde/algo-axis/synth"
	"github.com/cwbudde/algo-axis/timing"
	"github.com/cwbudde/algo-axis/voicing"
)

const (
	opLoad = "cli.load"
	opSave = "cli.save"
)

// run renders one invocation and writes its output file. Any returned
// error is fatal; recovered problems are only logged.
func run(ctx context.Context, inv invocation, cfg *config.Config, logger *slog.Logger) error {
	w, err := wavio.Load(inv.in)
	if err != nil {
		return axiserr.Input(opLoad, err)
	}

	if len(w.Samples) == 0 {
		logger.Warn("input is empty; writing empty output", "in", inv.in)
		if err := wavio.Save(inv.out, feature.Waveform{SampleRate: w.SampleRate}); err != nil {
			return axiserr.Input(opSave, err)
		}
		return nil
	}

	r, err := newRenderer(cfg, logger)
	if err != nil {
		return err
	}

	res, err := r.Render(ctx, w, inv.note)
	if err != nil {
		return err
	}
	for _, werr := range res.Warnings {
		logger.Warn("recovered", "error", werr)
	}

	out := feature.Waveform{Samples: res.Samples, SampleRate: res.SampleRate}
	if rate := cfg.Output.SampleRate; rate > 0 && rate != out.SampleRate {
		if out, err = wavio.Resample(out, rate); err != nil {
			return axiserr.Synthesis(opSave, err)
		}
	}

	if err := wavio.Save(inv.out, out, wavio.WithDither(cfg.Output.Dither)); err != nil {
		return axiserr.Input(opSave, err)
	}

	logger.Debug("output written", "out", inv.out, "samples", len(out.Samples), "rate", out.SampleRate)
	return nil
}

// newRenderer builds the pipeline described by cfg. Cache and plugin
// setup problems are logged and leave the renderer without that stage.
func newRenderer(cfg *config.Config, logger *slog.Logger) (*render.Renderer, error) {
	ex, err := analysis.NewExtractor(append(cfg.AnalysisOptions(), analysis.WithLogger(logger))...)
	if err != nil {
		return nil, axiserr.Input("cli.config", err)
	}
	model, err := voicing.NewModel(cfg.VoicingOptions()...)
	if err != nil {
		return nil, axiserr.Input("cli.config", err)
	}
	syn, err := synth.NewSynthesizer(append(cfg.SynthOptions(), synth.WithLogger(logger))...)
	if err != nil {
		return nil, err
	}
	mapper := timing.NewMapper(append(cfg.MapperOptions(), timing.WithLogger(logger))...)

	return render.New(ex, model, mapper, syn,
		render.WithStore(openStore(cfg, logger)),
		render.WithDispatcher(loadPlugins(cfg, logger)),
		render.WithHighpassHz(cfg.Output.HighpassHz),
		render.WithLogger(logger),
	)
}

func openStore(cfg *config.Config, logger *slog.Logger) *cache.Store {
	dir, err := cfg.CacheDir()
	if err != nil {
		logger.Warn("feature cache disabled", "error", err)
		return cache.New("")
	}

	store := cache.New(dir, cache.WithLogger(logger))
	if !store.Enabled() {
		return store
	}

	if age, _ := cfg.TempMaxAge(); age > 0 {
		n, err := store.CleanTemp(age)
		if err != nil {
			logger.Warn("cache temp cleanup failed", "dir", dir, "error", err)
		} else if n > 0 {
			logger.Debug("removed stale cache temp files", "count", n)
		}
	}

	return store
}

func loadPlugins(cfg *config.Config, logger *slog.Logger) *plugin.Dispatcher {
	reg := plugin.NewRegistry(plugin.WithLogger(logger))
	for _, err := range reg.LoadPaths(cfg.PluginPaths()) {
		logger.Warn("plugin not loaded", "error", err)
	}
	for _, md := range reg.List() {
		logger.Debug("plugin loaded", "name", md.Name, "version", md.Version, "author", md.Author)
	}
	return plugin.NewDispatcher(reg, plugin.WithLogger(logger))
}
