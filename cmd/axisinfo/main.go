// Command axisinfo inspects the feature cache and plugin setup used by axis.
//
// Usage:
//
//	axisinfo [flags] [sample.wav ...]
//
// Without arguments it prints cache statistics. Each sample argument is
// fingerprinted with the configured analysis parameters and looked up in
// the cache.
//
// Examples:
//
//	axisinfo
//	axisinfo -config ~/voice/axis.yaml a.wav ka.wav
//	axisinfo -clean 10m
//	axisinfo -rm a.wav
//	axisinfo -plugins
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

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

func main() {
	cfgPath := flag.String("config", "", "configuration file (default: $AXIS_CONFIG or axis.yaml beside axis)")
	clean := flag.Duration("clean", 0, "remove cache temp files older than this age")
	remove := flag.Bool("rm", false, "remove the cache entries of the given samples")
	plugins := flag.Bool("plugins", false, "load the configured plugins and list them")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: axisinfo [flags] [sample.wav ...]\n\n")
		fmt.Fprintf(os.Stderr, "Inspects the axis feature cache and plugin configuration.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	dir, err := cfg.CacheDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	store := cache.New(dir, cache.WithLogger(quiet))

	if *clean > 0 {
		n, err := store.CleanTemp(*clean)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("removed %d temp files\n", n)
	}

	if *plugins {
		printPlugins(cfg, quiet)
	}

	if flag.NArg() > 0 {
		if err := printSamples(cfg, store, flag.Args(), *remove); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printStats(store)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("AXIS_CONFIG")
	}
	if path != "" {
		return config.Load(path)
	}

	exe, err := os.Executable()
	if err != nil {
		return config.Default(), nil
	}
	return config.LoadOrDefault(filepath.Join(filepath.Dir(exe), config.FileName))
}

func printStats(store *cache.Store) {
	if !store.Enabled() {
		fmt.Println("cache disabled")
		return
	}

	st, err := store.Stats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Directory\t%s\n", store.Dir())
	_, _ = fmt.Fprintf(tw, "Entries\t%d\n", st.Entries)
	_, _ = fmt.Fprintf(tw, "Size\t%.1f KiB\n", float64(st.Bytes)/1024)
	_, _ = fmt.Fprintf(tw, "Temp files\t%d\n", st.TempFiles)
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}

func printSamples(cfg *config.Config, store *cache.Store, paths []string, remove bool) error {
	ex, err := analysis.NewExtractor(cfg.AnalysisOptions()...)
	if err != nil {
		return err
	}
	model, err := voicing.NewModel(cfg.VoicingOptions()...)
	if err != nil {
		return err
	}
	syn, err := synth.NewSynthesizer(cfg.SynthOptions()...)
	if err != nil {
		return err
	}
	r, err := render.New(ex, model, timing.NewMapper(cfg.MapperOptions()...), syn)
	if err != nil {
		return err
	}
	pid := r.ParamsID()

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Sample\tDuration\tFingerprint\tCached\tFrames\tVoiced\tSource Pitch [Hz]\n")
	_, _ = fmt.Fprintf(tw, "------\t--------\t-----------\t------\t------\t------\t-----------------\n")

	for _, p := range paths {
		w, err := wavio.Load(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			continue
		}
		fp := feature.NewFingerprint(pid, w)

		status, frames, voiced, pitch := "no", "-", "-", "-"
		entry, err := store.Get(fp, pid)
		switch {
		case err == nil:
			status = "yes"
			frames = fmt.Sprint(len(entry.Set.Frames))
			voiced = fmt.Sprint(entry.Path.VoicedCount())
			pitch = fmt.Sprintf("%.2f", analysis.SourcePitch(entry.Set, entry.Path))
		case axiserr.KindOf(err) == axiserr.KindCache:
			status = "invalid"
		}

		if remove {
			if err := store.Remove(fp); err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			} else if status != "no" {
				status += " (removed)"
			}
		}

		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			filepath.Base(p),
			time.Duration(w.Duration()*float64(time.Second)).Round(time.Millisecond),
			fp.String()[:16],
			status, frames, voiced, pitch)
	}

	return tw.Flush()
}

func printPlugins(cfg *config.Config, logger *slog.Logger) {
	reg := plugin.NewRegistry(plugin.WithLogger(logger))
	for _, err := range reg.LoadPaths(cfg.PluginPaths()) {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Plugin\tVersion\tAuthor\tDescription\n")
	for _, md := range reg.List() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", md.Name, md.Version, md.Author, md.Description)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}
