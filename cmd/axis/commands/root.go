package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-axis/config"
)

const (
	envConfig   = "AXIS_CONFIG"
	envLogLevel = "AXIS_LOG_LEVEL"
)

var rootCmd = &cobra.Command{
	Use:   "axis <in> <out> <note> <velocity> <flags> <offset> <length> <consonant> <cutoff> <volume> <modulation> <tempo> [pitchbend]",
	Short: "Per-note vocal resampler",
	Long: `axis - resynthesizes one note of a voicebank sample.

The host passes the source and target files followed by the note, velocity,
flags, offset, length, consonant, cutoff, volume, modulation, tempo and an
optional base64 pitch-bend string. Times are in milliseconds.

Supported flags:
  g<n>  gender, shifts the formants by n/120 octaves (-100..100)
  B<n>  breathiness (0..100, 50 leaves the voice unchanged)

Environment:
  AXIS_CONFIG     configuration file (default: axis.yaml beside the binary)
  AXIS_LOG_LEVEL  debug, info, warn or error (default: warn)`,
	Args:               cobra.RangeArgs(minArgs, maxArgs),
	DisableFlagParsing: true,
	SilenceUsage:       true,
	SilenceErrors:      true,
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := parseArgs(args)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, inv, cfg, logger)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// loadConfig reads $AXIS_CONFIG, which must exist, or axis.yaml beside the
// executable, which may be absent.
func loadConfig() (*config.Config, error) {
	if path := os.Getenv(envConfig); path != "" {
		return config.Load(path)
	}

	exe, err := os.Executable()
	if err != nil {
		return config.Default(), nil
	}
	return config.LoadOrDefault(filepath.Join(filepath.Dir(exe), config.FileName))
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	name := cfg.Log.Level
	if env := os.Getenv(envLogLevel); env != "" {
		name = env
	}

	level, err := config.ParseLogLevel(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", envLogLevel, err)
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}
