package commands

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-axis/axiserr"
	"github.com/cwbudde/algo-axis/timing"
)

const (
	opArgs = "cli.args"

	minArgs = 12
	maxArgs = 13
)

// invocation is one decoded host call.
type invocation struct {
	in   string
	out  string
	note timing.Note
}

// parseArgs decodes the positional host arguments:
// in out note velocity flags offset length consonant cutoff volume
// modulation tempo [pitchbend].
func parseArgs(args []string) (invocation, error) {
	if len(args) < minArgs || len(args) > maxArgs {
		return invocation{}, axiserr.Errorf(axiserr.KindInput, opArgs,
			"expected %d or %d arguments, got %d", minArgs, maxArgs, len(args))
	}

	inv := invocation{in: args[0], out: args[1]}
	n := &inv.note

	midi, err := timing.ParseNote(args[2])
	if err != nil {
		return invocation{}, axiserr.Input(opArgs, err)
	}
	n.MIDI = midi
	n.Flags = timing.ParseFlags(args[4])

	floats := []struct {
		name string
		arg  string
		dst  *float64
	}{
		{"velocity", args[3], &n.Velocity},
		{"offset", args[5], &n.OffsetMs},
		{"length", args[6], &n.LengthMs},
		{"consonant", args[7], &n.ConsonantMs},
		{"cutoff", args[8], &n.CutoffMs},
		{"volume", args[9], &n.Volume},
		{"modulation", args[10], &n.Modulation},
	}
	for _, f := range floats {
		v, err := strconv.ParseFloat(strings.TrimSpace(f.arg), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return invocation{}, axiserr.Errorf(axiserr.KindInput, opArgs, "invalid %s %q", f.name, f.arg)
		}
		*f.dst = v
	}

	if n.Tempo, err = timing.ParseTempo(args[11]); err != nil {
		return invocation{}, axiserr.Input(opArgs, err)
	}

	if len(args) == maxArgs {
		if n.PitchBend, err = timing.DecodePitchBend(args[12]); err != nil {
			return invocation{}, axiserr.Input(opArgs, fmt.Errorf("pitchbend: %w", err))
		}
	}

	return inv, nil
}
