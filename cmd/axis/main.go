// Command axis is a per-note UTAU resampler.
//
// Usage:
//
//	axis <in.wav> <out.wav> <note> <velocity> <flags> <offset> <length>
//	     <consonant> <cutoff> <volume> <modulation> <tempo> [pitchbend]
//
// Configuration is read from $AXIS_CONFIG or axis.yaml beside the
// executable. $AXIS_LOG_LEVEL selects debug, info, warn or error logging on
// stderr.
package main

import (
	"fmt"
	"os"

	"github.com/cwbudde/algo-axis/cmd/axis/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
