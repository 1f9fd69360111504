package synth

// voicingWeights returns the per-sample voicing weight in [0,1] for n
// samples: the voicing step of the nearest frame, box-filtered over width
// samples so each transition becomes a linear ramp.
func voicingWeights(voiced []bool, hop, n, width int) []float64 {
	step := make([]float64, n)
	for i := range step {
		j := min((i+hop/2)/hop, len(voiced)-1)
		if voiced[j] {
			step[i] = 1
		}
	}
	if width <= 1 {
		return step
	}

	prefix := make([]float64, n+1)
	for i, v := range step {
		prefix[i+1] = prefix[i] + v
	}

	out := make([]float64, n)
	for i := range out {
		lo := max(i-width/2, 0)
		hi := min(i-width/2+width, n)
		out[i] = (prefix[hi] - prefix[lo]) / float64(hi-lo)
	}

	return out
}
