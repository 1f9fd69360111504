package biquad

// ZeroPhase filters buf in place with c applied forward and then backward,
// cancelling the phase response and squaring the magnitude response.
func ZeroPhase(c Coefficients, buf []float64) {
	if len(buf) == 0 {
		return
	}

	s := NewSection(c)
	s.ProcessBlock(buf)

	reverse(buf)
	s.Reset()
	s.ProcessBlock(buf)
	reverse(buf)
}

func reverse(buf []float64) {
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
}
