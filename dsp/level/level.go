// Package level measures the time-domain level of a rendered block.
package level

import "math"

// Stats holds block level statistics.
type Stats struct {
	Length int
	DC     float64 // mean
	RMS    float64
	Peak   float64 // max |x|
	// Clipped counts samples with |x| > 1.
	Clipped int
}

// Measure computes Stats in a single pass. The DC sum uses Kahan
// compensation.
func Measure(x []float64) Stats {
	if len(x) == 0 {
		return Stats{}
	}

	var (
		sum, c float64
		sumSq  float64
		peak   float64
		clip   int
	)
	for _, v := range x {
		y := v - c
		t := sum + y
		c = (t - sum) - y
		sum = t

		sumSq += v * v

		a := math.Abs(v)
		if a > peak {
			peak = a
		}
		if a > 1 {
			clip++
		}
	}

	n := float64(len(x))
	return Stats{
		Length:  len(x),
		DC:      sum / n,
		RMS:     math.Sqrt(sumSq / n),
		Peak:    peak,
		Clipped: clip,
	}
}

// RMSdB returns the RMS level in dBFS.
func (s Stats) RMSdB() float64 { return DB(s.RMS) }

// PeakdB returns the peak level in dBFS.
func (s Stats) PeakdB() float64 { return DB(s.Peak) }

// CrestFactor returns Peak/RMS, or 0 for a silent block.
func (s Stats) CrestFactor() float64 {
	if s.RMS == 0 {
		return 0
	}
	return s.Peak / s.RMS
}

// DB converts an amplitude to decibels: 20*log10(|a|). Zero maps to -Inf.
func DB(a float64) float64 {
	a = math.Abs(a)
	if a == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(a)
}
