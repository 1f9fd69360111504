package voicing

import (
	"fmt"
	"math"
	"slices"

	"github.com/cwbudde/algo-axis/axiserr"
	"github.com/cwbudde/algo-axis/feature"
)

// stepTolerance absorbs rounding when re-checking an already clamped step.
const stepTolerance = 1e-9

// SmoothF0 returns a smoothed copy of pitch:
//
//  1. unvoiced frames (and voiced frames without a pitch) are bridged by
//     linear interpolation between the nearest voiced anchors, holding the
//     edge values;
//  2. within each voiced segment the step between adjacent frames is
//     limited to the configured number of semitones;
//  3. each voiced segment is median filtered until it no longer changes;
//  4. unvoiced frames are bridged again from the final voiced values.
//
// Median filtering cannot widen the largest adjacent step, so the slew
// bound from step 2 still holds after step 3, and applying SmoothF0 to its
// own output returns it unchanged. If no frame is voiced every value is 0.
func (m *Model) SmoothF0(pitch []float64, path feature.Path) ([]float64, error) {
	if len(pitch) != len(path) {
		return nil, axiserr.Extraction(opSmooth, fmt.Errorf("%w: %d != %d", errLengthMismatch, len(pitch), len(path)))
	}

	out := slices.Clone(pitch)

	anchor := func(i int) bool { return path[i] == feature.Voiced && pitch[i] > 0 }
	if !bridge(out, anchor) {
		return out, nil
	}

	for lo := 0; lo < len(out); {
		if path[lo] != feature.Voiced {
			lo++
			continue
		}
		hi := lo
		for hi < len(out) && path[hi] == feature.Voiced {
			hi++
		}

		seg := out[lo:hi]
		limitSlew(seg, m.cfg.maxStep)
		medianRoot(seg, m.cfg.medianWidth/2, m.cfg.maxIter)

		lo = hi
	}

	bridge(out, func(i int) bool { return path[i] == feature.Voiced })

	return out, nil
}

// bridge overwrites every non-anchor value by linear interpolation between
// the surrounding anchors, holding the nearest anchor at the edges. It
// returns false and zeroes xs when there is no anchor.
func bridge(xs []float64, anchor func(int) bool) bool {
	prev := -1
	for i := range xs {
		if !anchor(i) {
			continue
		}

		switch {
		case prev < 0:
			for j := 0; j < i; j++ {
				xs[j] = xs[i]
			}
		case i-prev > 1:
			a, b := xs[prev], xs[i]
			span := float64(i - prev)
			for j := prev + 1; j < i; j++ {
				xs[j] = a + (b-a)*float64(j-prev)/span
			}
		}
		prev = i
	}

	if prev < 0 {
		for i := range xs {
			xs[i] = 0
		}
		return false
	}

	for j := prev + 1; j < len(xs); j++ {
		xs[j] = xs[prev]
	}

	return true
}

// limitSlew clamps each value to within maxStep semitones of its
// predecessor.
func limitSlew(seg []float64, maxStep float64) {
	ratio := math.Exp2(maxStep / 12)
	for i := 1; i < len(seg); i++ {
		st := 12 * math.Log2(seg[i]/seg[i-1])
		switch {
		case st > maxStep+stepTolerance:
			seg[i] = seg[i-1] * ratio
		case st < -maxStep-stepTolerance:
			seg[i] = seg[i-1] / ratio
		}
	}
}

// medianRoot applies a running median of radius r with edge replication
// until the segment is a root signal or maxIter passes have run.
func medianRoot(seg []float64, r, maxIter int) {
	if r == 0 || len(seg) < 3 {
		return
	}

	win := make([]float64, 2*r+1)
	next := make([]float64, len(seg))

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i := range seg {
			for k := -r; k <= r; k++ {
				j := min(max(i+k, 0), len(seg)-1)
				win[k+r] = seg[j]
			}
			slices.Sort(win)
			next[i] = win[r]
			if next[i] != seg[i] {
				changed = true
			}
		}
		if !changed {
			return
		}
		copy(seg, next)
	}
}
