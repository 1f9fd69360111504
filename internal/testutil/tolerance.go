package testutil

import (
	"fmt"
	"math"
	"testing"

	"github.com/cwbudde/algo-axis/dsp/level"
)

// RequireSliceNearlyEqual fails t if got and want differ in length or any
// pair differs by more than eps.
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		if d := math.Abs(got[i] - want[i]); d > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > %v)", i, got[i], want[i], d, eps)
		}
	}
}

// RequireFinite fails t on the first NaN or Inf sample.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("sample %d is not finite: %v", i, v)
		}
	}
}

// MaxAbsDiff returns the largest absolute sample difference.
func MaxAbsDiff(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}
	var m float64
	for i := range a {
		m = math.Max(m, math.Abs(a[i]-b[i]))
	}
	return m, nil
}

// RequireRMSBelow fails t if the RMS level of data exceeds limit.
func RequireRMSBelow(t *testing.T, data []float64, limit float64) {
	t.Helper()
	if s := level.Measure(data); s.RMS > limit {
		t.Fatalf("rms %v exceeds %v (peak %v)", s.RMS, limit, s.Peak)
	}
}

// CentsError returns the absolute pitch distance between got and want in
// cents. Non-positive frequencies are infinitely far apart.
func CentsError(got, want float64) float64 {
	if got <= 0 || want <= 0 {
		return math.Inf(1)
	}
	return math.Abs(1200 * math.Log2(got/want))
}

// RequireWithinCents fails t if got is further than limit cents from want.
func RequireWithinCents(t *testing.T, got, want, limit float64) {
	t.Helper()
	if c := CentsError(got, want); c > limit {
		t.Fatalf("pitch %.3f Hz is %.1f cents from %.3f Hz (limit %.1f)", got, c, want, limit)
	}
}
