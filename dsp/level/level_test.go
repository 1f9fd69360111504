package level

import (
	"math"
	"testing"
)

func TestMeasure(t *testing.T) {
	t.Parallel()

	s := Measure([]float64{1, -1, 1, -1})
	if s.Length != 4 || s.DC != 0 || s.RMS != 1 || s.Peak != 1 || s.Clipped != 0 {
		t.Fatalf("square wave stats = %+v", s)
	}
	if s.CrestFactor() != 1 {
		t.Fatalf("crest factor = %v, want 1", s.CrestFactor())
	}

	s = Measure([]float64{0.5, 0.5, 1.5, -2})
	if s.Peak != 2 || s.Clipped != 2 {
		t.Fatalf("clipping stats = %+v", s)
	}
	if math.Abs(s.DC-0.125) > 1e-15 {
		t.Fatalf("DC = %v, want 0.125", s.DC)
	}

	if got := Measure(nil); got != (Stats{}) || got.CrestFactor() != 0 {
		t.Fatalf("empty stats = %+v", got)
	}
}

func TestDB(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in, want float64
	}{
		{1, 0},
		{-0.1, -20},
		{10, 20},
	} {
		if got := DB(tc.in); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("DB(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if !math.IsInf(DB(0), -1) {
		t.Fatal("DB(0) should be -Inf")
	}

	s := Measure([]float64{0.5, -0.5})
	if math.Abs(s.PeakdB()-DB(0.5)) > 1e-12 || math.Abs(s.RMSdB()-DB(0.5)) > 1e-12 {
		t.Fatalf("dB accessors = %v, %v", s.PeakdB(), s.RMSdB())
	}
}
