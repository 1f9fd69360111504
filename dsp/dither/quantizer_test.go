package dither

import (
	"math"
	"testing"
)

func TestNewQuantizerValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
	}{
		{"low bit depth", []Option{WithBitDepth(1)}},
		{"high bit depth", []Option{WithBitDepth(33)}},
		{"bad type", []Option{WithType(Type(9))}},
		{"bad shaping", []Option{WithShaping(Shaping(-1))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewQuantizer(tt.opts...); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	q, err := NewQuantizer(nil)
	if err != nil {
		t.Fatalf("nil option: %v", err)
	}
	if q.BitDepth() != 16 {
		t.Fatalf("BitDepth() = %d, want 16", q.BitDepth())
	}
	if lo, hi := q.Range(); lo != -32768 || hi != 32767 {
		t.Fatalf("Range() = %d, %d", lo, hi)
	}
}

func TestQuantizerNoDitherRounds(t *testing.T) {
	t.Parallel()

	q, err := NewQuantizer(WithType(None))
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		in   float64
		want int
	}{
		{0, 0},
		{1, 32767},
		{-1, -32767},
		{2, 32767},
		{-2, -32768},
		{0.5, 16384},
		{math.NaN(), 0},
		{math.Inf(1), 0},
	} {
		if got := q.ProcessInteger(tc.in); got != tc.want {
			t.Fatalf("ProcessInteger(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestQuantizerTriangularIsBoundedAndUnbiased(t *testing.T) {
	t.Parallel()

	q, err := NewQuantizer(WithSeed(7))
	if err != nil {
		t.Fatal(err)
	}

	const n = 20000
	x := 100.25 / 32767
	sum := 0.0
	for range n {
		v := q.ProcessInteger(x)
		if v < 99 || v > 102 {
			t.Fatalf("dithered value %d outside +/-1 LSB of 100.25", v)
		}
		sum += float64(v)
	}
	if mean := sum / n; math.Abs(mean-100.25) > 0.02 {
		t.Fatalf("mean = %f, want 100.25", mean)
	}
}

func TestQuantizerDeterministicPerSeed(t *testing.T) {
	t.Parallel()

	src := make([]float64, 512)
	for i := range src {
		src[i] = 0.3 * math.Sin(float64(i)*0.05)
	}

	run := func(seed uint64) []int {
		q, err := NewQuantizer(WithSeed(seed), WithShaping(Shaping9FC))
		if err != nil {
			t.Fatal(err)
		}
		out := make([]int, len(src))
		if err := q.ProcessInts(out, src); err != nil {
			t.Fatal(err)
		}
		return out
	}

	a, b, c := run(1), run(1), run(2)
	same := true
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("index %d differs for equal seeds", i)
		}
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Fatal("different seeds produced identical output")
	}

	q, _ := NewQuantizer()
	if err := q.ProcessInts(make([]int, 1), src); err == nil {
		t.Fatal("expected short destination error")
	}
}

func TestFirstOrderShapingTracksInput(t *testing.T) {
	t.Parallel()

	q, err := NewQuantizer(WithType(None), WithShaping(ShapingFirstOrder))
	if err != nil {
		t.Fatal(err)
	}

	// Error feedback keeps the running sum of outputs within one LSB of the
	// running sum of inputs.
	x := 0.4 / 32767
	sumIn, sumOut := 0.0, 0.0
	for range 1000 {
		sumIn += x * 32767
		sumOut += float64(q.ProcessInteger(x))
		if math.Abs(sumIn-sumOut) > 1+1e-9 {
			t.Fatalf("accumulated error %f exceeds 1 LSB", sumIn-sumOut)
		}
	}
	if sumOut == 0 {
		t.Fatal("shaping should turn a sub-LSB DC input into occasional steps")
	}

	q.Reset()
	if got := q.ProcessInteger(0); got != 0 {
		t.Fatalf("after Reset ProcessInteger(0) = %d", got)
	}
}
