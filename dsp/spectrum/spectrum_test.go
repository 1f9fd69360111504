package spectrum

import (
	"math"
	"testing"
)

func TestMagnitudePower(t *testing.T) {
	bins := []complex128{3 + 4i, -1 - 1i, 0}

	mag := Magnitude(bins)
	if len(mag) != len(bins) {
		t.Fatalf("Magnitude length mismatch: got=%d want=%d", len(mag), len(bins))
	}
	if math.Abs(mag[0]-5) > 1e-12 {
		t.Fatalf("Magnitude[0]=%f want=5", mag[0])
	}

	pow := Power(bins)
	if math.Abs(pow[0]-25) > 1e-12 || math.Abs(pow[1]-2) > 1e-12 || pow[2] != 0 {
		t.Fatalf("Power=%v want [25 2 0]", pow)
	}

	partial := make([]float64, 2)
	PowerInto(partial, bins)
	if partial[0] != pow[0] || partial[1] != pow[1] {
		t.Fatalf("PowerInto=%v want prefix of %v", partial, pow)
	}
}

func TestTransformRoundTrip(t *testing.T) {
	tr, err := NewTransform(64)
	if err != nil {
		t.Fatalf("NewTransform() error = %v", err)
	}

	x := make([]float64, 40)
	for i := range x {
		x[i] = math.Sin(2*math.Pi*3*float64(i)/40) + 0.25*float64(i%5)
	}

	if _, err := tr.ForwardReal(x); err != nil {
		t.Fatalf("ForwardReal() error = %v", err)
	}

	out := make([]float64, 64)
	if err := tr.InverseReal(out); err != nil {
		t.Fatalf("InverseReal() error = %v", err)
	}

	for i := range out {
		want := 0.0
		if i < len(x) {
			want = x[i]
		}
		if math.Abs(out[i]-want) > 1e-9 {
			t.Fatalf("index %d: got %.12f want %.12f", i, out[i], want)
		}
	}
}

func TestTransformSinePeak(t *testing.T) {
	const n = 256

	tr, err := NewTransform(n)
	if err != nil {
		t.Fatalf("NewTransform() error = %v", err)
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = math.Cos(2 * math.Pi * 16 * float64(i) / n)
	}

	spec, err := tr.ForwardReal(x)
	if err != nil {
		t.Fatalf("ForwardReal() error = %v", err)
	}

	pow := Power(spec[:n/2+1])
	best := 0
	for k := range pow {
		if pow[k] > pow[best] {
			best = k
		}
	}
	if best != 16 {
		t.Fatalf("peak bin = %d, want 16", best)
	}
	if math.Abs(math.Sqrt(pow[16])-n/2) > 1e-6 {
		t.Fatalf("peak magnitude = %f, want %d", math.Sqrt(pow[16]), n/2)
	}
}

func TestMirrorHermitianGivesRealSignal(t *testing.T) {
	tr, err := NewTransform(16)
	if err != nil {
		t.Fatalf("NewTransform() error = %v", err)
	}

	buf := tr.Buffer()
	for i := range buf {
		buf[i] = 0
	}
	buf[2] = complex(3, 4)
	tr.MirrorHermitian()

	if buf[14] != complex(3, -4) {
		t.Fatalf("mirror bin = %v, want (3-4i)", buf[14])
	}

	out := make([]float64, 16)
	if err := tr.InverseReal(out); err != nil {
		t.Fatalf("InverseReal() error = %v", err)
	}

	// 2*Re{(3+4i) e^{j 2 pi 2 n / 16}} / 16
	for i, v := range out {
		phase := 2 * math.Pi * 2 * float64(i) / 16
		want := 2 * (3*math.Cos(phase) - 4*math.Sin(phase)) / 16
		if math.Abs(v-want) > 1e-12 {
			t.Fatalf("index %d: got %.12f want %.12f", i, v, want)
		}
	}
}

func TestTransformValidation(t *testing.T) {
	for _, size := range []int{0, 1, 12, 100} {
		if _, err := NewTransform(size); err == nil {
			t.Fatalf("NewTransform(%d) expected error", size)
		}
	}

	tr, err := NewTransform(8)
	if err != nil {
		t.Fatalf("NewTransform() error = %v", err)
	}
	if _, err := tr.ForwardReal(make([]float64, 9)); err == nil {
		t.Fatal("expected frame length error")
	}
	if err := tr.InverseReal(make([]float64, 9)); err == nil {
		t.Fatal("expected output length error")
	}
}

func TestBoxSmooth(t *testing.T) {
	src := []float64{0, 0, 3, 0, 0}
	dst := make([]float64, len(src))

	if err := BoxSmooth(dst, src, 1); err != nil {
		t.Fatalf("BoxSmooth() error = %v", err)
	}

	want := []float64{0, 1, 1, 1, 0}
	for i := range want {
		if math.Abs(dst[i]-want[i]) > 1e-12 {
			t.Fatalf("BoxSmooth=%v want %v", dst, want)
		}
	}

	if err := BoxSmooth(dst, src, 0); err != nil || dst[2] != 3 {
		t.Fatalf("zero width should copy, got %v err=%v", dst, err)
	}
	if err := BoxSmooth(dst[:2], src, 1); err == nil {
		t.Fatal("expected length mismatch error")
	}
	if err := BoxSmooth(dst, src, -1); err == nil {
		t.Fatal("expected negative width error")
	}
}
