package interp

import "math"

// Hermite4 computes cubic 4-point interpolation.
// It interpolates from x0 to x1 using neighbor points xm1 and x2.
func Hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + c0
}

// Linear2 interpolates between x0 and x1 at t in [0,1].
func Linear2(t, x0, x1 float64) float64 {
	return x0 + t*(x1-x0)
}

// HermiteAt samples points at the fractional index pos with 4-point cubic
// interpolation. Neighbors outside the curve repeat the edge value, so
// positions past the last point hold it. An empty curve yields 0.
func HermiteAt(points []float64, pos float64) float64 {
	n := len(points)
	if n == 0 {
		return 0
	}
	if pos <= 0 {
		return points[0]
	}
	if pos >= float64(n-1) {
		return points[n-1]
	}

	i := int(math.Floor(pos))
	t := pos - float64(i)

	return Hermite4(t, at(points, i-1), points[i], at(points, i+1), at(points, i+2))
}

// LinearAt samples points at the fractional index pos with linear
// interpolation, holding the edge values outside the curve.
func LinearAt(points []float64, pos float64) float64 {
	n := len(points)
	if n == 0 {
		return 0
	}
	if pos <= 0 {
		return points[0]
	}
	if pos >= float64(n-1) {
		return points[n-1]
	}

	i := int(math.Floor(pos))

	return Linear2(pos-float64(i), points[i], points[i+1])
}

// LinearVector writes the element-wise interpolation between a and b at t
// into dst. All three slices must have the same length.
func LinearVector(dst, a, b []float64, t float64) {
	for i := range dst {
		dst[i] = a[i] + t*(b[i]-a[i])
	}
}

func at(points []float64, i int) float64 {
	if i < 0 {
		return points[0]
	}
	if i >= len(points) {
		return points[len(points)-1]
	}
	return points[i]
}
