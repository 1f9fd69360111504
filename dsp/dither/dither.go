package dither

import "fmt"

// Type selects the probability distribution of the dither noise.
type Type int

const (
	// None rounds without dither.
	None Type = iota
	// Triangular adds TPDF noise of +/-1 LSB peak.
	Triangular

	typeCount
)

var typeNames = [typeCount]string{"None", "Triangular"}

// String returns the name of the dither type.
func (t Type) String() string {
	if t >= 0 && t < typeCount {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// Valid reports whether t is a known dither type.
func (t Type) Valid() bool {
	return t >= 0 && t < typeCount
}

// Shaping selects the error-feedback filter.
type Shaping int

const (
	// ShapingNone leaves the quantization error white.
	ShapingNone Shaping = iota
	// ShapingFirstOrder uses simple error feedback (first-order highpass).
	ShapingFirstOrder
	// Shaping9FC is a 9th order F-weighted curve for 44.1 kHz material.
	Shaping9FC

	shapingCount
)

var shapingCoeffs = [shapingCount][]float64{
	ShapingNone:       nil,
	ShapingFirstOrder: {1},
	Shaping9FC: {
		2.412, -3.370, 3.937, -4.174, 3.353,
		-2.205, 1.281, -0.569, 0.0847,
	},
}

// Valid reports whether s is a known shaping curve.
func (s Shaping) Valid() bool {
	return s >= 0 && s < shapingCount
}
