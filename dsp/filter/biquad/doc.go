// Package biquad provides biquad (second-order IIR) filter runtime primitives.
//
// A [Section] implements Direct Form II Transposed processing for a single
// second-order section defined by [Coefficients]. [ZeroPhase] runs a section
// forward and backward over a finished buffer for offline cleanup filters.
//
// Coefficient design lives in dsp/filter/design.
package biquad
