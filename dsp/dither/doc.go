// Package dither converts floating-point samples to integer PCM.
//
// A [Quantizer] scales, optionally adds triangular (TPDF) dither, optionally
// feeds the quantization error back through an FIR noise shaper, rounds and
// clips to the bit-depth range. The dither generator is seeded explicitly so
// repeated renders of the same note write identical files.
package dither
