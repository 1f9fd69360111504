// Package synth renders mapped features to audio with two streams.
//
// The voiced stream is a bank of harmonics of the target pitch, one phase
// accumulator each, with amplitudes read from the spectral envelope and
// attenuated by the aperiodicity of the band each harmonic falls in. The
// unvoiced stream is Gaussian noise shaped by the envelope in the frequency
// domain and overlap-added with a power-complementary sine window. Voiced
// frames also carry a noise component weighted by their aperiodicity.
//
// The two streams are blended with equal-power gains driven by a smoothed
// voicing step. Frames are rendered in fixed chunks that may run in
// parallel: each chunk starts from a phase computed by a sequential prefix
// pass and every noise frame has its own seeded generator, so the output
// does not depend on the worker count.
package synth
