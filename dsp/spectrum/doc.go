// Package spectrum provides the FFT framing and power-spectrum helpers used
// by feature analysis and noise synthesis.
//
// [Transform] wraps an algo-fft plan with reusable buffers. The inverse
// transform is normalized by 1/N, so Forward followed by Inverse is the
// identity. Power helpers use SIMD kernels from algo-vecmath when available.
package spectrum
