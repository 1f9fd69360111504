// Package feature defines the data exchanged between the analysis, voicing,
// cache, mapping and synthesis stages.
//
// A [Set] holds one [Frame] per hop. Frame i is centred on sample i*Hop of
// the source [Waveform]. Envelopes are natural-log power spectral densities
// (power per Hz) sampled on [EnvelopeBins] uniformly spaced bins from 0 Hz
// to Nyquist, so a harmonic at f with fundamental f0 has amplitude
// sqrt(2*f0*exp(E(f))). Aperiodicity is stored per band of [BandEdges].
package feature
