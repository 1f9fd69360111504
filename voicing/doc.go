// Package voicing decides which frames are voiced and smooths the pitch
// track accordingly.
//
// [Model.Decode] runs a two-state hidden Markov model (voiced, unvoiced)
// with a log-domain Viterbi pass over the whole utterance. Sticky
// transition probabilities penalize rapid alternation, so isolated
// low-confidence frames inside a vowel stay voiced.
//
// [Model.SmoothF0] bridges unvoiced gaps by interpolation, limits the slew
// between adjacent voiced frames and median-filters each voiced segment to
// a root signal. The result is a fixed point: smoothing it again returns
// it unchanged.
package voicing
