// Package design provides RBJ-style biquad coefficient designers consumable
// by dsp/filter/biquad.
package design
