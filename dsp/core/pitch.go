package core

import "math"

// ReferencePitchHz is the frequency of MIDI note 69 (A4).
const ReferencePitchHz = 440.0

// MIDIToHz converts a (possibly fractional) MIDI note number to Hz.
func MIDIToHz(note float64) float64 {
	return ReferencePitchHz * math.Exp2((note-69)/12)
}

// HzToMIDI converts a frequency to a fractional MIDI note number.
// Non-positive frequencies return NaN.
func HzToMIDI(hz float64) float64 {
	if hz <= 0 {
		return math.NaN()
	}

	return 69 + 12*math.Log2(hz/ReferencePitchHz)
}

// SemitonesBetween returns the interval from a to b in semitones.
func SemitonesBetween(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return math.NaN()
	}

	return 12 * math.Log2(b/a)
}
