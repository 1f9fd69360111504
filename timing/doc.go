// Package timing maps a smoothed source feature set onto the output grid of
// one note.
//
// The source is split at offset+consonant into a head that plays over a
// velocity-scaled span and a tail that fills the rest of the requested
// length, either at natural speed, stretched or ping-pong looped. Target
// pitch combines the note number, the host's pitch-bend curve and a scaled
// copy of the source's own pitch deviation.
//
// The package also decodes the host's note, tempo, flag and pitch-bend
// argument strings.
package timing
