// Package cache persists analysed feature sets on disk, keyed by waveform
// fingerprint.
//
// Entries live at <dir>/<fp[:2]>/<fp>.axf. Writers serialize to a uniquely
// named temp file in the same directory, fsync it and rename it over the
// canonical name, so concurrent processes never observe a partial entry and
// no locking is needed. Each file carries a fixed little-endian header with
// an xxhash64 checksum of its msgpack body; anything that fails validation is
// reported as a miss and recomputed by the caller.
package cache
