// Package render runs one note through the full pipeline: analysis or a
// cache lookup, voicing and pitch smoothing, timing mapping, plugin hooks,
// dual-stream synthesis and output post-processing.
//
// Only input, extraction and synthesis failures abort a render. Cache and
// plugin failures are logged and returned in [Result.Warnings].
package render
