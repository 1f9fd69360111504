// Package axiserr classifies render failures.
//
// Every error raised by the rendering stages is wrapped in an [Error] whose
// [Kind] tells the caller whether the note can still be produced. Input,
// extraction and synthesis failures abort the render. Cache and plugin
// failures are recovered by the pipeline and surface only as warnings.
package axiserr
