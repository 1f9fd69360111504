// Package interp provides interpolation primitives for control curves and
// per-frame feature vectors.
//
//   - [Linear2]:      2-point linear interpolation
//   - [Hermite4]:     4-point cubic Hermite
//   - [HermiteAt]:    cubic sampling of a curve at a fractional index
//   - [LinearAt]:     linear sampling of a curve at a fractional index
//   - [LinearVector]: element-wise blending of two frames
package interp
