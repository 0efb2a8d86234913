// Package generator runs one icon generation pass.
//
// A run has two fatal gates, checked in order before anything is written:
// - the dependency checker (rasterization tool present or installed once)
//
// - the source image exists
//
// After the gates the manifest is rasterized sequentially. Per-icon failures
// are printed and counted but never stop the loop.
package generator
