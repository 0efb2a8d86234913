// Package tools provides host command execution helpers shared by the
// dependency checker and the external rasterization backend.
//
// Ownership boundary:
// - command execution and exit-code normalization
//
// - rendering argv and command diagnostics for humans
package tools
