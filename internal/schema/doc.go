// Package schema lints raw step implementation documents against an
// embedded CUE definition.
//
// The lint is informative: it reports shape problems with their document
// positions, but normalization never depends on it and accepts some
// documents the lint rejects (for example numeric names).
package schema
