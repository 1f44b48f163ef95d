// Package ir provides the canonical value types for normalized step implementations.
//
// This package contains value definitions and their deterministic encoding only.
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Input values form a sealed set: Null, String, List, Dict, Object
//   - Dict preserves insertion order; Object (generic decoded JSON) does not
//   - NO float64 in canonical output - numbers travel as json.Number literals
//   - Canonical encoding is the only encoding used for content-addressed IDs
package ir
