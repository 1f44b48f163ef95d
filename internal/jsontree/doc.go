// Package jsontree is a read-only JSON tree for shape-driven decoding.
//
// A Node wraps a gjson.Result and exposes the few questions a normalizer
// needs to ask of a loosely-typed document:
//
//   - presence: Exists (field present, even if null) vs Has (present and non-null)
//   - shape: Kind, IsObject, IsArray, IsNull
//   - navigation: Get (field by literal name), ForEach (array elements in document order)
//   - text: Text (scalar text form) and Raw (compact serialized form)
//
// Field names are matched literally; gjson path syntax is never interpreted,
// so names containing '.', '*' or '?' are safe. When an object repeats a key,
// the last occurrence wins.
package jsontree
