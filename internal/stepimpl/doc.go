// Package stepimpl normalizes raw step implementation documents into a
// canonical record.
//
// A raw document describes how a single test step executes. Its parameters
// arrive in three wire shapes that this package folds into one ordered
// inputs mapping:
//
//	{
//	  "identifier": "http-get",
//	  "target": "server-a",
//	  "inputs":     [ { "name": "uri", "value": "/status" } ],
//	  "listInputs": [ { "name": "statements", "values": [ "select 1", { "k": "v" } ] } ],
//	  "mapInputs":  [ { "name": "headers", "values": [ { "key": "Accept", "value": "*/*" } ] } ],
//	  "outputs":     [ { "key": "code", "value": "${#status}" } ],
//	  "validations": [ { "key": "ok", "value": "${#status == 200}" } ]
//	}
//
// Sections are processed simple, list, map; all write into the same ordered
// map, so a name keeps the position of its first appearance and the value of
// its last. Absent or null sections contribute nothing.
//
// Value coercion:
//   - simple input: text form of "value", "" becomes ir.Null
//   - list input element: objects decode to ir.Object, falling back to their
//     compact JSON text as ir.String when decoding fails; anything else is
//     its text form
//   - map input: ordered ir.Dict of key to text value
//
// Array elements missing a required field ("name", "key", "value",
// "values") fail the whole document with a *MalformedError.
//
// Normalization is a pure function of the input tree; a Normalizer is safe
// for concurrent use as long as its MapDecoder is.
package stepimpl
