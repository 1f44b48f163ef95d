// Package harness provides conformance scenarios for step implementation
// normalization.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: http_get
//	description: "Simple inputs and outputs are copied verbatim"
//	document: |
//	  {"identifier": "http-get", "inputs": [{"name": "uri", "value": "/"}]}
//	assertions:
//	  - type: type
//	    value: http-get
//	  - type: input
//	    name: uri
//	    json: '"/"'
//	  - type: stored
//
// A scenario that must fail replaces assertions with expect_error:
//
//	expect_error:
//	  path: inputs[0]
//	  field: value
//
// # Assertion Types
//
//   - type, target: record type and target
//   - input: canonical JSON of one input value
//   - input_kind: variant of one input (null, string, list, dict, object)
//   - input_order: input names in record order
//   - output, validation: one expression
//   - canonical: canonical JSON of the whole record
//   - stored: the record survives a store round trip unchanged
//
// # Golden Files
//
// Each scenario snapshot (canonical record, or "error: <message>") can be
// compared against golden/<scenario>.golden next to the scenario file.
// Each run uses a fresh in-memory SQLite database.
package harness
