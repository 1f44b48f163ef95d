package stepimpl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MapDecoder parses serialized JSON object text into a generic map.
// The normalizer calls it for object elements of list inputs and keeps
// the text form whenever it fails.
type MapDecoder interface {
	DecodeMap(data []byte) (map[string]any, error)
}

// MapDecoderFunc adapts a function to MapDecoder.
type MapDecoderFunc func(data []byte) (map[string]any, error)

// DecodeMap calls f(data).
func (f MapDecoderFunc) DecodeMap(data []byte) (map[string]any, error) {
	return f(data)
}

// JSONMapDecoder decodes with encoding/json. Numbers stay json.Number so
// no literal is rounded through float64.
type JSONMapDecoder struct{}

// DecodeMap implements MapDecoder.
func (JSONMapDecoder) DecodeMap(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("json decode failed: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("json decode failed: trailing data after object")
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
