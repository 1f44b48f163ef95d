package stepimpl

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/stepnorm/internal/ir"
)

const richDoc = `{
	"identifier": "http-post",
	"target": "CHUTNEY_LOCAL",
	"inputs": [{"name": "uri", "value": "/api"}, {"name": "timeout", "value": ""}],
	"listInputs": [{"name": "body", "values": ["a", {"z": 1.50, "a": [true, null]}]}],
	"mapInputs": [{"name": "headers", "values": [{"key": "X-B", "value": "b"}, {"key": "X-A", "value": "a"}]}],
	"outputs": [{"key": "status", "value": "${#status}"}],
	"validations": [{"key": "ok", "value": "${#status == 200}"}]
}`

func TestCanonicalRichRecord(t *testing.T) {
	impl := mustNormalize(t, richDoc)

	want := `{"type":"http-post","target":"CHUTNEY_LOCAL",` +
		`"inputs":{"uri":"/api","timeout":null,"body":["a",{"a":[true,null],"z":1.50}],"headers":{"X-B":"b","X-A":"a"}},` +
		`"outputs":{"status":"${#status}"},"validations":{"ok":"${#status == 200}"}}`
	assert.Equal(t, want, canonical(t, impl))
}

func TestCanonicalNoHTMLEscaping(t *testing.T) {
	impl := mustNormalize(t, `{"validations":[{"key":"cmp","value":"${#a < 1 && #b > 2}"}]}`)
	assert.Contains(t, canonical(t, impl), `"${#a < 1 && #b > 2}"`)
}

func TestIDDependsOnInputOrder(t *testing.T) {
	a := mustNormalize(t, `{"mapInputs":[{"name":"m","values":[{"key":"a","value":"1"},{"key":"b","value":"2"}]}]}`)
	b := mustNormalize(t, `{"mapInputs":[{"name":"m","values":[{"key":"b","value":"2"},{"key":"a","value":"1"}]}]}`)

	idA, err := a.ID()
	require.NoError(t, err)
	idB, err := b.ID()
	require.NoError(t, err)

	assert.Len(t, idA, 64)
	assert.NotEqual(t, idA, idB)
	assert.False(t, a.Equal(b))
}

func TestIDIgnoresListObjectKeyOrder(t *testing.T) {
	a := mustNormalize(t, `{"listInputs":[{"name":"l","values":[{"x":"1","y":"2"}]}]}`)
	b := mustNormalize(t, `{"listInputs":[{"name":"l","values":[{"y":"2","x":"1"}]}]}`)

	idA, err := a.ID()
	require.NoError(t, err)
	idB, err := b.ID()
	require.NoError(t, err)
	assert.Equal(t, idA, idB)
}

func TestCanonicalKeepsNormalizationFormsApart(t *testing.T) {
	// "café" composed (U+00E9) and decomposed (e + U+0301)
	both := mustNormalize(t, `{"inputs":[{"name":"caf\u00e9","value":"a"},{"name":"cafe\u0301","value":"b"}]}`)
	require.Equal(t, 2, both.Inputs.Len())

	data := canonical(t, both)
	assert.Contains(t, data, "\"caf\u00e9\":\"a\"")
	assert.Contains(t, data, "\"cafe\u0301\":\"b\"")

	decoded, err := Decode([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"caf\u00e9", "cafe\u0301"}, decoded.InputNames())
	assert.True(t, both.Equal(decoded))

	composed := mustNormalize(t, `{"inputs":[{"name":"caf\u00e9","value":"a"}]}`)
	decomposed := mustNormalize(t, `{"inputs":[{"name":"cafe\u0301","value":"a"}]}`)
	assert.False(t, composed.Equal(decomposed))

	idA, err := composed.ID()
	require.NoError(t, err)
	idB, err := decomposed.ID()
	require.NoError(t, err)
	assert.NotEqual(t, idA, idB)
}

func TestCanonicalRejectsInvalidUTF8(t *testing.T) {
	rec := New()
	rec.Target = "a\xffb"

	_, err := rec.Canonical()
	require.ErrorIs(t, err, ir.ErrInvalidUTF8)
	_, err = rec.ID()
	require.Error(t, err)
}

func TestDecodeRoundTrip(t *testing.T) {
	impl := mustNormalize(t, richDoc)
	data := []byte(canonical(t, impl))

	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.True(t, impl.Equal(decoded))
	assert.Equal(t, impl.InputNames(), decoded.InputNames())

	v, _ := decoded.Input("timeout")
	assert.Equal(t, ir.Null{}, v)
	headers, ok := decoded.InputDict("headers")
	require.True(t, ok)
	assert.Equal(t, []ir.Pair{ir.P("X-B", "b"), ir.P("X-A", "a")}, headers.Pairs())
	body, ok := decoded.InputList("body")
	require.True(t, ok)
	require.Len(t, body, 2)
	assert.IsType(t, ir.Object{}, body[1])
}

func TestDecodeUntypedRecord(t *testing.T) {
	decoded, err := Decode([]byte(`{"type":null,"target":"","inputs":{},"outputs":{},"validations":{}}`))
	require.NoError(t, err)
	assert.Nil(t, decoded.Type)
	assert.Equal(t, 0, decoded.Inputs.Len())
}

func TestDecodeRejectsNonObject(t *testing.T) {
	_, err := Decode([]byte(`[]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected object, got array")

	_, err = Decode([]byte(`{`))
	require.Error(t, err)
}

func TestJSONMarshalerInterfaces(t *testing.T) {
	impl := mustNormalize(t, `{"identifier":"sql","inputs":[{"name":"q","value":"SELECT 1"}]}`)

	data, err := json.Marshal(impl)
	require.NoError(t, err)
	assert.JSONEq(t, canonical(t, impl), string(data))

	var back StepImplementation
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, impl.Equal(back))
}

func TestSummary(t *testing.T) {
	impl := mustNormalize(t, richDoc)
	assert.Equal(t,
		"http-post @ CHUTNEY_LOCAL (inputs: uri, timeout, body, headers; outputs: status; validations: ok)",
		impl.Summary())

	untyped := mustNormalize(t, `{}`)
	assert.Equal(t, "<untyped> (inputs: ; outputs: ; validations: )", untyped.Summary())
}

func TestMarshalYAMLKeepsRecordOrder(t *testing.T) {
	impl := mustNormalize(t, richDoc)

	out, err := yaml.Marshal(impl)
	require.NoError(t, err)

	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal(out, &doc))
	require.Len(t, doc.Content, 1)
	root := doc.Content[0]

	assert.Equal(t, []string{KeyType, KeyTarget, KeyInputs, KeyOutputs, KeyValidations}, mappingKeys(root))
	assert.Equal(t, []string{"uri", "timeout", "body", "headers"}, mappingKeys(root.Content[5]))

	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(out, &generic))
	inputs := generic[KeyInputs].(map[string]any)
	assert.Nil(t, inputs["timeout"])
	assert.Equal(t, "/api", inputs["uri"])

	body := inputs["body"].([]any)
	obj := body[1].(map[string]any)
	assert.Equal(t, 1.5, obj["z"])
	assert.Equal(t, []any{true, nil}, obj["a"])
}

func TestMarshalYAMLQuotesNumericStrings(t *testing.T) {
	impl := mustNormalize(t, `{"outputs":[{"key":"code","value":"200"}]}`)

	out, err := yaml.Marshal(impl)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(out, &generic))
	assert.Nil(t, generic[KeyType])
	assert.Equal(t, "200", generic[KeyOutputs].(map[string]any)["code"])
	assert.False(t, strings.Contains(string(out), "code: 200\n"))
}

func mappingKeys(n *yaml.Node) []string {
	var keys []string
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	return keys
}
