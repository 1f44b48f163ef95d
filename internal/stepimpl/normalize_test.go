package stepimpl

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepnorm/internal/ir"
	"github.com/roach88/stepnorm/internal/jsontree"
)

func quietNormalizer(opts ...Option) *Normalizer {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewNormalizer(opts...)
}

func mustNormalize(t *testing.T, doc string) StepImplementation {
	t.Helper()
	impl, err := quietNormalizer().Parse([]byte(doc))
	require.NoError(t, err)
	return impl
}

func canonical(t *testing.T, impl StepImplementation) string {
	t.Helper()
	data, err := impl.Canonical()
	require.NoError(t, err)
	return string(data)
}

func TestNormalizeHTTPExample(t *testing.T) {
	impl := mustNormalize(t, `{"identifier":"http","target":"srv1","inputs":[{"name":"url","value":"http://x"}],"outputs":[{"key":"code","value":"200"}]}`)

	require.NotNil(t, impl.Type)
	assert.Equal(t, "http", *impl.Type)
	assert.Equal(t, "srv1", impl.Target)

	url, ok := impl.InputString("url")
	require.True(t, ok)
	assert.Equal(t, "http://x", url)

	code, ok := impl.Output("code")
	require.True(t, ok)
	assert.Equal(t, "200", code)

	assert.Equal(t, 0, impl.Validations.Len())
	assert.Equal(t,
		`{"type":"http","target":"srv1","inputs":{"url":"http://x"},"outputs":{"code":"200"},"validations":{}}`,
		canonical(t, impl))
}

func TestNormalizeEmptySimpleInputIsNull(t *testing.T) {
	impl := mustNormalize(t, `{"inputs":[{"name":"empty","value":""}]}`)

	v, ok := impl.Input("empty")
	require.True(t, ok)
	assert.Equal(t, ir.Null{}, v)

	_, isString := impl.InputString("empty")
	assert.False(t, isString)
}

func TestNormalizeTypeAbsentOrNull(t *testing.T) {
	for _, doc := range []string{`{}`, `{"identifier":null}`} {
		t.Run(doc, func(t *testing.T) {
			impl := mustNormalize(t, doc)
			assert.Nil(t, impl.Type)
			assert.Equal(t, "", impl.TypeName())
		})
	}
}

func TestNormalizeTypeVerbatim(t *testing.T) {
	impl := mustNormalize(t, `{"identifier":"  HTTP-Get "}`)
	require.NotNil(t, impl.Type)
	assert.Equal(t, "  HTTP-Get ", *impl.Type, "no trimming or case change")
}

func TestNormalizeTargetDefaultsToEmpty(t *testing.T) {
	for _, doc := range []string{`{}`, `{"target":null}`} {
		t.Run(doc, func(t *testing.T) {
			impl := mustNormalize(t, doc)
			assert.Equal(t, "", impl.Target)
		})
	}
}

func TestNormalizeSimpleInputsVerbatim(t *testing.T) {
	impl := mustNormalize(t, `{"inputs":[
		{"name":"num","value":"007"},
		{"name":"spaces","value":"  "},
		{"name":"literal-null","value":"null"}
	]}`)

	num, _ := impl.InputString("num")
	assert.Equal(t, "007", num, "numeric-looking strings are not coerced")

	spaces, _ := impl.InputString("spaces")
	assert.Equal(t, "  ", spaces)

	lit, ok := impl.InputString("literal-null")
	require.True(t, ok)
	assert.Equal(t, "null", lit)
}

func TestNormalizeSimpleInputNonStringValues(t *testing.T) {
	impl := mustNormalize(t, `{"inputs":[
		{"name":"n","value":12},
		{"name":"b","value":true},
		{"name":"z","value":null}
	]}`)

	n, _ := impl.InputString("n")
	assert.Equal(t, "12", n)
	b, _ := impl.InputString("b")
	assert.Equal(t, "true", b)
	z, ok := impl.InputString("z")
	require.True(t, ok, "JSON null renders as the text \"null\", which is not empty")
	assert.Equal(t, "null", z)
}

func TestNormalizeListInputCoercion(t *testing.T) {
	impl := mustNormalize(t, `{"listInputs":[{"name":"values","values":[
		"text", 42, 1.50, true, null, ["a", 1],
		{"k": "v", "n": 3, "nested": {"deep": [1, 2]}}
	]}]}`)

	list, ok := impl.InputList("values")
	require.True(t, ok)
	require.Len(t, list, 7)

	assert.Equal(t, ir.String("text"), list[0])
	assert.Equal(t, ir.String("42"), list[1])
	assert.Equal(t, ir.String("1.50"), list[2])
	assert.Equal(t, ir.String("true"), list[3])
	assert.Equal(t, ir.String("null"), list[4])
	assert.Equal(t, ir.String(`["a",1]`), list[5])

	obj, ok := list[6].(ir.Object)
	require.True(t, ok, "object elements decode to a generic map")
	assert.Equal(t, "v", obj["k"])
	assert.Equal(t, json.Number("3"), obj["n"])
	assert.Equal(t, map[string]any{"deep": []any{json.Number("1"), json.Number("2")}}, obj["nested"])
}

func TestNormalizeListInputDecodeFailureFallsBackToText(t *testing.T) {
	failing := MapDecoderFunc(func([]byte) (map[string]any, error) {
		return nil, errors.New("boom")
	})
	impl, err := quietNormalizer(WithMapDecoder(failing)).Parse([]byte(
		`{"listInputs":[{"name":"l","values":[{ "a" : [1, {"b": null}] }, 7]}]}`))
	require.NoError(t, err, "decode failures never abort normalization")

	list, ok := impl.InputList("l")
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Equal(t, ir.String(`{"a":[1,{"b":null}]}`), list[0], "serialized text of the object")
	assert.Equal(t, ir.String("7"), list[1])
}

func TestNormalizeListInputTooDeepFallsBackToText(t *testing.T) {
	// encoding/json refuses nesting beyond 10000 levels
	depth := 10001
	deep := strings.Repeat(`{"a":`, depth) + "1" + strings.Repeat("}", depth)
	doc := `{"listInputs":[{"name":"deep","values":[` + deep + `,"tail"]}]}`

	impl := mustNormalize(t, doc)

	list, ok := impl.InputList("deep")
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Equal(t, ir.String(deep), list[0])
	assert.Equal(t, ir.String("tail"), list[1])
}

func TestNormalizeMapInputPreservesOrder(t *testing.T) {
	impl := mustNormalize(t, `{"mapInputs":[{"name":"m","values":[{"key":"b","value":"2"},{"key":"a","value":"1"}]}]}`)

	d, ok := impl.InputDict("m")
	require.True(t, ok)
	assert.Equal(t, []ir.Pair{ir.P("b", "2"), ir.P("a", "1")}, d.Pairs())
}

func TestNormalizeMapInputExample(t *testing.T) {
	impl := mustNormalize(t, `{"mapInputs":[{"name":"m","values":[{"key":"a","value":"1"},{"key":"b","value":"2"}]}]}`)

	d, ok := impl.InputDict("m")
	require.True(t, ok)
	assert.Equal(t, []ir.Pair{ir.P("a", "1"), ir.P("b", "2")}, d.Pairs())
}

func TestNormalizeMapInputValuesAreText(t *testing.T) {
	impl := mustNormalize(t, `{"mapInputs":[{"name":"m","values":[{"key":"n","value":5},{"key":"e","value":""}]}]}`)

	d, _ := impl.InputDict("m")
	assert.Equal(t, []ir.Pair{ir.P("n", "5"), ir.P("e", "")}, d.Pairs(), "empty map values stay empty strings")
}

func TestNormalizeInputKeyOrderAcrossSections(t *testing.T) {
	impl := mustNormalize(t, `{
		"mapInputs":[{"name":"z","values":[]}],
		"listInputs":[{"name":"y","values":[]}],
		"inputs":[{"name":"x","value":"1"}]
	}`)

	assert.Equal(t, []string{"x", "y", "z"}, impl.InputNames(), "simple, then list, then map, regardless of document order")
}

func TestNormalizeDuplicateNamesOverwriteInPlace(t *testing.T) {
	impl := mustNormalize(t, `{
		"inputs":[{"name":"a","value":"1"},{"name":"b","value":"2"},{"name":"a","value":"3"}],
		"listInputs":[{"name":"b","values":["x"]}],
		"outputs":[{"key":"o","value":"first"},{"key":"p","value":"p"},{"key":"o","value":"last"}]
	}`)

	assert.Equal(t, []string{"a", "b"}, impl.InputNames())
	a, _ := impl.InputString("a")
	assert.Equal(t, "3", a)
	b, ok := impl.InputList("b")
	require.True(t, ok, "later section overwrites earlier value")
	assert.Equal(t, ir.List{ir.String("x")}, b)

	assert.Equal(t, []string{"o", "p"}, impl.OutputNames())
	o, _ := impl.Output("o")
	assert.Equal(t, "last", o)
}

func TestNormalizeAbsentOrNullSectionsContributeNothing(t *testing.T) {
	impl := mustNormalize(t, `{"inputs":null,"listInputs":null,"mapInputs":null,"outputs":null,"validations":null}`)

	assert.Equal(t, 0, impl.Inputs.Len())
	assert.Equal(t, 0, impl.Outputs.Len())
	assert.Equal(t, 0, impl.Validations.Len())

	empty := mustNormalize(t, `{}`)
	assert.Equal(t, `{"type":null,"target":"","inputs":{},"outputs":{},"validations":{}}`, canonical(t, empty))
}

func TestNormalizeNullValuesReadAsEmpty(t *testing.T) {
	impl := mustNormalize(t, `{"listInputs":[{"name":"l","values":null}],"mapInputs":[{"name":"m","values":null}]}`)

	l, ok := impl.InputList("l")
	require.True(t, ok)
	assert.Empty(t, l)

	m, ok := impl.InputDict("m")
	require.True(t, ok)
	assert.Equal(t, 0, m.Size())
}

func TestNormalizeValidations(t *testing.T) {
	impl := mustNormalize(t, `{"validations":[{"key":"second","value":"${#b}"},{"key":"first","value":"${#a}"}]}`)

	assert.Equal(t, []string{"second", "first"}, impl.ValidationNames())
	v, ok := impl.Validation("first")
	require.True(t, ok)
	assert.Equal(t, "${#a}", v)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	doc, err := jsontree.ParseString(`{"identifier":"x","inputs":[{"name":"a","value":""}],"listInputs":[{"name":"l","values":[{"k":1}]}]}`)
	require.NoError(t, err)

	n := quietNormalizer()
	first, err := n.Normalize(doc)
	require.NoError(t, err)
	second, err := n.Normalize(doc)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
}

func TestNormalizeConcurrentUse(t *testing.T) {
	n := quietNormalizer()
	doc := []byte(`{"identifier":"c","inputs":[{"name":"a","value":"1"}],"listInputs":[{"name":"l","values":[{"k":"v"}]}]}`)
	want := mustNormalize(t, string(doc))

	var wg sync.WaitGroup
	results := make([]StepImplementation, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = n.Parse(doc)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.True(t, want.Equal(results[i]))
	}
}

func TestNormalizeMalformedElements(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		path    string
		field   string
		message string
	}{
		{"simple missing name", `{"inputs":[{"value":"x"}]}`, "inputs[0]", "name", `inputs[0]: missing field "name"`},
		{"simple missing value", `{"inputs":[{"name":"a","value":"1"},{"name":"b"}]}`, "inputs[1]", "value", `inputs[1]: missing field "value"`},
		{"list missing values", `{"listInputs":[{"name":"l"}]}`, "listInputs[0]", "values", `listInputs[0]: missing field "values"`},
		{"list values not array", `{"listInputs":[{"name":"l","values":"x"}]}`, "listInputs[0].values", "", `listInputs[0].values: expected array, got string`},
		{"map entry missing key", `{"mapInputs":[{"name":"m","values":[{"value":"1"}]}]}`, "mapInputs[0].values[0]", "key", `mapInputs[0].values[0]: missing field "key"`},
		{"output missing value", `{"outputs":[{"key":"k"}]}`, "outputs[0]", "value", `outputs[0]: missing field "value"`},
		{"validation missing key", `{"validations":[{"value":"v"}]}`, "validations[0]", "key", `validations[0]: missing field "key"`},
		{"section not array", `{"inputs":{"name":"a"}}`, "inputs", "", `inputs: expected array, got object`},
		{"element not object", `{"outputs":["k"]}`, "outputs[0]", "", `outputs[0]: expected object, got string`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quietNormalizer().Parse([]byte(tt.doc))
			require.Error(t, err)
			require.ErrorIs(t, err, ErrMalformed)

			var malformed *MalformedError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.path, malformed.Path)
			assert.Equal(t, tt.field, malformed.Field)
			assert.Equal(t, tt.message, malformed.Error())
		})
	}
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{"identifier":`))
	require.Error(t, err)
	assert.ErrorIs(t, err, jsontree.ErrInvalidJSON)
	assert.NotErrorIs(t, err, ErrMalformed)
}

func TestNormalizeNonObjectRootIsEmptyRecord(t *testing.T) {
	impl := mustNormalize(t, `"just a string"`)
	assert.Nil(t, impl.Type)
	assert.Equal(t, 0, impl.Inputs.Len())
}

func TestParseMany(t *testing.T) {
	impls, err := quietNormalizer().ParseMany([]byte(`[
		{"identifier":"a"},
		{"identifier":"b","target":"t"}
	]`))
	require.NoError(t, err)
	require.Len(t, impls, 2)
	assert.Equal(t, "a", impls[0].TypeName())
	assert.Equal(t, "t", impls[1].Target)
}

func TestParseManyReportsElementPath(t *testing.T) {
	_, err := quietNormalizer().ParseMany([]byte(`[{}, {"inputs":[{"name":"x"}]}]`))

	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "[1].inputs[0]", malformed.Path)
}

func TestParseManyRequiresArray(t *testing.T) {
	_, err := quietNormalizer().ParseMany([]byte(`{}`))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestJSONMapDecoder(t *testing.T) {
	m, err := JSONMapDecoder{}.DecodeMap([]byte(`{"n":1.0,"s":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("1.0"), m["n"])

	_, err = JSONMapDecoder{}.DecodeMap([]byte(`{"a":1} {"b":2}`))
	require.Error(t, err)

	_, err = JSONMapDecoder{}.DecodeMap([]byte(`[1]`))
	require.Error(t, err)
}

func TestNilOptionsKeepDefaults(t *testing.T) {
	n := NewNormalizer(WithMapDecoder(nil), WithLogger(nil))

	impl, err := n.Parse([]byte(`{"listInputs":[{"name":"l","values":[{"a":"1"}]}]}`))
	require.NoError(t, err)

	list, ok := impl.InputList("l")
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, ir.Object{"a": "1"}, list[0])
}

func TestNameAccessorsReturnCopies(t *testing.T) {
	impl := mustNormalize(t, `{"inputs":[{"name":"a","value":"1"}],"outputs":[{"key":"o","value":"x"}]}`)

	names := impl.InputNames()
	names[0] = "changed"
	outs := impl.OutputNames()
	outs[0] = "changed"

	assert.Equal(t, []string{"a"}, impl.InputNames())
	assert.Equal(t, []string{"o"}, impl.OutputNames())
}

func TestNormalizeContainerValuesKeepJSONText(t *testing.T) {
	impl := mustNormalize(t, `{
		"inputs":[{"name":"arr","value":[1, "a"]},{"name":"obj","value":{"k": "v"}}],
		"listInputs":[{"name":"l","values":[[1, 2]]}]
	}`)

	arr, _ := impl.InputString("arr")
	assert.Equal(t, `[1,"a"]`, arr)
	obj, _ := impl.InputString("obj")
	assert.Equal(t, `{"k":"v"}`, obj)

	list, ok := impl.InputList("l")
	require.True(t, ok)
	assert.Equal(t, ir.List{ir.String("[1,2]")}, list)
}

func TestNormalizeNonStringIdentifier(t *testing.T) {
	tests := []struct {
		doc  string
		want *string
	}{
		{`{"identifier":5}`, strPtr("5")},
		{`{"identifier":true}`, strPtr("true")},
		{`{"identifier":null}`, nil},
		{`{}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.doc, func(t *testing.T) {
			assert.Equal(t, tt.want, mustNormalize(t, tt.doc).Type)
		})
	}
}

func strPtr(s string) *string { return &s }
