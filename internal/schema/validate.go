package schema

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cuejson "cuelang.org/go/encoding/json"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/stepnorm/internal/jsontree"
)

//go:embed step_implementation.cue
var schemaSource string

const (
	documentDef    = "#StepImplementation"
	batchDef       = "#Batch"
	schemaFilename = "step_implementation.cue"
)

// Issue is one shape problem found in a document.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

func (i Issue) String() string {
	var b strings.Builder
	if i.Line > 0 {
		fmt.Fprintf(&b, "%d:%d: ", i.Line, i.Column)
	}
	if i.Path != "" {
		b.WriteString(i.Path)
		b.WriteString(": ")
	}
	b.WriteString(i.Message)
	return b.String()
}

// Validator checks documents against the embedded schema.
// A Validator is not safe for concurrent use.
type Validator struct {
	ctx      *cue.Context
	document cue.Value
	batch    cue.Value
}

// New compiles the embedded schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	file := ctx.CompileString(schemaSource, cue.Filename(schemaFilename))
	if err := file.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	v := &Validator{ctx: ctx}
	for path, dst := range map[string]*cue.Value{documentDef: &v.document, batchDef: &v.batch} {
		def := file.LookupPath(cue.ParsePath(path))
		if !def.Exists() {
			return nil, fmt.Errorf("compile schema: %s not found", path)
		}
		*dst = def
	}
	return v, nil
}

// Validate checks one document. name is used for positions.
func Validate(name string, data []byte) ([]Issue, error) {
	v, err := New()
	if err != nil {
		return nil, err
	}
	return v.Validate(name, data), nil
}

// Validate checks a single document. It returns nil when the document has
// the expected shape and no ambiguous names.
func (v *Validator) Validate(name string, data []byte) []Issue {
	if issues := v.check(name, data, v.document); issues != nil {
		return issues
	}
	doc, err := jsontree.Parse(data)
	if err != nil {
		return nil
	}
	return ambiguousNames(doc, "")
}

// ValidateMany checks a JSON array of documents.
func (v *Validator) ValidateMany(name string, data []byte) []Issue {
	if issues := v.check(name, data, v.batch); issues != nil {
		return issues
	}
	doc, err := jsontree.Parse(data)
	if err != nil {
		return nil
	}
	var issues []Issue
	doc.ForEach(func(i int, elem jsontree.Node) bool {
		issues = append(issues, ambiguousNames(elem, fmt.Sprintf("%d.", i))...)
		return true
	})
	return issues
}

// ambiguousNames reports names that differ from an earlier name of the same
// namespace only in Unicode normalization form. Records keep such names as
// separate entries, which is rarely what the author meant.
func ambiguousNames(doc jsontree.Node, prefix string) []Issue {
	var issues []Issue
	scan := func(field string, sections ...string) {
		type first struct{ name, path string }
		seen := make(map[string]first)
		for _, section := range sections {
			doc.Get(section).ForEach(func(i int, elem jsontree.Node) bool {
				if !elem.Has(field) {
					return true
				}
				name := elem.Get(field).Text()
				path := fmt.Sprintf("%s%s.%d.%s", prefix, section, i, field)
				folded := norm.NFC.String(name)
				prev, ok := seen[folded]
				switch {
				case !ok:
					seen[folded] = first{name: name, path: path}
				case prev.name != name:
					issues = append(issues, Issue{
						Path:    path,
						Message: fmt.Sprintf("%+q differs from %+q (%s) only in Unicode normalization", name, prev.name, prev.path),
					})
				}
				return true
			})
		}
	}
	scan("name", "inputs", "listInputs", "mapInputs")
	scan("key", "outputs")
	scan("key", "validations")
	return issues
}

func (v *Validator) check(name string, data []byte, schema cue.Value) []Issue {
	expr, err := cuejson.Extract(name, data)
	if err != nil {
		return issuesFrom(name, err)
	}
	doc := v.ctx.BuildExpr(expr, cue.Filename(name))
	if err := doc.Err(); err != nil {
		return issuesFrom(name, err)
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return issuesFrom(name, err)
	}
	return nil
}

// issuesFrom flattens a CUE error list. Positions inside the document win
// over positions inside the schema.
func issuesFrom(name string, err error) []Issue {
	var issues []Issue
	seen := make(map[string]bool)
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		issue := Issue{
			Path:    documentPath(e.Path()),
			Message: fmt.Sprintf(format, args...),
		}
		if pos, ok := documentPos(name, e); ok {
			issue.Line = pos.Line()
			issue.Column = pos.Column()
		}
		key := issue.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		issues = append(issues, issue)
	}
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Line != issues[j].Line {
			return issues[i].Line < issues[j].Line
		}
		return issues[i].Path < issues[j].Path
	})
	return issues
}

// documentPath drops the schema definition selector (#StepImplementation,
// #Batch) so paths point into the document.
func documentPath(sels []string) string {
	if len(sels) > 0 && strings.HasPrefix(sels[0], "#") {
		sels = sels[1:]
	}
	return strings.Join(sels, ".")
}

func documentPos(name string, e cueerrors.Error) (token.Pos, bool) {
	for _, p := range cueerrors.Positions(e) {
		if p.IsValid() && p.Filename() == name {
			return p, true
		}
	}
	return token.NoPos, false
}
