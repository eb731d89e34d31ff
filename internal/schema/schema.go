// Package schema holds the JSON Schemas for every on-disk document shape and
// detects which shape a raw document is.
//
// Shapes of one family are mutually exclusive: newer shapes require their
// discriminating fields (a version tag, a folders or projects list) and older
// shapes forbid them. Detection still tries candidates in the order given so
// callers list the newest shape first.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const baseURL = "https://ruidmap.dev/schema/"

//go:embed shapes/*.json
var shapeFS embed.FS

// Shape names one persisted document layout.
type Shape string

const (
	RoadmapV2        Shape = "roadmap/v2"
	RoadmapV1        Shape = "roadmap/v1"
	RoadmapV0        Shape = "roadmap/v0"
	WorkspaceCurrent Shape = "workspace/current"
	WorkspaceLegacy  Shape = "workspace/legacy"
	Export           Shape = "workspace/export"
)

// Detection orders, newest first.
var (
	RoadmapShapes   = []Shape{RoadmapV2, RoadmapV1, RoadmapV0}
	WorkspaceShapes = []Shape{WorkspaceCurrent, WorkspaceLegacy}
	ImportShapes    = []Shape{Export, WorkspaceCurrent, WorkspaceLegacy}
)

var files = map[Shape]string{
	RoadmapV2:        "roadmap-v2.json",
	RoadmapV1:        "roadmap-v1.json",
	RoadmapV0:        "roadmap-v0.json",
	WorkspaceCurrent: "workspace-current.json",
	WorkspaceLegacy:  "workspace-legacy.json",
	Export:           "export.json",
}

var (
	compileOnce sync.Once
	compiled    map[Shape]*jsonschema.Schema
	compileErr  error
)

func load() (map[Shape]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true

		// Every file must be registered before any is compiled so that
		// cross-file $refs resolve.
		for _, name := range files {
			raw, err := shapeFS.ReadFile("shapes/" + name)
			if err != nil {
				compileErr = err
				return
			}
			if err := compiler.AddResource(baseURL+name, bytes.NewReader(raw)); err != nil {
				compileErr = fmt.Errorf("add schema %s: %w", name, err)
				return
			}
		}

		out := make(map[Shape]*jsonschema.Schema, len(files))
		for shape, name := range files {
			s, err := compiler.Compile(baseURL + name)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			out[shape] = s
		}
		compiled = out
	})
	return compiled, compileErr
}

// Problem is one schema violation.
type Problem struct {
	Path    string
	Message string
}

func (p Problem) String() string {
	if p.Path == "" {
		return p.Message
	}
	return p.Path + ": " + p.Message
}

// MismatchError reports that a document matched none of the candidate shapes.
type MismatchError struct {
	Problems map[Shape][]Problem
}

func (e *MismatchError) Error() string {
	names := make([]string, 0, len(e.Problems))
	for shape := range e.Problems {
		names = append(names, string(shape))
	}
	sort.Strings(names)
	return "document matches no known shape (tried " + strings.Join(names, ", ") + ")"
}

// Diagnostics flattens the problems into "shape: path: message" lines,
// grouped by shape in sorted order.
func (e *MismatchError) Diagnostics() []string {
	shapes := make([]string, 0, len(e.Problems))
	for shape := range e.Problems {
		shapes = append(shapes, string(shape))
	}
	sort.Strings(shapes)

	var out []string
	for _, name := range shapes {
		for _, p := range e.Problems[Shape(name)] {
			out = append(out, name+": "+p.String())
		}
	}
	return out
}

// Validate checks data against one shape. A nil slice means it conforms.
// The error is non-nil only when data is not JSON at all or the shape is
// unknown.
func Validate(shape Shape, data []byte) ([]Problem, error) {
	doc, err := decode(data)
	if err != nil {
		return nil, err
	}
	return validateDoc(shape, doc)
}

// Detect returns the first candidate shape that data satisfies. When none
// match the error is a *MismatchError carrying every candidate's problems.
func Detect(data []byte, candidates ...Shape) (Shape, error) {
	doc, err := decode(data)
	if err != nil {
		return "", err
	}

	mismatch := &MismatchError{Problems: make(map[Shape][]Problem, len(candidates))}
	for _, shape := range candidates {
		problems, err := validateDoc(shape, doc)
		if err != nil {
			return "", err
		}
		if len(problems) == 0 {
			return shape, nil
		}
		mismatch.Problems[shape] = problems
	}
	return "", mismatch
}

func decode(data []byte) (interface{}, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return doc, nil
}

func validateDoc(shape Shape, doc interface{}) ([]Problem, error) {
	schemas, err := load()
	if err != nil {
		return nil, err
	}
	s, ok := schemas[shape]
	if !ok {
		return nil, fmt.Errorf("unknown shape %q", shape)
	}

	err = s.Validate(doc)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, err
	}
	var problems []Problem
	collectProblems(&problems, ve)
	return problems, nil
}

func collectProblems(out *[]Problem, err *jsonschema.ValidationError) {
	if err == nil {
		return
	}
	if len(err.Causes) == 0 {
		*out = append(*out, Problem{Path: jsonPointerToPath(err.InstanceLocation), Message: err.Message})
		return
	}
	for _, cause := range err.Causes {
		collectProblems(out, cause)
	}
}

// jsonPointerToPath renders "/milestones/0/status" as "milestones[0].status".
func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	var b strings.Builder
	for _, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			fmt.Fprintf(&b, "[%d]", idx)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}
