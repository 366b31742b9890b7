/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"chainguard.dev/prreview/review"
	"github.com/chainguard-dev/clog"
	"github.com/xeipuuv/gojsonschema"
)

// MaxSchemaSize is the largest schema file Validate reads.
const MaxSchemaSize = 10 * 1024 * 1024

// RootPath is how a violation on the document itself is reported.
const RootPath = "<root>"

// pathSeparator splits gojsonschema contexts without clashing with dots in
// property names.
const pathSeparator = "\x00"

// contextRoot is the first element of every gojsonschema context.
const contextRoot = "(root)"

// Violation is a single schema error.
type Violation struct {
	Path    []string
	Message string
}

func (v Violation) String() string {
	path := RootPath
	if len(v.Path) > 0 {
		path = strings.Join(v.Path, "/")
	}
	return path + ": " + v.Message
}

// Validate checks data against the Draft-7 schema at schemaPath and returns
// every violation as "<path>: <message>", ordered by path. An empty result
// means data is valid.
func Validate(ctx context.Context, data any, schemaPath string) ([]string, error) {
	log := clog.FromContext(ctx).With("schema", schemaPath)

	doc, err := review.ReadJSONFile(schemaPath, MaxSchemaSize)
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, fmt.Errorf("%w: schema %s must be a JSON object", review.ErrMalformed, schemaPath)
	}

	violations, err := Check(data, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: schema %s: %w", review.ErrMalformed, schemaPath, err)
	}
	return report(log, violations), nil
}

// ValidateBuiltin is Validate against the schema returned by Generate.
func ValidateBuiltin(ctx context.Context, data any) ([]string, error) {
	raw, err := GenerateJSON()
	if err != nil {
		return nil, fmt.Errorf("generating schema: %w", err)
	}
	doc, err := review.DecodeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding generated schema: %w", err)
	}
	violations, err := Check(data, doc)
	if err != nil {
		return nil, err
	}
	return report(clog.FromContext(ctx).With("schema", SchemaID), violations), nil
}

func report(log *clog.Logger, violations []Violation) []string {
	errs := make([]string, 0, len(violations))
	for _, v := range violations {
		errs = append(errs, v.String())
	}
	if len(errs) == 0 {
		log.Info("Review data passed schema validation")
		return errs
	}
	log.Warnf("Review data failed schema validation with %d error(s)", len(errs))
	for _, e := range errs[:min(len(errs), 5)] {
		log.Warnf("  %s", e)
	}
	return errs
}

// Check validates data against an already decoded schema document and
// returns the sorted violations.
func Check(data, schemaDoc any) ([]Violation, error) {
	loader := gojsonschema.NewSchemaLoader()
	loader.Draft = gojsonschema.Draft7
	loader.AutoDetect = false
	compiled, err := loader.Compile(gojsonschema.NewGoLoader(schemaDoc))
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}

	result, err := compiled.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validating: %w", err)
	}

	violations := make([]Violation, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, Violation{
			Path:    contextPath(e.Context()),
			Message: e.Description(),
		})
	}
	sortViolations(violations)
	return violations, nil
}

func sortViolations(vs []Violation) {
	slices.SortStableFunc(vs, compareViolations)
}

func contextPath(c *gojsonschema.JsonContext) []string {
	if c == nil {
		return nil
	}
	parts := strings.Split(c.String(pathSeparator), pathSeparator)
	if len(parts) > 0 && parts[0] == contextRoot {
		parts = parts[1:]
	}
	return parts
}

// compareViolations orders by path segment, numerically where both
// segments are indices, then by message.
func compareViolations(a, b Violation) int {
	for i := range min(len(a.Path), len(b.Path)) {
		if c := compareSegment(a.Path[i], b.Path[i]); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(len(a.Path), len(b.Path)); c != 0 {
		return c
	}
	return strings.Compare(a.Message, b.Message)
}

func compareSegment(a, b string) int {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return cmp.Compare(ai, bi)
	}
	return strings.Compare(a, b)
}
