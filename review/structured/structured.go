/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package structured is a strict, fail-fast check of the reviewer's raw
// output. It runs before anything is rendered or published and rejects the
// first problem it finds.
package structured

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"chainguard.dev/prreview/review"
	"chainguard.dev/prreview/review/schema"
	"github.com/chainguard-dev/clog"
)

// RequiredFields must be present at the top level of a review.
var RequiredFields = []string{"approved", "overallRisk", "summary", "findings"}

// RequiredFindingFields must be present on every finding.
var RequiredFindingFields = []string{"type", "title", "summary", "risk"}

// RiskLevels are the risks a reviewer may emit. UNKNOWN is deliberately
// absent.
var RiskLevels = []string{
	review.RiskCritical,
	review.RiskHigh,
	review.RiskMedium,
	review.RiskLow,
	review.RiskNegligible,
}

// ValidationError describes why a review was rejected.
type ValidationError struct {
	Message string
	// MissingFields lists absent top-level keys, if that was the problem.
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Validate reads the review at path and checks it.
func Validate(ctx context.Context, path string) error {
	return ValidateWithSchema(ctx, path, "")
}

// ValidateWithSchema checks the review at path and, when schemaPath names an
// existing file, additionally requires it to satisfy that schema.
func ValidateWithSchema(ctx context.Context, path, schemaPath string) error {
	data, err := review.ReadJSONFile(path, review.MaxReportSize)
	if err != nil {
		return err
	}
	if err := Check(data); err != nil {
		return err
	}

	if schemaPath != "" {
		errs, err := schema.Validate(ctx, data, schemaPath)
		switch {
		case errors.Is(err, review.ErrNotFound):
			clog.FromContext(ctx).Warnf("Schema %s not found, skipping schema validation", schemaPath)
		case err != nil:
			return err
		case len(errs) > 0:
			return invalid("Schema validation failed: %s", errs[0])
		}
	}

	clog.FromContext(ctx).With("path", path).Info("Review JSON validation passed")
	return nil
}

// Check validates an already decoded review document.
func Check(data any) error {
	doc, ok := data.(map[string]any)
	if !ok {
		return invalid("Review must be a JSON object, got %s", review.TypeName(data))
	}

	var missing []string
	for _, field := range RequiredFields {
		if _, ok := doc[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{
			Message:       "Review missing required fields: " + strings.Join(missing, ", "),
			MissingFields: missing,
		}
	}

	if _, ok := doc["approved"].(bool); !ok {
		return invalid("'approved' must be boolean, got %s", review.TypeName(doc["approved"]))
	}
	risk, ok := doc["overallRisk"].(string)
	if !ok {
		return invalid("'overallRisk' must be string, got %s", review.TypeName(doc["overallRisk"]))
	}
	if !slices.Contains(RiskLevels, risk) {
		return invalid("'overallRisk' must be one of %s, got '%s'", strings.Join(RiskLevels, ", "), risk)
	}
	if _, ok := doc["summary"].(string); !ok {
		return invalid("'summary' must be string, got %s", review.TypeName(doc["summary"]))
	}
	findings, ok := doc["findings"].([]any)
	if !ok {
		return invalid("'findings' must be array, got %s", review.TypeName(doc["findings"]))
	}

	for i, item := range findings {
		if err := checkFinding(i, item); err != nil {
			return err
		}
	}
	return nil
}

func checkFinding(i int, item any) error {
	f, ok := item.(map[string]any)
	if !ok {
		return invalid("Finding %d must be object, got %s", i, review.TypeName(item))
	}

	var missing []string
	for _, field := range RequiredFindingFields {
		if _, ok := f[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return invalid("Finding %d missing required fields: %s", i, strings.Join(missing, ", "))
	}

	if typ, ok := f["type"].(string); !ok || strings.TrimSpace(typ) == "" {
		return invalid("Finding %d: type must be a non-empty string, got %s", i, review.TypeName(f["type"]))
	}
	for _, field := range []string{"title", "summary"} {
		if _, ok := f[field].(string); !ok {
			return invalid("Finding %d: %s must be string, got %s", i, field, review.TypeName(f[field]))
		}
	}
	if risk, ok := f["risk"].(string); !ok || !slices.Contains(RiskLevels, risk) {
		return invalid("Finding %d: risk must be one of %s, got '%v'", i, strings.Join(RiskLevels, ", "), f["risk"])
	}
	return nil
}
