/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package structured

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chainguard.dev/prreview/review"
	"github.com/google/go-cmp/cmp"
)

const validReview = `{"approved": true, "overallRisk": "LOW", "summary": "ok", "findings": [
	{"type": "version", "title": "nginx", "summary": "bump", "risk": "LOW"}
]}`

func write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile() = %v", err)
	}
	return path
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{{
		name: "valid",
		body: validReview,
	}, {
		name: "valid with no findings",
		body: `{"approved": false, "overallRisk": "CRITICAL", "summary": "", "findings": []}`,
	}, {
		name:    "not an object",
		body:    `"review"`,
		wantErr: "Review must be a JSON object, got string",
	}, {
		name:    "approved not boolean",
		body:    `{"approved": "true", "overallRisk": "LOW", "summary": "ok", "findings": []}`,
		wantErr: "'approved' must be boolean, got string",
	}, {
		name:    "overall risk not string",
		body:    `{"approved": true, "overallRisk": 3, "summary": "ok", "findings": []}`,
		wantErr: "'overallRisk' must be string, got number",
	}, {
		name:    "overall risk unknown is rejected",
		body:    `{"approved": true, "overallRisk": "UNKNOWN", "summary": "ok", "findings": []}`,
		wantErr: "'overallRisk' must be one of CRITICAL, HIGH, MEDIUM, LOW, NEGLIGIBLE, got 'UNKNOWN'",
	}, {
		name:    "lower case risk is rejected",
		body:    `{"approved": true, "overallRisk": "low", "summary": "ok", "findings": []}`,
		wantErr: "got 'low'",
	}, {
		name:    "summary not string",
		body:    `{"approved": true, "overallRisk": "LOW", "summary": null, "findings": []}`,
		wantErr: "'summary' must be string, got null",
	}, {
		name:    "findings not array",
		body:    `{"approved": true, "overallRisk": "LOW", "summary": "ok", "findings": {}}`,
		wantErr: "'findings' must be array, got object",
	}, {
		name:    "finding not object",
		body:    `{"approved": true, "overallRisk": "LOW", "summary": "ok", "findings": [[]]}`,
		wantErr: "Finding 0 must be object, got array",
	}, {
		name:    "finding missing fields",
		body:    `{"approved": true, "overallRisk": "LOW", "summary": "ok", "findings": [{"type": "x"}]}`,
		wantErr: "Finding 0 missing required fields: title, summary, risk",
	}, {
		name:    "finding blank type",
		body:    `{"approved": true, "overallRisk": "LOW", "summary": "ok", "findings": [{"type": " ", "title": "t", "summary": "s", "risk": "LOW"}]}`,
		wantErr: "Finding 0: type must be a non-empty string",
	}, {
		name:    "finding title not string",
		body:    `{"approved": true, "overallRisk": "LOW", "summary": "ok", "findings": [{"type": "x", "title": 1, "summary": "s", "risk": "LOW"}]}`,
		wantErr: "Finding 0: title must be string, got number",
	}, {
		name: "second finding bad risk",
		body: `{"approved": true, "overallRisk": "LOW", "summary": "ok", "findings": [
			{"type": "x", "title": "t", "summary": "s", "risk": "LOW"},
			{"type": "x", "title": "t", "summary": "s", "risk": "UNKNOWN"}
		]}`,
		wantErr: "Finding 1: risk must be one of",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := review.DecodeJSON([]byte(tt.body))
			if err != nil {
				t.Fatalf("DecodeJSON() = %v", err)
			}
			err = Check(data)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Check() = %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Check() = %v, want *ValidationError", err)
			}
			if !strings.Contains(verr.Error(), tt.wantErr) {
				t.Errorf("Check() = %q, want it to contain %q", verr.Error(), tt.wantErr)
			}
		})
	}
}

func TestCheckMissingFields(t *testing.T) {
	data, err := review.DecodeJSON([]byte(`{"summary": "ok"}`))
	if err != nil {
		t.Fatalf("DecodeJSON() = %v", err)
	}
	var verr *ValidationError
	if !errors.As(Check(data), &verr) {
		t.Fatal("Check() did not return a *ValidationError")
	}
	if diff := cmp.Diff([]string{"approved", "overallRisk", "findings"}, verr.MissingFields); diff != "" {
		t.Errorf("MissingFields mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	if err := Validate(ctx, write(t, "review.json", validReview)); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if err := Validate(ctx, filepath.Join(t.TempDir(), "review.json")); !errors.Is(err, review.ErrNotFound) {
		t.Errorf("Validate(missing) = %v, want ErrNotFound", err)
	}
	if err := Validate(ctx, write(t, "review.json", "{")); !errors.Is(err, review.ErrMalformed) {
		t.Errorf("Validate(invalid) = %v, want ErrMalformed", err)
	}
}

func TestValidateWithSchema(t *testing.T) {
	ctx := context.Background()
	reviewPath := write(t, "review.json", validReview)

	strict := write(t, "schema.json", `{"type": "object", "required": ["metadata"]}`)
	var verr *ValidationError
	if err := ValidateWithSchema(ctx, reviewPath, strict); !errors.As(err, &verr) {
		t.Fatalf("ValidateWithSchema() = %v, want *ValidationError", err)
	}
	if want := "Schema validation failed: <root>: metadata is required"; verr.Error() != want {
		t.Errorf("ValidateWithSchema() = %q, want %q", verr.Error(), want)
	}

	if err := ValidateWithSchema(ctx, reviewPath, filepath.Join(t.TempDir(), "none.json")); err != nil {
		t.Errorf("ValidateWithSchema(missing schema) = %v, want nil", err)
	}
}
