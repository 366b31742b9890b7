/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chainguard.dev/prreview/review"
	"github.com/google/go-cmp/cmp"
)

func writeSchema(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile() = %v", err)
	}
	return path
}

func decode(t *testing.T, body string) any {
	t.Helper()
	v, err := review.DecodeJSON([]byte(body))
	if err != nil {
		t.Fatalf("DecodeJSON() = %v", err)
	}
	return v
}

func TestValidateRequiredOrdering(t *testing.T) {
	path := writeSchema(t, `{"type": "object", "required": ["b", "a"]}`)
	got, err := Validate(context.Background(), decode(t, `{}`), path)
	if err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	want := []string{
		"<root>: a is required",
		"<root>: b is required",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Validate() mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateEmptySchema(t *testing.T) {
	path := writeSchema(t, `{}`)
	got, err := Validate(context.Background(), decode(t, `{"approved":true,"overallRisk":"LOW","summary":"ok","findings":[]}`), path)
	if err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Validate() = %v, want no errors", got)
	}
}

func TestValidateEnum(t *testing.T) {
	path := writeSchema(t, `{"type": "object", "properties": {"overallRisk": {"enum": ["LOW", "MEDIUM", "HIGH"]}}}`)
	got, err := Validate(context.Background(), decode(t, `{"overallRisk": "INVALID"}`), path)
	if err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Validate() = %v, want one error", got)
	}
	if !strings.HasPrefix(got[0], "overallRisk: ") {
		t.Errorf("Validate()[0] = %q, want it to start with %q", got[0], "overallRisk: ")
	}
}

func TestValidateCollectsAll(t *testing.T) {
	path := writeSchema(t, `{
		"type": "object",
		"properties": {
			"findings": {"type": "array", "items": {"type": "object", "required": ["risk"]}},
			"approved": {"type": "boolean"}
		}
	}`)
	data := decode(t, `{"approved": "yes", "findings": [{}, {}, {}, {}, {}, {}, {}, {}, {}, {}, {}]}`)
	got, err := Validate(context.Background(), data, path)
	if err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if len(got) != 12 {
		t.Fatalf("len(Validate()) = %d, want 12: %v", len(got), got)
	}
	if !strings.HasPrefix(got[0], "approved: ") {
		t.Errorf("first error = %q, want approved first", got[0])
	}
	// Indices compare numerically, so 10 sorts after 2.
	if !strings.HasPrefix(got[3], "findings/2: ") || !strings.HasPrefix(got[11], "findings/10: ") {
		t.Errorf("unexpected index ordering: %v", got)
	}
}

func TestValidateSchemaErrors(t *testing.T) {
	ctx := context.Background()

	if _, err := Validate(ctx, map[string]any{}, filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, review.ErrNotFound) {
		t.Errorf("Validate(missing) = %v, want ErrNotFound", err)
	}
	for name, body := range map[string]string{
		"empty":      "",
		"whitespace": "  \n",
		"not json":   "{",
		"not object": "[]",
		"bad schema": `{"type": 12}`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Validate(ctx, map[string]any{}, writeSchema(t, body)); !errors.Is(err, review.ErrMalformed) {
				t.Errorf("Validate() = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestCompareViolations(t *testing.T) {
	vs := []Violation{
		{Path: []string{"b"}, Message: "x"},
		{Path: []string{"a", "10"}, Message: "x"},
		{Path: nil, Message: "z"},
		{Path: []string{"a", "9"}, Message: "x"},
		{Path: nil, Message: "a"},
		{Path: []string{"a"}, Message: "x"},
	}
	var got []string
	sorted := append([]Violation(nil), vs...)
	sortViolations(sorted)
	for _, v := range sorted {
		got = append(got, v.String())
	}
	want := []string{"<root>: a", "<root>: z", "a: x", "a/9: x", "a/10: x", "b: x"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ordering mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate(t *testing.T) {
	s := Generate()
	if s.Version != Draft7 {
		t.Errorf("Version = %q, want %q", s.Version, Draft7)
	}
	if diff := cmp.Diff([]string{"approved", "overallRisk", "summary", "findings"}, s.Required); diff != "" {
		t.Errorf("Required mismatch (-want +got):\n%s", diff)
	}
	risk, ok := s.Properties.Get("overallRisk")
	if !ok {
		t.Fatal("missing overallRisk property")
	}
	if diff := cmp.Diff([]any{"CRITICAL", "HIGH", "MEDIUM", "LOW", "NEGLIGIBLE"}, risk.Enum); diff != "" {
		t.Errorf("overallRisk enum mismatch (-want +got):\n%s", diff)
	}
}

func TestGeneratedSchemaValidates(t *testing.T) {
	b, err := GenerateJSON()
	if err != nil {
		t.Fatalf("GenerateJSON() = %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("Unmarshal() = %v", err)
	}
	path := writeSchema(t, string(b))

	tests := []struct {
		name    string
		data    string
		wantErr string
	}{{
		name: "valid",
		data: `{"approved": true, "overallRisk": "LOW", "summary": "ok", "findings": [
			{"type": "version", "title": "nginx", "summary": "bump", "risk": "LOW",
			 "subject": {"kind": "chart", "name": "nginx", "from": "1.0", "to": "1.1"},
			 "location": {"path": "a.yaml", "line": 3}}
		]}`,
	}, {
		name:    "unknown overall risk",
		data:    `{"approved": true, "overallRisk": "UNKNOWN", "summary": "ok", "findings": []}`,
		wantErr: "overallRisk: ",
	}, {
		name:    "finding missing risk",
		data:    `{"approved": true, "overallRisk": "LOW", "summary": "ok", "findings": [{"type": "x", "title": "t", "summary": "s"}]}`,
		wantErr: "findings/0: ",
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(context.Background(), decode(t, tt.data), path)
			if err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			if tt.wantErr == "" {
				if len(got) != 0 {
					t.Errorf("Validate() = %v, want none", got)
				}
				return
			}
			if len(got) == 0 || !strings.HasPrefix(got[0], tt.wantErr) {
				t.Errorf("Validate() = %v, want first error prefixed %q", got, tt.wantErr)
			}
		})
	}
}
