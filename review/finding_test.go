/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func decodeList(t *testing.T, body string) []any {
	t.Helper()
	v, err := DecodeJSON([]byte(body))
	if err != nil {
		t.Fatalf("DecodeJSON() = %v", err)
	}
	list, ok := v.([]any)
	if !ok {
		t.Fatalf("DecodeJSON() = %T, want []any", v)
	}
	return list
}

func intPtr(n int) *int { return &n }

func TestNormalizeFinding(t *testing.T) {
	tests := []struct {
		name string
		item string
		want Finding
	}{{
		name: "version subject derives title and update tag",
		item: `{"type": "version", "subject": {"name": "nginx", "kind": "chart", "from": "1.0", "to": "1.1"}}`,
		want: Finding{
			Type:     "version",
			Title:    "nginx 1.0 -> 1.1",
			Summary:  "n/a",
			Risk:     RiskUnknown,
			Tags:     []string{"update:chart"},
			Subject:  &Subject{Kind: "chart", Name: "nginx", From: "1.0", To: "1.1"},
			Anchor:   "finding-nginx-1-0-1-1",
			Collapse: true,
		},
	}, {
		name: "legacy component without type",
		item: `{"component": {"kind": "Image", "name": "redis", "to": "7"}, "risk": "medium", "isCosmetic": true}`,
		want: Finding{
			Type:     "version",
			Title:    "redis n/a -> 7",
			Summary:  "n/a",
			Risk:     RiskMedium,
			Tags:     []string{"update:image"},
			Cosmetic: true,
			Subject:  &Subject{Kind: "Image", Name: "redis", To: "7"},
			Anchor:   "finding-redis-n-a-7",
		},
	}, {
		name: "legacy resource with change type",
		item: `{"resource": " Deployment/web ", "changeType": "Modified", "risk": "HIGH", "tags": ["Change:modified", "scale"]}`,
		want: Finding{
			Type:     "resource",
			Title:    "Deployment/web",
			Summary:  "n/a",
			Risk:     RiskHigh,
			Tags:     []string{"change:modified", "scale"},
			Location: &Location{Resource: "Deployment/web"},
			Anchor:   "finding-deployment-web",
		},
	}, {
		name: "generic finding with location evidence and references",
		item: `{
			"type": "Bug",
			"title": "  Nil dereference ",
			"summary": "  crash on empty input  ",
			"risk": "low",
			"tags": ["Go", " go ", 7, ""],
			"cosmetic": false,
			"isCosmetic": true,
			"location": {"path": "main.go", "line": 10, "column": 2.5},
			"evidence": {"diff": "\n-a\n+b\n", "snippet": "   ", "yaml": "k: v"},
			"references": [{"url": "https://example.com"}, {"note": ""}, "junk", {"note": "see docs"}]
		}`,
		want: Finding{
			Type:       "bug",
			Title:      "Nil dereference",
			Summary:    "crash on empty input",
			Risk:       RiskLow,
			Tags:       []string{"go"},
			Location:   &Location{Path: "main.go", Line: intPtr(10)},
			Evidence:   &Evidence{Diff: []string{"-a", "+b"}, Snippet: []string{}, YAML: []string{"k: v"}},
			References: []Reference{{URL: "https://example.com"}, {Note: "see docs"}},
			Anchor:     "finding-nil-dereference",
			Collapse:   true,
		},
	}, {
		name: "nothing but a type",
		item: `{"type": "style"}`,
		want: Finding{
			Type:     "style",
			Title:    "style finding",
			Summary:  "n/a",
			Risk:     RiskUnknown,
			Tags:     []string{},
			Anchor:   "finding-style-finding",
			Collapse: true,
		},
	}, {
		name: "empty object",
		item: `{}`,
		want: Finding{
			Type:     "finding",
			Title:    "finding finding",
			Summary:  "n/a",
			Risk:     RiskUnknown,
			Tags:     []string{},
			Anchor:   "finding-finding-finding",
			Collapse: true,
		},
	}, {
		name: "subject without kind or name is dropped",
		item: `{"subject": {"from": "1"}, "location": {"line": "3"}, "title": "t"}`,
		want: Finding{
			Type:     "finding",
			Title:    "t",
			Summary:  "n/a",
			Risk:     RiskUnknown,
			Tags:     []string{},
			Anchor:   "finding-t",
			Collapse: true,
		},
	}, {
		name: "ill-typed location path is ignored",
		item: `{"type": "bug", "title": "keep me", "risk": "LOW", "location": {"resource": "Deployment/x", "path": 42}}`,
		want: Finding{
			Type:     "bug",
			Title:    "keep me",
			Summary:  "n/a",
			Risk:     RiskLow,
			Tags:     []string{},
			Location: &Location{Resource: "Deployment/x"},
			Anchor:   "finding-keep-me",
			Collapse: true,
		},
	}, {
		name: "update tag falls back to component kind",
		item: `{"type": "version", "subject": {"name": "nginx", "from": "1.0", "to": "1.1"}, "component": {"kind": "chart"}}`,
		want: Finding{
			Type:     "version",
			Title:    "nginx 1.0 -> 1.1",
			Summary:  "n/a",
			Risk:     RiskUnknown,
			Tags:     []string{"update:chart"},
			Subject:  &Subject{Name: "nginx", From: "1.0", To: "1.1"},
			Anchor:   "finding-nginx-1-0-1-1",
			Collapse: true,
		},
	}, {
		name: "numeric versions keep their value",
		item: `{"type": "version", "subject": {"kind": "chart", "name": "nginx", "from": 1.1, "to": 2}}`,
		want: Finding{
			Type:     "version",
			Title:    "nginx 1.1 -> 2",
			Summary:  "n/a",
			Risk:     RiskUnknown,
			Tags:     []string{"update:chart"},
			Subject:  &Subject{Kind: "chart", Name: "nginx", From: "1.1", To: "2"},
			Anchor:   "finding-nginx-1-1-2",
			Collapse: true,
		},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := decodeList(t, "["+tt.item+"]")
			got, err := normalizeFinding(items[0], NewAnchorCounter())
			if err != nil {
				t.Fatalf("normalizeFinding() = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("normalizeFinding() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeSummaryTruncated(t *testing.T) {
	long := strings.Repeat("a", 300)
	items := decodeList(t, `[{"summary": "`+long+`"}]`)
	groups := Normalize(context.Background(), items, nil)
	got := groups[0].Findings[0].Summary
	if want := strings.Repeat("a", 277) + "..."; got != want {
		t.Errorf("Summary = %q, want %q", got, want)
	}
}

func TestNormalizeSkipsBadItems(t *testing.T) {
	items := decodeList(t, `[
		"not an object",
		{"type": 42, "title": "bad type"},
		{"title": ["bad title"]},
		{"subject": {"name": {"nested": true}}},
		{"title": "good", "risk": "HIGH"}
	]`)
	groups := Normalize(context.Background(), items, NewAnchorCounter())
	if len(groups) != 1 || len(groups[0].Findings) != 1 {
		t.Fatalf("Normalize() = %+v, want exactly one finding", groups)
	}
	if got := groups[0].Findings[0].Title; got != "good" {
		t.Errorf("Title = %q, want %q", got, "good")
	}
}

func TestNormalizeGroupingAndOrder(t *testing.T) {
	items := decodeList(t, `[
		{"type": "resource", "title": "zeta", "risk": "LOW"},
		{"type": "bug", "title": "b", "risk": "CRITICAL"},
		{"type": "resource", "title": "beta", "risk": "HIGH"},
		{"type": "bug", "title": "a", "risk": "UNKNOWN"},
		{"type": "resource", "title": "alpha", "risk": "LOW"},
		{"type": "bug", "title": "c", "risk": "medium"}
	]`)
	groups := Normalize(context.Background(), items, NewAnchorCounter())

	type entry struct{ Type, Title, Risk string }
	var got []entry
	for _, g := range groups {
		for _, f := range g.Findings {
			got = append(got, entry{g.Type, f.Title, f.Risk})
		}
	}
	want := []entry{
		{"bug", "c", RiskMedium},
		{"bug", "a", RiskUnknown},
		{"bug", "b", RiskCritical},
		{"resource", "beta", RiskHigh},
		{"resource", "alpha", RiskLow},
		{"resource", "zeta", RiskLow},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize() order mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeDuplicateTitles(t *testing.T) {
	items := decodeList(t, `[{"title": "Same"}, {"title": "Same"}, {"title": "Same"}]`)
	groups := Normalize(context.Background(), items, NewAnchorCounter())
	var anchors []string
	for _, f := range groups[0].Findings {
		anchors = append(anchors, f.Anchor)
	}
	want := []string{"finding-same", "finding-same-1", "finding-same-2"}
	if diff := cmp.Diff(want, anchors); diff != "" {
		t.Errorf("anchors mismatch (-want +got):\n%s", diff)
	}
}

func TestHeadline(t *testing.T) {
	tests := map[string]string{
		"":                          DefaultHeadline,
		"   \n\t\n":                 DefaultHeadline,
		"\n\n  First line  \nsecond": "First line",
		"only":                      "only",
	}
	for in, want := range tests {
		if got := Headline(in); got != want {
			t.Errorf("Headline(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildView(t *testing.T) {
	path := writeFile(t, "r.json", []byte(`{"approved": true, "overallRisk": "MEDIUM", "summary": "\n Looks fine.\nDetails.",
		"findings": [{"title": "x", "risk": "LOW"}, {"title": "y", "risk": "HIGH"}, {"title": "z", "risk": "LOW"}]}`))
	ctx := context.Background()
	report, err := Load(ctx, path, LoadOptions{ValidateStructure: true})
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	merged := true
	v := BuildView(ctx, report, []string{"<root>: oops"}, " note ", &merged)

	if v.Verdict != VerdictApproved {
		t.Errorf("Verdict = %q, want %q", v.Verdict, VerdictApproved)
	}
	if v.Headline != "Looks fine." {
		t.Errorf("Headline = %q, want %q", v.Headline, "Looks fine.")
	}
	if v.AutomationNote != "note" {
		t.Errorf("AutomationNote = %q, want %q", v.AutomationNote, "note")
	}
	if v.Total != 3 {
		t.Errorf("Total = %d, want 3", v.Total)
	}
	want := []RiskCount{{Risk: RiskHigh, Count: 1}, {Risk: RiskLow, Count: 2}}
	if diff := cmp.Diff(want, v.RiskCounts); diff != "" {
		t.Errorf("RiskCounts mismatch (-want +got):\n%s", diff)
	}
}
