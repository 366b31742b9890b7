/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review

import (
	"fmt"
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{{
		name:  "short text is trimmed",
		text:  "  hello  ",
		limit: 10,
		want:  "hello",
	}, {
		name:  "exactly at limit",
		text:  "abcdefghij",
		limit: 10,
		want:  "abcdefghij",
	}, {
		name:  "over limit",
		text:  "abcdefghijk",
		limit: 10,
		want:  "abcdefg...",
	}, {
		name:  "multibyte runes",
		text:  "ééééééé",
		limit: 5,
		want:  "éé...",
	}, {
		name:  "empty",
		text:  "   ",
		limit: 5,
		want:  "",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.text, tt.limit); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
		})
	}
}

func TestTruncateIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"short",
		strings.Repeat("x", SummaryLimit),
		strings.Repeat("y", SummaryLimit+1),
		"  " + strings.Repeat("word ", 100) + "  ",
		strings.Repeat("ü", 500),
	}
	for _, in := range inputs {
		for _, limit := range []int{3, 10, SummaryLimit, NoteLimit} {
			once := Truncate(in, limit)
			if twice := Truncate(once, limit); twice != once {
				t.Errorf("Truncate(Truncate(%q, %d)) = %q, want %q", in, limit, twice, once)
			}
		}
	}
}

func TestRiskSortKey(t *testing.T) {
	ordered := []string{"HIGH", "medium", " low ", "", "CRITICAL"}
	for i := 1; i < len(ordered); i++ {
		prev, cur := RiskSortKey(ordered[i-1]), RiskSortKey(ordered[i])
		if prev >= cur {
			t.Errorf("RiskSortKey(%q) = %d, want less than RiskSortKey(%q) = %d", ordered[i-1], prev, ordered[i], cur)
		}
	}
	if a, b := RiskSortKey("bogus"), RiskSortKey("NEGLIGIBLE"); a != b {
		t.Errorf("unrecognized risks should share a bucket: %d != %d", a, b)
	}
	if a, b := RiskSortKey("HIGH"), RiskSortKey("HIGH"); a != b {
		t.Errorf("RiskSortKey is not stable: %d != %d", a, b)
	}
}

func TestNormalizeRisk(t *testing.T) {
	tests := map[string]string{
		"":        RiskUnknown,
		"  ":      RiskUnknown,
		"high":    RiskHigh,
		" Low ":   RiskLow,
		"weird":   "WEIRD",
		"UNKNOWN": RiskUnknown,
	}
	for in, want := range tests {
		if got := NormalizeRisk(in); got != want {
			t.Errorf("NormalizeRisk(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCollapsed(t *testing.T) {
	for _, risk := range []string{RiskHigh, RiskMedium} {
		if Collapsed(risk) {
			t.Errorf("Collapsed(%q) = true, want false", risk)
		}
	}
	for _, risk := range []string{RiskLow, RiskUnknown, RiskCritical, RiskNegligible} {
		if !Collapsed(risk) {
			t.Errorf("Collapsed(%q) = false, want true", risk)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		text, fallback, want string
	}{
		{"Hello World", "x", "hello-world"},
		{"  --nginx 1.0 -> 1.1--  ", "x", "nginx-1-0-1-1"},
		{"!!!", "finding", "finding"},
		{"", "finding", "finding"},
		{"Déjà vu", "x", "d-j-vu"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.text, tt.fallback); got != tt.want {
			t.Errorf("Slugify(%q, %q) = %q, want %q", tt.text, tt.fallback, got, tt.want)
		}
	}
}

func TestAnchorCounterUnique(t *testing.T) {
	c := NewAnchorCounter()
	seen := map[string]bool{}
	for i := range 25 {
		a := c.Make("finding", "Same Title", "finding")
		if i == 0 && a != "finding-same-title" {
			t.Errorf("first anchor = %q, want %q", a, "finding-same-title")
		}
		if seen[a] {
			t.Fatalf("duplicate anchor %q on call %d", a, i)
		}
		seen[a] = true
	}
}

func TestAnchorCounterSuffixCollision(t *testing.T) {
	var c AnchorCounter
	got := []string{
		c.Make("finding", "x", "finding"),
		c.Make("finding", "x", "finding"),
		c.Make("finding", "x 1", "finding"),
		c.Make("finding", "x", "finding"),
	}
	seen := map[string]bool{}
	for _, a := range got {
		if seen[a] {
			t.Fatalf("duplicate anchor %q in %v", a, got)
		}
		seen[a] = true
	}
	if got[1] != "finding-x-1" {
		t.Errorf("second anchor = %q, want %q", got[1], "finding-x-1")
	}
}

func TestFormatResource(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{" Deployment/web ", "Deployment/web"},
		{map[string]any{"kind": "Service", "name": "api"}, "Service/default/api"},
		{map[string]any{"namespace": "prod"}, "?/prod/?"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := FormatResource(tt.in); got != tt.want {
			t.Errorf("FormatResource(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func ExampleAnchorCounter() {
	var c AnchorCounter
	fmt.Println(c.Make("finding", "Bump nginx", "finding"))
	fmt.Println(c.Make("finding", "Bump nginx", "finding"))
	fmt.Println(c.Make("finding", "", "finding"))
	// Output:
	// finding-bump-nginx
	// finding-bump-nginx-1
	// finding-finding
}

func ExampleTruncate() {
	fmt.Println(Truncate("  a rather long sentence  ", 10))
	// Output: a rathe...
}
