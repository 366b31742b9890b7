/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review

import (
	"cmp"
	"context"
	"slices"
	"strings"
)

// Verdicts shown at the top of the rendered review.
const (
	VerdictApproved     = "Approved"
	VerdictManualReview = "Needs manual review"
)

// DefaultHeadline is used when the summary has no text.
const DefaultHeadline = "Automated Review Summary"

// View is everything the markdown renderer needs.
type View struct {
	Verdict          string
	Approved         bool
	OverallRisk      string
	Summary          string
	Headline         string
	Groups           []FindingGroup
	ValidationErrors []string
	AutomationNote   string
	// Automerged is nil when no merge decision was made.
	Automerged *bool
	RiskCounts []RiskCount
	Total      int
}

// RiskCount is the number of findings at one risk level.
type RiskCount struct {
	Risk  string
	Count int
}

// Headline returns the first non-blank line of summary.
func Headline(summary string) string {
	for _, line := range splitLines(summary) {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return DefaultHeadline
}

// BuildView normalizes the report findings and assembles the render input.
// A fresh anchor counter is used for every call.
func BuildView(ctx context.Context, report *Report, validationErrors []string, note string, automerged *bool) View {
	groups := Normalize(ctx, report.Findings, NewAnchorCounter())

	v := View{
		Verdict:          VerdictManualReview,
		Approved:         report.Approved(),
		OverallRisk:      report.OverallRisk(),
		Summary:          report.Summary(),
		Groups:           groups,
		ValidationErrors: validationErrors,
		AutomationNote:   strings.TrimSpace(note),
		Automerged:       automerged,
	}
	if v.Approved {
		v.Verdict = VerdictApproved
	}
	v.Headline = Headline(v.Summary)

	counts := make(map[string]int)
	var order []string
	for _, g := range groups {
		for _, f := range g.Findings {
			if counts[f.Risk] == 0 {
				order = append(order, f.Risk)
			}
			counts[f.Risk]++
			v.Total++
		}
	}
	sortRisks(order)
	for _, risk := range order {
		v.RiskCounts = append(v.RiskCounts, RiskCount{Risk: risk, Count: counts[risk]})
	}
	return v
}

// sortRisks orders risk values by display priority then name.
func sortRisks(risks []string) {
	slices.SortFunc(risks, func(a, b string) int {
		if c := cmp.Compare(RiskSortKey(a), RiskSortKey(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
}
