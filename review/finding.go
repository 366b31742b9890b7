/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/chainguard-dev/clog"
)

// Finding is a single reviewer observation in display form.
type Finding struct {
	Type       string
	Title      string
	Summary    string
	Risk       string
	Tags       []string
	Cosmetic   bool
	Subject    *Subject
	Location   *Location
	Evidence   *Evidence
	References []Reference
	Anchor     string
	Collapse   bool
}

// Subject is the thing a finding is about, such as a chart being bumped.
type Subject struct {
	Kind string
	Name string
	// From and To are empty when the reviewer did not report them.
	From string
	To   string
}

// Location points at where a finding applies.
type Location struct {
	Resource string
	Path     string
	Line     *int
	Column   *int
}

// Evidence holds supporting text split into lines.
type Evidence struct {
	Diff    []string
	Snippet []string
	YAML    []string
}

// Reference is a link or note attached to a finding.
type Reference struct {
	URL  string
	Note string
}

// FindingGroup is every finding of one type, in display order.
type FindingGroup struct {
	Type     string
	Findings []Finding
}

// Normalize converts raw findings into display groups. Groups are ordered by
// type and findings within a group by risk then title. Items that cannot be
// interpreted are logged and dropped.
func Normalize(ctx context.Context, items []any, counter *AnchorCounter) []FindingGroup {
	log := clog.FromContext(ctx)
	if counter == nil {
		counter = NewAnchorCounter()
	}

	byType := make(map[string][]Finding)
	for i, item := range items {
		f, err := normalizeFinding(item, counter)
		if err != nil {
			log.With("index", i).Warnf("Skipping finding: %v", err)
			continue
		}
		byType[f.Type] = append(byType[f.Type], f)
	}

	types := make([]string, 0, len(byType))
	for typ := range byType {
		types = append(types, typ)
	}
	sort.Strings(types)

	groups := make([]FindingGroup, 0, len(types))
	for _, typ := range types {
		findings := byType[typ]
		sort.SliceStable(findings, func(i, j int) bool {
			ki, kj := RiskSortKey(findings[i].Risk), RiskSortKey(findings[j].Risk)
			if ki != kj {
				return ki < kj
			}
			return findings[i].Title < findings[j].Title
		})
		groups = append(groups, FindingGroup{Type: typ, Findings: findings})
	}
	return groups
}

func normalizeFinding(item any, counter *AnchorCounter) (Finding, error) {
	raw, ok := item.(map[string]any)
	if !ok {
		return Finding{}, fmt.Errorf("finding must be an object, got %s", typeName(item))
	}

	typ, err := optString(raw["type"])
	if err != nil {
		return Finding{}, fmt.Errorf("type: %w", err)
	}
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ == "" {
		switch {
		case hasKey(raw, "component"):
			typ = "version"
		case hasKey(raw, "resource") || hasKey(raw, "changeType"):
			typ = "resource"
		default:
			typ = "finding"
		}
	}

	risk, err := optString(raw["risk"])
	if err != nil {
		return Finding{}, fmt.Errorf("risk: %w", err)
	}

	summary, err := optString(raw["summary"])
	if err != nil {
		return Finding{}, fmt.Errorf("summary: %w", err)
	}
	summary = Truncate(summary, SummaryLimit)
	if summary == "" {
		summary = "n/a"
	}

	subject, err := normalizeSubject(raw)
	if err != nil {
		return Finding{}, fmt.Errorf("subject: %w", err)
	}

	location := normalizeLocation(raw)

	title, err := optString(raw["title"])
	if err != nil {
		return Finding{}, fmt.Errorf("title: %w", err)
	}
	title = strings.TrimSpace(title)
	switch {
	case title != "":
	case subject != nil && subject.Name != "" && (subject.From != "" || subject.To != ""):
		title = fmt.Sprintf("%s %s -> %s", subject.Name, orNA(subject.From), orNA(subject.To))
	case subject != nil && subject.Name != "":
		title = subject.Name
	case location != nil && location.Resource != "":
		title = location.Resource
	default:
		title = typ + " finding"
	}

	tags, err := normalizeTags(raw, typ, subject)
	if err != nil {
		return Finding{}, fmt.Errorf("tags: %w", err)
	}

	cosmetic, ok := raw["cosmetic"]
	if !ok {
		cosmetic = raw["isCosmetic"]
	}

	f := Finding{
		Type:       typ,
		Title:      title,
		Summary:    summary,
		Risk:       NormalizeRisk(risk),
		Tags:       tags,
		Cosmetic:   truthy(cosmetic),
		Subject:    subject,
		Location:   location,
		Evidence:   normalizeEvidence(raw["evidence"]),
		References: normalizeReferences(raw["references"]),
	}
	f.Collapse = Collapsed(f.Risk)
	f.Anchor = counter.Make("finding", f.Title, "finding")
	return f, nil
}

func normalizeSubject(raw map[string]any) (*Subject, error) {
	source := object(raw["subject"])
	if source == nil {
		source = object(raw["component"])
	}
	if source == nil {
		return nil, nil
	}
	kind, err := optString(source["kind"])
	if err != nil {
		return nil, fmt.Errorf("kind: %w", err)
	}
	name, err := optString(source["name"])
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	s := &Subject{
		Kind: strings.TrimSpace(kind),
		Name: strings.TrimSpace(name),
		From: scalarString(source["from"]),
		To:   scalarString(source["to"]),
	}
	if s.Kind == "" && s.Name == "" {
		return nil, nil
	}
	return s, nil
}

// normalizeLocation keeps only the well-typed location fields.
func normalizeLocation(raw map[string]any) *Location {
	source := object(raw["location"])
	if source == nil {
		if !truthy(raw["resource"]) {
			return nil
		}
		source = map[string]any{"resource": raw["resource"]}
	}

	loc := &Location{
		Resource: FormatResource(source["resource"]),
		Path:     strings.TrimSpace(looseString(source["path"])),
	}
	if n, ok := integer(source["line"]); ok {
		loc.Line = &n
	}
	if n, ok := integer(source["column"]); ok {
		loc.Column = &n
	}
	if loc.Resource == "" && loc.Path == "" && loc.Line == nil && loc.Column == nil {
		return nil
	}
	return loc
}

func normalizeTags(raw map[string]any, typ string, subject *Subject) ([]string, error) {
	tags := []string{}
	add := func(tag string) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || slices.Contains(tags, tag) {
			return
		}
		tags = append(tags, tag)
	}

	if list, ok := raw["tags"].([]any); ok {
		for _, t := range list {
			if s, ok := t.(string); ok {
				add(s)
			}
		}
	}

	changeType, err := optString(raw["changeType"])
	if err != nil {
		return nil, fmt.Errorf("changeType: %w", err)
	}
	if changeType = strings.TrimSpace(changeType); changeType != "" {
		add("change:" + changeType)
	}
	if typ == "version" {
		kind := ""
		if subject != nil {
			kind = subject.Kind
		}
		if kind == "" {
			kind = strings.TrimSpace(looseString(object(raw["component"])["kind"]))
		}
		if kind != "" {
			add("update:" + kind)
		}
	}
	return tags, nil
}

func normalizeEvidence(v any) *Evidence {
	source := object(v)
	if source == nil {
		return nil
	}
	lines := func(key string) []string {
		return splitLines(strings.TrimSpace(looseString(source[key])))
	}
	e := &Evidence{
		Diff:    lines("diff"),
		Snippet: lines("snippet"),
		YAML:    lines("yaml"),
	}
	if len(e.Diff) == 0 && len(e.Snippet) == 0 && len(e.YAML) == 0 {
		return nil
	}
	return e
}

func normalizeReferences(v any) []Reference {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var refs []Reference
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		ref := Reference{
			URL:  strings.TrimSpace(looseString(m["url"])),
			Note: Truncate(looseString(m["note"]), NoteLimit),
		}
		if ref.URL == "" && ref.Note == "" {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
