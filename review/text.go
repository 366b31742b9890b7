/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review

import (
	"fmt"
	"regexp"
	"strings"
)

// Display limits.
const (
	SummaryLimit = 280
	NoteLimit    = 240
)

// Truncate trims text and shortens it to at most limit runes, replacing the
// tail with "..." when it had to cut.
func Truncate(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit < 3 {
		return string(runes[:max(limit, 0)])
	}
	return string(runes[:limit-3]) + "..."
}

var anchorDisallowed = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases text and collapses every run of characters outside
// [a-z0-9] into a single hyphen. An empty result yields fallback.
func Slugify(text, fallback string) string {
	slug := anchorDisallowed.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return fallback
	}
	return slug
}

// AnchorCounter hands out unique anchors for a single rendered document.
// The zero value is ready to use. It is not safe for concurrent use.
type AnchorCounter struct {
	seen map[string]int
}

// NewAnchorCounter returns an empty counter.
func NewAnchorCounter() *AnchorCounter {
	return &AnchorCounter{}
}

// Make returns "<prefix>-<slug>" (or just the slug when prefix is empty).
// Repeated requests for the same anchor get "-1", "-2", ... appended. A
// suffixed anchor is itself recorded, so it is never handed out twice.
func (c *AnchorCounter) Make(prefix, text, fallback string) string {
	if c.seen == nil {
		c.seen = make(map[string]int)
	}
	anchor := Slugify(text, fallback)
	if prefix != "" {
		anchor = prefix + "-" + anchor
	}
	n := c.seen[anchor]
	c.seen[anchor] = n + 1
	if n == 0 {
		return anchor
	}
	for {
		candidate := fmt.Sprintf("%s-%d", anchor, n)
		if c.seen[candidate] == 0 {
			c.seen[candidate] = 1
			return candidate
		}
		n++
		c.seen[anchor] = n + 1
	}
}

// FormatResource renders a resource reference given either as a plain string
// or as a {kind, namespace, name} mapping.
func FormatResource(resource any) string {
	switch r := resource.(type) {
	case string:
		return strings.TrimSpace(r)
	case map[string]any:
		kind := stringOr(r["kind"], "?")
		namespace := stringOr(r["namespace"], "default")
		name := stringOr(r["name"], "?")
		return kind + "/" + namespace + "/" + name
	default:
		return ""
	}
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}
