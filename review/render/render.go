/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package render turns a review view into the markdown posted on the pull
// request.
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	"chainguard.dev/prreview/review"
)

//go:embed review.md.tmpl
var reviewTemplate string

var tmpl = template.Must(template.New("review.md").Funcs(template.FuncMap{
	"heading":  heading,
	"lines":    func(l []string) string { return strings.Join(l, "\n") },
	"location": location,
	"deref":    func(b *bool) bool { return b != nil && *b },
}).Parse(reviewTemplate))

// Markdown renders v. The result always ends in exactly one newline.
func Markdown(v review.View) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("rendering review markdown: %w", err)
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}

// heading turns a finding type into a section title: "version" becomes
// "Version findings".
func heading(typ string) string {
	if typ == "" {
		return "Findings"
	}
	r, size := utf8.DecodeRuneInString(typ)
	return string(unicode.ToUpper(r)) + typ[size:] + " findings"
}

func location(l *review.Location) string {
	var parts []string
	if l.Resource != "" {
		parts = append(parts, "`"+l.Resource+"`")
	}
	if l.Path != "" {
		p := l.Path
		if l.Line != nil {
			p = fmt.Sprintf("%s:%d", p, *l.Line)
			if l.Column != nil {
				p = fmt.Sprintf("%s:%d", p, *l.Column)
			}
		}
		parts = append(parts, "`"+p+"`")
	} else if l.Line != nil {
		parts = append(parts, fmt.Sprintf("line %d", *l.Line))
	}
	return strings.Join(parts, " ")
}
