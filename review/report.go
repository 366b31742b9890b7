/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/chainguard-dev/clog"
)

// MaxReportSize is the largest review file Load accepts.
const MaxReportSize = 10 * 1024 * 1024

var (
	// ErrNotFound is returned when a required input file does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMalformed is returned when an input file exists but cannot be used.
	ErrMalformed = errors.New("malformed input")
)

// Report is a review as produced by the reviewer.
type Report struct {
	// Data is the document exactly as decoded, numbers as json.Number.
	Data map[string]any
	// Findings is resolved from "findings", falling back to the legacy
	// "changes" key. It is never nil for a loaded report.
	Findings []any
}

// Approved reports whether the reviewer approved the change.
func (r *Report) Approved() bool {
	b, _ := r.Data["approved"].(bool)
	return b
}

// OverallRisk returns the reported overall risk, or RiskUnknown.
func (r *Report) OverallRisk() string {
	if s, ok := r.Data["overallRisk"].(string); ok && s != "" {
		return s
	}
	return RiskUnknown
}

// Summary returns the trimmed top-level summary.
func (r *Report) Summary() string {
	return strings.TrimSpace(looseString(r.Data["summary"]))
}

// LoadOptions controls Load.
type LoadOptions struct {
	// ValidateStructure requires approved, overallRisk, summary and one of
	// findings/changes at the top level.
	ValidateStructure bool
}

// Load reads and decodes a review file.
func Load(ctx context.Context, path string, opts LoadOptions) (*Report, error) {
	log := clog.FromContext(ctx).With("path", path)
	log.Info("Loading review data")

	data, err := ReadJSONFile(path, MaxReportSize)
	if err != nil {
		log.Errorf("Failed to read review data: %v", err)
		return nil, err
	}

	doc, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: review data in %s must be a JSON object, got %s", ErrMalformed, path, typeName(data))
	}

	if opts.ValidateStructure {
		var missing []string
		for _, field := range []string{"approved", "overallRisk", "summary"} {
			if !hasKey(doc, field) {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: review data missing required fields: %s", ErrMalformed, strings.Join(missing, ", "))
		}
		if !hasKey(doc, "findings") && !hasKey(doc, "changes") {
			return nil, fmt.Errorf("%w: review data missing required field: findings", ErrMalformed)
		}
	}

	report := &Report{Data: doc, Findings: resolveFindings(doc)}

	var versions, resources int
	for _, item := range report.Findings {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		switch typ := strings.ToLower(looseString(m["type"])); {
		case typ == "version" || hasKey(m, "component"):
			versions++
		case typ == "resource" || hasKey(m, "changeType") || hasKey(m, "resource"):
			resources++
		}
	}
	log.With("version_changes", versions).
		With("resource_changes", resources).
		With("total", len(report.Findings)).
		Info("Loaded review data")

	return report, nil
}

// resolveFindings prefers "findings" and falls back to "changes". A value
// that is not a list resolves to no findings.
func resolveFindings(doc map[string]any) []any {
	v, ok := doc["findings"]
	if !ok || v == nil {
		v = doc["changes"]
	}
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{}
}

// ReadJSONFile reads a UTF-8 JSON document of at most limit bytes. Numbers
// are decoded as json.Number.
func ReadJSONFile(path string, limit int64) (any, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: expected JSON at %s", ErrNotFound, path)
	case err != nil:
		return nil, fmt.Errorf("%w: cannot access %s: %w", ErrMalformed, path, err)
	case !info.Mode().IsRegular():
		return nil, fmt.Errorf("%w: expected %s to be a file", ErrMalformed, path)
	case info.Size() == 0:
		return nil, fmt.Errorf("%w: file is empty: %s", ErrMalformed, path)
	case info.Size() > limit:
		return nil, fmt.Errorf("%w: file too large (%d bytes): %s", ErrMalformed, info.Size(), path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %s: %w", ErrMalformed, path, err)
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: unable to decode %s as UTF-8", ErrMalformed, path)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: file is empty or contains only whitespace: %s", ErrMalformed, path)
	}

	v, err := DecodeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to parse JSON from %s: %w", ErrMalformed, path, err)
	}
	return v, nil
}

// DecodeJSON decodes a single JSON value, keeping numbers as json.Number.
func DecodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return v, nil
}
