/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Draft7 is the meta-schema generated schemas declare.
const Draft7 = "http://json-schema.org/draft-07/schema#"

// SchemaID identifies the generated review schema.
const SchemaID = "https://chainguard.dev/prreview/review.schema.json"

// ReportDocument is the canonical shape of a review file.
type ReportDocument struct {
	Approved    bool              `json:"approved" jsonschema:"required,description=Whether the change can merge without a human"`
	OverallRisk string            `json:"overallRisk" jsonschema:"required,enum=CRITICAL,enum=HIGH,enum=MEDIUM,enum=LOW,enum=NEGLIGIBLE"`
	Summary     string            `json:"summary" jsonschema:"required,description=Markdown summary of the review"`
	Findings    []FindingDocument `json:"findings" jsonschema:"required"`
}

// FindingDocument is one reviewer observation.
type FindingDocument struct {
	Type       string              `json:"type" jsonschema:"required,minLength=1,description=Free-form category such as version or resource or bug"`
	Title      string              `json:"title" jsonschema:"required"`
	Summary    string              `json:"summary" jsonschema:"required"`
	Risk       string              `json:"risk" jsonschema:"required,enum=CRITICAL,enum=HIGH,enum=MEDIUM,enum=LOW,enum=NEGLIGIBLE"`
	Tags       []string            `json:"tags,omitempty" jsonschema:"description=Labels in prefix:value form"`
	Cosmetic   bool                `json:"cosmetic,omitempty"`
	Subject    *SubjectDocument    `json:"subject,omitempty"`
	Location   *LocationDocument   `json:"location,omitempty"`
	Evidence   *EvidenceDocument   `json:"evidence,omitempty"`
	References []ReferenceDocument `json:"references,omitempty"`
}

// SubjectDocument names the thing a finding is about.
type SubjectDocument struct {
	Kind string `json:"kind,omitempty"`
	Name string `json:"name,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// LocationDocument points into the change.
type LocationDocument struct {
	Resource string `json:"resource,omitempty"`
	Path     string `json:"path,omitempty"`
	Line     int    `json:"line,omitempty" jsonschema:"minimum=1"`
	Column   int    `json:"column,omitempty" jsonschema:"minimum=1"`
}

// EvidenceDocument carries supporting text.
type EvidenceDocument struct {
	Diff    string `json:"diff,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	YAML    string `json:"yaml,omitempty"`
}

// ReferenceDocument links to further reading.
type ReferenceDocument struct {
	URL  string `json:"url,omitempty"`
	Note string `json:"note,omitempty"`
}

// Generate reflects ReportDocument into a Draft-7 schema.
func Generate() *jsonschema.Schema {
	r := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  true,
		DoNotReference:             true,
	}
	s := r.Reflect(&ReportDocument{})
	s.Version = Draft7
	s.ID = SchemaID
	s.Title = "Pull request review"
	return s
}

// GenerateJSON returns the indented JSON encoding of Generate.
func GenerateJSON() ([]byte, error) {
	b, err := json.MarshalIndent(Generate(), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
