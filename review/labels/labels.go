/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package labels derives pull request labels and their colors from a review.
package labels

import (
	_ "embed"
	"fmt"
	"strings"

	"chainguard.dev/prreview/review"
	"gopkg.in/yaml.v3"
)

// DefaultColor is used when no color is configured for a label.
const DefaultColor = "6f42c1"

// DefaultDescription is used for labels whose prefix has no description.
const DefaultDescription = "Automated review metadata label."

//go:embed default.yaml
var defaultYAML []byte

// Config controls label colors and descriptions.
type Config struct {
	DefaultColor     string                       `yaml:"default_color"`
	Descriptions     map[string]string            `yaml:"descriptions"`
	ChangeTypeColors map[string]string            `yaml:"change_type_colors"`
	RiskColors       map[string]string            `yaml:"risk_colors"`
	UpdateColors     map[string]string            `yaml:"update_colors"`
	TagColors        map[string]map[string]string `yaml:"tag_colors"`
}

type file struct {
	Labels Config `yaml:"labels"`
}

// Parse decodes a label configuration file. Settings live under a top-level
// "labels" key.
func Parse(data []byte) (Config, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Config{}, fmt.Errorf("parsing label config: %w", err)
	}
	return f.Labels, nil
}

// Default returns the built-in configuration.
func Default() Config {
	cfg, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded label config: %v", err))
	}
	return cfg
}

func (c Config) defaultColor() string {
	if c.DefaultColor == "" {
		return DefaultColor
	}
	return c.DefaultColor
}

// prefixColors maps tag prefixes to their color tables. The change and
// update tables cannot be replaced through tag_colors.
func (c Config) prefixColors() map[string]map[string]string {
	m := map[string]map[string]string{
		"change": c.ChangeTypeColors,
		"update": c.UpdateColors,
	}
	for prefix, colors := range c.TagColors {
		if _, ok := m[prefix]; ok || colors == nil {
			continue
		}
		m[prefix] = colors
	}
	return m
}

// Description returns the description to use when creating label name.
func (c Config) Description(name string) string {
	prefix, _, _ := strings.Cut(name, ":")
	if d, ok := c.Descriptions[prefix]; ok {
		return d
	}
	return DefaultDescription
}

// Derive returns the labels for a report keyed by name. Later findings
// overwrite the color of a label set by an earlier one.
func Derive(report *review.Report, cfg Config) map[string]string {
	labels := make(map[string]string)
	fallback := cfg.defaultColor()
	prefixes := cfg.prefixColors()

	colorOf := func(table map[string]string, key string) string {
		if c, ok := table[key]; ok {
			return c
		}
		return fallback
	}

	for _, item := range report.Findings {
		finding, ok := item.(map[string]any)
		if !ok {
			continue
		}

		if tags, ok := finding["tags"].([]any); ok {
			for _, t := range tags {
				tag, ok := t.(string)
				if !ok {
					continue
				}
				prefix, value, ok := strings.Cut(strings.ToLower(strings.TrimSpace(tag)), ":")
				if !ok || prefix == "" || value == "" {
					continue
				}
				table, ok := prefixes[prefix]
				if !ok {
					continue
				}
				labels[prefix+":"+value] = colorOf(table, value)
			}
		}

		typ := strings.ToLower(str(finding["type"]))
		if _, hasChange := finding["changeType"]; typ == "resource" || hasChange {
			changeType := strings.ToLower(str(finding["changeType"]))
			if changeType == "" {
				changeType = "other"
			}
			labels["change:"+changeType] = colorOf(cfg.ChangeTypeColors, changeType)
		}
		if typ == "version" {
			kind := strings.ToLower(str(field(finding["subject"], "kind")))
			if kind == "" {
				kind = strings.ToLower(str(field(finding["component"], "kind")))
			}
			if kind != "" {
				labels["update:"+kind] = colorOf(cfg.UpdateColors, kind)
			}
		}
	}

	risk := strings.ToUpper(report.OverallRisk())
	labels["risk:"+strings.ToLower(risk)] = colorOf(cfg.RiskColors, risk)
	return labels
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func field(v any, key string) any {
	m, _ := v.(map[string]any)
	return m[key]
}
