/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package automerge decides whether a reviewed pull request may be merged
// without a human.
package automerge

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/chainguard-dev/clog"
)

// Config holds the repository's auto-merge rules. With Enabled set and no
// rules every pull request is allowed.
type Config struct {
	Enabled        bool     `yaml:"enabled"`
	BranchPrefixes []string `yaml:"branch_prefixes"`
	BranchRegexes  []string `yaml:"branch_regexes"`
	AuthorLogins   []string `yaml:"author_logins"`
}

// Normalize builds a Config from the raw "auto_merge" mapping of a review
// config file. Criteria may sit directly in the mapping or under "allow".
// Lists may be given as a single string. Non-string and blank entries are
// dropped.
func Normalize(raw any) Config {
	m, ok := raw.(map[string]any)
	if !ok {
		return Config{}
	}
	criteria := m
	if allow, ok := m["allow"].(map[string]any); ok {
		criteria = allow
	}
	return Config{
		Enabled:        truthy(m["enabled"]),
		BranchPrefixes: stringList(criteria["branch_prefixes"]),
		BranchRegexes:  stringList(criteria["branch_regexes"]),
		AuthorLogins:   stringList(criteria["author_logins"]),
	}
}

func stringList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// PullRequestInfo is the pull request metadata the policy reads. Either
// accessor may fail, in which case the value is treated as empty.
type PullRequestInfo interface {
	Branch() (string, error)
	Author() (string, error)
}

// Decision is the outcome of Decide.
type Decision struct {
	Allowed bool
	Reason  string
}

// Decide evaluates cfg against the pull request. Every matching rule is
// listed in the reason. Invalid branch regexes are logged and ignored.
func Decide(ctx context.Context, pr PullRequestInfo, cfg Config) Decision {
	if !cfg.Enabled {
		return Decision{Reason: "disabled in repo config"}
	}
	if len(cfg.BranchPrefixes) == 0 && len(cfg.BranchRegexes) == 0 && len(cfg.AuthorLogins) == 0 {
		return Decision{Allowed: true, Reason: "enabled for all PRs"}
	}

	log := clog.FromContext(ctx)
	branch, err := pr.Branch()
	if err != nil {
		log.Warnf("Unable to read pull request branch: %v", err)
		branch = ""
	}
	author, err := pr.Author()
	if err != nil {
		log.Warnf("Unable to read pull request author: %v", err)
		author = ""
	}
	branch, author = strings.TrimSpace(branch), strings.TrimSpace(author)

	var matched []string
	for _, prefix := range cfg.BranchPrefixes {
		if strings.HasPrefix(branch, prefix) {
			matched = append(matched, fmt.Sprintf("branch prefix '%s'", prefix))
		}
	}
	for _, pattern := range cfg.BranchRegexes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			log.Warnf("Invalid auto-merge branch regex %s: %v", pattern, err)
			continue
		}
		if re.MatchString(branch) {
			matched = append(matched, fmt.Sprintf("branch regex '%s'", pattern))
		}
	}
	if author != "" && slices.Contains(cfg.AuthorLogins, author) {
		matched = append(matched, fmt.Sprintf("author '%s'", author))
	}

	if len(matched) > 0 {
		return Decision{Allowed: true, Reason: strings.Join(matched, "; ")}
	}

	var detail []string
	if branch != "" {
		detail = append(detail, fmt.Sprintf("branch '%s'", branch))
	}
	if author != "" {
		detail = append(detail, fmt.Sprintf("author '%s'", author))
	}
	if len(detail) == 0 {
		return Decision{Reason: "no rules matched"}
	}
	return Decision{Reason: "no rules matched for " + strings.Join(detail, ", ")}
}

// Gate combines the policy decision with the rest of the run.
type Gate struct {
	SkipMerge        bool
	ValidationErrors int
	Approved         bool
	Allowed          bool
}

// WillAutoMerge reports whether the pull request should be approved and
// merged.
func (g Gate) WillAutoMerge() bool {
	return !g.SkipMerge && g.ValidationErrors == 0 && g.Approved && g.Allowed
}

// SkipMerge reports whether merging is switched off for this run, either by
// an explicit override or because the run was started by hand.
func SkipMerge(override, eventName string) bool {
	switch strings.ToLower(strings.TrimSpace(override)) {
	case "1", "true", "yes":
		return true
	}
	return eventName == "workflow_dispatch"
}
