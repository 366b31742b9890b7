/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package plugins runs pre-processing steps over the checked out pull
// request before the reviewer sees it. A plugin may produce a comment for
// the pull request and extra context for the review prompt.
package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
)

// Context is what a plugin gets to look at.
type Context struct {
	PRNumber   int
	Repository string
	EventName  string
	BaseSHA    string
	HeadSHA    string

	// WorkspaceRoot holds both checkouts and receives plugin artifacts.
	WorkspaceRoot string
	// PRDir is the checkout of the pull request head.
	PRDir string
	// BaseDir is the checkout of the base branch.
	BaseDir string

	// ChangedFiles are paths relative to the repository root.
	ChangedFiles []string
}

// Result is the outcome of one plugin.
type Result struct {
	Plugin   string
	Success  bool
	Message  string
	Metadata map[string]any

	// Comment, when set, is posted on the pull request.
	Comment string
	// ReviewContext, when set, is added to the review prompt.
	ReviewContext string
}

// Plugin is a pre-processing step.
type Plugin interface {
	Name() string
	// Detects reports whether the plugin applies to the change.
	Detects(ctx context.Context, pc *Context) bool
	Execute(ctx context.Context, pc *Context) (*Result, error)
}

// Run executes every plugin that detects the change, in order. A plugin that
// fails or panics yields an unsuccessful result instead of stopping the run.
func Run(ctx context.Context, pc *Context, plugins ...Plugin) []Result {
	results := make([]Result, 0, len(plugins))
	for _, p := range plugins {
		log := clog.FromContext(ctx).With("plugin", p.Name())
		res, err := execute(ctx, p, pc)
		switch {
		case err != nil:
			log.Errorf("Plugin %s failed: %v", p.Name(), err)
			results = append(results, Result{
				Plugin:  p.Name(),
				Message: fmt.Sprintf("Plugin %s failed: %v", p.Name(), err),
			})
		case res == nil:
			log.Debugf("Plugin %s did not detect applicable changes", p.Name())
		default:
			res.Plugin = p.Name()
			log.Infof("Plugin %s: %s", p.Name(), res.Message)
			results = append(results, *res)
		}
	}
	return results
}

// execute returns a nil result when the plugin does not apply.
func execute(ctx context.Context, p Plugin, pc *Context) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	if !p.Detects(ctx, pc) {
		return nil, nil
	}
	clog.FromContext(ctx).Infof("Running plugin: %s", p.Name())
	return p.Execute(ctx, pc)
}

// ReviewContext joins the review context of results into a section for the
// review prompt, or "" when there is none.
func ReviewContext(results []Result) string {
	var parts []string
	for _, r := range results {
		if r.ReviewContext != "" {
			parts = append(parts, r.ReviewContext)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "## Additional Context\n\n" + strings.Join(parts, "\n\n") + "\n"
}

// ParseChangedFiles accepts a JSON array of paths or a whitespace separated
// list.
func ParseChangedFiles(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var files []string
	if err := json.Unmarshal([]byte(s), &files); err == nil {
		return files
	}
	return strings.Fields(s)
}
