/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"chainguard.dev/prreview/review/automerge"
	"chainguard.dev/prreview/review/labels"
	"github.com/chainguard-dev/clog"
	"gopkg.in/yaml.v3"
)

// File locations searched for, relative to the working directory and each of
// its parents.
var (
	ReviewConfigFiles = []string{
		filepath.Join(".github", "prreview.yaml"),
		filepath.Join(".github", "prreview.yml"),
	}
	LabelConfigFiles = []string{
		filepath.Join(".github", "prreview", "labels.yaml"),
		filepath.Join(".github", "prreview", "labels.yml"),
	}
)

// DefaultSchemaFile is the schema used when none is given.
var DefaultSchemaFile = filepath.Join(".github", "prreview.schema.json")

// Review is the repository-level review configuration.
type Review struct {
	AutoMerge automerge.Config
	// Path is the file the configuration came from, "" for defaults.
	Path string
}

// SearchUpwards returns the first candidate that is a regular file under dir
// or one of its parents, or "".
func SearchUpwards(dir string, candidates []string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		for _, c := range candidates {
			p := filepath.Join(dir, c)
			if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
				return p
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// locate picks the explicit path, then the environment override, then the
// first match of the upward search. Relative paths are taken from workdir.
func locate(workdir, explicit, override string, candidates []string) string {
	for _, p := range []string{explicit, override} {
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(workdir, p)
		}
		return p
	}
	return SearchUpwards(workdir, candidates)
}

// LoadReview resolves and reads the review configuration. A missing or
// unreadable file yields the defaults, which disable auto-merge.
func LoadReview(ctx context.Context, workdir, explicit string, env Env) Review {
	log := clog.FromContext(ctx)
	path := locate(workdir, explicit, env.ReviewConfigPath, ReviewConfigFiles)
	if path == "" {
		log.Debug("No review config found, using defaults")
		return Review{}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.With("path", path).Warnf("Failed to read review config: %v", err)
		}
		return Review{}
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		log.With("path", path).Warnf("Failed to parse review config: %v", err)
		return Review{}
	}
	m, ok := doc.(map[string]any)
	if !ok {
		log.With("path", path).Warn("Review config did not contain a YAML mapping")
		return Review{}
	}

	cfg := Review{AutoMerge: automerge.Normalize(m["auto_merge"]), Path: path}
	log.With("path", path).
		With("auto_merge", cfg.AutoMerge.Enabled).
		Info("Loaded review config")
	return cfg
}

// LoadLabels resolves and reads the label configuration, falling back to the
// built-in one when no file is found or it cannot be parsed.
func LoadLabels(ctx context.Context, workdir, explicit string, env Env) labels.Config {
	log := clog.FromContext(ctx)
	path := locate(workdir, explicit, env.LabelConfigPath, LabelConfigFiles)
	if path == "" {
		return labels.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.With("path", path).Warnf("Label config not readable, using defaults: %v", err)
		return labels.Default()
	}
	cfg, err := labels.Parse(data)
	if err != nil {
		log.With("path", path).Warnf("Failed to load label config, using defaults: %v", err)
		return labels.Default()
	}
	log.With("path", path).Info("Loaded label config")
	return cfg
}

// ResolveSchema returns the schema path to validate against: explicit when
// given, else the default file when it exists under workdir, else "".
func ResolveSchema(workdir, explicit string) string {
	if explicit != "" {
		if !filepath.IsAbs(explicit) {
			explicit = filepath.Join(workdir, explicit)
		}
		return explicit
	}
	p := filepath.Join(workdir, DefaultSchemaFile)
	if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
		return p
	}
	return ""
}

// FindInWorkspace looks for filename next to workdir, in the workspace root
// given by hint, and in the main and pull-request checkouts. Failing that it
// walks hint recursively.
func FindInWorkspace(ctx context.Context, workdir, filename, hint string) (string, error) {
	if hint == "" {
		hint = ".."
	}
	if !filepath.IsAbs(hint) {
		hint = filepath.Join(workdir, hint)
	}

	candidates := []string{
		filepath.Join(workdir, filename),
		filepath.Join(hint, filename),
		filepath.Join(workdir, "..", "..", filename),
		filepath.Join(workdir, "..", "main", filename),
		filepath.Join(workdir, "..", "pull-request", filename),
	}
	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && fi.Mode().IsRegular() {
			clog.FromContext(ctx).With("path", c).Info("Found file")
			return c, nil
		}
	}

	var found string
	err := filepath.WalkDir(hint, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directories are skipped.
			return nil
		}
		if !d.IsDir() && d.Name() == filepath.Base(filename) && d.Type().IsRegular() {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("searching %s: %w", hint, err)
	}
	if found == "" {
		return "", fmt.Errorf("%s not found in workspace %s: %w", filename, hint, fs.ErrNotExist)
	}
	clog.FromContext(ctx).With("path", found).Info("Found file via workspace search")
	return found, nil
}
