/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package kustomize renders the kustomizations a pull request touches at the
// base and head commits and diffs the rendered manifests.
package kustomize

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"chainguard.dev/prreview/plugins"
	"github.com/chainguard-dev/clog"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/sync/errgroup"
)

// Name identifies the plugin.
const Name = "kustomize"

// Files written to the workspace root.
const (
	PRRenderedFile   = "pr-rendered.yaml"
	BaseRenderedFile = "base-rendered.yaml"
)

// kustomizationFiles are the names kustomize looks for, in order.
var kustomizationFiles = []string{"kustomization.yaml", "kustomization.yml", "Kustomization"}

// Renderer renders one kustomization directory to YAML.
type Renderer interface {
	Render(ctx context.Context, dir string) ([]byte, error)
}

// Kubectl renders with `kubectl kustomize <dir> --enable-helm`.
type Kubectl struct {
	// Path to kubectl. Defaults to "kubectl" on PATH.
	Path string
}

// Render implements Renderer.
func (k Kubectl) Render(ctx context.Context, dir string) ([]byte, error) {
	bin := k.Path
	if bin == "" {
		bin = "kubectl"
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "kustomize", dir, "--enable-helm")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("kubectl kustomize %s: %w: %s", dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Plugin is the kustomize diff plugin.
type Plugin struct {
	renderer Renderer
}

var _ plugins.Plugin = (*Plugin)(nil)

// New returns the plugin. A nil renderer uses Kubectl.
func New(r Renderer) *Plugin {
	if r == nil {
		r = Kubectl{}
	}
	return &Plugin{renderer: r}
}

// Name implements plugins.Plugin.
func (*Plugin) Name() string { return Name }

// Detects reports whether a changed path is a kustomization file or a
// directory holding one in the pull request checkout.
func (*Plugin) Detects(_ context.Context, pc *plugins.Context) bool {
	for _, changed := range pc.ChangedFiles {
		p := filepath.Join(pc.PRDir, changed)
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !fi.IsDir() {
			if slices.Contains(kustomizationFiles, fi.Name()) {
				return true
			}
			continue
		}
		if kustomizationIn(p) != "" {
			return true
		}
	}
	return false
}

// Execute renders every kustomization next to a changed path for base and
// head, in parallel, and diffs the two.
func (p *Plugin) Execute(ctx context.Context, pc *plugins.Context) (*plugins.Result, error) {
	log := clog.FromContext(ctx)
	log.Info("Executing kustomize plugin")

	dirs := RenderableDirs(pc)
	if len(dirs) == 0 {
		return &plugins.Result{
			Success:  true,
			Message:  "No renderable kustomize directories found",
			Metadata: map[string]any{"renderable_dirs": []string{}},
		}, nil
	}
	log.Infof("Found %d renderable directories", len(dirs))

	var prOut, baseOut []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		prOut, err = p.renderAll(gctx, pc.PRDir, dirs)
		return err
	})
	g.Go(func() (err error) {
		baseOut, err = p.renderAll(gctx, pc.BaseDir, dirs)
		return err
	})
	if err := g.Wait(); err != nil {
		return &plugins.Result{
			Message:  fmt.Sprintf("Failed to render kustomize: %v", err),
			Metadata: map[string]any{"error": err.Error()},
		}, nil
	}

	prFile := filepath.Join(pc.WorkspaceRoot, PRRenderedFile)
	baseFile := filepath.Join(pc.WorkspaceRoot, BaseRenderedFile)
	for path, data := range map[string][]byte{prFile: prOut, baseFile: baseOut} {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			log.Warnf("Failed to write %s: %v", path, err)
		}
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(baseOut)),
		B:        difflib.SplitLines(string(prOut)),
		FromFile: baseFile,
		ToFile:   prFile,
		Context:  3,
	})
	if err != nil {
		return nil, fmt.Errorf("diffing rendered manifests: %w", err)
	}

	return &plugins.Result{
		Success:       true,
		Message:       fmt.Sprintf("Generated kustomize diff for %d directories", len(dirs)),
		Metadata:      map[string]any{"renderable_dirs": dirs},
		Comment:       diffComment(diff, dirs),
		ReviewContext: reviewContext(diff, dirs),
	}, nil
}

// renderAll renders dirs under root into one stream, each preceded by a
// separator naming it. Directories missing from root are skipped.
func (p *Plugin) renderAll(ctx context.Context, root string, dirs []string) ([]byte, error) {
	log := clog.FromContext(ctx)
	var buf bytes.Buffer
	for _, dir := range dirs {
		full := filepath.Join(root, dir)
		if _, err := os.Stat(full); err != nil {
			log.Warnf("Directory not found: %s", full)
			continue
		}
		log.Infof("Rendering kustomize directory: %s", full)
		out, err := p.renderer.Render(ctx, full)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "# --- %s ---\n", dir)
		buf.Write(out)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// RenderableDirs returns the distinct directories, relative to the pull
// request checkout, that hold a kustomization for some changed path. A
// changed file stands for its parent directory.
func RenderableDirs(pc *plugins.Context) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, changed := range pc.ChangedFiles {
		dir := filepath.Join(pc.PRDir, changed)
		fi, err := os.Stat(dir)
		if err != nil {
			// A deleted file still points at its directory.
			dir = filepath.Dir(dir)
		} else if !fi.IsDir() {
			dir = filepath.Dir(dir)
		}
		if kustomizationIn(dir) == "" {
			continue
		}
		rel, err := filepath.Rel(pc.PRDir, dir)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		rel = filepath.ToSlash(rel)
		if !seen[rel] {
			seen[rel] = true
			dirs = append(dirs, rel)
		}
	}
	return dirs
}

// kustomizationIn returns the kustomization file in dir, or "".
func kustomizationIn(dir string) string {
	for _, name := range kustomizationFiles {
		p := filepath.Join(dir, name)
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return p
		}
	}
	return ""
}

func diffComment(diff string, dirs []string) string {
	var b strings.Builder
	b.WriteString("## Kustomize Diff Preview\n\n")
	fmt.Fprintf(&b, "Rendered %d kustomize directory(ies)\n\n", len(dirs))
	writeDiff(&b, diff)
	return b.String()
}

func reviewContext(diff string, dirs []string) string {
	var b strings.Builder
	b.WriteString("## Kustomize Diff Context\n\n")
	b.WriteString("The following kustomize directories were rendered and compared:\n")
	for _, d := range dirs {
		fmt.Fprintf(&b, "  - %s\n", d)
	}
	b.WriteString("\n### Diff Output\n\n")
	writeDiff(&b, diff)
	return b.String()
}

func writeDiff(b *strings.Builder, diff string) {
	b.WriteString("```diff\n")
	if diff == "" {
		b.WriteString("No differences in rendered manifests.\n")
	} else {
		b.WriteString(diff)
		if !strings.HasSuffix(diff, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("```")
}
