/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pipeline runs a review result from review.json to the pull
// request: validation, rendering, labels, the comment and auto-merge.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"chainguard.dev/prreview/config"
	"chainguard.dev/prreview/host"
	"chainguard.dev/prreview/metrics"
	"chainguard.dev/prreview/publish"
	"chainguard.dev/prreview/review"
	"chainguard.dev/prreview/review/automerge"
	"chainguard.dev/prreview/review/labels"
	"chainguard.dev/prreview/review/render"
	"chainguard.dev/prreview/review/schema"
	"chainguard.dev/prreview/review/structured"
	"github.com/chainguard-dev/clog"
)

// File names inside the output directory.
const (
	ReviewFile   = "review.json"
	MarkdownFile = "review.md"
)

// SkipMergeNote is shown on reviews of runs that never merge.
const SkipMergeNote = "Approval and merge are disabled for this run."

// ErrValidationFailed is returned after a run whose review violated the
// schema. Publishing has already happened by then.
var ErrValidationFailed = errors.New("review failed schema validation")

// Options configures Process.
type Options struct {
	// WorkDir anchors relative paths and config file searches.
	WorkDir string
	// OutputDir holds review.json and receives review.md.
	OutputDir string
	// SchemaPath is the JSON schema to validate against. When empty the
	// repository default is used, then a workspace search, then the
	// built-in schema.
	SchemaPath string

	ReviewConfigPath string
	LabelConfigPath  string

	// Strict runs the structured-output gate before anything else.
	Strict bool
	// DryRun writes review.md and reports, without talking to the host.
	DryRun bool
	// PRNumber overrides the number resolved from the environment.
	PRNumber int

	Env  config.Env
	Host host.Host

	// Summary receives the dry run table. Nil discards it.
	Summary io.Writer
	// MetricsFile, when set, receives a Prometheus textfile.
	MetricsFile string
}

// Result describes what a run did.
type Result struct {
	ReviewPath       string
	MarkdownPath     string
	ValidationErrors []string
	Labels           map[string]string
	Decision         automerge.Decision
	WillAutoMerge    bool
	Automerged       bool
	CommentPosted    bool
}

// Process runs the pipeline. Schema violations do not stop it: the review is
// still published and ErrValidationFailed is returned at the end.
func Process(ctx context.Context, opts Options) (res *Result, err error) {
	start := time.Now()
	rec := metrics.New()
	defer func() {
		outcome := metrics.OutcomeSuccess
		switch {
		case errors.Is(err, ErrValidationFailed):
			outcome = metrics.OutcomeValidationError
		case err != nil:
			outcome = metrics.OutcomeError
		case opts.DryRun:
			outcome = metrics.OutcomeDryRun
		}
		rec.Outcome(outcome, time.Since(start))
		if opts.MetricsFile == "" {
			return
		}
		if werr := rec.WriteTextfile(opts.MetricsFile); werr != nil {
			clog.FromContext(ctx).Warnf("Failed to write metrics: %v", werr)
		}
	}()

	workdir := opts.WorkDir
	if workdir == "" {
		workdir = "."
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = "output"
	}
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(workdir, outputDir)
	}

	reviewPath, err := locateReview(ctx, workdir, outputDir)
	if err != nil {
		return nil, err
	}
	res = &Result{
		ReviewPath:   reviewPath,
		MarkdownPath: filepath.Join(filepath.Dir(reviewPath), MarkdownFile),
	}
	log := clog.FromContext(ctx).With("review", reviewPath)

	schemaPath := resolveSchema(ctx, workdir, opts.SchemaPath)

	if opts.Strict {
		if err := structured.Validate(ctx, reviewPath); err != nil {
			return res, fmt.Errorf("structured output check: %w", err)
		}
	}

	report, err := review.Load(ctx, reviewPath, review.LoadOptions{ValidateStructure: true})
	if err != nil {
		return res, fmt.Errorf("loading review: %w", err)
	}

	if schemaPath != "" {
		res.ValidationErrors, err = schema.Validate(ctx, report.Data, schemaPath)
	} else {
		log.Info("No schema file found, validating against the built-in schema")
		res.ValidationErrors, err = schema.ValidateBuiltin(ctx, report.Data)
	}
	if err != nil {
		return res, fmt.Errorf("validating review: %w", err)
	}

	// review.md is on disk before anything touches the pull request.
	view := review.BuildView(ctx, report, res.ValidationErrors, "", nil)
	rec.Review(view)
	markdown, err := writeMarkdown(res.MarkdownPath, view)
	if err != nil {
		return res, err
	}

	lbls := config.LoadLabels(ctx, workdir, opts.LabelConfigPath, opts.Env)
	res.Labels = labels.Derive(report, lbls)
	rec.Labels(len(res.Labels))

	if opts.DryRun {
		log.Info("Dry run mode: skipping pull request operations")
		if err := writeSummary(opts.Summary, report, res); err != nil {
			log.Warnf("Failed to write dry run summary: %v", err)
		}
		return res, validationResult(res)
	}

	if opts.Host == nil {
		return res, errors.New("a repository host is required unless running dry")
	}
	number := opts.PRNumber
	if number <= 0 {
		if number, err = config.ResolvePRNumber(opts.Env); err != nil {
			return res, fmt.Errorf("resolving pull request: %w", err)
		}
	}
	log = log.With("pr", number)

	pr, err := opts.Host.GetPullRequest(ctx, number)
	if err != nil {
		return res, fmt.Errorf("loading pull request #%d: %w", number, err)
	}

	reviewCfg := config.LoadReview(ctx, workdir, opts.ReviewConfigPath, opts.Env)
	res.Decision = automerge.Decide(ctx, pr, reviewCfg.AutoMerge)
	log.With("allowed", res.Decision.Allowed).With("reason", res.Decision.Reason).Info("Auto-merge evaluation")

	skipMerge := opts.Env.SkipMerge()
	res.WillAutoMerge = automerge.Gate{
		SkipMerge:        skipMerge,
		ValidationErrors: len(res.ValidationErrors),
		Approved:         report.Approved(),
		Allowed:          res.Decision.Allowed,
	}.WillAutoMerge()
	rec.AutoMerge(res.Decision.Allowed, res.WillAutoMerge, false)

	note := ""
	if skipMerge {
		note = SkipMergeNote
	}
	view = review.BuildView(ctx, report, res.ValidationErrors, note, &res.WillAutoMerge)
	if markdown, err = writeMarkdown(res.MarkdownPath, view); err != nil {
		return res, err
	}

	pub := publish.New(opts.Host, lbls)
	if err := pub.ApplyLabels(ctx, number, res.Labels); err != nil {
		return res, fmt.Errorf("applying labels: %w", err)
	}
	if res.CommentPosted, err = pub.PublishComment(ctx, number, markdown); err != nil {
		return res, fmt.Errorf("publishing comment: %w", err)
	}

	switch {
	case skipMerge:
		log.Info("Skipping approval and merge for this run")
	case res.WillAutoMerge:
		log.Info("Review is approved and validation passed, approving and merging")
		if res.Automerged, err = pub.ApproveAndMerge(ctx, pr, markdown); err != nil {
			return res, fmt.Errorf("approving and merging: %w", err)
		}
		rec.AutoMerge(res.Decision.Allowed, true, res.Automerged)
	default:
		if n := len(res.ValidationErrors); n > 0 {
			log.Warnf("Skipping approval and merge due to %d validation errors", n)
		}
		if !report.Approved() {
			log.Info("Review not approved, skipping approval and merge")
		} else if !res.Decision.Allowed {
			log.Info("Auto-merge not allowed, skipping approval and merge")
		}
	}

	log.Info("Process completed")
	return res, validationResult(res)
}

func validationResult(res *Result) error {
	if n := len(res.ValidationErrors); n > 0 {
		return fmt.Errorf("%w: %d error(s)", ErrValidationFailed, n)
	}
	return nil
}

// locateReview prefers review.json in the output directory and otherwise
// searches the workspace around workdir.
func locateReview(ctx context.Context, workdir, outputDir string) (string, error) {
	p := filepath.Join(outputDir, ReviewFile)
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	clog.FromContext(ctx).With("path", p).Info("Review file not found, searching workspace")
	found, err := config.FindInWorkspace(ctx, workdir, ReviewFile, "..")
	if err != nil {
		return "", fmt.Errorf("%w: review file not found: %s", review.ErrNotFound, p)
	}
	return found, nil
}

// resolveSchema returns the schema to use, or "" for the built-in one.
func resolveSchema(ctx context.Context, workdir, explicit string) string {
	if p := config.ResolveSchema(workdir, explicit); p != "" {
		return p
	}
	found, err := config.FindInWorkspace(ctx, workdir, filepath.Base(config.DefaultSchemaFile), "..")
	if err != nil {
		return ""
	}
	return found
}

func writeMarkdown(path string, view review.View) (string, error) {
	markdown, err := render.Markdown(view)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("writing markdown file: %w", err)
	}
	return markdown, nil
}
