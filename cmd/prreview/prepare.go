/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"chainguard.dev/prreview/checkout"
	"chainguard.dev/prreview/config"
	"chainguard.dev/prreview/host"
	"chainguard.dev/prreview/plugins"
	"chainguard.dev/prreview/plugins/kustomize"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

// Checkout directories under the workspace and the prompt context file.
const (
	baseDirName       = "main"
	prDirName         = "pull-request"
	pluginContextFile = "plugin-context.md"
)

type checkouter interface {
	Checkout(ctx context.Context, t checkout.Target) (string, error)
}

type prepareOptions struct {
	workdir   string
	outputDir string
	number    int
	changed   []string
	dryRun    bool
	// remote maps an owner/name repository to its git URL.
	remote func(repository string) string
	// repository is used for refs that do not name their own.
	repository string
	eventName  string
}

func newPrepareCmd() *cobra.Command {
	var (
		o            prepareOptions
		changedFiles string
	)
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Check out the base and head of the pull request and run plugins",
		Long: `Check out the base branch into main/ and the pull request head into
pull-request/, run the pre-processing plugins over the changed files, post
their comments and write plugin-context.md for the review prompt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env, err := config.LoadEnv(ctx, nil)
			if err != nil {
				return err
			}
			if o.number <= 0 {
				if o.number, err = config.ResolvePRNumber(env); err != nil {
					return err
				}
			}
			if changedFiles == "" {
				changedFiles = env.ChangedFiles
			}
			o.changed = plugins.ParseChangedFiles(changedFiles)
			o.dryRun = o.dryRun || env.DryRun
			o.remote = env.CloneURL
			o.repository = env.Repository
			o.eventName = env.EventName

			h, err := newHost(ctx, env)
			if err != nil {
				return err
			}
			var ts oauth2.TokenSource
			if env.Token != "" {
				ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: env.Token})
			}
			_, err = prepare(ctx, h, checkout.New(ts), o, kustomize.New(nil))
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.workdir, "workdir", ".", "workspace to check out into")
	flags.StringVar(&o.outputDir, "output-dir", "output", "directory receiving "+pluginContextFile)
	flags.IntVar(&o.number, "pr", 0, "pull request number (default from $REVIEW_PR_NUMBER or the event payload)")
	flags.StringVar(&changedFiles, "changed-files", "", "JSON array or whitespace separated changed paths (default $CHANGED_FILES)")
	flags.BoolVar(&o.dryRun, "dry-run", false, "do not post plugin comments (also $DRY_RUN)")
	return cmd
}

func prepare(ctx context.Context, h host.Host, co checkouter, o prepareOptions, ps ...plugins.Plugin) ([]plugins.Result, error) {
	log := clog.FromContext(ctx).With("pr", o.number)

	pr, err := h.GetPullRequest(ctx, o.number)
	if err != nil {
		return nil, fmt.Errorf("loading pull request #%d: %w", o.number, err)
	}
	if pr.Base == nil || pr.Head == nil {
		return nil, errors.New("pull request is missing its base or head")
	}
	log.Infof("Processing PR #%d: %s", pr.Number, pr.Title)

	pc := &plugins.Context{
		PRNumber:      pr.Number,
		Repository:    o.repository,
		EventName:     o.eventName,
		BaseSHA:       pr.Base.SHA,
		HeadSHA:       pr.Head.SHA,
		WorkspaceRoot: o.workdir,
		PRDir:         filepath.Join(o.workdir, prDirName),
		BaseDir:       filepath.Join(o.workdir, baseDirName),
		ChangedFiles:  o.changed,
	}

	g, gctx := errgroup.WithContext(ctx)
	for dir, ref := range map[string]*host.Ref{pc.BaseDir: pr.Base, pc.PRDir: pr.Head} {
		g.Go(func() error {
			repo := ref.Repo
			if repo == "" {
				repo = o.repository
			}
			_, err := co.Checkout(gctx, checkout.Target{
				Dir:    dir,
				Remote: o.remote(repo),
				Ref:    ref.Ref,
				SHA:    ref.SHA,
			})
			if err != nil {
				return fmt.Errorf("checking out %s: %w", filepath.Base(dir), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := plugins.Run(ctx, pc, ps...)
	for _, r := range results {
		if r.Comment == "" {
			continue
		}
		if o.dryRun {
			log.Infof("Dry run: not posting %s comment", r.Plugin)
			continue
		}
		log.Infof("Posting %s comment to PR", r.Plugin)
		if _, err := h.CreateIssueComment(ctx, pr.Number, r.Comment); err != nil {
			log.Warnf("Failed to post plugin comment: %v", err)
		}
	}

	outputDir := o.outputDir
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(o.workdir, outputDir)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return results, fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(outputDir, pluginContextFile)
	if err := os.WriteFile(path, []byte(plugins.ReviewContext(results)), 0o644); err != nil {
		return results, fmt.Errorf("writing %s: %w", pluginContextFile, err)
	}
	log.With("path", path).Info("Wrote plugin context")
	return results, nil
}
