/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"errors"

	"chainguard.dev/prreview/config"
	"chainguard.dev/prreview/pipeline"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

type processFlags struct {
	workdir     string
	outputDir   string
	schema      string
	config      string
	labelConfig string
	strict      bool
	dryRun      bool
	pr          int
	metricsFile string
}

func newProcessCmd() *cobra.Command {
	var f processFlags
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Validate review.json, render review.md and publish it to the pull request",
		Long: `Validate the review in <output-dir>/review.json, render review.md next to it,
apply labels, post the review comment and approve and merge when policy allows.

Exit codes:
  0   success
  1   failure, including schema violations after publishing
  130 interrupted`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProcess(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.workdir, "workdir", ".", "directory to resolve paths and config files from")
	flags.StringVar(&f.outputDir, "output-dir", "output", "directory holding review.json")
	flags.StringVar(&f.schema, "schema", "", "JSON schema to validate against (default "+config.DefaultSchemaFile+" or the built-in schema)")
	flags.StringVar(&f.config, "config", "", "review config file (default $REVIEW_CONFIG_PATH or "+config.ReviewConfigFiles[0]+")")
	flags.StringVar(&f.labelConfig, "label-config", "", "label config file (default $REVIEW_LABEL_CONFIG_PATH or "+config.LabelConfigFiles[0]+")")
	flags.BoolVar(&f.strict, "strict", false, "reject reviews that fail the structured output check")
	flags.BoolVar(&f.dryRun, "dry-run", false, "render locally without touching the pull request (also $DRY_RUN)")
	flags.IntVar(&f.pr, "pr", 0, "pull request number (default from $REVIEW_PR_NUMBER or the event payload)")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	return cmd
}

func runProcess(cmd *cobra.Command, f processFlags) error {
	ctx := cmd.Context()
	env, err := config.LoadEnv(ctx, nil)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		WorkDir:          f.workdir,
		OutputDir:        f.outputDir,
		SchemaPath:       f.schema,
		ReviewConfigPath: f.config,
		LabelConfigPath:  f.labelConfig,
		Strict:           f.strict,
		DryRun:           f.dryRun || env.DryRun,
		PRNumber:         f.pr,
		Env:              env,
		MetricsFile:      f.metricsFile,
	}
	if opts.DryRun {
		opts.Summary = cmd.OutOrStdout()
	} else if opts.Host, err = newHost(ctx, env); err != nil {
		return err
	}

	res, err := pipeline.Process(ctx, opts)
	if errors.Is(err, pipeline.ErrValidationFailed) {
		log := clog.FromContext(ctx)
		for _, e := range res.ValidationErrors {
			log.Errorf("Validation error: %s", e)
		}
	}
	return err
}
