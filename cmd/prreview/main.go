/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main is prreview, which turns a reviewer's structured output into
// a pull request comment, labels and, when policy allows, a merge.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"chainguard.dev/prreview/config"
	"chainguard.dev/prreview/host"
	"chainguard.dev/prreview/host/githubhost"
	"chainguard.dev/prreview/host/retry"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	code := exitCode(ctx, err)
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return code
}

// errReported marks a failure the command already explained on stderr.
var errReported = errors.New("failure reported")

func exitCode(ctx context.Context, err error) int {
	switch {
	case err == nil:
		return exitOK
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return exitFailure
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:           "prreview",
		Short:         "Publish automated pull request reviews",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := clog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			cmd.SetContext(clog.WithLogger(cmd.Context(), logger))
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newProcessCmd(),
		newValidateCmd(),
		newExtractCmd(),
		newSchemaCmd(),
		newPrepareCmd(),
	)
	return cmd
}

// newHost connects to the repository named by env, with retries on every
// call.
func newHost(ctx context.Context, env config.Env) (host.Host, error) {
	opts := githubhost.Options{
		Repository: env.Repository,
		Token:      env.Token,
		BaseURL:    env.EnterpriseURL(),
	}
	if env.AppAuth() {
		opts.App = &githubhost.AppAuth{
			AppID:          env.AppID,
			InstallationID: env.AppInstallationID,
			PrivateKeyPath: env.AppPrivateKeyPath,
		}
	}
	h, err := githubhost.New(ctx, opts)
	if err != nil {
		return nil, err
	}
	return host.WithRetry(h, host.Options{Retry: retry.Default()}), nil
}
