/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"chainguard.dev/prreview/review/extract"
	"github.com/spf13/cobra"
)

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <execution.json> <review.json>",
		Short: "Pull the review JSON out of a reviewer execution log",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := args[0], args[1]
			data, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("reading execution file: %w", err)
			}
			doc, err := extract.FromExecutionLog(data)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
			if err := os.WriteFile(out, doc, 0o644); err != nil {
				return fmt.Errorf("writing review: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extracted JSON to %s\n", out)
			return nil
		},
	}
}
