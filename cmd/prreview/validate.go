/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/prreview/review/structured"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <review.json> [schema.json]",
		Short: "Check that a review has the required structure",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaPath := ""
			if len(args) == 2 {
				schemaPath = args[1]
			}

			err := structured.ValidateWithSchema(cmd.Context(), args[0], schemaPath)
			var verr *structured.ValidationError
			switch {
			case errors.As(err, &verr):
				fmt.Fprintf(cmd.ErrOrStderr(), "✗ Validation failed: %s\n", verr.Message)
				if len(verr.MissingFields) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "  Missing fields: %s\n", strings.Join(verr.MissingFields, ", "))
				}
				return errReported
			case err != nil:
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Validation passed: %s\n", args[0])
			return nil
		},
	}
}
