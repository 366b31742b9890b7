/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"chainguard.dev/prreview/review"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// summaryWidth is how much of the review summary the table shows.
const summaryWidth = 80

func newTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		MaxWidth: 100,
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// writeSummary prints the outcome of a dry run as a markdown table.
func writeSummary(w io.Writer, report *review.Report, res *Result) error {
	if w == nil {
		return nil
	}

	validation := "passed"
	if n := len(res.ValidationErrors); n > 0 {
		validation = fmt.Sprintf("%d error(s)", n)
	}
	summary := report.Summary()
	if summary == "" {
		summary = "No summary"
	}
	summary = strings.ReplaceAll(review.Truncate(summary, summaryWidth), "\n", " ")

	table := newTable([]string{"Field", "Value"}, w)
	for _, row := range [][]string{
		{"Approved", strconv.FormatBool(report.Approved())},
		{"Overall risk", report.OverallRisk()},
		{"Summary", summary},
		{"Findings", strconv.Itoa(len(report.Findings))},
		{"Schema validation", validation},
		{"Labels", strings.Join(slices.Sorted(maps.Keys(res.Labels)), ", ")},
		{"Markdown", res.MarkdownPath},
	} {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
