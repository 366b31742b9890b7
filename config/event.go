/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"chainguard.dev/prreview/review"
)

// ResolvePRNumber finds the pull request a run is about: REVIEW_PR_NUMBER
// first, then the event payload's number or pull_request.number, then the
// pr_number, pr or pull_request workflow inputs.
func ResolvePRNumber(env Env) (int, error) {
	if env.PRNumber != "" {
		n, err := strconv.Atoi(strings.TrimSpace(env.PRNumber))
		if err != nil {
			return 0, fmt.Errorf("invalid REVIEW_PR_NUMBER: %q", env.PRNumber)
		}
		return positive(n)
	}

	if env.EventPath == "" {
		return 0, errors.New("GITHUB_EVENT_PATH not set")
	}
	doc, err := review.ReadJSONFile(env.EventPath, review.MaxReportSize)
	if err != nil {
		return 0, fmt.Errorf("reading event payload: %w", err)
	}
	event, ok := doc.(map[string]any)
	if !ok {
		return 0, errors.New("event payload is not a JSON object")
	}
	return numberFromEvent(event)
}

func numberFromEvent(event map[string]any) (int, error) {
	for _, key := range []string{"number", "pull_request"} {
		switch v := event[key].(type) {
		case json.Number:
			if n, err := strconv.Atoi(v.String()); err == nil {
				return positive(n)
			}
		case map[string]any:
			if num, ok := v["number"].(json.Number); ok {
				if n, err := strconv.Atoi(num.String()); err == nil {
					return positive(n)
				}
			}
		}
	}

	inputs, _ := event["inputs"].(map[string]any)
	for _, key := range []string{"pr_number", "pr", "pull_request"} {
		var s string
		switch v := inputs[key].(type) {
		case string:
			s = strings.TrimSpace(v)
		case json.Number:
			s = v.String()
		}
		if s == "" {
			continue
		}
		if n, err := strconv.Atoi(s); err == nil {
			return positive(n)
		}
	}
	return 0, errors.New("could not determine PR number from event payload")
}

func positive(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("pull request number must be positive, got %d", n)
	}
	return n, nil
}
