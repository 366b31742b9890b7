/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ErrNoJSON is returned when no fenced JSON object can be found.
var ErrNoJSON = errors.New("could not find JSON in execution output")

var fencedObject = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// ExtractJSON returns the body of the first ```json fence in text. Without a
// fence the trimmed text is returned, minus any bare ``` wrapping.
func ExtractJSON(text string) string {
	var body []string
	inFence, found := false, false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimRight(line, "\r")
		switch {
		case !inFence && !found && strings.TrimSpace(trimmed) == "```json":
			inFence, found = true, true
		case inFence && strings.TrimSpace(trimmed) == "```":
			inFence = false
		case inFence:
			body = append(body, trimmed)
		}
	}
	if found {
		return strings.TrimSpace(strings.Join(body, "\n"))
	}

	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// Extract decodes the JSON found by ExtractJSON into a T.
func Extract[T any](text string) (T, error) {
	var out T
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &out); err != nil {
		return out, fmt.Errorf("decoding extracted JSON: %w", err)
	}
	return out, nil
}

// fencedJSON returns the first ```json fenced object in text.
func fencedJSON(text string) (string, bool) {
	m := fencedObject.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type message struct {
	Role string `json:"role"`
	// Content is either a list of items or, for some roles, a plain string.
	Content json.RawMessage `json:"content"`
}

// logEntry covers both a bare message and a streamed event that wraps one.
type logEntry struct {
	message
	Type    string          `json:"type"`
	Message *message        `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type executionLog struct {
	Messages []message      `json:"messages"`
	Result   json.RawMessage `json:"result"`
}

// FromExecutionLog finds the review JSON in a reviewer execution log. The
// last assistant message with a fenced JSON object wins. Failing that, a
// string "result" field is searched. The returned JSON is indented.
func FromExecutionLog(data []byte) ([]byte, error) {
	var (
		messages []message
		results  []json.RawMessage
	)

	switch trimmed := bytes.TrimSpace(data); {
	case bytes.HasPrefix(trimmed, []byte("[")):
		var entries []logEntry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("parsing execution log: %w", err)
		}
		for _, e := range entries {
			switch {
			case e.Message != nil:
				messages = append(messages, *e.Message)
			case e.Role != "":
				messages = append(messages, e.message)
			}
			if e.Type == "result" && len(e.Result) > 0 {
				results = append(results, e.Result)
			}
		}
	default:
		var log executionLog
		if err := json.Unmarshal(trimmed, &log); err != nil {
			return nil, fmt.Errorf("parsing execution log: %w", err)
		}
		messages = log.Messages
		if len(log.Result) > 0 {
			results = append(results, log.Result)
		}
	}

	raw, ok := search(messages, results)
	if !ok {
		return nil, ErrNoJSON
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return nil, fmt.Errorf("invalid JSON in execution output: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func search(messages []message, results []json.RawMessage) (string, bool) {
	for _, msg := range slices.Backward(messages) {
		if msg.Role != "assistant" {
			continue
		}
		var items []contentItem
		if json.Unmarshal(msg.Content, &items) != nil {
			continue
		}
		for _, item := range items {
			if item.Type != "text" {
				continue
			}
			if raw, ok := fencedJSON(item.Text); ok {
				return raw, true
			}
		}
	}
	for _, r := range results {
		var text string
		if json.Unmarshal(r, &text) != nil {
			continue
		}
		if raw, ok := fencedJSON(text); ok {
			return raw, true
		}
	}
	return "", false
}
