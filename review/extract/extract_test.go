/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package extract

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{{
		name:     "fenced block with prose around it",
		input:    "Here is the review:\n```json\n{\"approved\": true}\n```\nThanks.",
		expected: `{"approved": true}`,
	}, {
		name:     "first of several blocks",
		input:    "```json\n{\"first\": true}\n```\n\n```json\n{\"second\": true}\n```",
		expected: `{"first": true}`,
	}, {
		name:     "windows line endings",
		input:    "```json\r\n{\"windows\": true}\r\n```\r\n",
		expected: `{"windows": true}`,
	}, {
		name:     "indented fence",
		input:    "  ```json\n  {\"indented\": true}\n  ```",
		expected: `{"indented": true}`,
	}, {
		name:     "empty block",
		input:    "```json\n```",
		expected: "",
	}, {
		name:     "unterminated block",
		input:    "```json\n{\"partial\": true",
		expected: `{"partial": true`,
	}, {
		name:     "plain json",
		input:    "  {\"plain\": true}\n",
		expected: `{"plain": true}`,
	}, {
		name:     "inline fence",
		input:    "```json{\"inline\": true}```",
		expected: `{"inline": true}`,
	}, {
		name:     "generic fence",
		input:    "```\n{\"generic\": true}\n```",
		expected: `{"generic": true}`,
	}, {
		name:     "empty input",
		input:    "",
		expected: "",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.input); got != tt.expected {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	type verdict struct {
		Approved bool   `json:"approved"`
		Risk     string `json:"overallRisk"`
	}
	got, err := Extract[verdict]("```json\n{\"approved\": true, \"overallRisk\": \"LOW\"}\n```")
	if err != nil {
		t.Fatalf("Extract() = %v", err)
	}
	if !got.Approved || got.Risk != "LOW" {
		t.Errorf("Extract() = %+v", got)
	}

	if _, err := Extract[verdict]("no json here"); err == nil {
		t.Error("Extract() = nil error, want a decode error")
	}
}

func TestFromExecutionLog(t *testing.T) {
	tests := []struct {
		name    string
		log     string
		want    string
		wantErr error
	}{{
		name: "messages object uses the last assistant block",
		log: `{"messages": [
			{"role": "assistant", "content": [{"type": "text", "text": "` + "```json\\n{\\\"n\\\": 1}\\n```" + `"}]},
			{"role": "user", "content": "thanks"},
			{"role": "assistant", "content": [
				{"type": "tool_use", "text": "` + "```json\\n{\\\"n\\\": 9}\\n```" + `"},
				{"type": "text", "text": "Done:\n` + "```json\\n{\\\"n\\\": 2}\\n```" + `"}
			]}
		]}`,
		want: "{\n  \"n\": 2\n}\n",
	}, {
		name: "falls back to result",
		log:  `{"messages": [], "result": "Review:\n` + "```json\\n{\\\"approved\\\": false}\\n```" + `"}`,
		want: "{\n  \"approved\": false\n}\n",
	}, {
		name: "streamed events",
		log: `[
			{"type": "system"},
			{"type": "assistant", "message": {"role": "assistant", "content": [{"type": "text", "text": "` + "```json\\n{\\\"s\\\": 1}\\n```" + `"}]}},
			{"type": "user", "message": {"role": "user", "content": "ok"}},
			{"type": "result", "result": "final"}
		]`,
		want: "{\n  \"s\": 1\n}\n",
	}, {
		name: "streamed result only",
		log: `[
			{"type": "result", "result": "` + "```json\\n{\\\"r\\\": true}\\n```" + `"}
		]`,
		want: "{\n  \"r\": true\n}\n",
	}, {
		name:    "nothing to find",
		log:     `{"messages": [{"role": "assistant", "content": [{"type": "text", "text": "no json"}]}], "result": 7}`,
		wantErr: ErrNoJSON,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromExecutionLog([]byte(tt.log))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("FromExecutionLog() = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromExecutionLog() = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("FromExecutionLog() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := FromExecutionLog([]byte("not json")); err == nil || !strings.Contains(err.Error(), "parsing execution log") {
		t.Errorf("FromExecutionLog(garbage) = %v, want parse error", err)
	}
}
