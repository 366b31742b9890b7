/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package extract pulls the structured review out of the reviewer's output.

Reviewers answer in prose with the review in a fenced block:

	Here is my review:

	```json
	{"approved": true, "overallRisk": "LOW", "summary": "ok", "findings": []}
	```

[ExtractJSON] returns the fenced text and [Extract] decodes it into a type.
[FromExecutionLog] searches a whole execution log, either an object with a
"messages" list or a list of streamed events, and returns indented JSON ready
to be written as review.json.
*/
package extract
