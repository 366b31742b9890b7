/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package schema validates review data against a Draft-7 JSON Schema and
// generates the canonical schema for review files.
package schema
