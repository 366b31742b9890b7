/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package config resolves the settings of a review run: the workflow
// environment, the repository's review and label configuration files, and
// the pull request number.
//
// Every lookup takes the working directory explicitly. Files are searched in
// this order: an explicit path, the environment override, the first match
// walking up from the working directory, then built-in defaults.
package config
