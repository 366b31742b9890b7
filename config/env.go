/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"context"
	"fmt"
	"strings"

	"chainguard.dev/prreview/review/automerge"
	"github.com/sethvargo/go-envconfig"
)

// PublicAPIURL is the API endpoint of github.com.
const PublicAPIURL = "https://api.github.com"

// PublicServerURL is the web and git endpoint of github.com.
const PublicServerURL = "https://github.com"

// Env is the environment a review run reads, usually set by the workflow.
type Env struct {
	Token      string `env:"GITHUB_TOKEN"`
	Repository string `env:"GITHUB_REPOSITORY"`
	EventPath  string `env:"GITHUB_EVENT_PATH"`
	EventName  string `env:"GITHUB_EVENT_NAME"`
	APIURL     string `env:"GITHUB_API_URL"`
	ServerURL  string `env:"GITHUB_SERVER_URL,default=https://github.com"`
	Workspace  string `env:"GITHUB_WORKSPACE"`

	// PRNumber overrides the pull request found in the event payload.
	PRNumber string `env:"REVIEW_PR_NUMBER"`
	// SkipMergeOverride is "1", "true" or "yes" to never merge.
	SkipMergeOverride string `env:"REVIEW_SKIP_MERGE"`
	DryRun            bool   `env:"DRY_RUN,default=false"`

	// ChangedFiles is a JSON array or whitespace separated list of paths.
	ChangedFiles string `env:"CHANGED_FILES"`

	ReviewConfigPath string `env:"REVIEW_CONFIG_PATH"`
	LabelConfigPath  string `env:"REVIEW_LABEL_CONFIG_PATH"`

	AppID             int64  `env:"GITHUB_APP_ID"`
	AppInstallationID int64  `env:"GITHUB_APP_INSTALLATION_ID"`
	AppPrivateKeyPath string `env:"GITHUB_APP_PRIVATE_KEY_PATH"`
}

// LoadEnv reads Env through lookuper. A nil lookuper reads the process
// environment.
func LoadEnv(ctx context.Context, lookuper envconfig.Lookuper) (Env, error) {
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	var env Env
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &env, Lookuper: lookuper}); err != nil {
		return Env{}, fmt.Errorf("processing environment: %w", err)
	}
	return env, nil
}

// SkipMerge reports whether this run must not merge.
func (e Env) SkipMerge() bool {
	return automerge.SkipMerge(e.SkipMergeOverride, e.EventName)
}

// EnterpriseURL returns the API URL when it points somewhere other than
// github.com, and "" otherwise.
func (e Env) EnterpriseURL() string {
	u := strings.TrimRight(strings.TrimSpace(e.APIURL), "/")
	if u == "" || u == PublicAPIURL {
		return ""
	}
	return u
}

// CloneURL returns the git remote of repository, which is "owner/name".
func (e Env) CloneURL(repository string) string {
	server := strings.TrimRight(strings.TrimSpace(e.ServerURL), "/")
	if server == "" {
		server = PublicServerURL
	}
	return server + "/" + repository + ".git"
}

// AppAuth reports whether GitHub App credentials are configured.
func (e Env) AppAuth() bool {
	return e.AppID != 0 && e.AppInstallationID != 0 && e.AppPrivateKeyPath != ""
}
