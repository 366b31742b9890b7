/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package host describes the repository host the review is published to.
package host

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Review events accepted by CreateReview.
const (
	ReviewApprove        = "APPROVE"
	ReviewComment        = "COMMENT"
	ReviewRequestChanges = "REQUEST_CHANGES"
)

// MergeMethodMerge creates a merge commit.
const MergeMethodMerge = "merge"

// AuthorTypeBot is the author type of comments made by automation.
const AuthorTypeBot = "Bot"

// Ref is one side of a pull request.
type Ref struct {
	Ref string
	SHA string
	// Repo is the owner/name of the repository holding Ref.
	Repo string
}

// PullRequest is the metadata the review pipeline needs.
type PullRequest struct {
	Number      int
	Title       string
	Head        *Ref
	Base        *Ref
	AuthorLogin string
	Merged      bool
}

// Branch returns the head branch name.
func (p *PullRequest) Branch() (string, error) {
	if p == nil || p.Head == nil {
		return "", errors.New("pull request has no head")
	}
	return p.Head.Ref, nil
}

// Author returns the login of the pull request author.
func (p *PullRequest) Author() (string, error) {
	if p == nil || p.AuthorLogin == "" {
		return "", errors.New("pull request has no author")
	}
	return p.AuthorLogin, nil
}

// SameRepository reports whether head and base live in the same repository.
func (p *PullRequest) SameRepository() bool {
	return p != nil && p.Head != nil && p.Base != nil && p.Head.Repo != "" && p.Head.Repo == p.Base.Repo
}

// Comment is an issue comment on a pull request.
type Comment struct {
	ID          int64
	Body        string
	AuthorLogin string
	// AuthorType is "User" or "Bot".
	AuthorType string
}

// Label is a repository label.
type Label struct {
	Name        string
	Color       string
	Description string
}

// MergeResult describes a completed merge.
type MergeResult struct {
	SHA     string
	Merged  bool
	Message string
}

// Host is a repository host scoped to a single repository.
type Host interface {
	GetPullRequest(ctx context.Context, number int) (*PullRequest, error)
	ListIssueComments(ctx context.Context, number int) ([]Comment, error)
	CreateIssueComment(ctx context.Context, number int, body string) (*Comment, error)
	ListLabels(ctx context.Context) ([]Label, error)
	// CreateLabel returns an error wrapping ErrAlreadyExists when the label
	// is already defined.
	CreateLabel(ctx context.Context, label Label) error
	AddLabels(ctx context.Context, number int, names []string) error
	CreateReview(ctx context.Context, number int, body, event string) error
	Merge(ctx context.Context, number int, method string) (*MergeResult, error)
	IsMerged(ctx context.Context, number int) (bool, error)
	// DeleteBranch deletes refs/heads/<branch>.
	DeleteBranch(ctx context.Context, branch string) error
}

// ErrAlreadyExists reports a conflict with an existing resource.
var ErrAlreadyExists = errors.New("already exists")

// Error is a failed host call.
type Error struct {
	Op         string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transient failure worth retrying.
func IsRetryable(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, ErrAlreadyExists),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	var herr *Error
	if errors.As(err, &herr) {
		return herr.Retryable
	}
	var nerr net.Error
	return errors.As(err, &nerr)
}

// RetryableStatus reports whether an HTTP status is worth retrying.
func RetryableStatus(code int) bool {
	return code == 408 || code == 429 || code >= 500
}
