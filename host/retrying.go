/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package host

import (
	"context"
	"errors"
	"time"

	"chainguard.dev/prreview/host/retry"
)

// DefaultCallTimeout bounds a single host call.
const DefaultCallTimeout = 30 * time.Second

// Options configures WithRetry.
type Options struct {
	Retry retry.Config
	// CallTimeout bounds each attempt. Zero means DefaultCallTimeout.
	CallTimeout time.Duration
}

// WithRetry wraps h so every call is bounded by a per-attempt timeout and
// retried with exponential backoff on transient failures.
func WithRetry(h Host, opts Options) Host {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	return &retrying{inner: h, opts: opts}
}

type retrying struct {
	inner Host
	opts  Options
}

var _ Host = (*retrying)(nil)

func call[T any](ctx context.Context, r *retrying, op string, fn func(context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, r.opts.Retry, op, func(err error) bool {
		// An attempt that ran out of its own time budget is worth another try,
		// as long as the caller is still waiting.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return true
		}
		return IsRetryable(err)
	}, func(ctx context.Context) (T, error) {
		ctx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
		defer cancel()
		return fn(ctx)
	})
}

func call0(ctx context.Context, r *retrying, op string, fn func(context.Context) error) error {
	_, err := call(ctx, r, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func (r *retrying) GetPullRequest(ctx context.Context, number int) (*PullRequest, error) {
	return call(ctx, r, "get pull request", func(ctx context.Context) (*PullRequest, error) {
		return r.inner.GetPullRequest(ctx, number)
	})
}

func (r *retrying) ListIssueComments(ctx context.Context, number int) ([]Comment, error) {
	return call(ctx, r, "list issue comments", func(ctx context.Context) ([]Comment, error) {
		return r.inner.ListIssueComments(ctx, number)
	})
}

func (r *retrying) CreateIssueComment(ctx context.Context, number int, body string) (*Comment, error) {
	return call(ctx, r, "create issue comment", func(ctx context.Context) (*Comment, error) {
		return r.inner.CreateIssueComment(ctx, number, body)
	})
}

func (r *retrying) ListLabels(ctx context.Context) ([]Label, error) {
	return call(ctx, r, "list labels", r.inner.ListLabels)
}

func (r *retrying) CreateLabel(ctx context.Context, label Label) error {
	err := call0(ctx, r, "create label "+label.Name, func(ctx context.Context) error {
		return r.inner.CreateLabel(ctx, label)
	})
	if errors.Is(err, ErrAlreadyExists) {
		return nil
	}
	return err
}

func (r *retrying) AddLabels(ctx context.Context, number int, names []string) error {
	return call0(ctx, r, "add labels", func(ctx context.Context) error {
		return r.inner.AddLabels(ctx, number, names)
	})
}

func (r *retrying) CreateReview(ctx context.Context, number int, body, event string) error {
	return call0(ctx, r, "create review", func(ctx context.Context) error {
		return r.inner.CreateReview(ctx, number, body, event)
	})
}

func (r *retrying) Merge(ctx context.Context, number int, method string) (*MergeResult, error) {
	return call(ctx, r, "merge pull request", func(ctx context.Context) (*MergeResult, error) {
		return r.inner.Merge(ctx, number, method)
	})
}

func (r *retrying) IsMerged(ctx context.Context, number int) (bool, error) {
	return call(ctx, r, "check merged", func(ctx context.Context) (bool, error) {
		return r.inner.IsMerged(ctx, number)
	})
}

func (r *retrying) DeleteBranch(ctx context.Context, branch string) error {
	return call0(ctx, r, "delete branch", func(ctx context.Context) error {
		return r.inner.DeleteBranch(ctx, branch)
	})
}
