/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package publish posts a review to a pull request: labels, a single
// automation comment, and the approve-and-merge step.
package publish

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"chainguard.dev/prreview/host"
	"chainguard.dev/prreview/review/labels"
	"github.com/chainguard-dev/clog"
)

// MaxCommentLength is the longest comment body the host accepts.
const MaxCommentLength = 65536

// TruncationNotice is appended to comments cut at MaxCommentLength.
const TruncationNotice = "\n\n... (truncated due to length)"

// CommentMarker is a hidden line leading every review comment. The
// duplicate guard only matches automation comments that carry it, so other
// bot comments on the pull request do not suppress the review.
const CommentMarker = "<!-- prreview:review -->"

// DefaultApprovalBody is used when ApproveAndMerge is given no body.
const DefaultApprovalBody = "Automated approval based on structured review."

// Publisher applies review results to pull requests on one host. The host
// is expected to be wrapped with host.WithRetry.
type Publisher struct {
	host   host.Host
	labels labels.Config
}

// New returns a Publisher that describes new labels using cfg.
func New(h host.Host, cfg labels.Config) *Publisher {
	return &Publisher{host: h, labels: cfg}
}

// ApplyLabels makes sure every label exists in the repository and adds them
// all to the pull request. Failing to list existing labels is not fatal.
func (p *Publisher) ApplyLabels(ctx context.Context, number int, set map[string]string) error {
	log := clog.FromContext(ctx).With("pr", number)
	if len(set) == 0 {
		log.Info("No labels to apply")
		return nil
	}
	names := slices.Sorted(maps.Keys(set))
	log.Infof("Applying %d labels to pull request", len(names))

	existing := make(map[string]struct{})
	if current, err := p.host.ListLabels(ctx); err != nil {
		log.Warnf("Failed to list existing labels (continuing anyway): %v", err)
	} else {
		for _, l := range current {
			existing[l.Name] = struct{}{}
		}
	}

	created := 0
	for _, name := range names {
		if _, ok := existing[name]; ok {
			continue
		}
		label := host.Label{Name: name, Color: set[name], Description: p.labels.Description(name)}
		if err := p.host.CreateLabel(ctx, label); err != nil {
			return fmt.Errorf("creating label %s: %w", name, err)
		}
		created++
	}
	if created > 0 {
		log.Infof("Created %d new labels", created)
	}

	if err := p.host.AddLabels(ctx, number, names); err != nil {
		return fmt.Errorf("adding labels to pull request: %w", err)
	}
	log.Infof("Applied %d labels to pull request", len(names))
	return nil
}

// TruncateComment cuts body to MaxCommentLength characters and appends
// TruncationNotice when it is longer.
func TruncateComment(body string) string {
	if utf8.RuneCountInString(body) <= MaxCommentLength {
		return body
	}
	cut, n := 0, 0
	for i := range body {
		if n == MaxCommentLength {
			cut = i
			break
		}
		n++
	}
	return body[:cut] + TruncationNotice
}

// PublishComment posts markdown, prefixed with CommentMarker, as an issue
// comment unless the pull request already carries a review comment written
// by automation. It reports whether a comment was created.
//
// The check and the post are not atomic: two runs that list comments before
// either posts will both post. At most one comment per run is guaranteed,
// and duplicates across runs are only approximately prevented.
func (p *Publisher) PublishComment(ctx context.Context, number int, markdown string) (bool, error) {
	log := clog.FromContext(ctx).With("pr", number)
	if strings.TrimSpace(markdown) == "" {
		log.Warn("Empty markdown content, skipping comment publication")
		return false, nil
	}

	body := CommentMarker + "\n" + markdown
	if n := utf8.RuneCountInString(body); n > MaxCommentLength {
		log.Warnf("Comment too long (%d chars), truncating to %d", n, MaxCommentLength)
		body = TruncateComment(body)
	}

	comments, err := p.host.ListIssueComments(ctx, number)
	if err != nil {
		log.Warnf("Could not check for existing comments: %v", err)
	}
	for _, c := range comments {
		if c.AuthorType == host.AuthorTypeBot && strings.Contains(c.Body, CommentMarker) {
			log.With("comment_id", c.ID).Info("Automation comment already exists, skipping")
			return false, nil
		}
	}

	c, err := p.host.CreateIssueComment(ctx, number, body)
	if err != nil {
		return false, fmt.Errorf("publishing comment on pull request: %w", err)
	}
	log.With("comment_id", c.ID).Info("Created review comment")
	return true, nil
}

// ApproveAndMerge approves the pull request with body, merges it, and then
// deletes the head branch when it lives in the base repository. It reports
// whether this call merged the pull request. Branch deletion failures are
// logged and otherwise ignored.
func (p *Publisher) ApproveAndMerge(ctx context.Context, pr *host.PullRequest, body string) (bool, error) {
	log := clog.FromContext(ctx).With("pr", pr.Number)
	if body == "" {
		body = DefaultApprovalBody
	}

	merged, err := p.host.IsMerged(ctx, pr.Number)
	if err != nil {
		return false, fmt.Errorf("checking pull request merge status: %w", err)
	}
	if merged {
		log.Info("Pull request is already merged, skipping approval and merge")
		return false, nil
	}

	if err := p.host.CreateReview(ctx, pr.Number, body, host.ReviewApprove); err != nil {
		return false, fmt.Errorf("creating approval review: %w", err)
	}
	log.Info("Approved pull request")

	res, err := p.host.Merge(ctx, pr.Number, host.MergeMethodMerge)
	if err != nil {
		return false, fmt.Errorf("merging pull request: %w", err)
	}
	if res != nil {
		log = log.With("sha", res.SHA)
	}
	log.Info("Merged pull request")

	if !pr.SameRepository() {
		log.Debug("Pull request comes from another repository, not deleting branch")
		return true, nil
	}
	branch, _ := pr.Branch()
	if err := p.host.DeleteBranch(ctx, branch); err != nil {
		log.With("branch", branch).Warnf("Failed to delete branch (non-critical): %v", err)
	} else {
		log.With("branch", branch).Info("Deleted branch")
	}
	return true, nil
}
