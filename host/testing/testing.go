/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package testing provides an in-memory host.Host for tests.
package testing

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"chainguard.dev/prreview/host"
)

// Operation names recorded by Fake.
const (
	OpGetPullRequest     = "GetPullRequest"
	OpListIssueComments  = "ListIssueComments"
	OpCreateIssueComment = "CreateIssueComment"
	OpListLabels         = "ListLabels"
	OpCreateLabel        = "CreateLabel"
	OpAddLabels          = "AddLabels"
	OpCreateReview       = "CreateReview"
	OpMerge              = "Merge"
	OpIsMerged           = "IsMerged"
	OpDeleteBranch       = "DeleteBranch"
)

// Review is a review recorded by Fake.
type Review struct {
	Number int
	Body   string
	Event  string
}

// Fake is a single-repository host kept in memory. The zero value is not
// usable; call New.
type Fake struct {
	mu sync.Mutex

	PullRequests    map[int]*host.PullRequest
	Comments        map[int][]host.Comment
	Labels          []host.Label
	AppliedLabels   map[int][]string
	Reviews         []Review
	DeletedBranches []string
	// CommentAuthorType is stamped on comments the fake creates.
	CommentAuthorType string

	calls  []string
	errors map[string][]error
	nextID int64
}

var _ host.Host = (*Fake)(nil)

// New returns a Fake holding the given pull requests.
func New(prs ...*host.PullRequest) *Fake {
	f := &Fake{
		PullRequests:      make(map[int]*host.PullRequest, len(prs)),
		Comments:          make(map[int][]host.Comment),
		AppliedLabels:     make(map[int][]string),
		CommentAuthorType: host.AuthorTypeBot,
		errors:            make(map[string][]error),
	}
	for _, pr := range prs {
		f.PullRequests[pr.Number] = pr
	}
	return f
}

// FailNext queues errs to be returned by the next calls to op, one per call.
func (f *Fake) FailNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[op] = append(f.errors[op], errs...)
}

// Calls returns the operations invoked so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// Count returns how many times op was invoked.
func (f *Fake) Count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

// enter records op and pops a queued error for it. It must be called with
// f.mu held.
func (f *Fake) enter(op string) error {
	f.calls = append(f.calls, op)
	queued := f.errors[op]
	if len(queued) == 0 {
		return nil
	}
	f.errors[op] = queued[1:]
	return queued[0]
}

func (f *Fake) pr(number int) (*host.PullRequest, error) {
	pr, ok := f.PullRequests[number]
	if !ok {
		return nil, &host.Error{Op: "get pull request", StatusCode: 404, Err: fmt.Errorf("pull request #%d not found", number)}
	}
	return pr, nil
}

func (f *Fake) GetPullRequest(_ context.Context, number int) (*host.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpGetPullRequest); err != nil {
		return nil, err
	}
	pr, err := f.pr(number)
	if err != nil {
		return nil, err
	}
	cp := *pr
	return &cp, nil
}

func (f *Fake) ListIssueComments(_ context.Context, number int) ([]host.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpListIssueComments); err != nil {
		return nil, err
	}
	return slices.Clone(f.Comments[number]), nil
}

func (f *Fake) CreateIssueComment(_ context.Context, number int, body string) (*host.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpCreateIssueComment); err != nil {
		return nil, err
	}
	f.nextID++
	c := host.Comment{ID: f.nextID, Body: body, AuthorLogin: "review-bot[bot]", AuthorType: f.CommentAuthorType}
	f.Comments[number] = append(f.Comments[number], c)
	return &c, nil
}

func (f *Fake) ListLabels(context.Context) ([]host.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpListLabels); err != nil {
		return nil, err
	}
	return slices.Clone(f.Labels), nil
}

func (f *Fake) CreateLabel(_ context.Context, label host.Label) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpCreateLabel); err != nil {
		return err
	}
	for _, l := range f.Labels {
		if l.Name == label.Name {
			return &host.Error{Op: "create label", StatusCode: 422, Err: host.ErrAlreadyExists}
		}
	}
	f.Labels = append(f.Labels, label)
	return nil
}

func (f *Fake) AddLabels(_ context.Context, number int, names []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpAddLabels); err != nil {
		return err
	}
	for _, n := range names {
		if !slices.Contains(f.AppliedLabels[number], n) {
			f.AppliedLabels[number] = append(f.AppliedLabels[number], n)
		}
	}
	return nil
}

func (f *Fake) CreateReview(_ context.Context, number int, body, event string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpCreateReview); err != nil {
		return err
	}
	f.Reviews = append(f.Reviews, Review{Number: number, Body: body, Event: event})
	return nil
}

func (f *Fake) Merge(_ context.Context, number int, method string) (*host.MergeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpMerge); err != nil {
		return nil, err
	}
	pr, err := f.pr(number)
	if err != nil {
		return nil, err
	}
	pr.Merged = true
	return &host.MergeResult{SHA: "merged-" + method, Merged: true, Message: "Pull Request successfully merged"}, nil
}

func (f *Fake) IsMerged(_ context.Context, number int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpIsMerged); err != nil {
		return false, err
	}
	pr, err := f.pr(number)
	if err != nil {
		return false, err
	}
	return pr.Merged, nil
}

func (f *Fake) DeleteBranch(_ context.Context, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpDeleteBranch); err != nil {
		return err
	}
	f.DeletedBranches = append(f.DeletedBranches, branch)
	return nil
}
