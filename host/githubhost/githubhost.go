/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package githubhost implements host.Host on the GitHub REST API.
package githubhost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chainguard.dev/prreview/host"
	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"
)

const perPage = 100

// AppAuth authenticates as a GitHub App installation.
type AppAuth struct {
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
}

// Options configures New.
type Options struct {
	// Repository is "owner/name".
	Repository string
	// Token is used when App is nil.
	Token string
	App   *AppAuth
	// BaseURL points at a GitHub Enterprise server. Empty means github.com.
	BaseURL string
	// Transport overrides the base HTTP transport.
	Transport http.RoundTripper
}

// Host talks to one GitHub repository.
type Host struct {
	client *github.Client
	owner  string
	repo   string
}

var _ host.Host = (*Host)(nil)

// New builds a Host from opts.
func New(ctx context.Context, opts Options) (*Host, error) {
	owner, repo, ok := strings.Cut(opts.Repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("repository %q is not of the form owner/name", opts.Repository)
	}

	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	var httpClient *http.Client
	switch {
	case opts.App != nil:
		tr, err := ghinstallation.NewKeyFromFile(base, opts.App.AppID, opts.App.InstallationID, opts.App.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("creating app installation transport: %w", err)
		}
		if opts.BaseURL != "" {
			tr.BaseURL = strings.TrimSuffix(apiURL(opts.BaseURL), "/")
		}
		httpClient = &http.Client{Transport: tr}
	case opts.Token != "":
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: base})
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}))
	default:
		return nil, errors.New("either a token or app credentials are required")
	}

	client := github.NewClient(httpClient)
	if opts.BaseURL != "" {
		var err error
		if client, err = client.WithEnterpriseURLs(opts.BaseURL, opts.BaseURL); err != nil {
			return nil, fmt.Errorf("configuring base URL %q: %w", opts.BaseURL, err)
		}
	}
	clog.FromContext(ctx).With("repository", opts.Repository).With("base_url", client.BaseURL.String()).Debug("Created GitHub host")
	return &Host{client: client, owner: owner, repo: repo}, nil
}

// apiURL mirrors the path go-github appends to enterprise base URLs.
func apiURL(base string) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if strings.HasSuffix(base, "/api/v3/") {
		return base
	}
	return base + "api/v3/"
}

func (h *Host) GetPullRequest(ctx context.Context, number int) (*host.PullRequest, error) {
	pr, resp, err := h.client.PullRequests.Get(ctx, h.owner, h.repo, number)
	if err != nil {
		return nil, classify("get pull request", resp, err)
	}
	return &host.PullRequest{
		Number:      pr.GetNumber(),
		Title:       pr.GetTitle(),
		Head:        ref(pr.GetHead()),
		Base:        ref(pr.GetBase()),
		AuthorLogin: pr.GetUser().GetLogin(),
		Merged:      pr.GetMerged(),
	}, nil
}

func ref(b *github.PullRequestBranch) *host.Ref {
	if b == nil {
		return nil
	}
	return &host.Ref{Ref: b.GetRef(), SHA: b.GetSHA(), Repo: b.GetRepo().GetFullName()}
}

func (h *Host) ListIssueComments(ctx context.Context, number int) ([]host.Comment, error) {
	var out []host.Comment
	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	for {
		comments, resp, err := h.client.Issues.ListComments(ctx, h.owner, h.repo, number, opts)
		if err != nil {
			return nil, classify("list issue comments", resp, err)
		}
		for _, c := range comments {
			out = append(out, comment(c))
		}
		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func comment(c *github.IssueComment) host.Comment {
	return host.Comment{
		ID:          c.GetID(),
		Body:        c.GetBody(),
		AuthorLogin: c.GetUser().GetLogin(),
		AuthorType:  c.GetUser().GetType(),
	}
}

func (h *Host) CreateIssueComment(ctx context.Context, number int, body string) (*host.Comment, error) {
	c, resp, err := h.client.Issues.CreateComment(ctx, h.owner, h.repo, number, &github.IssueComment{Body: github.Ptr(body)})
	if err != nil {
		return nil, classify("create issue comment", resp, err)
	}
	out := comment(c)
	return &out, nil
}

func (h *Host) ListLabels(ctx context.Context) ([]host.Label, error) {
	var out []host.Label
	opts := &github.ListOptions{PerPage: perPage}
	for {
		labels, resp, err := h.client.Issues.ListLabels(ctx, h.owner, h.repo, opts)
		if err != nil {
			return nil, classify("list labels", resp, err)
		}
		for _, l := range labels {
			out = append(out, host.Label{Name: l.GetName(), Color: l.GetColor(), Description: l.GetDescription()})
		}
		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func (h *Host) CreateLabel(ctx context.Context, label host.Label) error {
	_, resp, err := h.client.Issues.CreateLabel(ctx, h.owner, h.repo, &github.Label{
		Name:        github.Ptr(label.Name),
		Color:       github.Ptr(label.Color),
		Description: github.Ptr(label.Description),
	})
	if err == nil {
		return nil
	}
	herr := classify("create label "+label.Name, resp, err)
	if herr.StatusCode == http.StatusUnprocessableEntity {
		herr.Err = fmt.Errorf("%w: %w", host.ErrAlreadyExists, err)
	}
	return herr
}

func (h *Host) AddLabels(ctx context.Context, number int, names []string) error {
	_, resp, err := h.client.Issues.AddLabelsToIssue(ctx, h.owner, h.repo, number, names)
	if err != nil {
		return classify("add labels", resp, err)
	}
	return nil
}

func (h *Host) CreateReview(ctx context.Context, number int, body, event string) error {
	_, resp, err := h.client.PullRequests.CreateReview(ctx, h.owner, h.repo, number, &github.PullRequestReviewRequest{
		Body:  github.Ptr(body),
		Event: github.Ptr(event),
	})
	if err != nil {
		return classify("create review", resp, err)
	}
	return nil
}

func (h *Host) Merge(ctx context.Context, number int, method string) (*host.MergeResult, error) {
	res, resp, err := h.client.PullRequests.Merge(ctx, h.owner, h.repo, number, "", &github.PullRequestOptions{MergeMethod: method})
	if err != nil {
		return nil, classify("merge pull request", resp, err)
	}
	return &host.MergeResult{SHA: res.GetSHA(), Merged: res.GetMerged(), Message: res.GetMessage()}, nil
}

func (h *Host) IsMerged(ctx context.Context, number int) (bool, error) {
	merged, resp, err := h.client.PullRequests.IsMerged(ctx, h.owner, h.repo, number)
	if err != nil {
		return false, classify("check merged", resp, err)
	}
	return merged, nil
}

func (h *Host) DeleteBranch(ctx context.Context, branch string) error {
	resp, err := h.client.Git.DeleteRef(ctx, h.owner, h.repo, "heads/"+branch)
	if err != nil {
		return classify("delete branch "+branch, resp, err)
	}
	return nil
}

// classify wraps err in a *host.Error, deciding whether it is transient.
func classify(op string, resp *github.Response, err error) *host.Error {
	herr := &host.Error{Op: op, Err: err}
	if resp != nil && resp.Response != nil {
		herr.StatusCode = resp.StatusCode
	}

	var (
		rateLimit  *github.RateLimitError
		abuseLimit *github.AbuseRateLimitError
		errResp    *github.ErrorResponse
	)
	switch {
	case errors.As(err, &rateLimit), errors.As(err, &abuseLimit):
		herr.Retryable = true
	case errors.As(err, &errResp) && errResp.Response != nil:
		herr.StatusCode = errResp.Response.StatusCode
		herr.Retryable = host.RetryableStatus(herr.StatusCode)
	case herr.StatusCode != 0:
		herr.Retryable = host.RetryableStatus(herr.StatusCode)
	default:
		// No response at all: the request never completed.
		herr.Retryable = !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return herr
}
