/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package checkout materialises the base and head commits of a pull request
// as plain working trees that plugins and the reviewer can read.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"golang.org/x/oauth2"
)

const remoteName = "origin"

// Target describes one working tree to prepare.
type Target struct {
	// Dir receives the working tree. It is created when missing and reused
	// when it already holds a repository.
	Dir string
	// Remote is the git URL to fetch from.
	Remote string
	// Ref is the branch to fetch. When empty SHA is fetched directly.
	Ref string
	// SHA is the commit to check out. When empty the tip of Ref is used.
	SHA string
}

// Manager checks out commits with go-git.
type Manager struct {
	tokenSource oauth2.TokenSource
}

// New returns a Manager. A nil token source fetches anonymously.
func New(tokenSource oauth2.TokenSource) *Manager {
	return &Manager{tokenSource: tokenSource}
}

// Checkout fetches the target and force checks out its commit with a clean
// worktree. It returns the commit hash checked out.
func (m *Manager) Checkout(ctx context.Context, t Target) (string, error) {
	switch {
	case t.Dir == "":
		return "", errors.New("checkout directory cannot be empty")
	case t.Remote == "":
		return "", errors.New("remote cannot be empty")
	case t.Ref == "" && t.SHA == "":
		return "", errors.New("one of ref or sha is required")
	case t.SHA != "" && !plumbing.IsHash(t.SHA):
		return "", fmt.Errorf("invalid commit sha %q", t.SHA)
	}
	log := clog.FromContext(ctx).With("dir", t.Dir)

	repo, err := m.open(ctx, t.Dir)
	if err != nil {
		return "", err
	}
	if err := setRemote(repo, t.Remote); err != nil {
		return "", err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}
	if err := worktree.Clean(&git.CleanOptions{Dir: true}); err != nil {
		return "", fmt.Errorf("cleaning worktree: %w", err)
	}

	auth, err := m.authForRemote()
	if err != nil {
		return "", fmt.Errorf("getting token: %w", err)
	}

	spec, tracking := refSpec(t)
	fetchOpts := &git.FetchOptions{
		RemoteName: remoteName,
		RefSpecs:   []gitconfig.RefSpec{spec},
		Auth:       auth,
		Force:      true,
	}
	if t.Ref == "" {
		fetchOpts.Depth = 1
	}

	log.Infof("Fetching %s from %s", spec.Src(), t.Remote)
	if err := repo.FetchContext(ctx, fetchOpts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "", fmt.Errorf("fetching %s: %w", spec.Src(), err)
	}

	hash := plumbing.NewHash(t.SHA)
	if t.SHA == "" {
		ref, err := repo.Reference(tracking, true)
		if err != nil {
			return "", fmt.Errorf("getting remote ref %s: %w", t.Ref, err)
		}
		hash = ref.Hash()
	}
	if _, err := repo.CommitObject(hash); err != nil {
		return "", fmt.Errorf("commit %s not found after fetching %s: %w", hash, spec.Src(), err)
	}

	if err := worktree.Checkout(&git.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		return "", fmt.Errorf("checking out %s: %w", hash, err)
	}

	status, err := worktree.Status()
	if err != nil {
		return "", fmt.Errorf("getting worktree status: %w", err)
	}
	if !status.IsClean() {
		return "", errors.New("worktree is not clean after checkout")
	}

	log.Infof("Checked out %s", hash)
	return hash.String(), nil
}

func (m *Manager) open(ctx context.Context, dir string) (*git.Repository, error) {
	repo, err := git.PlainOpen(dir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("opening repo: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	clog.FromContext(ctx).Debugf("Initialising repository in %s", dir)
	repo, err = git.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("initialising repo: %w", err)
	}
	return repo, nil
}

// setRemote points origin at url, replacing a remote with another URL.
func setRemote(repo *git.Repository, url string) error {
	remote, err := repo.Remote(remoteName)
	switch {
	case errors.Is(err, git.ErrRemoteNotFound):
	case err != nil:
		return fmt.Errorf("getting remote: %w", err)
	case len(remote.Config().URLs) > 0 && remote.Config().URLs[0] == url:
		return nil
	default:
		if err := repo.DeleteRemote(remoteName); err != nil {
			return fmt.Errorf("deleting remote: %w", err)
		}
	}

	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: remoteName, URLs: []string{url}}); err != nil {
		return fmt.Errorf("creating remote: %w", err)
	}
	return nil
}

// refSpec returns the refspec fetching t and the local reference it updates.
func refSpec(t Target) (gitconfig.RefSpec, plumbing.ReferenceName) {
	if t.Ref == "" {
		dst := plumbing.NewRemoteReferenceName(remoteName, "sha-"+t.SHA)
		return gitconfig.RefSpec(fmt.Sprintf("%s:%s", t.SHA, dst)), dst
	}
	branch := strings.TrimPrefix(t.Ref, "refs/heads/")
	dst := plumbing.NewRemoteReferenceName(remoteName, branch)
	return gitconfig.RefSpec(fmt.Sprintf("+%s:%s", plumbing.NewBranchReferenceName(branch), dst)), dst
}

// authForRemote returns nil for anonymous fetches.
func (m *Manager) authForRemote() (transport.AuthMethod, error) {
	if m.tokenSource == nil {
		return nil, nil
	}
	token, err := m.tokenSource.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, nil
	}

	return &githttp.BasicAuth{
		Username: "x-access-token",
		Password: token.AccessToken,
	}, nil
}
