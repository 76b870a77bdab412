// Package gittracker implements read-only inspection of a repository
// checkout's current commit, dirty-worktree state, branch, remote, and
// commit count. It reads an existing worktree via PlainOpen rather than
// cloning one.
package gittracker

import (
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/dupeforge/dupeforge/internal/errs"
)

// Tracker wraps a single repository checkout.
type Tracker struct {
	path string
	repo *gogit.Repository
}

// Open resolves path as a git worktree. A missing .git directory yields a
// *errs.Error with Kind KindNotAGitRepo, a non-retryable signal callers treat
// as a degrade-without-cache condition rather than a fatal scan error.
func Open(path string) (*Tracker, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, errs.New(errs.KindNotAGitRepo, "gittracker.Open", err)
	}
	return &Tracker{path: path, repo: repo}, nil
}

// HeadCommit returns the current HEAD commit hash.
func (t *Tracker) HeadCommit() (string, error) {
	head, err := t.repo.Head()
	if err != nil {
		return "", errs.New(errs.KindNotAGitRepo, "gittracker.HeadCommit", err)
	}
	return head.Hash().String(), nil
}

// HasChangedSince reports whether HEAD differs from oldHash.
func (t *Tracker) HasChangedSince(oldHash string) (bool, error) {
	head, err := t.HeadCommit()
	if err != nil {
		return false, err
	}
	return head != oldHash, nil
}

// HasUncommittedChanges reports whether the worktree has any modified,
// added, or deleted files relative to HEAD.
func (t *Tracker) HasUncommittedChanges() (bool, error) {
	wt, err := t.repo.Worktree()
	if err != nil {
		return false, errs.New(errs.KindNotAGitRepo, "gittracker.HasUncommittedChanges", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, errs.New(errs.KindNotAGitRepo, "gittracker.HasUncommittedChanges", err)
	}
	return !status.IsClean(), nil
}

// BranchName returns the short name of the currently checked-out branch.
func (t *Tracker) BranchName() (string, error) {
	head, err := t.repo.Head()
	if err != nil {
		return "", errs.New(errs.KindNotAGitRepo, "gittracker.BranchName", err)
	}
	return head.Name().Short(), nil
}

// RemoteURL returns the "origin" remote's first configured URL, if any.
func (t *Tracker) RemoteURL() (string, error) {
	remote, err := t.repo.Remote("origin")
	if err != nil {
		return "", errs.New(errs.KindNotAGitRepo, "gittracker.RemoteURL", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", nil
	}
	return urls[0], nil
}

// CommitCount returns the number of commits reachable from HEAD.
func (t *Tracker) CommitCount() (int, error) {
	head, err := t.repo.Head()
	if err != nil {
		return 0, errs.New(errs.KindNotAGitRepo, "gittracker.CommitCount", err)
	}
	iter, err := t.repo.Log(&gogit.LogOptions{From: head.Hash()})
	if err != nil {
		return 0, errs.New(errs.KindNotAGitRepo, "gittracker.CommitCount", fmt.Errorf("walking log: %w", err))
	}
	defer iter.Close()
	count := 0
	err = iter.ForEach(func(c *object.Commit) error {
		count++
		return nil
	})
	if err != nil {
		return 0, errs.New(errs.KindNotAGitRepo, "gittracker.CommitCount", err)
	}
	return count, nil
}
