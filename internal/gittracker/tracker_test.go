package gittracker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/dupeforge/dupeforge/internal/errs"
)

func initTestRepo(t *testing.T) (dir string, firstCommit string) {
	t.Helper()
	dir = t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	if _, err := repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{"https://github.com/acme/widget.git"}}); err != nil {
		t.Fatalf("CreateRemote: %v", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	filePath := filepath.Join(dir, "README.md")
	if err := os.WriteFile(filePath, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := wt.Add("README.md"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()}
	hash, err := wt.Commit("initial commit", &gogit.CommitOptions{Author: sig})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return dir, hash.String()
}

func TestOpenRejectsNonGitDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(dir); err == nil {
		t.Fatal("expected an error opening a non-git directory")
	} else if errs.KindOf(err) != errs.KindNotAGitRepo {
		t.Errorf("KindOf(err) = %v, want %v", errs.KindOf(err), errs.KindNotAGitRepo)
	}
}

func TestHeadCommitAndChangeDetection(t *testing.T) {
	dir, firstCommit := initTestRepo(t)
	tr, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	head, err := tr.HeadCommit()
	if err != nil {
		t.Fatalf("HeadCommit: %v", err)
	}
	if head != firstCommit {
		t.Errorf("HeadCommit() = %q, want %q", head, firstCommit)
	}

	changed, err := tr.HasChangedSince(firstCommit)
	if err != nil {
		t.Fatalf("HasChangedSince: %v", err)
	}
	if changed {
		t.Error("HasChangedSince should be false against the current HEAD")
	}

	changed, err = tr.HasChangedSince("0000000000000000000000000000000000000000")
	if err != nil {
		t.Fatalf("HasChangedSince: %v", err)
	}
	if !changed {
		t.Error("HasChangedSince should be true against an unrelated hash")
	}
}

func TestHasUncommittedChanges(t *testing.T) {
	dir, _ := initTestRepo(t)
	tr, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	dirty, err := tr.HasUncommittedChanges()
	if err != nil {
		t.Fatalf("HasUncommittedChanges: %v", err)
	}
	if dirty {
		t.Error("a freshly committed worktree should be clean")
	}

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("changed"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	dirty, err = tr.HasUncommittedChanges()
	if err != nil {
		t.Fatalf("HasUncommittedChanges: %v", err)
	}
	if !dirty {
		t.Error("expected the worktree to report as dirty after an uncommitted edit")
	}
}

func TestBranchNameAndRemoteURL(t *testing.T) {
	dir, _ := initTestRepo(t)
	tr, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	branch, err := tr.BranchName()
	if err != nil {
		t.Fatalf("BranchName: %v", err)
	}
	if branch == "" {
		t.Error("expected a non-empty branch name")
	}

	remote, err := tr.RemoteURL()
	if err != nil {
		t.Fatalf("RemoteURL: %v", err)
	}
	if remote != "https://github.com/acme/widget.git" {
		t.Errorf("RemoteURL() = %q", remote)
	}
}

func TestCommitCount(t *testing.T) {
	dir, _ := initTestRepo(t)
	tr, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	count, err := tr.CommitCount()
	if err != nil {
		t.Fatalf("CommitCount: %v", err)
	}
	if count != 1 {
		t.Errorf("CommitCount() = %d, want 1", count)
	}
}
