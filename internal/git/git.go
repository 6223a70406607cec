// Package git reads repository context for the project being monitored.
// All operations are read-only: the monitor never mutates the repo the
// agent is working in.
package git

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes git commands in a working directory.
type Runner struct {
	Dir string // working directory for git commands
}

// NewRunner creates a Runner for the given directory.
func NewRunner(dir string) *Runner {
	return &Runner{Dir: dir}
}

// Context is a point-in-time snapshot of repository state, shown alongside
// session stats so commits reported by the stream can be cross-checked.
type Context struct {
	Branch     string `json:"branch"`
	Head       string `json:"head"` // short SHA
	Dirty      bool   `json:"dirty"`
	LastCommit string `json:"last_commit"` // short SHA and subject
}

// IsRepo reports whether the directory is inside a git work tree.
func (r *Runner) IsRepo() bool {
	out, err := r.run("rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// CurrentBranch returns the name of the current git branch.
func (r *Runner) CurrentBranch() (string, error) {
	out, err := r.run("branch", "--show-current")
	if err != nil {
		return "", fmt.Errorf("git current branch: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ShortHead returns the abbreviated SHA of HEAD.
func (r *Runner) ShortHead() (string, error) {
	out, err := r.run("rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git head: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// HasUncommittedChanges returns true if the working tree or index has changes.
func (r *Runner) HasUncommittedChanges() (bool, error) {
	out, err := r.run("status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return strings.TrimSpace(out) != "", nil
}

// LastCommit returns the short SHA and message of the most recent commit.
func (r *Runner) LastCommit() (string, error) {
	out, err := r.run("log", "-1", "--format=%h %s")
	if err != nil {
		return "", fmt.Errorf("git last commit: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Snapshot collects branch, head, dirtiness, and last commit in one call.
func (r *Runner) Snapshot() (Context, error) {
	branch, err := r.CurrentBranch()
	if err != nil {
		return Context{}, err
	}
	head, err := r.ShortHead()
	if err != nil {
		return Context{}, err
	}
	dirty, err := r.HasUncommittedChanges()
	if err != nil {
		return Context{}, err
	}
	last, err := r.LastCommit()
	if err != nil {
		return Context{}, err
	}
	return Context{Branch: branch, Head: head, Dirty: dirty, LastCommit: last}, nil
}

// run executes a git command and returns its combined output.
func (r *Runner) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg == "" {
			errMsg = strings.TrimSpace(stdout.String())
		}
		return "", fmt.Errorf("%s: %w", errMsg, err)
	}
	return stdout.String(), nil
}
