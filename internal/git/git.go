// SPDX-License-Identifier: MPL-2.0

// Package git provides the few git CLI operations buildenv needs: locating
// the enclosing repository root and flagging scripts as executable in the
// index. Every command targets a directory through "git -C <dir>".
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dynod/buildenv/internal/proc"
)

// ErrNotRepository is returned when a directory is not inside a git work tree
// (or git itself is unavailable).
var ErrNotRepository = errors.New("not inside a git repository")

// ErrNotTracked is returned by ChmodExecutable for a file missing from the index.
var ErrNotTracked = errors.New("file not tracked by git")

type (
	// Client runs git commands through a proc.Runner.
	Client struct {
		runner proc.Runner
		binary string
	}

	// CommandError reports a git command that exited non-zero.
	CommandError struct {
		Args     []string
		Dir      string
		ExitCode int
		Stderr   string
	}
)

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("git %s in %s: exit status %d (stderr: %s)",
		strings.Join(e.Args, " "), e.Dir, e.ExitCode, e.Stderr)
}

// New returns a Client spawning the git found on PATH.
func New(runner proc.Runner) *Client {
	return &Client{runner: runner, binary: "git"}
}

// Run executes a git command targeting dir and returns its trimmed stdout.
func (c *Client) Run(ctx context.Context, dir string, args ...string) (string, error) {
	var stderr bytes.Buffer
	out, code, err := c.runner.Output(ctx, proc.Command{
		Args:   append([]string{c.binary, "-C", dir}, args...),
		Stderr: &stderr,
	})
	if err != nil {
		return "", fmt.Errorf("git %s in %s: %w", strings.Join(args, " "), dir, err)
	}
	if code != 0 {
		return "", &CommandError{Args: args, Dir: dir, ExitCode: code, Stderr: strings.TrimSpace(stderr.String())}
	}
	return strings.TrimSpace(string(out)), nil
}

// Toplevel returns the root of the work tree enclosing dir.
func (c *Client) Toplevel(ctx context.Context, dir string) (string, error) {
	out, err := c.Run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotRepository, err)
	}
	if out == "" {
		return "", fmt.Errorf("%w: empty toplevel for %s", ErrNotRepository, dir)
	}
	return filepath.FromSlash(out), nil
}

// ChmodExecutable sets the executable bit of rel (relative to repoDir) in the
// git index, so that the mode survives a checkout on another machine. A file
// not added yet gives ErrNotTracked.
func (c *Client) ChmodExecutable(ctx context.Context, repoDir, rel string) error {
	rel = filepath.ToSlash(rel)
	tracked, err := c.Run(ctx, repoDir, "ls-files", "--", rel)
	if err != nil {
		return err
	}
	if tracked == "" {
		return fmt.Errorf("%w: %s", ErrNotTracked, rel)
	}
	_, err = c.Run(ctx, repoDir, "update-index", "--chmod=+x", rel)
	return err
}
