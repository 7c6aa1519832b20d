// SPDX-License-Identifier: MPL-2.0

// Package proc spawns the external processes buildenv delegates to (shells,
// interpreters, git) and turns their termination into plain exit codes.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
)

// ErrNoCommand is returned when a Command has an empty argument vector.
var ErrNoCommand = errors.New("empty command line")

type (
	// Command describes a single process to spawn.
	Command struct {
		// Args is the full argument vector; Args[0] is the program.
		Args []string
		// Dir is the working directory, empty for the current one.
		Dir string
		// Env is the complete environment, nil to inherit the caller's.
		Env    []string
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Runner spawns processes and reports their exit codes.
	//
	// Both methods return a non-nil error only when the process could not
	// be started or waited for; a non-zero exit status is not an error.
	Runner interface {
		Run(ctx context.Context, cmd Command) (int, error)
		Output(ctx context.Context, cmd Command) ([]byte, int, error)
	}

	// ExecRunner is the os/exec backed Runner.
	ExecRunner struct{}

	// SpawnError reports a process that could not be started.
	SpawnError struct {
		Program string
		Err     error
	}
)

// Error implements the error interface.
func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s: %v", e.Program, e.Err)
}

// Unwrap returns the underlying exec error.
func (e *SpawnError) Unwrap() error { return e.Err }

// String renders the argument vector for log lines.
func (c Command) String() string { return strings.Join(c.Args, " ") }

// Run spawns cmd with its standard streams attached and waits for it.
//
// While the child runs, interrupts are left to the child: the terminal
// delivers SIGINT to the whole foreground group, so buildenv ignores it and
// keeps waiting for the child's own exit status.
func (ExecRunner) Run(ctx context.Context, c Command) (int, error) {
	cmd, err := c.build(ctx)
	if err != nil {
		return 1, err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	return exitStatus(c.Args[0], cmd.Run())
}

// Output spawns cmd and returns what it wrote on stdout.
func (ExecRunner) Output(ctx context.Context, c Command) ([]byte, int, error) {
	var stdout bytes.Buffer
	c.Stdout = &stdout
	cmd, err := c.build(ctx)
	if err != nil {
		return nil, 1, err
	}
	code, err := exitStatus(c.Args[0], cmd.Run())
	return stdout.Bytes(), code, err
}

func (c Command) build(ctx context.Context) (*exec.Cmd, error) {
	if len(c.Args) == 0 || c.Args[0] == "" {
		return nil, ErrNoCommand
	}
	cmd := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if c.Stdin != nil {
		cmd.Stdin = c.Stdin
	}
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	}
	if c.Stderr != nil {
		cmd.Stderr = c.Stderr
	}
	return cmd, nil
}

// exitStatus maps the result of exec.Cmd.Run to an exit code.
func exitStatus(program string, err error) (int, error) {
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Shell convention for a child killed by a signal.
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}
		code := exitErr.ExitCode()
		if code < 0 || code > 255 {
			return 1, nil
		}
		return code, nil
	}

	return 1, &SpawnError{Program: program, Err: err}
}
