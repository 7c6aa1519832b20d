// SPDX-License-Identifier: MPL-2.0

package venv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dynod/buildenv/internal/platform"
	"github.com/dynod/buildenv/internal/proc"
)

// ErrNoInterpreter is returned when no Python interpreter is found on PATH.
var ErrNoInterpreter = errors.New("no python interpreter found in PATH")

type (
	// CreateOptions tune environment creation.
	CreateOptions struct {
		// Symlinks links the interpreter instead of copying it.
		Symlinks bool
		// Prompt is the prompt prefix recorded in the environment.
		Prompt string
	}

	// Builder creates a bare environment at a root path.
	Builder interface {
		Create(ctx context.Context, root string, opts CreateOptions) error
	}

	// PythonBuilder creates environments with "python -m venv".
	PythonBuilder struct {
		Runner      proc.Runner
		Interpreter string
	}

	// CommandError reports a tool invocation that exited non-zero.
	CommandError struct {
		Args     []string
		ExitCode int
	}

	// Relocation records an activate script moved into the activation folder.
	Relocation struct {
		// Original is the stock script path, now free for a loop script.
		Original string
		// Fragment is where the stock script now lives.
		Fragment string
	}
)

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed with exit code %d", strings.Join(e.Args, " "), e.ExitCode)
}

// LookInterpreter returns the first system interpreter found on PATH.
func LookInterpreter(goos string) (string, error) {
	for _, name := range platform.SystemInterpreters(goos) {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", ErrNoInterpreter
}

// Create implements Builder.
func (b *PythonBuilder) Create(ctx context.Context, root string, opts CreateOptions) error {
	args := []string{b.Interpreter, "-m", "venv"}
	if opts.Symlinks {
		args = append(args, "--symlinks")
	} else {
		args = append(args, "--copies")
	}
	if opts.Prompt != "" {
		args = append(args, "--prompt", opts.Prompt)
	}
	args = append(args, root)
	return run(ctx, b.Runner, proc.Command{Args: args})
}

// Install runs the environment's pip with args, from the dir folder.
func Install(ctx context.Context, runner proc.Runner, d Descriptor, dir string, args ...string) error {
	return run(ctx, runner, proc.Command{Args: append([]string{d.Interpreter, "-m", "pip", "install"}, args...), Dir: dir})
}

// RelocateActivation moves the stock activate scripts of d into its
// activation folder as the "00" fragments. Scripts already relocated are
// left alone, so calling it again is a no-op.
func RelocateActivation(d Descriptor) ([]Relocation, error) {
	moves := []Relocation{
		{Original: filepath.Join(d.Bin, "activate"), Fragment: filepath.Join(d.ActivationScripts, "00_activate.sh")},
		{Original: filepath.Join(d.Bin, "activate.bat"), Fragment: filepath.Join(d.ActivationScripts, "00_activate.bat")},
	}

	var done []Relocation
	for _, m := range moves {
		if !exists(m.Original) || exists(m.Fragment) {
			continue
		}
		if err := os.MkdirAll(d.ActivationScripts, 0o755); err != nil {
			return done, err
		}
		if err := os.Rename(m.Original, m.Fragment); err != nil {
			return done, fmt.Errorf("failed to move %s: %w", m.Original, err)
		}
		done = append(done, m)
	}
	return done, nil
}

func run(ctx context.Context, runner proc.Runner, c proc.Command) error {
	code, err := runner.Run(ctx, c)
	if err != nil {
		return err
	}
	if code != 0 {
		return &CommandError{Args: c.Args, ExitCode: code}
	}
	return nil
}
