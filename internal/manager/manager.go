// SPDX-License-Identifier: MPL-2.0

// Package manager implements the buildenv commands run inside an
// environment: init customizes the project and the environment, shell and
// run answer the bootstrap loader through the return-code channel.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dynod/buildenv/internal/config"
	"github.com/dynod/buildenv/internal/protocol"
	"github.com/dynod/buildenv/internal/shell"
	"github.com/dynod/buildenv/internal/venv"
)

const (
	// ScratchDir is the per-project folder holding generated scripts.
	ScratchDir = ".buildenv"
	// LoaderScript is the base name of the project loader scripts.
	LoaderScript = "buildenv"
	// CompletionCommand is the command whose completion gets activated.
	CompletionCommand = "buildenv"
)

var (
	// ErrNestedEnvironment is returned when shell or run is invoked from a
	// shell already running in an environment.
	ErrNestedEnvironment = errors.New("already running in build environment shell")
	// ErrNotFromLoader is returned when shell or run is invoked directly.
	ErrNotFromLoader = errors.New("command must be invoked from a loader script")
	// ErrInvalidLoader is returned for an unknown loader script extension.
	ErrInvalidLoader = errors.New("invalid loader script extension")
	// ErrEmptyCommand is returned by run without a command.
	ErrEmptyCommand = errors.New("no command to run")
	// ErrParentProject is returned when init would customize an environment
	// owned by a parent project.
	ErrParentProject = errors.New("can't update a parent project buildenv")
)

type (
	// Context is the invocation state captured at the process boundary.
	Context struct {
		ProjectPath string
		Env         venv.Descriptor
		// FromLoader is the extension of the loader script ("sh", "cmd")
		// that started this invocation; empty when invoked directly.
		FromLoader string
		// ActiveEnv is the $VIRTUAL_ENV of the caller.
		ActiveEnv string
	}

	// Manager runs the in-environment commands.
	Manager struct {
		inv      Context
		settings config.Settings
		renderer *shell.Renderer
		slots    protocol.SlotAllocator
	}

	// Option configures a Manager.
	Option func(*Manager)

	// NotFromLoaderError names the command invoked without loader.
	NotFromLoaderError struct {
		Command string
	}
)

// Error implements the error interface.
func (e *NotFromLoaderError) Error() string {
	return fmt.Sprintf("can't use %s command if not invoked from loading script", e.Command)
}

// Unwrap returns ErrNotFromLoader.
func (e *NotFromLoaderError) Unwrap() error { return ErrNotFromLoader }

// WithSlots sets the command slot range and the probe bound.
func WithSlots(r protocol.SlotRange, maxAttempts int) Option {
	return func(m *Manager) {
		m.slots.Range = r
		m.slots.MaxAttempts = maxAttempts
	}
}

// WithRandom sets the random source of slot allocation.
func WithRandom(intN func(int) int) Option {
	return func(m *Manager) { m.slots.IntN = intN }
}

// New returns a Manager for inv.
func New(inv Context, settings config.Settings, renderer *shell.Renderer, opts ...Option) *Manager {
	m := &Manager{
		inv:      inv,
		settings: settings,
		renderer: renderer,
		slots:    protocol.SlotAllocator{Range: protocol.DefaultSlots},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Shell checks the invocation and asks the loader for an interactive shell.
func (m *Manager) Shell(ctx context.Context) (protocol.Outcome, error) {
	if err := m.checkCommand("shell"); err != nil {
		return protocol.Outcome{}, err
	}
	if err := m.Init(ctx, false); err != nil {
		return protocol.Outcome{}, err
	}
	return protocol.Shell(), nil
}

// Run checks the invocation, writes args as a command script in a free
// slot and asks the loader to run it. The loader deletes the script.
func (m *Manager) Run(ctx context.Context, args []string) (protocol.Outcome, error) {
	if err := m.checkCommand("run"); err != nil {
		return protocol.Outcome{}, err
	}
	if len(args) == 0 || strings.TrimSpace(strings.Join(args, "")) == "" {
		return protocol.Outcome{}, ErrEmptyCommand
	}
	if err := m.Init(ctx, false); err != nil {
		return protocol.Outcome{}, err
	}

	alloc := m.slots
	alloc.Taken = func(slot int) (bool, error) {
		_, err := os.Stat(CommandScript(m.inv.ProjectPath, slot, m.inv.FromLoader))
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return err == nil, err
	}
	slot, err := alloc.Allocate()
	if err != nil {
		return protocol.Outcome{}, err
	}

	target := CommandScript(m.inv.ProjectPath, slot, m.inv.FromLoader)
	err = m.renderer.Render(ctx, shell.Job{
		Template:   "project/command." + m.inv.FromLoader,
		Target:     target,
		Executable: true,
		Syntax:     shell.SyntaxFor(target),
		Data:       map[string]any{"command": strings.Join(args, " ")},
	})
	if err != nil {
		return protocol.Outcome{}, err
	}
	slog.Debug("command script ready", "slot", slot, "path", target)
	return protocol.Script(slot), nil
}

// CommandScript returns the path of the command script at slot.
func CommandScript(projectPath string, slot int, ext string) string {
	return filepath.Join(projectPath, ScratchDir, fmt.Sprintf("command.%d.%s", slot, ext))
}

// checkCommand enforces the shell/run preconditions. It runs before
// anything is written.
func (m *Manager) checkCommand(name string) error {
	if m.inv.ActiveEnv != "" {
		return ErrNestedEnvironment
	}
	if m.inv.FromLoader == "" {
		return &NotFromLoaderError{Command: name}
	}
	if m.inv.FromLoader != shell.PosixSyntax.Ext && m.inv.FromLoader != shell.ConsoleSyntax.Ext {
		return fmt.Errorf("%w: %q", ErrInvalidLoader, m.inv.FromLoader)
	}
	return nil
}
