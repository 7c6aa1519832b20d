// SPDX-License-Identifier: MPL-2.0

// Package backend identifies the tool that created an environment (pip,
// pipx, uv or uvx) and runs shells in it accordingly.
package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dynod/buildenv/internal/platform"
	"github.com/dynod/buildenv/internal/proc"
	"github.com/dynod/buildenv/internal/shell"
	"github.com/dynod/buildenv/internal/venv"
)

const (
	// Pip is a plain venv managed with pip.
	Pip Name = "pip"
	// Pipx is an application environment installed by pipx.
	Pipx Name = "pipx"
	// UV is a uv project environment.
	UV Name = "uv"
	// UVX is a uv tool environment, outside of the project.
	UVX Name = "uvx"

	// uvMarkerKey is the pyvenv.cfg key written by uv.
	uvMarkerKey = "uv"
)

// ErrInvalidBackend is the sentinel error wrapped by InvalidBackendError.
var ErrInvalidBackend = errors.New("invalid backend")

// variants is the fixed capability table.
var variants = map[Name]Variant{
	Pip:  {Name: Pip, Mutable: true, HasInstaller: true},
	Pipx: {Name: Pipx, Mutable: false, HasInstaller: true},
	UV:   {Name: UV, Mutable: true, HasInstaller: false},
	UVX:  {Name: UVX, Mutable: false, HasInstaller: false},
}

type (
	// Name identifies a backend variant.
	Name string

	// InvalidBackendError is returned for an unknown Name.
	InvalidBackendError struct {
		Value Name
	}

	// Variant is the capability descriptor of a backend.
	Variant struct {
		Name Name `toml:"name"`
		// Mutable reports whether packages may be added after creation.
		Mutable bool `toml:"mutable"`
		// HasInstaller reports whether pip is present in the environment.
		HasInstaller bool `toml:"has_installer"`
	}

	// Backend runs shells in an environment, with the behavior of its variant.
	Backend struct {
		Variant
		strategy *shell.Strategy
	}

	// Options are the inputs of New, captured at the process boundary.
	Options struct {
		ProjectPath string
		Env         venv.Descriptor
		Signals     shell.Signals
		// Prompt is exported as VIRTUAL_ENV_PROMPT in spawned shells.
		Prompt string
		// Environ is the environment inherited by spawned shells.
		Environ  []string
		Runner   proc.Runner
		Renderer *shell.Renderer
	}
)

// Error implements the error interface.
func (e *InvalidBackendError) Error() string {
	return fmt.Sprintf("invalid backend %q (valid: %s, %s, %s, %s)", e.Value, Pip, Pipx, UV, UVX)
}

// Unwrap returns ErrInvalidBackend.
func (e *InvalidBackendError) Unwrap() error { return ErrInvalidBackend }

// Validate returns an error if n is not a known backend.
func (n Name) Validate() error {
	if _, ok := variants[n]; !ok {
		return &InvalidBackendError{Value: n}
	}
	return nil
}

// String returns the string representation of the Name.
func (n Name) String() string { return string(n) }

// Lookup returns the capability descriptor of n.
func Lookup(n Name) (Variant, error) {
	if err := n.Validate(); err != nil {
		return Variant{}, err
	}
	return variants[n], nil
}

// FakeInstaller reports whether spawned shells must hide pip: the
// environment is immutable or has no pip of its own.
func (v Variant) FakeInstaller() bool { return !v.Mutable || !v.HasInstaller }

// Classify tells which backend created the environment rooted at envRoot.
//
// A "uv" key in pyvenv.cfg means uv: a project environment when it lies in
// projectPath, a tool one otherwise. A pipx metadata file means pipx.
// Anything else is pip. A missing pyvenv.cfg is an error.
func Classify(projectPath, envRoot string) (Name, error) {
	marker, err := venv.ReadMarker(envRoot)
	if err != nil {
		return "", err
	}

	switch {
	case marker.Has(uvMarkerKey):
		if platform.IsDescendant(projectPath, envRoot) {
			return UV, nil
		}
		return UVX, nil
	case fileExists(filepath.Join(envRoot, venv.PipxMetadata)):
		return Pipx, nil
	default:
		return Pip, nil
	}
}

// New classifies opts.Env, detects the shell and returns the matching Backend.
func New(opts Options) (*Backend, error) {
	name, err := Classify(opts.ProjectPath, opts.Env.Root)
	if err != nil {
		return nil, err
	}
	v, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	sh, err := shell.Detect(opts.Signals)
	if err != nil {
		return nil, err
	}

	return &Backend{
		Variant: v,
		strategy: &shell.Strategy{
			Shell:         sh,
			Env:           opts.Env,
			Backend:       string(v.Name),
			FakeInstaller: v.FakeInstaller(),
			Prompt:        opts.Prompt,
			Environ:       opts.Environ,
			Runner:        opts.Runner,
			Renderer:      opts.Renderer,
		},
	}, nil
}

// Syntax returns the script convention of the detected shell.
func (b *Backend) Syntax() shell.Syntax { return b.strategy.Shell.Syntax() }

// Shell spawns an interactive shell in the environment.
func (b *Backend) Shell(ctx context.Context) (int, error) {
	return b.strategy.Run(ctx, "")
}

// Run runs command once in the environment.
func (b *Backend) Run(ctx context.Context, command string) (int, error) {
	return b.strategy.Run(ctx, command)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
