// SPDX-License-Identifier: MPL-2.0

// Package loader is the bootstrap side of buildenv: it finds or creates the
// project environment, hands the command line over to the manager running
// in that environment, and interprets the outcome the manager answers
// through its exit code.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dynod/buildenv/internal/config"
	"github.com/dynod/buildenv/internal/git"
	"github.com/dynod/buildenv/internal/platform"
	"github.com/dynod/buildenv/internal/proc"
	"github.com/dynod/buildenv/internal/shell"
	"github.com/dynod/buildenv/internal/venv"
)

// Flags passed by the loader to the manager invocation.
const (
	FlagFromLoader = "from-loader"
	FlagVenvBin    = "venv-bin"
)

// EnvProject is set by the project loader scripts to their own folder, so
// that they can be run from anywhere.
const EnvProject = "BUILDENV_PROJECT"

type (
	// Options are the collaborators of a Loader.
	Options struct {
		ProjectPath string
		// ConfigOptions apply to the configuration store of the project and
		// of every parent project probed during lookup.
		ConfigOptions []config.Option

		Git *git.Client
		// Builder creates missing environments; nil uses "python -m venv"
		// with the first interpreter found on PATH.
		Builder  venv.Builder
		Runner   proc.Runner
		Renderer *shell.Renderer

		Signals shell.Signals
		// Environ is the environment of spawned processes; nil means os.Environ().
		Environ []string
		// GOOS selects the environment layout; empty means runtime.GOOS.
		GOOS string
		// Executable is the manager binary; empty means os.Executable().
		Executable string
		// Notify receives progress messages; nil discards them.
		Notify func(msg string)
	}

	// Loader finds, creates and enters the environment of one project.
	Loader struct {
		opts     Options
		store    *config.Store
		settings config.Settings
	}
)

// New reads the project configuration and returns a Loader.
func New(opts Options) (*Loader, error) {
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.Runner == nil {
		opts.Runner = proc.ExecRunner{}
	}
	if opts.Git == nil {
		opts.Git = git.New(opts.Runner)
	}
	if opts.Renderer == nil {
		opts.Renderer = shell.NewRenderer()
	}
	if opts.Notify == nil {
		opts.Notify = func(string) {}
	}

	store := config.New(opts.ProjectPath, opts.ConfigOptions...)
	settings, err := store.Settings()
	if err != nil {
		return nil, err
	}
	return &Loader{opts: opts, store: store, settings: settings}, nil
}

// Settings returns the effective project settings.
func (l *Loader) Settings() config.Settings { return l.settings }

// EnvPath returns the conventional environment root of the project.
func (l *Loader) EnvPath() string {
	return envPath(l.opts.ProjectPath, l.settings.VenvFolder)
}

// FindEnvironment looks for a ready environment, walking up the enclosing
// git work trees when lookup is enabled. Each candidate root uses its own
// venvFolder setting. The walk stops at the first failing git query, and
// goes strictly upward so it ends after at most one step per path element.
// The project's own environment is checked last.
func (l *Loader) FindEnvironment(ctx context.Context) (string, bool, error) {
	if l.settings.LookUp {
		current := l.opts.ProjectPath
		for steps := depth(current); steps >= 0; steps-- {
			top, err := l.opts.Git.Toplevel(ctx, current)
			if err != nil {
				slog.Debug("environment lookup stopped", "dir", current, "error", err)
				break
			}
			if !platform.IsDescendant(top, current) {
				slog.Debug("environment lookup stopped on unrelated work tree", "dir", current, "toplevel", top)
				break
			}

			candidate, err := l.candidateEnv(top)
			if err != nil {
				return "", false, err
			}
			if isReady(candidate) {
				return candidate, true, nil
			}

			parent := filepath.Dir(top)
			if parent == top {
				break
			}
			current = parent
		}
	}

	if own := l.EnvPath(); isReady(own) {
		return own, true, nil
	}
	return "", false, nil
}

// SetupEnvironment returns the environment of the project, creating it when
// neither existing nor a lookup yields one.
//
// Creation is not atomic: an interrupted creation leaves no ready marker, so
// the next call clears the folder and starts over.
func (l *Loader) SetupEnvironment(ctx context.Context, existing string) (venv.Descriptor, error) {
	root := ""
	if existing != "" && isDir(existing) {
		root = existing
	} else {
		found, ok, err := l.FindEnvironment(ctx)
		if err != nil {
			return venv.Descriptor{}, err
		}
		if ok {
			root = found
		}
	}
	if root != "" {
		slog.Debug("using environment", "root", root)
		return venv.NewDescriptor(root, l.opts.GOOS), nil
	}
	return l.create(ctx)
}

func (l *Loader) create(ctx context.Context) (venv.Descriptor, error) {
	root := l.EnvPath()
	d := venv.NewDescriptor(root, l.opts.GOOS)

	if isDir(root) {
		slog.Debug("clearing incomplete environment", "root", root)
		if err := os.RemoveAll(root); err != nil {
			return d, fmt.Errorf("failed to clear %s: %w", root, err)
		}
	}

	builder, err := l.builder()
	if err != nil {
		return d, err
	}

	l.opts.Notify("Creating venv...")
	opts := venv.CreateOptions{Symlinks: l.opts.GOOS != platform.Windows, Prompt: l.settings.Prompt}
	if err := builder.Create(ctx, root, opts); err != nil {
		return d, err
	}
	if err := shell.InstallActivationLoop(ctx, l.opts.Renderer, d); err != nil {
		return d, err
	}

	l.opts.Notify("Installing requirements...")
	project := l.opts.ProjectPath
	base := []string{"pip", "wheel"}
	if l.settings.ManagerPackage != "" {
		base = append(base, l.settings.ManagerPackage)
	}
	base = append(base, "--upgrade")
	if err := venv.Install(ctx, l.opts.Runner, d, project, append(base, l.settings.PipInstallArgs...)...); err != nil {
		return d, err
	}
	if l.settings.Requirements != "" && isFile(filepath.Join(project, l.settings.Requirements)) {
		args := append([]string{"-r", l.settings.Requirements}, l.settings.PipInstallArgs...)
		if err := venv.Install(ctx, l.opts.Runner, d, project, args...); err != nil {
			return d, err
		}
	}

	if err := d.MarkReady(); err != nil {
		return d, err
	}
	l.opts.Notify("Python venv is ready!")
	return d, nil
}

func (l *Loader) builder() (venv.Builder, error) {
	if l.opts.Builder != nil {
		return l.opts.Builder, nil
	}
	interpreter, err := venv.LookInterpreter(l.opts.GOOS)
	if err != nil {
		return nil, err
	}
	return &venv.PythonBuilder{Runner: l.opts.Runner, Interpreter: interpreter}, nil
}

func (l *Loader) candidateEnv(projectPath string) (string, error) {
	if platform.Canonical(projectPath) == platform.Canonical(l.opts.ProjectPath) {
		return l.EnvPath(), nil
	}
	settings, err := config.New(projectPath, l.opts.ConfigOptions...).Settings()
	if err != nil {
		var cfgErr *config.InvalidConfigError
		if errors.As(err, &cfgErr) {
			slog.Warn("ignoring parent project configuration", "path", cfgErr.Path, "error", cfgErr.Err)
			return envPath(projectPath, config.DefaultVenvFolder), nil
		}
		return "", err
	}
	return envPath(projectPath, settings.VenvFolder), nil
}

func envPath(projectPath, folder string) string {
	if filepath.IsAbs(folder) {
		return folder
	}
	return filepath.Join(projectPath, folder)
}

// depth returns the number of elements of p, bounding upward walks.
func depth(p string) int {
	p = filepath.ToSlash(filepath.Clean(p))
	return len(strings.FieldsFunc(p, func(r rune) bool { return r == '/' })) + 1
}

func isReady(root string) bool { return isFile(filepath.Join(root, venv.ReadyMarker)) }

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
