// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dynod/buildenv/internal/config"
	"github.com/dynod/buildenv/internal/git"
	"github.com/dynod/buildenv/internal/loader"
	"github.com/dynod/buildenv/internal/manager"
	"github.com/dynod/buildenv/internal/platform"
	"github.com/dynod/buildenv/internal/proc"
	"github.com/dynod/buildenv/internal/shell"
	"github.com/dynod/buildenv/internal/venv"
)

// errNoEnvironment is returned when no environment can be associated with
// the invocation.
var errNoEnvironment = errors.New("no python environment found")

type (
	// App wires the CLI to the process boundary: streams, environment
	// variables, working directory and process spawning. Commands read the
	// ambient state only through it.
	App struct {
		stdout  io.Writer
		stderr  io.Writer
		getenv  func(string) string
		environ func() []string
		getwd   func() (string, error)
		runner  proc.Runner
		goos    string

		verbose    bool
		fromLoader string
		venvBin    string
	}

	// Dependencies are the injection points of NewApp. Nil fields get the
	// process defaults.
	Dependencies struct {
		Stdout  io.Writer
		Stderr  io.Writer
		Getenv  func(string) string
		Environ func() []string
		Getwd   func() (string, error)
		Runner  proc.Runner
	}
)

// NewApp returns an App bound to deps.
func NewApp(deps Dependencies) *App {
	a := &App{
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
		getenv:  deps.Getenv,
		environ: deps.Environ,
		getwd:   deps.Getwd,
		runner:  deps.Runner,
		goos:    runtime.GOOS,
	}
	if a.stdout == nil {
		a.stdout = os.Stdout
	}
	if a.stderr == nil {
		a.stderr = os.Stderr
	}
	if a.getenv == nil {
		a.getenv = os.Getenv
	}
	if a.environ == nil {
		a.environ = os.Environ
	}
	if a.getwd == nil {
		a.getwd = os.Getwd
	}
	if a.runner == nil {
		a.runner = proc.ExecRunner{}
	}
	return a
}

// setupLogging installs a charm logger as the slog default handler.
func (a *App) setupLogging() {
	level := log.WarnLevel
	if a.verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(a.stderr, log.Options{
		Prefix: "buildenv",
		Level:  level,
	})
	slog.SetDefault(slog.New(logger))
}

// projectPath returns the folder of the loader script that started the
// invocation, else the working directory.
func (a *App) projectPath() (string, error) {
	if p := a.getenv(loader.EnvProject); p != "" {
		return platform.Canonical(p), nil
	}
	wd, err := a.getwd()
	if err != nil {
		return "", err
	}
	return platform.Canonical(wd), nil
}

func (a *App) lookupEnv(name string) (string, bool) {
	for _, kv := range a.environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k == name {
			return v, true
		}
	}
	return "", false
}

// childEnviron is the environment of the processes spawned by the loader.
func (a *App) childEnviron() []string {
	prefix := loader.EnvProject + "="
	var out []string
	for _, kv := range a.environ() {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return out
}

func (a *App) configOptions() []config.Option {
	return []config.Option{
		config.WithCI(a.getenv("CI") != ""),
		config.WithLookupEnv(a.lookupEnv),
	}
}

func (a *App) signals() shell.Signals {
	return shell.Signals{Shell: a.getenv("SHELL"), ComSpec: a.getenv("COMSPEC"), GOOS: a.goos}
}

// loaderScript is the project script loading the environment on this OS.
func (a *App) loaderScript() string {
	if a.goos == platform.Windows {
		return "buildenv.cmd"
	}
	return "./buildenv.sh"
}

func (a *App) renderer(project string) *shell.Renderer {
	return shell.NewRenderer(shell.WithGitIndex(git.New(a.runner), project, filepath.Join(project, manager.ScratchDir)))
}

func (a *App) newLoader(project string) (*loader.Loader, error) {
	return loader.New(loader.Options{
		ProjectPath:   project,
		ConfigOptions: a.configOptions(),
		Runner:        a.runner,
		Renderer:      a.renderer(project),
		Signals:       a.signals(),
		Environ:       a.childEnviron(),
		GOOS:          a.goos,
		Executable:    selfExecutable(),
		Notify: func(msg string) {
			fmt.Fprintln(a.stderr, SubtitleStyle.Render(">> ")+msg)
		},
	})
}

// knownEnvironment returns the environment the invocation runs in: the
// --venv-bin of a loader invocation, else the active $VIRTUAL_ENV.
func (a *App) knownEnvironment() (venv.Descriptor, bool) {
	if a.venvBin != "" {
		return venv.FromBin(a.venvBin, a.goos), true
	}
	if active := a.getenv(shell.EnvVirtualEnv); active != "" {
		return venv.NewDescriptor(active, a.goos), true
	}
	return venv.Descriptor{}, false
}

// environment returns the known environment, else the one the loader finds
// or, when create is set, creates for project.
func (a *App) environment(ctx context.Context, project string, create bool) (venv.Descriptor, error) {
	if d, ok := a.knownEnvironment(); ok {
		return d, nil
	}
	l, err := a.newLoader(project)
	if err != nil {
		return venv.Descriptor{}, err
	}
	if create {
		return l.SetupEnvironment(ctx, "")
	}
	root, ok, err := l.FindEnvironment(ctx)
	if err != nil {
		return venv.Descriptor{}, err
	}
	if !ok {
		return venv.Descriptor{}, errNoEnvironment
	}
	return venv.NewDescriptor(root, a.goos), nil
}

// newManager builds the Manager of the invocation. Without known
// environment, the manager is built on a zero Descriptor when create is
// false: shell and run reject such invocations before using it.
func (a *App) newManager(ctx context.Context, create bool) (*manager.Manager, error) {
	project, err := a.projectPath()
	if err != nil {
		return nil, err
	}
	settings, err := config.New(project, a.configOptions()...).Settings()
	if err != nil {
		return nil, err
	}

	env, known := a.knownEnvironment()
	if !known && a.fromLoader != "" {
		return nil, fmt.Errorf("--%s is required with --%s", loader.FlagVenvBin, loader.FlagFromLoader)
	}
	if !known && create {
		if env, err = a.environment(ctx, project, true); err != nil {
			return nil, err
		}
	}

	inv := manager.Context{
		ProjectPath: project,
		Env:         env,
		FromLoader:  a.fromLoader,
		ActiveEnv:   a.getenv(shell.EnvVirtualEnv),
	}
	return manager.New(inv, settings, a.renderer(project)), nil
}

// selfExecutable returns the path this binary was started from, so that
// the manager invocation runs the same program.
func selfExecutable() string {
	if p, err := exec.LookPath(os.Args[0]); err == nil {
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
	}
	if p, err := os.Executable(); err == nil {
		return p
	}
	return os.Args[0]
}
