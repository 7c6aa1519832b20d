// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"mvdan.cc/sh/v3/syntax"

	"github.com/dynod/buildenv/internal/backend"
	"github.com/dynod/buildenv/internal/manager"
	"github.com/dynod/buildenv/internal/proc"
	"github.com/dynod/buildenv/internal/protocol"
	"github.com/dynod/buildenv/internal/shell"
	"github.com/dynod/buildenv/internal/venv"
)

// Load sets the environment up, then runs the manager with args and turns
// its answer into the final exit code: a completed manager exits with its
// own code, the shell and run answers are served here by spawning the
// detected shell in the environment.
func (l *Loader) Load(ctx context.Context, args []string) (int, error) {
	env, err := l.SetupEnvironment(ctx, "")
	if err != nil {
		return 1, err
	}

	b, err := backend.New(backend.Options{
		ProjectPath: l.opts.ProjectPath,
		Env:         env,
		Signals:     l.opts.Signals,
		Prompt:      l.settings.Prompt,
		Environ:     l.opts.Environ,
		Runner:      l.opts.Runner,
		Renderer:    l.opts.Renderer,
	})
	if err != nil {
		return 1, err
	}
	ext := b.Syntax().Ext

	code, err := l.runManager(ctx, env, ext, args)
	if err != nil {
		return 1, err
	}

	out, err := protocol.Decode(code, protocol.DefaultSlots)
	if err != nil {
		return 1, err
	}
	slog.Debug("manager answered", "code", code, "outcome", out)
	switch out.Kind {
	case protocol.SpawnShell:
		return b.Shell(ctx)
	case protocol.RunScript:
		script := manager.CommandScript(l.opts.ProjectPath, out.Slot, ext)
		defer func() {
			if rmErr := os.Remove(script); rmErr != nil {
				slog.Warn("failed to remove command script", "path", script, "error", rmErr)
			}
		}()
		return b.Run(ctx, commandLine(b.Syntax(), script))
	default:
		return int(out.Code), nil
	}
}

func (l *Loader) runManager(ctx context.Context, env venv.Descriptor, ext string, args []string) (int, error) {
	self := l.opts.Executable
	if self == "" {
		var err error
		if self, err = os.Executable(); err != nil {
			return 1, fmt.Errorf("failed to locate buildenv executable: %w", err)
		}
	}

	argv := append([]string{
		self,
		"--" + FlagFromLoader + "=" + ext,
		"--" + FlagVenvBin + "=" + env.Bin,
	}, args...)
	return l.opts.Runner.Run(ctx, proc.Command{Args: argv, Dir: l.opts.ProjectPath, Env: l.opts.Environ})
}

// commandLine returns the shell command running script.
func commandLine(syn shell.Syntax, script string) string {
	if syn.Ext == shell.ConsoleSyntax.Ext {
		return `call "` + script + `"`
	}
	if q, err := syntax.Quote(script, syntax.LangBash); err == nil {
		return q
	}
	return script
}
