// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"golang.org/x/exp/maps"

	"github.com/dynod/buildenv/internal/platform"
	"github.com/dynod/buildenv/internal/proc"
	"github.com/dynod/buildenv/internal/venv"
)

// Variables injected in the spawned shell environment.
const (
	EnvVirtualEnv        = "VIRTUAL_ENV"
	EnvVirtualEnvPrompt  = "VIRTUAL_ENV_PROMPT"
	EnvVirtualEnvScripts = "VIRTUAL_ENV_SCRIPTS"
)

// Strategy spawns a Shell inside an environment.
type Strategy struct {
	Shell Shell
	Env   venv.Descriptor
	// Backend is the backend name.
	Backend string
	// FakeInstaller hides pip behind a stub in spawned shells.
	FakeInstaller bool
	// Prompt is exported as VIRTUAL_ENV_PROMPT.
	Prompt string
	// Environ is the inherited environment; nil means os.Environ().
	Environ []string
	// TempDir is the parent of scratch directories; empty means os.TempDir().
	TempDir string

	Runner   proc.Runner
	Renderer *Renderer
}

// Run spawns the shell: interactively when command is empty, else running
// command once. The child's exit status is returned verbatim; an error only
// reports a failure to prepare or spawn the shell.
//
// Generated scripts live in a scratch directory removed before returning.
func (s *Strategy) Run(ctx context.Context, command string) (int, error) {
	scratch, err := os.MkdirTemp(s.TempDir, "buildenv-")
	if err != nil {
		return 1, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			slog.Warn("failed to remove scratch directory", "path", scratch, "error", rmErr)
		}
	}()

	a := Activation{
		Env:           s.Env,
		Backend:       s.Backend,
		FakeInstaller: s.FakeInstaller,
		Command:       command,
	}
	if err := s.Shell.GenerateActivationScripts(ctx, s.Renderer, scratch, a); err != nil {
		return 1, err
	}

	args := s.Shell.InteractiveArgs(scratch, a)
	if command != "" {
		args = s.Shell.CommandArgs(scratch, a)
	}

	slog.Debug("spawning shell", "args", args)
	return s.Runner.Run(ctx, proc.Command{Args: args, Env: s.environ(scratch)})
}

// environ returns the inherited environment with the VIRTUAL_ENV variables
// overridden.
func (s *Strategy) environ(scratch string) []string {
	base := s.Environ
	if base == nil {
		base = os.Environ()
	}
	return MergeEnv(base, map[string]string{
		EnvVirtualEnv:        s.Env.Root,
		EnvVirtualEnvPrompt:  s.Prompt,
		EnvVirtualEnvScripts: scratch,
	})
}

// MergeEnv returns base with the variables of overrides replaced or added,
// the added ones sorted by name. Names compare case-insensitively on Windows.
func MergeEnv(base []string, overrides map[string]string) []string {
	same := func(a, b string) bool { return a == b }
	if platform.IsWindows() {
		same = strings.EqualFold
	}

	names := maps.Keys(overrides)
	slices.Sort(names)
	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if !slices.ContainsFunc(names, func(k string) bool { return same(name, k) }) {
			out = append(out, kv)
		}
	}
	for _, k := range names {
		out = append(out, k+"="+overrides[k])
	}
	return out
}
