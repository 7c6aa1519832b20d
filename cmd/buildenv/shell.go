// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dynod/buildenv/internal/protocol"
)

func newShellCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive shell in the environment",
		Long: `Open an interactive shell in the environment.

Only available through the loader scripts: ./buildenv.sh shell`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runShell(cmd.Context())
		},
	}
}

func newRunCommand(a *App) *cobra.Command {
	c := &cobra.Command{
		Use:   "run COMMAND [ARGS...]",
		Short: "Run a command in the environment",
		Long: `Run a command line in the environment, then exit with its status.

Only available through the loader scripts: ./buildenv.sh run pytest -x`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCommand(cmd.Context(), args)
		},
	}
	c.Flags().SetInterspersed(false)
	return c
}

func (a *App) runShell(ctx context.Context) error {
	m, err := a.newManager(ctx, false)
	if err != nil {
		return describe("open shell", "", err)
	}
	out, err := m.Shell(ctx)
	if err != nil {
		return describe("open shell", "", err)
	}
	return answer(out)
}

func (a *App) runCommand(ctx context.Context, args []string) error {
	m, err := a.newManager(ctx, false)
	if err != nil {
		return describe("run command", "", err)
	}
	out, err := m.Run(ctx, args)
	if err != nil {
		return describe("run command", "", err)
	}
	return answer(out)
}

// answer hands out over to the loader through the exit code.
func answer(out protocol.Outcome) error {
	slog.Debug("answering loader", "outcome", out)
	if code := out.ExitCode(); !code.IsSuccess() {
		return &ExitError{Code: int(code)}
	}
	return nil
}
