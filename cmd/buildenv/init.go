// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCommand(a *App) *cobra.Command {
	var force bool
	c := &cobra.Command{
		Use:   "init",
		Short: "Initialize the project and its environment",
		Long: `Generate the loader scripts of the project, creating the environment
first if needed.

The first time, the environment is also customized with the project prompt
and the shell completion of buildenv. Use --force to apply the
customization again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runInit(cmd.Context(), force)
		},
	}
	c.Flags().BoolVarP(&force, "force", "f", false, "apply the environment customization again")
	return c
}

func (a *App) runInit(ctx context.Context, force bool) error {
	m, err := a.newManager(ctx, true)
	if err != nil {
		return describe("initialize project", "", err)
	}
	if err := m.Init(ctx, force); err != nil {
		return describe("initialize project", "", err)
	}
	if a.fromLoader == "" {
		fmt.Fprintf(a.stdout, "%s Project initialized, load it with %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(a.loaderScript()))
	}
	return nil
}
