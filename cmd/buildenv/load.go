// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newLoadCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:                "load [ARGS...]",
		Short:              "Bootstrap loader run by the project scripts",
		Hidden:             true,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.verbose = a.verbose || wantsVerbose(args)
			a.setupLogging()
			return a.runLoad(cmd.Context(), args)
		},
	}
}

func (a *App) runLoad(ctx context.Context, args []string) error {
	project, err := a.projectPath()
	if err != nil {
		return describe("load environment", "", err)
	}
	l, err := a.newLoader(project)
	if err != nil {
		return describe("load environment", project, err)
	}
	code, err := l.Load(ctx, args)
	if err != nil {
		return describe("load environment", project, err)
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// wantsVerbose reports whether the flags before the first argument of args
// ask for verbose output. Flag parsing is disabled on load, the flags being
// forwarded to the manager.
func wantsVerbose(args []string) bool {
	fs := pflag.NewFlagSet("load", pflag.ContinueOnError)
	fs.ParseErrorsAllowlist.UnknownFlags = true
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	verbose := fs.BoolP("verbose", "v", false, "")
	if err := fs.Parse(args); err != nil {
		return false
	}
	return *verbose
}
