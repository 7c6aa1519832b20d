// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the buildenv command line. The same binary plays two
// roles: "buildenv load" is the bootstrap loader run by the project scripts,
// every other command is the manager running on behalf of the loader.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/dynod/buildenv/internal/loader"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// NewRootCommand returns the command tree bound to a.
func NewRootCommand(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "buildenv",
		Short: "Python build environment manager",
		Long: TitleStyle.Render("buildenv") + SubtitleStyle.Render(" - Python build environment manager") + `

buildenv creates the Python virtual environment of a project, keeps its
activation scripts in shape and runs shells or commands inside it.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Run "buildenv" once in the project folder
  2. Commit the generated buildenv.sh and buildenv.cmd loaders
  3. Use the loaders from then on

` + SubtitleStyle.Render("Examples:") + `
  ./buildenv.sh              Open a shell in the environment
  ./buildenv.sh run pytest   Run a command in the environment
  buildenv init --force      Regenerate the environment customization`,
		Args: cobra.NoArgs,
		PersistentPreRun: func(*cobra.Command, []string) {
			a.setupLogging()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.fromLoader != "" {
				return a.runShell(cmd.Context())
			}
			return a.runInit(cmd.Context(), false)
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVar(&a.fromLoader, loader.FlagFromLoader, "", "extension of the loader script running this command")
	flags.StringVar(&a.venvBin, loader.FlagVenvBin, "", "binaries folder of the environment set up by the loader")
	_ = flags.MarkHidden(loader.FlagFromLoader)
	_ = flags.MarkHidden(loader.FlagVenvBin)
	root.Flags().BoolP("version", "V", false, "print version and exit")

	root.AddCommand(
		newInitCommand(a),
		newShellCommand(a),
		newRunCommand(a),
		newInfoCommand(a),
		newLoadCommand(a),
		newCompletionCommand(),
	)
	return root
}

// Execute runs the command line and exits the process.
func Execute() {
	a := NewApp(Dependencies{})
	err := fang.Execute(
		context.Background(),
		NewRootCommand(a),
		fang.WithVersion(getVersionString()),
		fang.WithErrorHandler(a.handleError),
	)
	os.Exit(exitCode(err))
}
