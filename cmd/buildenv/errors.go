// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/dynod/buildenv/internal/config"
	"github.com/dynod/buildenv/internal/issue"
	"github.com/dynod/buildenv/internal/manager"
	"github.com/dynod/buildenv/internal/protocol"
	"github.com/dynod/buildenv/internal/shell"
	"github.com/dynod/buildenv/internal/venv"
)

// knownError links a sentinel to its catalog entry and a first hint.
type knownError struct {
	target error
	id     issue.Id
	hint   string
}

var knownErrors = []knownError{
	{manager.ErrNestedEnvironment, issue.NestedEnvironmentId, "Leave the current environment shell first"},
	{manager.ErrNotFromLoader, issue.NotFromLoaderId, "Use ./buildenv.sh (or buildenv.cmd) instead"},
	{manager.ErrInvalidLoader, issue.NotFromLoaderId, "Use ./buildenv.sh (or buildenv.cmd) instead"},
	{manager.ErrEmptyCommand, issue.EmptyCommandId, "Pass the command line after run"},
	{manager.ErrParentProject, issue.ParentProjectId, "Initialize the parent project first"},
	{protocol.ErrSlotsExhausted, issue.SlotsExhaustedId, "Remove stale .buildenv/command.* scripts"},
	{config.ErrUnresolvedVariable, issue.UnresolvedVariableId, "Export the variable referenced in buildenv.cfg"},
	{config.ErrResolutionLoop, issue.UnresolvedVariableId, "Check environment variables referencing each other"},
	{config.ErrInvalidConfig, issue.ConfigInvalidId, "Fix buildenv.cfg"},
	{venv.ErrMarkerMissing, issue.MarkerMissingId, "Delete the environment folder and load again"},
	{venv.ErrNoInterpreter, issue.NoInterpreterId, "Install Python 3"},
	{shell.ErrShellNotDetected, issue.ShellNotDetectedId, "Set the SHELL environment variable"},
}

// describe decorates err with the failed operation and, for known
// failures, a hint and the matching catalog entry. Exit errors and errors
// already decorated are returned as is.
func describe(operation, resource string, err error) error {
	if err == nil {
		return nil
	}
	var (
		exitErr *ExitError
		ae      *issue.ActionableError
	)
	if errors.As(err, &exitErr) || errors.As(err, &ae) {
		return err
	}

	ctx := issue.NewErrorContext().WithOperation(operation).WithResource(resource).Wrap(err)
	for _, k := range knownErrors {
		if errors.Is(err, k.target) {
			return ctx.WithIssue(k.id).WithSuggestion(k.hint).BuildError()
		}
	}
	var cmdErr *venv.CommandError
	if errors.As(err, &cmdErr) {
		ctx.WithIssue(issue.InstallFailedId).WithSuggestion("Check the output of the failing command above")
	}
	return ctx.BuildError()
}

// handleError is the fang error handler. A verbose run also shows the full
// error chain and the catalog help of the failure.
func (a *App) handleError(w io.Writer, _ fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		fmt.Fprintln(w, ErrorStyle.Render("Error:"), err.Error())
		return
	}
	fmt.Fprintln(w, ErrorStyle.Render("Error:"), ae.Error())
	for _, suggestion := range ae.Suggestions {
		fmt.Fprintln(w, WarningStyle.Render("  • "+suggestion))
	}
	if a.verbose && ae.Cause != nil {
		fmt.Fprint(w, "\nError chain:\n", ae.Chain())
	}

	if ae.Issue == 0 {
		return
	}
	if !a.verbose {
		fmt.Fprintln(w, SubtitleStyle.Render("Run with"), CmdStyle.Render("--verbose"), SubtitleStyle.Render("for more help."))
		return
	}
	style := issue.StylePlain
	if f, ok := a.stderr.(*os.File); ok {
		style = issue.StyleFor(f)
	}
	help, renderErr := issue.Get(ae.Issue).Render(style)
	if renderErr != nil {
		return
	}
	fmt.Fprint(w, help)
}
