// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

type (
	// Id identifies a catalog entry.
	Id int

	// MarkdownMsg is the help text of an issue.
	MarkdownMsg string

	// HttpLink is an external documentation link.
	HttpLink string

	// Issue is a known failure with Markdown guidance.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		extLinks []HttpLink
	}
)

const (
	ConfigInvalidId Id = iota + 1
	UnresolvedVariableId
	MarkerMissingId
	ShellNotDetectedId
	NestedEnvironmentId
	NotFromLoaderId
	EmptyCommandId
	SlotsExhaustedId
	ParentProjectId
	NoInterpreterId
	InstallFailedId
)

// Glamour styles used by Render.
const (
	StyleTerminal = "dark"
	StylePlain    = "notty"
)

var (
	render = glamour.Render

	// Inline code is written between "~" and rendered with backquotes.
	issues = map[Id]*Issue{
		ConfigInvalidId: {
			id: ConfigInvalidId,
			mdMsg: `
# Invalid buildenv.cfg

The project configuration could not be read.

## Things to check
- The file is INI formatted, with ~[local]~ and ~[ci]~ sections
- Section names are lower case
- Known keys (~venvFolder~, ~requirements~, ~prompt~, ~lookUp~, ~pipInstallArgs~) are not empty

~~~ini
[local]
venvFolder = venv
pipInstallArgs = --index-url ${PIP_INDEX}

[ci]
lookUp = false
~~~`,
		},
		UnresolvedVariableId: {
			id: UnresolvedVariableId,
			mdMsg: `
# Undefined environment variable

A ~${NAME}~ placeholder of buildenv.cfg references a variable that is not set.
Placeholders are never replaced by an empty string.

## Things you can try
- Export the variable before running the loader
- Remove the placeholder from the configuration`,
		},
		MarkerMissingId: {
			id: MarkerMissingId,
			mdMsg: `
# Not a virtual environment

The environment has no ~pyvenv.cfg~, so its backend can't be detected.

## Things you can try
- Delete the environment folder and run the loader again
- Check the ~venvFolder~ setting of buildenv.cfg`,
		},
		ShellNotDetectedId: {
			id: ShellNotDetectedId,
			mdMsg: `
# Unknown shell

Neither ~SHELL~ nor a Windows console were found.

## Things you can try
~~~
$ export SHELL=/bin/bash
~~~`,
		},
		NestedEnvironmentId: {
			id: NestedEnvironmentId,
			mdMsg: `
# Already in a build environment

~VIRTUAL_ENV~ is set: this shell already runs in an environment.

## Things you can try
- Leave the current shell (~exit~) and run the loader again
- Or run ~deactivate~ first`,
		},
		NotFromLoaderId: {
			id: NotFromLoaderId,
			mdMsg: `
# Use the loader script

~shell~ and ~run~ need the environment prepared by the loader script of the project.

~~~
$ ./buildenv.sh shell
$ ./buildenv.sh run make test
~~~

On Windows, use ~buildenv.cmd~.`,
		},
		EmptyCommandId: {
			id: EmptyCommandId,
			mdMsg: `
# Nothing to run

~run~ expects a command line.

~~~
$ ./buildenv.sh run python --version
~~~`,
		},
		SlotsExhaustedId: {
			id: SlotsExhaustedId,
			mdMsg: `
# No free command slot

Every command script slot of the project is in use.
Scripts of interrupted runs are not cleaned up.

## Things you can try
~~~
$ rm .buildenv/command.*
~~~`,
		},
		ParentProjectId: {
			id: ParentProjectId,
			mdMsg: `
# Environment owned by a parent project

The environment found lives in a parent project, which must be initialized first.

## Things you can try
- Run the loader of the parent project once
- Or disable the lookup in buildenv.cfg:
~~~ini
[local]
lookUp = false
~~~`,
		},
		NoInterpreterId: {
			id: NoInterpreterId,
			mdMsg: `
# No Python interpreter

Creating an environment needs ~python3~ (or ~python~) on PATH.`,
			extLinks: []HttpLink{"https://www.python.org/downloads/"},
		},
		InstallFailedId: {
			id: InstallFailedId,
			mdMsg: `
# Package installation failed

pip failed while setting the environment up. The environment is not marked
ready and will be created again on the next run.

## Things you can try
- Check the requirements file and the ~pipInstallArgs~ setting
- Run again with ~--verbose~`,
			extLinks: []HttpLink{"https://pip.pypa.io/en/stable/cli/pip_install/"},
		},
	}
)

// Render renders the issue with the glamour style at stylePath.
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.extLinks) > 0 {
		var b strings.Builder
		b.WriteString(md)
		b.WriteString("\n\n## See also\n")
		for _, link := range i.extLinks {
			b.WriteString("- <" + string(link) + ">\n")
		}
		md = b.String()
	}
	return render(strings.ReplaceAll(md, "~", "`"), stylePath)
}

// StyleFor returns the glamour style matching f.
func StyleFor(f *os.File) string {
	if term.IsTerminal(int(f.Fd())) {
		return StyleTerminal
	}
	return StylePlain
}

// Get returns the catalog entry id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
