// SPDX-License-Identifier: MPL-2.0

// Package shell drives the command shell of the user: it renders the scripts
// activating an environment and spawns the shell, interactively or for a
// single command line.
package shell

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/dynod/buildenv/internal/platform"
	"github.com/dynod/buildenv/internal/venv"
)

const (
	// KindPosix is a POSIX shell found through $SHELL (bash).
	KindPosix Kind = "posix"
	// KindConsole is the Windows command console.
	KindConsole Kind = "console"
)

var (
	// ErrShellNotDetected is returned when no supported shell can be selected.
	ErrShellNotDetected = errors.New("unable to detect the running shell")

	// PosixSyntax is the script convention of POSIX shells.
	PosixSyntax = Syntax{Header: "#!/bin/bash\n", CommentPrefix: "# ", NewLine: "\n", Ext: "sh"}
	// ConsoleSyntax is the script convention of the Windows console.
	ConsoleSyntax = Syntax{Header: "@echo off\n", CommentPrefix: ":: ", NewLine: "\r\n", Ext: "cmd"}
)

type (
	// Kind identifies a shell variant.
	Kind string

	// Syntax is the script convention of a shell family.
	Syntax struct {
		Header        string
		CommentPrefix string
		NewLine       string
		// Ext is the script file extension, without dot.
		Ext string
	}

	// Activation describes what the activation scripts must set up.
	Activation struct {
		Env venv.Descriptor
		// Backend is the backend name, for messages.
		Backend string
		// FakeInstaller puts a pip stub ahead of any real one on PATH.
		FakeInstaller bool
		// Command is the command line to run; empty for an interactive shell.
		Command string
	}

	// Shell is one supported shell variant.
	Shell interface {
		Kind() Kind
		// Path is the shell executable.
		Path() string
		Syntax() Syntax
		// InteractiveArgs is the argument vector of an interactive session
		// whose scripts were generated in scratch.
		InteractiveArgs(scratch string, a Activation) []string
		// CommandArgs is the argument vector running a.Command once.
		CommandArgs(scratch string, a Activation) []string
		// GenerateActivationScripts renders the scripts needed by the
		// argument vectors into scratch.
		GenerateActivationScripts(ctx context.Context, r *Renderer, scratch string, a Activation) error
	}

	// Signals are the inputs of shell detection, captured at the process
	// boundary.
	Signals struct {
		// Shell is the value of $SHELL.
		Shell string
		// ComSpec is the value of %COMSPEC%.
		ComSpec string
		GOOS    string
	}
)

// String returns the string representation of the Kind.
func (k Kind) String() string { return string(k) }

// Detect selects the shell variant: $SHELL wins, then the Windows console;
// anything else is an error since scripts are shell specific.
func Detect(sig Signals) (Shell, error) {
	switch {
	case sig.Shell != "":
		return &Posix{path: sig.Shell}, nil
	case sig.GOOS == platform.Windows:
		path := sig.ComSpec
		if path == "" {
			path = "cmd.exe"
		}
		return &Console{path: path}, nil
	default:
		return nil, ErrShellNotDetected
	}
}

// SyntaxFor returns the script convention matching the extension of target.
func SyntaxFor(target string) Syntax {
	switch strings.ToLower(filepath.Ext(target)) {
	case ".cmd", ".bat":
		return ConsoleSyntax
	default:
		return PosixSyntax
	}
}
