// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"path/filepath"
)

// Console is the Windows command console variant.
type Console struct {
	path string
}

// NewConsole returns the console variant spawning path.
func NewConsole(path string) *Console { return &Console{path: path} }

// Kind implements Shell.
func (*Console) Kind() Kind { return KindConsole }

// Path implements Shell.
func (c *Console) Path() string { return c.path }

// Syntax implements Shell.
func (*Console) Syntax() Syntax { return ConsoleSyntax }

// InteractiveArgs implements Shell. The environment's own activate.bat
// (the fragments loop) is called before handing the console over.
func (c *Console) InteractiveArgs(_ string, a Activation) []string {
	return []string{c.path, "/k", activateBat(a)}
}

// CommandArgs implements Shell.
func (c *Console) CommandArgs(_ string, a Activation) []string {
	return []string{c.path, "/c", "call " + activateBat(a) + " && " + a.Command}
}

// GenerateActivationScripts implements Shell. Console activation is the
// combined activate.bat of the environment, so nothing is rendered.
func (*Console) GenerateActivationScripts(context.Context, *Renderer, string, Activation) error {
	return nil
}

func activateBat(a Activation) string {
	return `"` + filepath.Join(a.Env.Bin, "activate.bat") + `"`
}
