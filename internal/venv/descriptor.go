// SPDX-License-Identifier: MPL-2.0

// Package venv models a Python virtual environment on disk: where its
// interpreter and activation scripts live, which marker files record its
// setup progress, and how a new one gets created.
package venv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dynod/buildenv/internal/platform"
)

const (
	// ReadyMarker is created in the environment root once it is fully installed.
	ReadyMarker = "venvOK"
	// CustomizedMarker is created in the environment root once buildenv
	// added its own activation fragments.
	CustomizedMarker = "buildenvOK"
	// ConfigFile is the marker file every venv carries in its root.
	ConfigFile = "pyvenv.cfg"
	// PipxMetadata is found in the root of environments managed by pipx.
	PipxMetadata = "pipx_metadata.json"
	// ActivationDir holds the ordered activation fragments, in the binaries folder.
	ActivationDir = "activate.d"
)

// Descriptor locates the parts of an environment. It is derived from the
// root path and never mutated.
type Descriptor struct {
	Root              string `toml:"root"`
	Bin               string `toml:"bin"`
	Interpreter       string `toml:"interpreter"`
	ActivationScripts string `toml:"activation_scripts"`
}

// NewDescriptor returns the Descriptor of the environment rooted at root,
// laid out for goos.
func NewDescriptor(root, goos string) Descriptor {
	root = filepath.Clean(root)
	bin := filepath.Join(root, platform.BinDirName(goos))
	return Descriptor{
		Root:              root,
		Bin:               bin,
		Interpreter:       filepath.Join(bin, platform.InterpreterName(goos)),
		ActivationScripts: filepath.Join(bin, ActivationDir),
	}
}

// FromBin returns the Descriptor owning the binaries folder bin.
func FromBin(bin, goos string) Descriptor {
	return NewDescriptor(filepath.Dir(filepath.Clean(bin)), goos)
}

// Name returns the environment folder name.
func (d Descriptor) Name() string { return filepath.Base(d.Root) }

// IsReady reports whether the ready marker exists.
func (d Descriptor) IsReady() bool { return exists(filepath.Join(d.Root, ReadyMarker)) }

// MarkReady creates the ready marker.
func (d Descriptor) MarkReady() error { return touch(filepath.Join(d.Root, ReadyMarker)) }

// IsCustomized reports whether the customization marker exists.
func (d Descriptor) IsCustomized() bool { return exists(filepath.Join(d.Root, CustomizedMarker)) }

// MarkCustomized creates the customization marker.
func (d Descriptor) MarkCustomized() error { return touch(filepath.Join(d.Root, CustomizedMarker)) }

// ClearCustomized removes the customization marker, if any.
func (d Descriptor) ClearCustomized() error {
	err := os.Remove(filepath.Join(d.Root, CustomizedMarker))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// HasConsoleScripts reports whether the environment ships Windows console
// activation scripts.
func (d Descriptor) HasConsoleScripts() bool {
	return exists(filepath.Join(d.Bin, "activate.bat")) ||
		exists(filepath.Join(d.ActivationScripts, "00_activate.bat"))
}

// IsInside reports whether the environment root lies under dir.
func (d Descriptor) IsInside(dir string) bool {
	return platform.IsDescendant(dir, d.Root)
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func touch(p string) error {
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create marker %s: %w", p, err)
	}
	return f.Close()
}
