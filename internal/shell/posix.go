// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"path/filepath"

	"github.com/dynod/buildenv/internal/platform"
)

// Scratch layout of the POSIX variant.
const (
	scratchActivate = "activate.sh"
	scratchShell    = "shell.sh"
	scratchCommand  = "command.sh"
	scratchBin      = "bin"
)

// Posix is the bash variant, spawned from $SHELL.
type Posix struct {
	path string
}

// NewPosix returns the POSIX variant spawning path.
func NewPosix(path string) *Posix { return &Posix{path: path} }

// Kind implements Shell.
func (*Posix) Kind() Kind { return KindPosix }

// Path implements Shell.
func (p *Posix) Path() string { return p.path }

// Syntax implements Shell.
func (*Posix) Syntax() Syntax { return PosixSyntax }

// InteractiveArgs implements Shell.
func (p *Posix) InteractiveArgs(scratch string, _ Activation) []string {
	return []string{p.path, "--rcfile", filepath.Join(scratch, scratchShell)}
}

// CommandArgs implements Shell.
func (p *Posix) CommandArgs(scratch string, _ Activation) []string {
	return []string{p.path, "-c", filepath.Join(scratch, scratchCommand)}
}

// GenerateActivationScripts implements Shell.
func (p *Posix) GenerateActivationScripts(ctx context.Context, r *Renderer, scratch string, a Activation) error {
	data := map[string]any{
		"envName":         a.Env.Name(),
		"backend":         a.Backend,
		"fakeInstaller":   a.FakeInstaller,
		"activate":        platform.ToSlashPath(filepath.Join(a.Env.Bin, "activate")),
		"scratchBin":      platform.ToSlashPath(filepath.Join(scratch, scratchBin)),
		"scratchActivate": platform.ToSlashPath(filepath.Join(scratch, scratchActivate)),
		"command":         a.Command,
	}

	jobs := []Job{{Template: "posix/activate.sh", Target: scratchActivate}}
	if a.Command != "" {
		jobs = append(jobs, Job{Template: "posix/command.sh", Target: scratchCommand, Executable: true})
	} else {
		jobs = append(jobs, Job{Template: "posix/shell.sh", Target: scratchShell})
	}
	if a.FakeInstaller {
		jobs = append(jobs, Job{Template: "posix/pip.sh", Target: filepath.Join(scratchBin, "pip"), Executable: true})
	}

	for _, j := range jobs {
		j.Target = filepath.Join(scratch, j.Target)
		j.Syntax = PosixSyntax
		j.Data = data
		if err := r.Render(ctx, j); err != nil {
			return err
		}
	}
	return nil
}
