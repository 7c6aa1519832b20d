// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/dynod/buildenv/internal/shell"
)

var (
	fragmentPattern      = regexp.MustCompile(`^(\d{2})_`)
	addedFragmentPattern = regexp.MustCompile(`^\d{2}_(set_prompt|completion)\.sh$`)
)

// hygieneFile is a version control file every project should carry.
type hygieneFile struct {
	name    string
	content string
}

// Init renders the loader scripts of the project. The first time (or with
// force) it also adds the prompt and completion activation fragments to the
// environment, then records it with the customization marker.
func (m *Manager) Init(ctx context.Context, force bool) error {
	env := m.inv.Env

	if err := m.renderLoaders(ctx); err != nil {
		return err
	}

	if force {
		if !env.IsInside(m.inv.ProjectPath) {
			return ErrParentProject
		}
		if err := m.resetCustomization(); err != nil {
			return err
		}
	}
	if env.IsCustomized() {
		return nil
	}

	m.checkHygiene()
	if !env.IsInside(m.inv.ProjectPath) {
		return ErrParentProject
	}

	if err := shell.InstallActivationLoop(ctx, m.renderer, env); err != nil {
		return err
	}

	next, err := NextFragmentIndex(env.ActivationScripts)
	if err != nil {
		return err
	}
	fragments := []shell.Job{
		{Template: "project/set_prompt.sh", Target: "set_prompt.sh", Data: map[string]any{"prompt": m.settings.Prompt}},
		{Template: "posix/completion.sh", Target: "completion.sh", Data: map[string]any{"commands": []string{CompletionCommand}}},
	}
	for _, j := range fragments {
		j.Target = filepath.Join(env.ActivationScripts, fmt.Sprintf("%02d_%s", next, j.Target))
		j.Syntax = shell.PosixSyntax
		if err := m.renderer.Render(ctx, j); err != nil {
			return err
		}
	}

	if err := env.MarkCustomized(); err != nil {
		return err
	}
	slog.Debug("environment customized", "env", env.Root)
	return nil
}

func (m *Manager) renderLoaders(ctx context.Context) error {
	project := m.inv.ProjectPath
	scratch := filepath.Join(project, ScratchDir)
	rel, err := filepath.Rel(scratch, m.inv.Env.Bin)
	if err != nil {
		return fmt.Errorf("environment %s is not reachable from %s: %w", m.inv.Env.Root, project, err)
	}
	posixBin := filepath.ToSlash(rel)

	jobs := []shell.Job{
		{Template: "project/buildenv.sh", Target: filepath.Join(project, LoaderScript+".sh"), Executable: true},
		{Template: "project/buildenv.cmd", Target: filepath.Join(project, LoaderScript+".cmd")},
		{Template: "project/activate.sh", Target: filepath.Join(scratch, "activate.sh"), Data: map[string]any{"venvBin": posixBin}},
		{Template: "project/shell.sh", Target: filepath.Join(scratch, "shell.sh")},
	}
	if m.inv.Env.HasConsoleScripts() {
		jobs = append(jobs,
			shell.Job{Template: "project/activate.cmd", Target: filepath.Join(scratch, "activate.cmd"), Data: map[string]any{"venvBin": strings.ReplaceAll(posixBin, "/", `\`)}},
			shell.Job{Template: "project/shell.cmd", Target: filepath.Join(scratch, "shell.cmd")},
		)
	}

	for _, j := range jobs {
		j.Syntax = shell.SyntaxFor(j.Target)
		if err := m.renderer.Render(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

// checkHygiene warns about missing recommended version control files.
func (m *Manager) checkHygiene() {
	files := []hygieneFile{
		{".gitignore", fmt.Sprintf("/%s/\n/%s/\n", m.inv.Env.Name(), ScratchDir)},
		{".gitattributes", "*.sh text eol=lf\n*.bat text eol=crlf\n*.cmd text eol=crlf\n"},
	}
	for _, f := range files {
		if _, err := os.Stat(filepath.Join(m.inv.ProjectPath, f.name)); err == nil {
			continue
		}
		slog.Warn("missing recommended file in project", "file", f.name, "content", f.content)
	}
}

// resetCustomization removes the fragments added by Init and the marker.
func (m *Manager) resetCustomization() error {
	env := m.inv.Env
	entries, err := os.ReadDir(env.ActivationScripts)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() && addedFragmentPattern.MatchString(e.Name()) {
			if err := os.Remove(filepath.Join(env.ActivationScripts, e.Name())); err != nil {
				return err
			}
		}
	}
	return env.ClearCustomized()
}

// NextFragmentIndex returns the ordinal following the highest "NN_" prefix
// found in dir. Index 00 is the stock activate script, so the first free
// index of an empty folder is 01.
func NextFragmentIndex(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, err
	}
	highest := 0
	for _, e := range entries {
		if m := fragmentPattern.FindStringSubmatch(e.Name()); m != nil {
			n, _ := strconv.Atoi(m[1])
			highest = max(highest, n)
		}
	}
	return highest + 1, nil
}
