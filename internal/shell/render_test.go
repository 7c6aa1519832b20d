// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/dynod/buildenv/internal/git"
	"github.com/dynod/buildenv/internal/proc"
	"github.com/dynod/buildenv/internal/testutil"
)

func TestRenderer_Text(t *testing.T) {
	t.Parallel()

	r := NewRenderer()

	sh, err := r.Text(Job{Template: "project/command.sh", Syntax: PosixSyntax, Data: map[string]any{"command": "echo hi"}})
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if !strings.HasPrefix(sh, "#!/bin/bash\n# Generated by buildenv") {
		t.Errorf("posix script does not start with header and banner:\n%s", sh)
	}
	if !slices.Contains(strings.Split(sh, "\n"), "echo hi") {
		t.Errorf("posix script misses the command line:\n%s", sh)
	}
	if strings.Contains(sh, "\r\n") {
		t.Error("posix script uses CRLF line endings")
	}

	cmd, err := r.Text(Job{Template: "project/command.cmd", Syntax: ConsoleSyntax, Data: map[string]any{"command": "echo hi"}})
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if !strings.HasPrefix(cmd, "@echo off\r\n:: Generated by buildenv") {
		t.Errorf("console script does not start with header and banner:\n%q", cmd)
	}
	if strings.Count(cmd, "\n") != strings.Count(cmd, "\r\n") {
		t.Errorf("console script mixes line endings: %q", cmd)
	}
}

func TestRenderer_Text_Quote(t *testing.T) {
	t.Parallel()

	r := NewRenderer()
	text, err := r.Text(Job{
		Template: "venv/activate.sh",
		Syntax:   PosixSyntax,
		Data:     map[string]any{"fragments": "/work/my project/venv/bin/activate.d"},
	})
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if !strings.Contains(text, `for i in '/work/my project/venv/bin/activate.d'/*.sh; do`) {
		t.Errorf("fragments path not quoted:\n%s", text)
	}
}

func TestRenderer_Text_MissingKey(t *testing.T) {
	t.Parallel()

	if _, err := NewRenderer().Text(Job{Template: "project/command.sh", Syntax: PosixSyntax}); err == nil {
		t.Error("Text() without command succeeded")
	}
	if _, err := NewRenderer().Text(Job{Template: "project/nope.sh", Syntax: PosixSyntax}); err == nil {
		t.Error("Text() with unknown template succeeded")
	}
}

func TestRenderer_Text_AbsoluteTemplate(t *testing.T) {
	t.Parallel()

	tmpl := filepath.Join(t.TempDir(), "custom.sh")
	testutil.MustWriteFile(t, tmpl, "{{.comment}}custom {{.name}}\n")

	text, err := NewRenderer().Text(Job{Template: tmpl, Syntax: PosixSyntax, Data: map[string]any{"name": "fragment"}})
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if !strings.HasSuffix(text, "\n\n# custom fragment\n") {
		t.Errorf("Text() = %q", text)
	}
}

func TestRenderer_Render(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	runner := &testutil.FakeRunner{Handler: func(cmd proc.Command) testutil.FakeResult {
		return testutil.FakeResult{Stdout: cmd.Args[len(cmd.Args)-1] + "\n"}
	}}
	r := NewRenderer(WithGitIndex(git.New(runner), project, filepath.Join(project, ".buildenv")))
	ctx := context.Background()

	target := filepath.Join(project, "buildenv.sh")
	if err := r.Render(ctx, Job{Template: "project/buildenv.sh", Target: target, Executable: true, Syntax: PosixSyntax}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if runtime.GOOS != "windows" {
		info, err := os.Stat(target)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o755 {
			t.Errorf("mode = %v, want 0755", info.Mode().Perm())
		}
	}

	nested := filepath.Join(project, ".buildenv", "sub", "command.101.sh")
	if err := r.Render(ctx, Job{Template: "project/command.sh", Target: nested, Executable: true, Syntax: PosixSyntax, Data: map[string]any{"command": "true"}}); err != nil {
		t.Fatalf("Render() nested error = %v", err)
	}
	if !testutil.Exists(nested) {
		t.Fatal("parent directories not created")
	}

	plain := filepath.Join(project, ".buildenv", "activate.sh")
	if err := r.Render(ctx, Job{Template: "project/activate.sh", Target: plain, Syntax: PosixSyntax, Data: map[string]any{"venvBin": "../venv/bin"}}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	argvs := runner.Argvs()
	if len(argvs) != 2 {
		t.Fatalf("git calls = %v, want only buildenv.sh", argvs)
	}
	if want := []string{"git", "-C", project, "update-index", "--chmod=+x", "buildenv.sh"}; !slices.Equal(argvs[1], want) {
		t.Errorf("git argv = %v, want %v", argvs[1], want)
	}
}

// Not parallel: swaps the default logger.
func TestRenderer_Render_GitLogLevels(t *testing.T) {
	var logs bytes.Buffer
	defer slog.SetDefault(slog.Default())
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn})))

	render := func(res testutil.FakeResult) {
		t.Helper()
		project := t.TempDir()
		r := NewRenderer(WithGitIndex(git.New(&testutil.FakeRunner{Handler: func(proc.Command) testutil.FakeResult { return res }}), project))
		if err := r.Render(context.Background(), Job{Template: "project/buildenv.sh", Target: filepath.Join(project, "buildenv.sh"), Executable: true, Syntax: PosixSyntax}); err != nil {
			t.Fatalf("Render() error = %v", err)
		}
	}

	render(testutil.FakeResult{})
	if logs.Len() != 0 {
		t.Errorf("untracked script logged at warn level: %s", logs.String())
	}

	render(testutil.FakeResult{Code: 128})
	if !strings.Contains(logs.String(), "failed to mark script executable") {
		t.Errorf("git failure not warned: %q", logs.String())
	}
}

func TestRenderer_Render_GitFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	r := NewRenderer(WithGitIndex(git.New(&testutil.FakeRunner{Handler: func(proc.Command) testutil.FakeResult {
		return testutil.FakeResult{Code: 128}
	}}), project))

	target := filepath.Join(project, "buildenv.sh")
	if err := r.Render(context.Background(), Job{Template: "project/buildenv.sh", Target: target, Executable: true, Syntax: PosixSyntax}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !testutil.Exists(target) {
		t.Error("script not written")
	}
}

func TestRenderer_Render_Overwrite(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "command.sh")
	testutil.MustWriteFile(t, target, "old content\n")

	r := NewRenderer()
	if err := r.Render(context.Background(), Job{Template: "project/command.sh", Target: target, Syntax: PosixSyntax, Data: map[string]any{"command": "new"}}); err != nil {
		t.Fatal(err)
	}
	if got := testutil.MustReadFile(t, target); strings.Contains(got, "old content") || !strings.Contains(got, "\nnew\n") {
		t.Errorf("content = %q", got)
	}
}
