// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/dynod/buildenv/internal/platform"
	"github.com/dynod/buildenv/internal/proc"
	"github.com/dynod/buildenv/internal/shell"
	"github.com/dynod/buildenv/internal/testutil"
	"github.com/dynod/buildenv/internal/venv"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		inProject bool
		cfg       string
		pipx      bool
		want      Name
	}{
		{"plain venv", true, "home = /usr/bin\n", false, Pip},
		{"plain venv outside project", false, "home = /usr/bin\n", false, Pip},
		{"pipx", false, "home = /usr/bin\n", true, Pipx},
		{"uv project", true, "home = /usr/bin\nuv = 0.4.18\n", false, UV},
		{"uv tool", false, "home = /usr/bin\nuv = 0.4.18\n", false, UVX},
		{"uv wins over pipx metadata", true, "uv = 0.4.18\n", true, UV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			project := t.TempDir()
			root := filepath.Join(t.TempDir(), "env")
			if tt.inProject {
				root = filepath.Join(project, "venv")
			}
			testutil.MustWriteFile(t, filepath.Join(root, venv.ConfigFile), tt.cfg)
			if tt.pipx {
				testutil.MustWriteFile(t, filepath.Join(root, venv.PipxMetadata), "{}\n")
			}

			got, err := Classify(project, root)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassify_MissingMarker(t *testing.T) {
	t.Parallel()

	_, err := Classify(t.TempDir(), t.TempDir())
	if !errors.Is(err, venv.ErrMarkerMissing) {
		t.Fatalf("Classify() error = %v, want ErrMarkerMissing", err)
	}
}

func TestVariantTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         Name
		mutable      bool
		hasInstaller bool
		fake         bool
	}{
		{Pip, true, true, false},
		{Pipx, false, true, true},
		{UV, true, false, true},
		{UVX, false, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			t.Parallel()
			v, err := Lookup(tt.name)
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if v.Mutable != tt.mutable || v.HasInstaller != tt.hasInstaller {
				t.Errorf("Lookup(%s) = %+v", tt.name, v)
			}
			if v.FakeInstaller() != tt.fake {
				t.Errorf("FakeInstaller() = %v, want %v", v.FakeInstaller(), tt.fake)
			}
		})
	}

	if _, err := Lookup("conda"); !errors.Is(err, ErrInvalidBackend) {
		t.Errorf("Lookup(conda) error = %v, want ErrInvalidBackend", err)
	}
}

func TestNew_Dispatch(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	root := filepath.Join(project, "venv")
	testutil.MustFakeEnv(t, root, platform.BinDirName(runtime.GOOS), "uv = 0.4.18\n")

	var sawPip bool
	runner := &testutil.FakeRunner{Handler: func(cmd proc.Command) testutil.FakeResult {
		sawPip = testutil.Exists(filepath.Join(filepath.Dir(cmd.Args[2]), "bin", "pip"))
		return testutil.FakeResult{Code: 5}
	}}

	b, err := New(Options{
		ProjectPath: project,
		Env:         venv.NewDescriptor(root, runtime.GOOS),
		Signals:     shell.Signals{Shell: "/bin/bash", GOOS: platform.Linux},
		Environ:     []string{},
		Runner:      runner,
		Renderer:    shell.NewRenderer(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if b.Name != UV || b.Syntax() != shell.PosixSyntax {
		t.Fatalf("New() = (%s, %+v), want (uv, posix)", b.Name, b.Syntax())
	}

	code, err := b.Run(context.Background(), "make")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 5 {
		t.Errorf("Run() = %d, want 5", code)
	}
	if !sawPip {
		t.Error("uv backend spawned a shell without the pip stub")
	}

	if _, err := b.Shell(context.Background()); err != nil {
		t.Fatalf("Shell() error = %v", err)
	}
	if argv := runner.Argvs()[1]; argv[1] != "--rcfile" {
		t.Errorf("Shell() argv = %v", argv)
	}
}

func TestNew_NoShell(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(root, venv.ConfigFile), "home = /usr/bin\n")

	_, err := New(Options{ProjectPath: root, Env: venv.NewDescriptor(root, platform.Linux), Signals: shell.Signals{GOOS: platform.Linux}})
	if !errors.Is(err, shell.ErrShellNotDetected) {
		t.Fatalf("New() error = %v, want ErrShellNotDetected", err)
	}
}
