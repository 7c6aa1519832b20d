// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/dynod/buildenv/internal/platform"
	"github.com/dynod/buildenv/internal/proc"
	"github.com/dynod/buildenv/internal/testutil"
	"github.com/dynod/buildenv/internal/venv"
)

func newTestStrategy(t *testing.T, sh Shell, runner proc.Runner) *Strategy {
	t.Helper()
	root := filepath.Join(t.TempDir(), "venv")
	testutil.MustFakeEnv(t, root, platform.BinDirName(runtime.GOOS), "home = /usr/bin\n")
	return &Strategy{
		Shell:    sh,
		Env:      venv.NewDescriptor(root, runtime.GOOS),
		Backend:  "pip",
		Prompt:   "demo",
		Environ:  []string{"PATH=" + os.Getenv("PATH"), "VIRTUAL_ENV=/stale", "HOME=" + t.TempDir()},
		TempDir:  t.TempDir(),
		Runner:   runner,
		Renderer: NewRenderer(),
	}
}

func TestStrategy_Run_Command(t *testing.T) {
	t.Parallel()

	var (
		script string
		env    []string
	)
	runner := &testutil.FakeRunner{Handler: func(cmd proc.Command) testutil.FakeResult {
		b, err := os.ReadFile(cmd.Args[2])
		if err != nil {
			return testutil.FakeResult{Err: err}
		}
		script = string(b)
		env = cmd.Env
		return testutil.FakeResult{Code: 3}
	}}
	s := newTestStrategy(t, NewPosix("/bin/bash"), runner)

	code, err := s.Run(context.Background(), "echo hi")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 3 {
		t.Errorf("Run() = %d, want child status 3", code)
	}

	argv := runner.Argvs()[0]
	scratch := filepath.Dir(argv[2])
	if want := []string{"/bin/bash", "-c", filepath.Join(scratch, "command.sh")}; !slices.Equal(argv, want) {
		t.Errorf("argv = %v, want %v", argv, want)
	}
	if !slices.Contains(strings.Split(script, "\n"), "echo hi") {
		t.Errorf("command script misses the command line:\n%s", script)
	}

	for _, want := range []string{
		"VIRTUAL_ENV=" + s.Env.Root,
		"VIRTUAL_ENV_PROMPT=demo",
		"VIRTUAL_ENV_SCRIPTS=" + scratch,
	} {
		if !slices.Contains(env, want) {
			t.Errorf("child env misses %q: %v", want, env)
		}
	}
	if slices.Contains(env, "VIRTUAL_ENV=/stale") {
		t.Error("inherited VIRTUAL_ENV not overridden")
	}

	if testutil.Exists(scratch) {
		t.Errorf("scratch directory %s not removed", scratch)
	}
}

func TestStrategy_Run_Interactive(t *testing.T) {
	t.Parallel()

	var files []string
	runner := &testutil.FakeRunner{Handler: func(cmd proc.Command) testutil.FakeResult {
		scratch := filepath.Dir(cmd.Args[2])
		_ = filepath.WalkDir(scratch, func(p string, d os.DirEntry, err error) error {
			if err == nil && !d.IsDir() {
				rel, _ := filepath.Rel(scratch, p)
				files = append(files, filepath.ToSlash(rel))
			}
			return nil
		})
		return testutil.FakeResult{}
	}}
	s := newTestStrategy(t, NewPosix("/bin/bash"), runner)
	s.FakeInstaller = true

	if _, err := s.Run(context.Background(), ""); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if argv := runner.Argvs()[0]; argv[1] != "--rcfile" || filepath.Base(argv[2]) != "shell.sh" {
		t.Errorf("argv = %v, want interactive rcfile", argv)
	}
	slices.Sort(files)
	if want := []string{"activate.sh", "bin/pip", "shell.sh"}; !slices.Equal(files, want) {
		t.Errorf("scratch files = %v, want %v", files, want)
	}
}

func TestStrategy_Run_NoFakeInstaller(t *testing.T) {
	t.Parallel()

	var pip bool
	runner := &testutil.FakeRunner{Handler: func(cmd proc.Command) testutil.FakeResult {
		pip = testutil.Exists(filepath.Join(filepath.Dir(cmd.Args[2]), "bin", "pip"))
		return testutil.FakeResult{}
	}}
	s := newTestStrategy(t, NewPosix("/bin/bash"), runner)

	if _, err := s.Run(context.Background(), "true"); err != nil {
		t.Fatal(err)
	}
	if pip {
		t.Error("pip stub rendered for a backend with an installer")
	}
}

func TestStrategy_Run_Bash(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping shell spawning test in short mode")
	}
	if runtime.GOOS == "windows" {
		t.Skip("skipping: bash test")
	}
	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("skipping: bash not found in PATH")
	}
	t.Parallel()

	tests := []struct {
		command string
		want    int
	}{
		{"true", 0},
		{"false", 1},
		{"exit 7", 7},
		{`test "$VIRTUAL_ENV_PROMPT" = demo`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			t.Parallel()
			s := newTestStrategy(t, NewPosix(bash), proc.ExecRunner{})
			code, err := s.Run(context.Background(), tt.command)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if code != tt.want {
				t.Errorf("Run(%q) = %d, want %d", tt.command, code, tt.want)
			}
		})
	}
}

func TestMergeEnv(t *testing.T) {
	t.Parallel()

	got := MergeEnv([]string{"A=1", "B=2", "C=x=y"}, map[string]string{"E": "5", "B": "3", "D": "4"})
	if want := []string{"A=1", "C=x=y", "B=3", "D=4", "E=5"}; !slices.Equal(got, want) {
		t.Errorf("MergeEnv() = %v, want %v", got, want)
	}
}
