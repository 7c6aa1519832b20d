// SPDX-License-Identifier: MPL-2.0

package proc

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"testing"
)

func requireSh(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping: POSIX shell tests")
	}
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("skipping: sh not found in PATH")
	}
	return sh
}

func TestExecRunner_Run_ExitCodes(t *testing.T) {
	t.Parallel()
	sh := requireSh(t)

	tests := []struct {
		name   string
		script string
		want   int
	}{
		{"success", "true", 0},
		{"failure", "false", 1},
		{"custom", "exit 42", 42},
		{"terminated", "kill -TERM $$", 128 + 15},
		{"killed", "kill -KILL $$", 128 + 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			code, err := ExecRunner{}.Run(context.Background(), Command{
				Args:   []string{sh, "-c", tt.script},
				Stdout: &out,
				Stderr: &out,
			})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if code != tt.want {
				t.Errorf("Run() = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestExecRunner_Output(t *testing.T) {
	t.Parallel()
	sh := requireSh(t)

	out, code, err := ExecRunner{}.Output(context.Background(), Command{
		Args: []string{sh, "-c", "echo $GREETING"},
		Env:  []string{"GREETING=hello"},
	})
	if err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	if code != 0 {
		t.Errorf("Output() code = %d, want 0", code)
	}
	if strings.TrimSpace(string(out)) != "hello" {
		t.Errorf("Output() = %q, want hello", out)
	}
}

func TestExecRunner_SpawnFailure(t *testing.T) {
	t.Parallel()

	code, err := ExecRunner{}.Run(context.Background(), Command{
		Args: []string{"/nonexistent/buildenv-test-binary"},
	})
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("Run() error = %v, want *SpawnError", err)
	}
	if code != 1 {
		t.Errorf("Run() code = %d, want 1", code)
	}

	if _, err := (ExecRunner{}).Run(context.Background(), Command{}); !errors.Is(err, ErrNoCommand) {
		t.Errorf("Run(empty) error = %v, want ErrNoCommand", err)
	}
}
