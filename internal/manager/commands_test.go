// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynod/buildenv/internal/protocol"
)

func TestGuards_BeforeAnyScript(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		inv     Context
		wantErr error
	}{
		{"nested shell", Context{FromLoader: "sh", ActiveEnv: "/other/venv"}, ErrNestedEnvironment},
		{"not from loader", Context{}, ErrNotFromLoader},
		{"unknown loader", Context{FromLoader: "ps1"}, ErrInvalidLoader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			m := f.manager(tt.inv)

			_, err := m.Shell(context.Background())
			require.ErrorIs(t, err, tt.wantErr)
			_, err = m.Run(context.Background(), []string{"echo", "hi"})
			require.ErrorIs(t, err, tt.wantErr)

			assert.NoFileExists(t, filepath.Join(f.project, "buildenv.sh"))
			assert.NoDirExists(t, filepath.Join(f.project, ScratchDir))
			assert.False(t, f.env.IsCustomized())
		})
	}
}

func TestShell(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	out, err := f.manager(Context{FromLoader: "sh"}).Shell(context.Background())
	require.NoError(t, err)
	assert.Equal(t, protocol.Shell(), out)
	assert.Equal(t, protocol.StartShell, out.ExitCode())

	// Implicit init.
	assert.FileExists(t, filepath.Join(f.project, "buildenv.sh"))
	assert.True(t, f.env.IsCustomized())
}

func TestRun(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	m := f.manager(Context{FromLoader: "sh"})

	out, err := m.Run(context.Background(), []string{"echo", "hi"})
	require.NoError(t, err)
	require.Equal(t, protocol.RunScript, out.Kind)
	assert.True(t, protocol.DefaultSlots.Contains(out.Slot))

	script := CommandScript(f.project, out.Slot, "sh")
	assert.Equal(t, filepath.Join(f.project, ScratchDir, fmt.Sprintf("command.%d.sh", out.Slot)), script)
	assert.True(t, slices.Contains(strings.Split(readScript(t, script), "\n"), "echo hi"))
}

func TestRun_Console(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	out, err := f.manager(Context{FromLoader: "cmd"}).Run(context.Background(), []string{"dir"})
	require.NoError(t, err)
	content := readScript(t, CommandScript(f.project, out.Slot, "cmd"))
	assert.True(t, strings.HasPrefix(content, "@echo off\r\n"))
	assert.Contains(t, content, "\r\ndir\r\n")
}

func TestRun_EmptyCommand(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	for _, args := range [][]string{nil, {}, {"", " "}} {
		_, err := f.manager(Context{FromLoader: "sh"}).Run(context.Background(), args)
		require.ErrorIs(t, err, ErrEmptyCommand)
	}
	assert.NoDirExists(t, filepath.Join(f.project, ScratchDir))
}

func TestRun_SkipsTakenSlots(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// Every slot but one already has a script.
	free := 150
	for slot := protocol.FirstSlot; slot <= protocol.LastSlot; slot++ {
		if slot != free {
			writeScript(t, CommandScript(f.project, slot, "sh"))
		}
	}

	out, err := f.manager(Context{FromLoader: "sh"}).Run(context.Background(), []string{"true"})
	require.NoError(t, err)
	assert.Equal(t, protocol.Script(free), out)

	// Scripts of the other loader flavor do not collide.
	out, err = f.manager(Context{FromLoader: "cmd"}).Run(context.Background(), []string{"true"})
	require.NoError(t, err)
	assert.Equal(t, protocol.RunScript, out.Kind)

	_, err = f.manager(Context{FromLoader: "sh"}).Run(context.Background(), []string{"true"})
	require.ErrorIs(t, err, protocol.ErrSlotsExhausted)
}

func TestRun_CustomSlots(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	m := f.manager(Context{FromLoader: "sh"},
		WithSlots(protocol.SlotRange{First: 200, Last: 201}, 0),
		WithRandom(func(int) int { return 0 }))

	first, err := m.Run(context.Background(), []string{"true"})
	require.NoError(t, err)
	second, err := m.Run(context.Background(), []string{"true"})
	require.NoError(t, err)
	assert.Equal(t, []int{200, 201}, []int{first.Slot, second.Slot})

	_, err = m.Run(context.Background(), []string{"true"})
	require.ErrorIs(t, err, protocol.ErrSlotsExhausted)
}

func writeScript(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o755))
}

func readScript(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}
