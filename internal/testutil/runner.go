// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/dynod/buildenv/internal/proc"
)

type (
	// FakeResult is what a FakeRunner handler answers for one command.
	FakeResult struct {
		Stdout string
		Code   int
		Err    error
	}

	// FakeRunner is a proc.Runner recording every command instead of
	// spawning it. Handler decides the outcome; a nil Handler succeeds.
	FakeRunner struct {
		Handler func(cmd proc.Command) FakeResult

		mu    sync.Mutex
		calls []proc.Command
	}
)

// Run implements proc.Runner.
func (f *FakeRunner) Run(_ context.Context, cmd proc.Command) (int, error) {
	res := f.handle(cmd)
	if cmd.Stdout != nil && res.Stdout != "" {
		_, _ = io.WriteString(cmd.Stdout, res.Stdout)
	}
	return res.Code, res.Err
}

// Output implements proc.Runner.
func (f *FakeRunner) Output(_ context.Context, cmd proc.Command) ([]byte, int, error) {
	res := f.handle(cmd)
	return []byte(res.Stdout), res.Code, res.Err
}

// Calls returns the recorded commands in spawn order.
func (f *FakeRunner) Calls() []proc.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]proc.Command(nil), f.calls...)
}

// Argvs returns the argument vectors of the recorded commands.
func (f *FakeRunner) Argvs() [][]string {
	calls := f.Calls()
	argvs := make([][]string, len(calls))
	for i, c := range calls {
		argvs[i] = c.Args
	}
	return argvs
}

func (f *FakeRunner) handle(cmd proc.Command) FakeResult {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()
	if f.Handler == nil {
		return FakeResult{}
	}
	return f.Handler(cmd)
}
