// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// MustMkdirAll creates a directory along with any necessary parents.
// The test fails immediately if the operation fails.
func MustMkdirAll(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}

// MustWriteFile writes content to path, creating parent directories.
func MustWriteFile(t testing.TB, path, content string) {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// MustReadFile returns the content of path.
func MustReadFile(t testing.TB, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(b)
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// MustEvalSymlinks resolves symlinks in path (t.TempDir lives behind one on
// macOS).
func MustEvalSymlinks(t testing.TB, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatalf("failed to resolve %s: %v", path, err)
	}
	return resolved
}

// MustFakeEnv lays out a minimal virtual environment under root: a binaries
// folder holding an interpreter placeholder and a stock activate script, plus
// a pyvenv.cfg with the given content. It returns the binaries folder.
func MustFakeEnv(t testing.TB, root, binDir, pyvenvCfg string) string {
	t.Helper()
	bin := filepath.Join(root, binDir)
	MustWriteFile(t, filepath.Join(root, "pyvenv.cfg"), pyvenvCfg)
	MustWriteFile(t, filepath.Join(bin, "python"), "#!/bin/sh\n")
	MustWriteFile(t, filepath.Join(bin, "activate"), "# stock activate\n")
	return bin
}
