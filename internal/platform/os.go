// SPDX-License-Identifier: MPL-2.0

// Package platform centralizes the OS-dependent names used when laying out
// and driving a Python virtual environment.
package platform

import (
	"path/filepath"
	goruntime "runtime"
	"strings"
)

// OS name constants for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// IsWindows reports whether the running process is a Windows one.
func IsWindows() bool { return goruntime.GOOS == Windows }

// BinDirName returns the venv binaries folder name for the given GOOS.
func BinDirName(goos string) string {
	if goos == Windows {
		return "Scripts"
	}
	return "bin"
}

// InterpreterName returns the interpreter executable name found in a venv
// binaries folder for the given GOOS.
func InterpreterName(goos string) string {
	if goos == Windows {
		return "python.exe"
	}
	return "python"
}

// SystemInterpreters lists the interpreter names probed on PATH, in order,
// when no environment exists yet.
func SystemInterpreters(goos string) []string {
	if goos == Windows {
		return []string{"python.exe", "py.exe", "python3.exe"}
	}
	return []string{"python3", "python"}
}

// ToSlashPath converts a native path into the form understood by a POSIX
// shell running on the same host ("C:\x\y" becomes "/c/x/y" on Windows).
func ToSlashPath(p string) string {
	vol := filepath.VolumeName(p)
	rest := filepath.ToSlash(strings.TrimPrefix(p, vol))
	if len(vol) == 2 && vol[1] == ':' {
		return "/" + strings.ToLower(vol[:1]) + rest
	}
	return filepath.ToSlash(vol) + rest
}
