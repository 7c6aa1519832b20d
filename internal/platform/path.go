// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"path/filepath"
	"strings"
)

// Canonical returns p made absolute and, when it exists, symlink-free.
func Canonical(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// RelativeTo returns the path of p relative to parent, and false when p is
// not parent itself or below it. Both are compared in canonical form.
func RelativeTo(parent, p string) (string, bool) {
	rel, err := filepath.Rel(Canonical(parent), Canonical(p))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// IsDescendant reports whether p equals parent or lies below it.
func IsDescendant(parent, p string) bool {
	_, ok := RelativeTo(parent, p)
	return ok
}
