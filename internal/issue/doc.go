// SPDX-License-Identifier: MPL-2.0

// Package issue decorates fatal errors for the command line: an
// ActionableError names the failed operation with hints, and the catalog
// holds Markdown help for the known failures.
package issue
