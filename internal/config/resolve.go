// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"regexp"
)

// maxResolvePasses bounds placeholder substitution. Each pass replaces every
// placeholder present, so only an environment variable whose value keeps
// reintroducing placeholders can reach it.
const maxResolvePasses = 32

var (
	// ErrUnresolvedVariable is returned when a placeholder names an undefined
	// environment variable.
	ErrUnresolvedVariable = errors.New("unresolved environment variable")
	// ErrResolutionLoop is returned when substitution does not converge.
	ErrResolutionLoop = errors.New("placeholder resolution does not converge")

	placeholderPattern = regexp.MustCompile(`\$\{([a-zA-Z0-9_]+)\}`)
)

// UnresolvedVariableError names the undefined variable.
type UnresolvedVariableError struct {
	Name string
}

// Error implements the error interface.
func (e *UnresolvedVariableError) Error() string {
	return fmt.Sprintf("unknown environment variable referenced: %s", e.Name)
}

// Unwrap returns ErrUnresolvedVariable.
func (e *UnresolvedVariableError) Unwrap() error { return ErrUnresolvedVariable }

// Resolve substitutes ${NAME} placeholders in value with lookup(NAME),
// repeatedly, until none remains. An undefined variable is an error; it is
// never replaced by an empty string.
func Resolve(value string, lookup func(string) (string, bool)) (string, error) {
	for range maxResolvePasses {
		if !placeholderPattern.MatchString(value) {
			return value, nil
		}

		var missing error
		value = placeholderPattern.ReplaceAllStringFunc(value, func(m string) string {
			name := placeholderPattern.FindStringSubmatch(m)[1]
			v, ok := lookup(name)
			if !ok && missing == nil {
				missing = &UnresolvedVariableError{Name: name}
			}
			return v
		})
		if missing != nil {
			return "", missing
		}
	}
	return "", fmt.Errorf("%w: %q", ErrResolutionLoop, value)
}
