// SPDX-License-Identifier: MPL-2.0

// Package protocol defines the return-code channel between the bootstrap
// loader and the manager process.
//
// The manager never spawns the user's shell itself: it exits with a code the
// loader decodes into an Outcome. StartShell asks for an interactive shell;
// a code inside the slot range asks to run the command script generated at
// that slot; anything else is a plain exit status.
//
// Both sides must agree on these constants. A loader script left in a
// project by an older buildenv release talks to whatever manager is
// installed; nothing negotiates the protocol version.
package protocol

import (
	"errors"
	"fmt"
)

const (
	// StartShell is the reserved code asking the loader for an interactive shell.
	StartShell ExitCode = 100
	// FirstSlot is the lowest command script slot.
	FirstSlot = 101
	// LastSlot is the highest command script slot.
	LastSlot = 255
)

const (
	// Completed means the manager finished; Code is the final exit status.
	Completed OutcomeKind = iota
	// SpawnShell asks the loader to start an interactive shell.
	SpawnShell
	// RunScript asks the loader to run the command script at Slot.
	RunScript
)

// ErrInvalidSlotRange is returned for a slot range that is empty or
// overlaps the reserved codes.
var ErrInvalidSlotRange = errors.New("invalid command slot range")

type (
	// OutcomeKind tags an Outcome.
	OutcomeKind int

	// Outcome is what a manager invocation asks its loader to do.
	Outcome struct {
		Kind OutcomeKind
		// Slot is the command script slot, for RunScript.
		Slot int
		// Code is the exit status, for Completed.
		Code ExitCode
	}

	// SlotRange is the inclusive range of codes carrying a command slot.
	SlotRange struct {
		First int
		Last  int
	}

	// InvalidSlotRangeError reports a rejected SlotRange.
	InvalidSlotRangeError struct {
		Value SlotRange
	}
)

// DefaultSlots is the slot range used by buildenv.
var DefaultSlots = SlotRange{First: FirstSlot, Last: LastSlot}

// Error implements the error interface.
func (e *InvalidSlotRangeError) Error() string {
	return fmt.Sprintf("invalid command slot range %d..%d (must be within %d..255)",
		e.Value.First, e.Value.Last, int(StartShell)+1)
}

// Unwrap returns ErrInvalidSlotRange.
func (e *InvalidSlotRangeError) Unwrap() error { return ErrInvalidSlotRange }

// Validate checks that r is non-empty, fits in an exit code and stays clear
// of success and StartShell.
func (r SlotRange) Validate() error {
	if r.First <= int(StartShell) || r.Last > 255 || r.First > r.Last {
		return &InvalidSlotRangeError{Value: r}
	}
	return nil
}

// Contains reports whether code falls in r.
func (r SlotRange) Contains(code int) bool { return code >= r.First && code <= r.Last }

// Size returns the number of slots in r.
func (r SlotRange) Size() int { return r.Last - r.First + 1 }

// Done returns a Completed outcome.
func Done(code ExitCode) Outcome { return Outcome{Kind: Completed, Code: code} }

// Shell returns a SpawnShell outcome.
func Shell() Outcome { return Outcome{Kind: SpawnShell} }

// Script returns a RunScript outcome for slot.
func Script(slot int) Outcome { return Outcome{Kind: RunScript, Slot: slot} }

// ExitCode degrades o into the process exit code carrying it.
func (o Outcome) ExitCode() ExitCode {
	switch o.Kind {
	case SpawnShell:
		return StartShell
	case RunScript:
		return ExitCode(o.Slot)
	default:
		return o.Code
	}
}

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o.Kind {
	case SpawnShell:
		return "spawn shell"
	case RunScript:
		return fmt.Sprintf("run script #%d", o.Slot)
	default:
		return fmt.Sprintf("completed (%s)", o.Code)
	}
}

// Decode interprets a manager exit code. A code outside 0..255 cannot come
// from the protocol and is rejected.
func Decode(code int, slots SlotRange) (Outcome, error) {
	if err := ExitCode(code).Validate(); err != nil {
		return Outcome{}, err
	}
	switch {
	case code == int(StartShell):
		return Shell(), nil
	case slots.Contains(code):
		return Script(code), nil
	default:
		return Done(ExitCode(code)), nil
	}
}
