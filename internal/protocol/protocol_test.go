// SPDX-License-Identifier: MPL-2.0

package protocol

import (
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code int
		want Outcome
	}{
		{0, Done(0)},
		{1, Done(1)},
		{99, Done(99)},
		{100, Shell()},
		{101, Script(101)},
		{180, Script(180)},
		{255, Script(255)},
	}

	for _, tt := range tests {
		t.Run(ExitCode(tt.code).String(), func(t *testing.T) {
			t.Parallel()
			got, err := Decode(tt.code, DefaultSlots)
			if err != nil {
				t.Fatalf("Decode(%d) error = %v", tt.code, err)
			}
			if got != tt.want {
				t.Errorf("Decode(%d) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestOutcome_RoundTrip(t *testing.T) {
	t.Parallel()

	for code := 0; code <= 255; code++ {
		o, err := Decode(code, DefaultSlots)
		if err != nil {
			t.Fatalf("Decode(%d) error = %v", code, err)
		}
		if got := int(o.ExitCode()); got != code {
			t.Fatalf("Decode(%d).ExitCode() = %d", code, got)
		}
		if back, _ := Decode(int(o.ExitCode()), DefaultSlots); back != o {
			t.Fatalf("Decode(ExitCode(%v)) = %v", o, back)
		}
	}
}

func TestSlotRange_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		r     SlotRange
		valid bool
	}{
		{"default", DefaultSlots, true},
		{"single", SlotRange{First: 200, Last: 200}, true},
		{"overlaps shell", SlotRange{First: 100, Last: 150}, false},
		{"overlaps success", SlotRange{First: 0, Last: 10}, false},
		{"too high", SlotRange{First: 101, Last: 256}, false},
		{"empty", SlotRange{First: 150, Last: 149}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.r.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidSlotRange) {
				t.Errorf("Validate() error = %v, want ErrInvalidSlotRange", err)
			}
		})
	}
}

func TestDecode_OutOfRange(t *testing.T) {
	t.Parallel()

	for _, code := range []int{-1, 256, 0xC000013A} {
		if _, err := Decode(code, DefaultSlots); !errors.Is(err, ErrInvalidExitCode) {
			t.Errorf("Decode(%d) error = %v, want ErrInvalidExitCode", code, err)
		}
	}
}

func TestExitCode_Validate(t *testing.T) {
	t.Parallel()

	if err := ExitCode(255).Validate(); err != nil {
		t.Errorf("Validate(255) error = %v", err)
	}
	if err := ExitCode(256).Validate(); !errors.Is(err, ErrInvalidExitCode) {
		t.Errorf("Validate(256) error = %v, want ErrInvalidExitCode", err)
	}
	if !ExitCode(0).IsSuccess() {
		t.Error("IsSuccess(0) = false")
	}
}
