// SPDX-License-Identifier: MPL-2.0

package protocol

import (
	"errors"
	"math/rand/v2"

	"golang.org/x/exp/slices"
)

// ErrSlotsExhausted is returned when no free command slot was found.
var ErrSlotsExhausted = errors.New("no free command script slot")

// SlotAllocator picks a random free command slot.
//
// Free means Taken reported false at probe time. Two processes probing the
// same slot at once can both see it free: this is best-effort mutual
// exclusion, not a lock.
type SlotAllocator struct {
	Range SlotRange
	// MaxAttempts bounds the number of probes; zero means the range size.
	MaxAttempts int
	// Taken reports whether slot is already in use.
	Taken func(slot int) (bool, error)
	// IntN returns a random number in [0, n); nil uses math/rand/v2.
	IntN func(n int) int
}

// Allocate returns a free slot. Every probed slot leaves the pool, so the
// loop ends after at most MaxAttempts probes.
func (a SlotAllocator) Allocate() (int, error) {
	if err := a.Range.Validate(); err != nil {
		return 0, err
	}
	intN := a.IntN
	if intN == nil {
		intN = rand.IntN
	}
	attempts := a.MaxAttempts
	if attempts <= 0 || attempts > a.Range.Size() {
		attempts = a.Range.Size()
	}

	pool := make([]int, 0, a.Range.Size())
	for slot := a.Range.First; slot <= a.Range.Last; slot++ {
		pool = append(pool, slot)
	}

	for ; attempts > 0 && len(pool) > 0; attempts-- {
		i := intN(len(pool))
		slot := pool[i]
		taken, err := a.Taken(slot)
		if err != nil {
			return 0, err
		}
		if !taken {
			return slot, nil
		}
		pool = slices.Delete(pool, i, i+1)
	}
	return 0, ErrSlotsExhausted
}
