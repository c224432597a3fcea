package cpamm

import (
	"errors"
	"fmt"

	"github.com/defistate/defistate-pool-go/fixedpoint"
)

// ErrInconsistentState is returned when a patched state violates the pool
// invariants.
var ErrInconsistentState = errors.New("inconsistent pool state")

// Patcher constructs a new pool state by applying diff to prevState.
// prevState is never mutated; the result shares no memory with it.
func Patcher(prevState State, diff StateDiff) (State, error) {
	newState := prevState.Clone()

	if diff.BaseReserve != nil {
		newState.BaseReserve = *diff.BaseReserve
	}
	if diff.TokenReserve != nil {
		newState.TokenReserve = *diff.TokenReserve
	}
	if diff.TotalShares != nil {
		newState.TotalShares = *diff.TotalShares
	}

	for _, holder := range diff.ShareDeletions {
		delete(newState.Shares, holder)
	}
	for holder, balance := range diff.ShareUpdates {
		if balance.IsZero() {
			delete(newState.Shares, holder)
			continue
		}
		newState.Shares[holder] = balance
	}

	if err := Validate(newState); err != nil {
		return State{}, err
	}
	return newState, nil
}

// Validate checks that s is either fully empty or fully seeded and that the
// share balances sum to TotalShares.
func Validate(s State) error {
	baseZero, tokenZero, sharesZero := s.BaseReserve.IsZero(), s.TokenReserve.IsZero(), s.TotalShares.IsZero()
	if baseZero != tokenZero || baseZero != sharesZero {
		return fmt.Errorf("%w: base=%s token=%s shares=%s must be all zero or all non-zero",
			ErrInconsistentState, s.BaseReserve, s.TokenReserve, s.TotalShares)
	}

	sum := fixedpoint.Zero
	for holder, balance := range s.Shares {
		var err error
		sum, err = sum.Add(balance)
		if err != nil {
			return fmt.Errorf("%w: summing shares of %s: %w", ErrInconsistentState, holder.Hex(), err)
		}
	}
	if !sum.Eq(s.TotalShares) {
		return fmt.Errorf("%w: share balances sum to %s, total is %s", ErrInconsistentState, sum, s.TotalShares)
	}
	return nil
}
