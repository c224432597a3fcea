package cpamm

import (
	"github.com/defistate/defistate-pool-go/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
)

// StateDiff describes the changes between two pool states. Nil scalar
// fields are unchanged; ShareUpdates carries the new balance of every
// holder whose balance changed to a non-zero value.
type StateDiff struct {
	BaseReserve    *fixedpoint.Amount                   `json:"baseReserve,omitempty"`
	TokenReserve   *fixedpoint.Amount                   `json:"tokenReserve,omitempty"`
	TotalShares    *fixedpoint.Amount                   `json:"totalShares,omitempty"`
	ShareUpdates   map[common.Address]fixedpoint.Amount `json:"shareUpdates,omitempty"`
	ShareDeletions []common.Address                     `json:"shareDeletions,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d StateDiff) IsEmpty() bool {
	return d.BaseReserve == nil && d.TokenReserve == nil && d.TotalShares == nil &&
		len(d.ShareUpdates) == 0 && len(d.ShareDeletions) == 0
}

// SetShares records holder's new balance. A zero balance becomes a deletion.
func (d *StateDiff) SetShares(holder common.Address, balance fixedpoint.Amount) {
	if balance.IsZero() {
		delete(d.ShareUpdates, holder)
		d.ShareDeletions = append(d.ShareDeletions, holder)
		return
	}
	if d.ShareUpdates == nil {
		d.ShareUpdates = make(map[common.Address]fixedpoint.Amount)
	}
	d.ShareUpdates[holder] = balance
}

// Differ calculates the difference between two pool states.
// Holders missing from new, or holding zero in new, are reported as deletions.
func Differ(old, new State) StateDiff {
	var diff StateDiff

	if !old.BaseReserve.Eq(new.BaseReserve) {
		v := new.BaseReserve
		diff.BaseReserve = &v
	}
	if !old.TokenReserve.Eq(new.TokenReserve) {
		v := new.TokenReserve
		diff.TokenReserve = &v
	}
	if !old.TotalShares.Eq(new.TotalShares) {
		v := new.TotalShares
		diff.TotalShares = &v
	}

	for holder, balance := range new.Shares {
		if balance.IsZero() {
			continue
		}
		if prev, exists := old.Shares[holder]; !exists || !prev.Eq(balance) {
			diff.SetShares(holder, balance)
		}
	}

	for holder, prev := range old.Shares {
		if prev.IsZero() {
			continue
		}
		if balance, exists := new.Shares[holder]; !exists || balance.IsZero() {
			diff.ShareDeletions = append(diff.ShareDeletions, holder)
		}
	}

	return diff
}
