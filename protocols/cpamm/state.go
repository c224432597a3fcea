package cpamm

import (
	"github.com/defistate/defistate-pool-go/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
)

// State is a snapshot of a constant-product pool: both reserves, the
// outstanding liquidity shares and the per-holder share balances.
type State struct {
	Token        common.Address                       `json:"token"`
	BaseReserve  fixedpoint.Amount                    `json:"baseReserve"`
	TokenReserve fixedpoint.Amount                    `json:"tokenReserve"`
	TotalShares  fixedpoint.Amount                    `json:"totalShares"`
	Shares       map[common.Address]fixedpoint.Amount `json:"shares"`
}

// NewState returns an empty pool state bound to token.
func NewState(token common.Address) State {
	return State{
		Token:  token,
		Shares: make(map[common.Address]fixedpoint.Amount),
	}
}

// IsSeeded reports whether the pool holds liquidity.
func (s State) IsSeeded() bool {
	return !s.TotalShares.IsZero()
}

// SharesOf returns holder's share balance, zero if it holds none.
func (s State) SharesOf(holder common.Address) fixedpoint.Amount {
	return s.Shares[holder]
}

// K returns the invariant product BaseReserve * TokenReserve.
func (s State) K() (fixedpoint.Amount, error) {
	return s.BaseReserve.Mul(s.TokenReserve)
}

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	c := s
	c.Shares = make(map[common.Address]fixedpoint.Amount, len(s.Shares))
	for holder, balance := range s.Shares {
		c.Shares[holder] = balance
	}
	return c
}
