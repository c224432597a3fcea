// Package ledger defines the asset transfer service the pool settles against.
package ledger

import (
	"context"
	"errors"

	"github.com/defistate/defistate-pool-go/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
)

// Asset identifies a transferable asset by its contract address.
type Asset = common.Address

// Base is the native value-transfer asset. It needs no allowance.
var Base = Asset{}

var (
	// ErrInsufficientBalance is returned when a holder cannot cover a debit.
	ErrInsufficientBalance = errors.New("transfer amount exceeds balance")
	// ErrInsufficientAllowance is returned when a pull exceeds the approved allowance.
	ErrInsufficientAllowance = errors.New("transfer amount exceeds allowance")
)

// Kind tells a ledger whether a transfer is pulled by the receiver under an
// allowance or pushed by the sender.
type Kind uint8

const (
	// In pulls funds from From into To; non-base assets consume allowance
	// granted by From to To.
	In Kind = iota
	// Out pushes funds from From to To.
	Out
)

// Transfer is one asset movement.
type Transfer struct {
	Kind   Kind
	Asset  Asset
	From   common.Address
	To     common.Address
	Amount fixedpoint.Amount
}

// Ledger is the custody service the pool moves assets through.
type Ledger interface {
	BalanceOf(ctx context.Context, asset Asset, holder common.Address) (fixedpoint.Amount, error)
	Allowance(ctx context.Context, asset Asset, owner, spender common.Address) (fixedpoint.Amount, error)
	// TransferIn pulls amount of asset from `from` into `to`'s custody.
	TransferIn(ctx context.Context, asset Asset, from, to common.Address, amount fixedpoint.Amount) error
	// TransferOut pays amount of asset from `from`'s custody to `to`.
	TransferOut(ctx context.Context, asset Asset, from, to common.Address, amount fixedpoint.Amount) error
}

// Settler is implemented by ledgers that can apply a batch of transfers
// all-or-nothing.
type Settler interface {
	Settle(ctx context.Context, transfers []Transfer) error
}

// Apply performs a single transfer through l.
func Apply(ctx context.Context, l Ledger, t Transfer) error {
	if t.Kind == In {
		return l.TransferIn(ctx, t.Asset, t.From, t.To, t.Amount)
	}
	return l.TransferOut(ctx, t.Asset, t.From, t.To, t.Amount)
}

// Reverse returns the transfer that undoes t. Allowance consumed by a pull
// is not restored.
func Reverse(t Transfer) Transfer {
	return Transfer{
		Kind:   Out,
		Asset:  t.Asset,
		From:   t.To,
		To:     t.From,
		Amount: t.Amount,
	}
}
