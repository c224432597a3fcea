package pool

import (
	"errors"
	"fmt"

	"github.com/defistate/defistate-pool-go/protocols/cpamm/calculator"
)

var (
	// ErrInvalidAmount is returned for zero inputs and for quantities whose
	// arithmetic would overflow or underflow.
	ErrInvalidAmount = calculator.ErrInvalidAmount
	// ErrInsufficientLiquidity is returned when the reserves cannot support
	// the request.
	ErrInsufficientLiquidity = calculator.ErrInsufficientLiquidity
	// ErrNoLiquidity is returned by swaps, quotes and Price on an unseeded pool.
	ErrNoLiquidity = fmt.Errorf("%w: pool has no liquidity", ErrInsufficientLiquidity)
	// ErrSlippageExceeded is returned when an output falls below the caller's
	// minimum or a required input exceeds the caller's cap.
	ErrSlippageExceeded = errors.New("slippage exceeded")
	// ErrInsufficientShares is returned when a burn or share transfer exceeds
	// the holder's balance.
	ErrInsufficientShares = errors.New("insufficient shares")
	// ErrTransferRejected wraps every failure reported by the ledger.
	ErrTransferRejected = errors.New("transfer rejected")
)

// reason maps an operation error to a metric label.
func reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoLiquidity):
		return "no_liquidity"
	case errors.Is(err, ErrInsufficientLiquidity):
		return "insufficient_liquidity"
	case errors.Is(err, ErrSlippageExceeded):
		return "slippage_exceeded"
	case errors.Is(err, ErrInsufficientShares):
		return "insufficient_shares"
	case errors.Is(err, ErrTransferRejected):
		return "transfer_rejected"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	default:
		return "other"
	}
}
