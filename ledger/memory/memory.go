// Package memory is an in-process ledger with ERC20-style balances and
// allowances. It backs the simulator and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/defistate/defistate-pool-go/fixedpoint"
	"github.com/defistate/defistate-pool-go/ledger"
	"github.com/ethereum/go-ethereum/common"
)

var _ ledger.Ledger = (*Ledger)(nil)
var _ ledger.Settler = (*Ledger)(nil)

type allowanceKey struct {
	asset   ledger.Asset
	owner   common.Address
	spender common.Address
}

type balanceKey struct {
	asset  ledger.Asset
	holder common.Address
}

// Ledger is a concurrency-safe in-memory ledger.
type Ledger struct {
	mu         sync.Mutex
	balances   map[balanceKey]fixedpoint.Amount
	allowances map[allowanceKey]fixedpoint.Amount
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances:   make(map[balanceKey]fixedpoint.Amount),
		allowances: make(map[allowanceKey]fixedpoint.Amount),
	}
}

// Mint credits amount of asset to holder.
func (l *Ledger) Mint(asset ledger.Asset, holder common.Address, amount fixedpoint.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := balanceKey{asset, holder}
	next, err := l.balances[key].Add(amount)
	if err != nil {
		return fmt.Errorf("mint %s to %s: %w", amount, holder.Hex(), err)
	}
	l.balances[key] = next
	return nil
}

// Approve sets the allowance spender may pull from owner. Approving the
// base asset is meaningless and rejected.
func (l *Ledger) Approve(asset ledger.Asset, owner, spender common.Address, amount fixedpoint.Amount) error {
	if asset == ledger.Base {
		return fmt.Errorf("approve: base asset needs no allowance")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.allowances[allowanceKey{asset, owner, spender}] = amount
	return nil
}

// BalanceOf implements ledger.Ledger.
func (l *Ledger) BalanceOf(_ context.Context, asset ledger.Asset, holder common.Address) (fixedpoint.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[balanceKey{asset, holder}], nil
}

// Allowance implements ledger.Ledger.
func (l *Ledger) Allowance(_ context.Context, asset ledger.Asset, owner, spender common.Address) (fixedpoint.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowances[allowanceKey{asset, owner, spender}], nil
}

// TransferIn implements ledger.Ledger.
func (l *Ledger) TransferIn(ctx context.Context, asset ledger.Asset, from, to common.Address, amount fixedpoint.Amount) error {
	return l.Settle(ctx, []ledger.Transfer{{Kind: ledger.In, Asset: asset, From: from, To: to, Amount: amount}})
}

// TransferOut implements ledger.Ledger.
func (l *Ledger) TransferOut(ctx context.Context, asset ledger.Asset, from, to common.Address, amount fixedpoint.Amount) error {
	return l.Settle(ctx, []ledger.Transfer{{Kind: ledger.Out, Asset: asset, From: from, To: to, Amount: amount}})
}

// Settle applies transfers in order. If any transfer fails none of them
// take effect.
func (l *Ledger) Settle(ctx context.Context, transfers []ledger.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balances := make(map[balanceKey]fixedpoint.Amount)
	allowances := make(map[allowanceKey]fixedpoint.Amount)
	balanceOf := func(k balanceKey) fixedpoint.Amount {
		if v, ok := balances[k]; ok {
			return v
		}
		return l.balances[k]
	}

	for _, t := range transfers {
		if t.Kind == ledger.In && t.Asset != ledger.Base {
			key := allowanceKey{t.Asset, t.From, t.To}
			current, ok := allowances[key]
			if !ok {
				current = l.allowances[key]
			}
			remaining, err := current.Sub(t.Amount)
			if err != nil {
				return fmt.Errorf("%w: %s allowed, %s requested", ledger.ErrInsufficientAllowance, current, t.Amount)
			}
			allowances[key] = remaining
		}

		fromKey := balanceKey{t.Asset, t.From}
		fromBalance := balanceOf(fromKey)
		debited, err := fromBalance.Sub(t.Amount)
		if err != nil {
			return fmt.Errorf("%w: %s holds %s, %s requested", ledger.ErrInsufficientBalance, t.From.Hex(), fromBalance, t.Amount)
		}
		balances[fromKey] = debited

		toKey := balanceKey{t.Asset, t.To}
		credited, err := balanceOf(toKey).Add(t.Amount)
		if err != nil {
			return fmt.Errorf("credit %s: %w", t.To.Hex(), err)
		}
		balances[toKey] = credited
	}

	for k, v := range balances {
		l.balances[k] = v
	}
	for k, v := range allowances {
		l.allowances[k] = v
	}
	return nil
}
