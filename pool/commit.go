package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/defistate/defistate-pool-go/events"
	"github.com/defistate/defistate-pool-go/fixedpoint"
	"github.com/defistate/defistate-pool-go/ledger"
	cpamm "github.com/defistate/defistate-pool-go/protocols/cpamm"
	"github.com/defistate/defistate-pool-go/protocols/cpamm/calculator"
)

// commit settles transfers and atomically replaces prev with next.
// It must be called with p.mu held.
func (p *Pool) commit(ctx context.Context, op string, prev, next cpamm.State, transfers []ledger.Transfer, ev events.Event) error {
	diff := cpamm.Differ(prev, next)
	patched, err := cpamm.Patcher(prev, diff)
	if err != nil {
		// The operation computed a state that breaks the pool invariants.
		p.logger.Error("Refusing to commit inconsistent pool state", "op", op, "error", err)
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.preflight(ctx, transfers); err != nil {
		return err
	}
	if err := p.settle(ctx, transfers); err != nil {
		return err
	}

	p.state.Store(&patched)
	p.metrics.SetReserves(patched.BaseReserve, patched.TokenReserve, patched.TotalShares)
	p.logger.Info("Pool state committed",
		"op", op,
		"base_reserve", patched.BaseReserve.String(),
		"token_reserve", patched.TokenReserve.String(),
		"total_shares", patched.TotalShares.String(),
		"share_updates", len(diff.ShareUpdates),
		"share_deletions", len(diff.ShareDeletions),
	)
	p.sink.Emit(ev)
	return nil
}

// preflight checks that every pull is covered by the sender's balance and,
// for the token, by its allowance to the pool.
func (p *Pool) preflight(ctx context.Context, transfers []ledger.Transfer) error {
	for _, t := range transfers {
		if t.Kind != ledger.In || t.Amount.IsZero() {
			continue
		}
		balance, err := p.ledger.BalanceOf(ctx, t.Asset, t.From)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransferRejected, err)
		}
		if balance.Lt(t.Amount) {
			return fmt.Errorf("%w: %w: %s holds %s of %s, needs %s", ErrTransferRejected, ledger.ErrInsufficientBalance,
				t.From.Hex(), balance.Format(), t.Asset.Hex(), t.Amount.Format())
		}
		if t.Asset == ledger.Base {
			continue
		}
		allowance, err := p.ledger.Allowance(ctx, t.Asset, t.From, t.To)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransferRejected, err)
		}
		if allowance.Lt(t.Amount) {
			return fmt.Errorf("%w: %w: %s approved %s of %s, needs %s", ErrTransferRejected, ledger.ErrInsufficientAllowance,
				t.From.Hex(), allowance.Format(), t.Asset.Hex(), t.Amount.Format())
		}
	}
	return nil
}

// settle applies transfers as one batch when the ledger supports it.
// Otherwise transfers run in order and completed ones are reversed on failure.
func (p *Pool) settle(ctx context.Context, transfers []ledger.Transfer) error {
	pending := make([]ledger.Transfer, 0, len(transfers))
	for _, t := range transfers {
		if !t.Amount.IsZero() {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	if settler, ok := p.ledger.(ledger.Settler); ok {
		if err := settler.Settle(ctx, pending); err != nil {
			return fmt.Errorf("%w: %w", ErrTransferRejected, err)
		}
		return nil
	}

	for i, t := range pending {
		if err := ledger.Apply(ctx, p.ledger, t); err != nil {
			p.rollback(ctx, pending[:i])
			return fmt.Errorf("%w: %w", ErrTransferRejected, err)
		}
	}
	return nil
}

func (p *Pool) rollback(ctx context.Context, done []ledger.Transfer) {
	ctx = context.WithoutCancel(ctx)
	for i := len(done) - 1; i >= 0; i-- {
		undo := ledger.Reverse(done[i])
		if err := ledger.Apply(ctx, p.ledger, undo); err != nil {
			p.logger.Error("Failed to reverse transfer",
				"asset", undo.Asset.Hex(),
				"from", undo.From.Hex(),
				"to", undo.To.Hex(),
				"amount", undo.Amount.String(),
				"error", err,
			)
		}
	}
}

func (p *Pool) observe(op string, start time.Time, err error) {
	p.metrics.ObserveOperation(op, start, reason(err))
	if err != nil {
		p.logger.Debug("Pool operation rejected", "op", op, "error", err)
	}
}

func (p *Pool) recordSwap(asset string, amountIn fixedpoint.Amount) {
	fee, err := calculator.Fee(amountIn, p.params.FeeRate)
	if err != nil {
		fee = fixedpoint.Zero
	}
	p.metrics.ObserveSwap(asset, amountIn, fee)
}
