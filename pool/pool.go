// Package pool implements a constant-product liquidity pool trading one token
// against the base currency.
//
// Every state-changing operation runs under one mutex: it prices itself from a
// single snapshot, settles its transfers through the ledger, then commits the
// resulting state diff and emits its event. A failed operation leaves the
// pool unchanged.
package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/defistate/defistate-pool-go/events"
	"github.com/defistate/defistate-pool-go/fixedpoint"
	"github.com/defistate/defistate-pool-go/ledger"
	"github.com/defistate/defistate-pool-go/metrics"
	cpamm "github.com/defistate/defistate-pool-go/protocols/cpamm"
	"github.com/defistate/defistate-pool-go/protocols/cpamm/calculator"
	"github.com/ethereum/go-ethereum/common"
)

const (
	opAddLiquidity    = "add_liquidity"
	opRemoveLiquidity = "remove_liquidity"
	opTokenToBase     = "token_to_base"
	opBaseToToken     = "base_to_token"
	opTransferShares  = "transfer_shares"
)

// Pool is a concurrency-safe constant-product pool.
type Pool struct {
	mu sync.Mutex

	token   common.Address
	address common.Address
	params  calculator.Params
	ledger  ledger.Ledger
	sink    events.Sink
	logger  Logger
	metrics *metrics.Metrics

	// state holds the last committed snapshot. Snapshots are never mutated
	// after being stored.
	state atomic.Pointer[cpamm.State]
}

// New constructs an empty pool from cfg, returning an error if the config is invalid.
func New(cfg *Config) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	sink := cfg.Sink
	if sink == nil {
		sink = events.Discard
	}

	p := &Pool{
		token:   cfg.Token,
		address: cfg.Address,
		params:  cfg.params(),
		ledger:  cfg.Ledger,
		sink:    sink,
		logger:  cfg.Logger,
		metrics: metrics.New(cfg.Registry, cfg.MetricsNamespace),
	}
	initial := cpamm.NewState(cfg.Token)
	p.state.Store(&initial)
	return p, nil
}

// --- Read Methods ---

// Token returns the traded token.
func (p *Pool) Token() common.Address { return p.token }

// Address returns the pool's custody account.
func (p *Pool) Address() common.Address { return p.address }

// Params returns the fee rate and bootstrap multiplier.
func (p *Pool) Params() calculator.Params { return p.params }

// TotalShares returns the outstanding liquidity shares.
func (p *Pool) TotalShares() fixedpoint.Amount { return p.state.Load().TotalShares }

// SharesOf returns holder's share balance.
func (p *Pool) SharesOf(holder common.Address) fixedpoint.Amount {
	return p.state.Load().SharesOf(holder)
}

// Reserves returns the base and token reserves.
func (p *Pool) Reserves() (base, token fixedpoint.Amount) {
	s := p.state.Load()
	return s.BaseReserve, s.TokenReserve
}

// View returns a deep copy of the last committed state.
func (p *Pool) View() cpamm.State {
	return p.state.Load().Clone()
}

// Price returns the marginal base price of one token.
func (p *Pool) Price() (fixedpoint.Amount, error) {
	s := p.state.Load()
	if !s.IsSeeded() {
		return fixedpoint.Zero, ErrNoLiquidity
	}
	return calculator.Price(*s)
}

// QuoteTokenToBase returns the base paid out for selling tokensIn now.
func (p *Pool) QuoteTokenToBase(tokensIn fixedpoint.Amount) (fixedpoint.Amount, error) {
	return p.quote(tokensIn, calculator.TokenToBase, *p.state.Load())
}

// QuoteBaseToToken returns the token paid out for selling baseIn now.
func (p *Pool) QuoteBaseToToken(baseIn fixedpoint.Amount) (fixedpoint.Amount, error) {
	return p.quote(baseIn, calculator.BaseToToken, *p.state.Load())
}

func (p *Pool) quote(amountIn fixedpoint.Amount, direction calculator.Direction, s cpamm.State) (fixedpoint.Amount, error) {
	if amountIn.IsZero() {
		return fixedpoint.Zero, fmt.Errorf("%w: input must be positive", ErrInvalidAmount)
	}
	if !s.IsSeeded() {
		return fixedpoint.Zero, ErrNoLiquidity
	}
	return calculator.GetAmountOut(amountIn, direction, s, p.params)
}

// --- Write Methods ---

// AddLiquidity deposits baseIn of base currency and the matching token amount,
// capped at maxTokens, and mints shares to provider. The first deposit sets
// the reserves to (baseIn, maxTokens) verbatim.
func (p *Pool) AddLiquidity(ctx context.Context, provider common.Address, maxTokens, baseIn fixedpoint.Amount) (ev events.LiquidityAdded, err error) {
	start := time.Now()
	defer func() { p.observe(opAddLiquidity, start, err) }()

	if baseIn.IsZero() {
		return ev, fmt.Errorf("%w: base amount must be positive", ErrInvalidAmount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prev := *p.state.Load()
	next := prev.Clone()

	var tokenIn, minted fixedpoint.Amount
	if !prev.IsSeeded() {
		if maxTokens.IsZero() {
			return ev, fmt.Errorf("%w: initial token amount must be positive", ErrInvalidAmount)
		}
		tokenIn = maxTokens
		if minted, err = calculator.BootstrapShares(baseIn, p.params.BootstrapMultiplier); err != nil {
			return ev, err
		}
		next.BaseReserve, next.TokenReserve, next.TotalShares = baseIn, tokenIn, minted
	} else {
		if tokenIn, err = calculator.RequiredTokens(baseIn, prev.BaseReserve, prev.TokenReserve); err != nil {
			return ev, err
		}
		if tokenIn.Gt(maxTokens) {
			return ev, fmt.Errorf("%w: deposit requires %s tokens, cap is %s", ErrSlippageExceeded, tokenIn.Format(), maxTokens.Format())
		}
		if minted, err = calculator.SharesToMint(baseIn, prev.BaseReserve, prev.TotalShares); err != nil {
			return ev, err
		}
		if minted.IsZero() {
			return ev, fmt.Errorf("%w: deposit too small to mint shares", ErrInvalidAmount)
		}
		if next.BaseReserve, err = prev.BaseReserve.Add(baseIn); err != nil {
			return ev, arithmetic(err)
		}
		if next.TokenReserve, err = prev.TokenReserve.Add(tokenIn); err != nil {
			return ev, arithmetic(err)
		}
		if next.TotalShares, err = prev.TotalShares.Add(minted); err != nil {
			return ev, arithmetic(err)
		}
	}
	balance, err := prev.SharesOf(provider).Add(minted)
	if err != nil {
		return ev, arithmetic(err)
	}
	next.Shares[provider] = balance

	ev = events.LiquidityAdded{
		Provider:     provider,
		BaseIn:       baseIn,
		TokenIn:      tokenIn,
		SharesMinted: minted,
	}
	transfers := []ledger.Transfer{
		{Kind: ledger.In, Asset: p.token, From: provider, To: p.address, Amount: tokenIn},
		{Kind: ledger.In, Asset: ledger.Base, From: provider, To: p.address, Amount: baseIn},
	}
	if err := p.commit(ctx, opAddLiquidity, prev, next, transfers, ev); err != nil {
		return events.LiquidityAdded{}, err
	}
	return ev, nil
}

// RemoveLiquidity burns shares held by provider and pays out the
// proportional base and token amounts.
func (p *Pool) RemoveLiquidity(ctx context.Context, provider common.Address, shares, minBase, minTokens fixedpoint.Amount) (ev events.LiquidityRemoved, err error) {
	start := time.Now()
	defer func() { p.observe(opRemoveLiquidity, start, err) }()

	if shares.IsZero() {
		return ev, fmt.Errorf("%w: shares must be positive", ErrInvalidAmount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prev := *p.state.Load()
	held := prev.SharesOf(provider)
	if shares.Gt(held) {
		return ev, fmt.Errorf("%w: burning %s, holding %s", ErrInsufficientShares, shares.Format(), held.Format())
	}

	baseOut, tokenOut, err := calculator.Withdrawal(shares, prev)
	if err != nil {
		return ev, err
	}
	if baseOut.IsZero() && tokenOut.IsZero() {
		return ev, fmt.Errorf("%w: burning %s shares pays nothing", ErrInvalidAmount, shares.String())
	}
	if baseOut.Lt(minBase) {
		return ev, fmt.Errorf("%w: base out %s below minimum %s", ErrSlippageExceeded, baseOut.Format(), minBase.Format())
	}
	if tokenOut.Lt(minTokens) {
		return ev, fmt.Errorf("%w: token out %s below minimum %s", ErrSlippageExceeded, tokenOut.Format(), minTokens.Format())
	}

	next := prev.Clone()
	if next.BaseReserve, err = prev.BaseReserve.Sub(baseOut); err != nil {
		return ev, arithmetic(err)
	}
	if next.TokenReserve, err = prev.TokenReserve.Sub(tokenOut); err != nil {
		return ev, arithmetic(err)
	}
	if next.TotalShares, err = prev.TotalShares.Sub(shares); err != nil {
		return ev, arithmetic(err)
	}
	remaining, err := held.Sub(shares)
	if err != nil {
		return ev, arithmetic(err)
	}
	next.Shares[provider] = remaining

	ev = events.LiquidityRemoved{
		Provider:     provider,
		BaseOut:      baseOut,
		TokenOut:     tokenOut,
		SharesBurned: shares,
	}
	transfers := []ledger.Transfer{
		{Kind: ledger.Out, Asset: ledger.Base, From: p.address, To: provider, Amount: baseOut},
		{Kind: ledger.Out, Asset: p.token, From: p.address, To: provider, Amount: tokenOut},
	}
	if err := p.commit(ctx, opRemoveLiquidity, prev, next, transfers, ev); err != nil {
		return events.LiquidityRemoved{}, err
	}
	return ev, nil
}

// TokenToBaseSwap sells tokensIn from seller and pays the base proceeds to seller.
func (p *Pool) TokenToBaseSwap(ctx context.Context, seller common.Address, tokensIn, minBase fixedpoint.Amount) (events.BasePurchase, error) {
	return p.TokenToBaseTransfer(ctx, seller, tokensIn, minBase, seller)
}

// TokenToBaseTransfer sells tokensIn from seller and pays the base proceeds to recipient.
func (p *Pool) TokenToBaseTransfer(ctx context.Context, seller common.Address, tokensIn, minBase fixedpoint.Amount, recipient common.Address) (ev events.BasePurchase, err error) {
	start := time.Now()
	defer func() { p.observe(opTokenToBase, start, err) }()

	p.mu.Lock()
	defer p.mu.Unlock()

	prev := *p.state.Load()
	baseOut, next, err := p.swap(tokensIn, minBase, calculator.TokenToBase, prev)
	if err != nil {
		return ev, err
	}

	ev = events.BasePurchase{
		Seller:       seller,
		TokensSpent:  tokensIn,
		BaseReceived: baseOut,
		Recipient:    recipient,
	}
	transfers := []ledger.Transfer{
		{Kind: ledger.In, Asset: p.token, From: seller, To: p.address, Amount: tokensIn},
		{Kind: ledger.Out, Asset: ledger.Base, From: p.address, To: recipient, Amount: baseOut},
	}
	if err := p.commit(ctx, opTokenToBase, prev, next, transfers, ev); err != nil {
		return events.BasePurchase{}, err
	}
	p.recordSwap(metrics.AssetToken, tokensIn)
	return ev, nil
}

// BaseToTokenSwap sells baseIn from buyer and pays the token proceeds to buyer.
func (p *Pool) BaseToTokenSwap(ctx context.Context, buyer common.Address, baseIn, minTokens fixedpoint.Amount) (events.TokenPurchase, error) {
	return p.BaseToTokenTransfer(ctx, buyer, baseIn, minTokens, buyer)
}

// BaseToTokenTransfer sells baseIn from buyer and pays the token proceeds to recipient.
func (p *Pool) BaseToTokenTransfer(ctx context.Context, buyer common.Address, baseIn, minTokens fixedpoint.Amount, recipient common.Address) (ev events.TokenPurchase, err error) {
	start := time.Now()
	defer func() { p.observe(opBaseToToken, start, err) }()

	p.mu.Lock()
	defer p.mu.Unlock()

	prev := *p.state.Load()
	tokensOut, next, err := p.swap(baseIn, minTokens, calculator.BaseToToken, prev)
	if err != nil {
		return ev, err
	}

	ev = events.TokenPurchase{
		Buyer:          buyer,
		BaseSpent:      baseIn,
		TokensReceived: tokensOut,
		Recipient:      recipient,
	}
	transfers := []ledger.Transfer{
		{Kind: ledger.In, Asset: ledger.Base, From: buyer, To: p.address, Amount: baseIn},
		{Kind: ledger.Out, Asset: p.token, From: p.address, To: recipient, Amount: tokensOut},
	}
	if err := p.commit(ctx, opBaseToToken, prev, next, transfers, ev); err != nil {
		return events.TokenPurchase{}, err
	}
	p.recordSwap(metrics.AssetBase, baseIn)
	return ev, nil
}

// TransferShares moves amount of liquidity shares from one holder to another.
// No assets move and the reserves are untouched.
func (p *Pool) TransferShares(ctx context.Context, from, to common.Address, amount fixedpoint.Amount) (ev events.SharesTransferred, err error) {
	start := time.Now()
	defer func() { p.observe(opTransferShares, start, err) }()

	if amount.IsZero() {
		return ev, fmt.Errorf("%w: shares must be positive", ErrInvalidAmount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prev := *p.state.Load()
	held := prev.SharesOf(from)
	if amount.Gt(held) {
		return ev, fmt.Errorf("%w: transferring %s, holding %s", ErrInsufficientShares, amount.Format(), held.Format())
	}

	next := prev.Clone()
	if from != to {
		if next.Shares[from], err = held.Sub(amount); err != nil {
			return ev, arithmetic(err)
		}
		if next.Shares[to], err = prev.SharesOf(to).Add(amount); err != nil {
			return ev, arithmetic(err)
		}
	}

	ev = events.SharesTransferred{From: from, To: to, Shares: amount}
	if err := p.commit(ctx, opTransferShares, prev, next, nil, ev); err != nil {
		return events.SharesTransferred{}, err
	}
	return ev, nil
}

// swap prices amountIn against prev and returns the output and the post-swap state.
func (p *Pool) swap(amountIn, minOut fixedpoint.Amount, direction calculator.Direction, prev cpamm.State) (fixedpoint.Amount, cpamm.State, error) {
	if amountIn.IsZero() {
		return fixedpoint.Zero, cpamm.State{}, fmt.Errorf("%w: input must be positive", ErrInvalidAmount)
	}
	if !prev.IsSeeded() {
		return fixedpoint.Zero, cpamm.State{}, ErrNoLiquidity
	}
	out, next, err := calculator.SimulateSwap(amountIn, direction, prev, p.params)
	if err != nil {
		return fixedpoint.Zero, cpamm.State{}, err
	}
	if out.Lt(minOut) {
		return fixedpoint.Zero, cpamm.State{}, fmt.Errorf("%w: output %s below minimum %s", ErrSlippageExceeded, out.Format(), minOut.Format())
	}
	return out, next, nil
}

func arithmetic(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidAmount, err)
}
