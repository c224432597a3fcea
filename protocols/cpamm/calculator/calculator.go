package calculator

import (
	"errors"
	"fmt"

	"github.com/defistate/defistate-pool-go/fixedpoint"
	cpamm "github.com/defistate/defistate-pool-go/protocols/cpamm"
)

const (
	// DefaultBootstrapMultiplier is the number of shares minted per base unit
	// on the first deposit into an empty pool.
	DefaultBootstrapMultiplier uint64 = 10
)

var (
	// DefaultFeeRate is the 3% trading fee, in fixed-point.
	DefaultFeeRate = fixedpoint.MustParseUnits("0.03")

	// ErrInvalidAmount is returned for a zero input or when arithmetic on the
	// given quantities would overflow or underflow.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientLiquidity is returned when the reserves cannot support
	// the requested operation.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInvalidParams is returned for an out-of-range fee rate or multiplier.
	ErrInvalidParams = errors.New("invalid pool parameters")
)

// Direction identifies which asset is sold into the pool.
type Direction uint8

const (
	// TokenToBase sells token for base currency.
	TokenToBase Direction = iota
	// BaseToToken sells base currency for token.
	BaseToToken
)

func (d Direction) String() string {
	switch d {
	case TokenToBase:
		return "token_to_base"
	case BaseToToken:
		return "base_to_token"
	default:
		return "unknown"
	}
}

// Params are the tunable constants of the pool arithmetic.
type Params struct {
	// FeeRate is the fraction of every swap input retained by the pool,
	// in fixed-point (0.03 * One for 3%).
	FeeRate fixedpoint.Amount
	// BootstrapMultiplier fixes the share price of the first deposit.
	BootstrapMultiplier uint64
}

// DefaultParams returns the 3% fee, 10x bootstrap configuration.
func DefaultParams() Params {
	return Params{
		FeeRate:             DefaultFeeRate,
		BootstrapMultiplier: DefaultBootstrapMultiplier,
	}
}

// Validate checks that FeeRate < One and BootstrapMultiplier > 0.
func (p Params) Validate() error {
	if !p.FeeRate.Lt(fixedpoint.One) {
		return fmt.Errorf("%w: fee rate %s must be below %s", ErrInvalidParams, p.FeeRate.Format(), fixedpoint.One.Format())
	}
	if p.BootstrapMultiplier == 0 {
		return fmt.Errorf("%w: bootstrap multiplier must be positive", ErrInvalidParams)
	}
	return nil
}

func arithmetic(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidAmount, err)
}

// Fee returns dx * feeRate / One.
func Fee(dx, feeRate fixedpoint.Amount) (fixedpoint.Amount, error) {
	fee, err := dx.MulDiv(feeRate, fixedpoint.One)
	if err != nil {
		return fixedpoint.Zero, arithmetic(err)
	}
	return fee, nil
}

// SwapOutput returns the amount dy of y paid out for dx of x, holding
//
//	(x + dx - fee) * (y - dy) = x * y
//
// The fee stays in reserve x, so the invariant grows by the fee's share.
func SwapOutput(x, y, dx, feeRate fixedpoint.Amount) (fixedpoint.Amount, error) {
	if dx.IsZero() {
		return fixedpoint.Zero, fmt.Errorf("%w: input must be positive", ErrInvalidAmount)
	}
	if x.IsZero() || y.IsZero() {
		return fixedpoint.Zero, fmt.Errorf("%w: reserves are empty", ErrInsufficientLiquidity)
	}

	k, err := x.Mul(y)
	if err != nil {
		return fixedpoint.Zero, arithmetic(err)
	}
	fee, err := Fee(dx, feeRate)
	if err != nil {
		return fixedpoint.Zero, err
	}
	denominator, err := x.Add(dx)
	if err != nil {
		return fixedpoint.Zero, arithmetic(err)
	}
	denominator, err = denominator.Sub(fee)
	if err != nil {
		return fixedpoint.Zero, arithmetic(err)
	}
	remaining, err := k.Div(denominator)
	if err != nil {
		return fixedpoint.Zero, arithmetic(err)
	}
	if remaining.IsZero() {
		return fixedpoint.Zero, fmt.Errorf("%w: input %s would drain reserve %s", ErrInsufficientLiquidity, dx, y)
	}
	dy, err := y.Sub(remaining)
	if err != nil {
		return fixedpoint.Zero, arithmetic(err)
	}
	return dy, nil
}

// GetReserves returns the (input, output) reserves for a swap direction.
func GetReserves(direction Direction, state cpamm.State) (reserveIn, reserveOut fixedpoint.Amount, err error) {
	switch direction {
	case TokenToBase:
		return state.TokenReserve, state.BaseReserve, nil
	case BaseToToken:
		return state.BaseReserve, state.TokenReserve, nil
	}
	return fixedpoint.Zero, fixedpoint.Zero, fmt.Errorf("%w: unknown swap direction %d", ErrInvalidParams, direction)
}

// GetAmountOut prices a swap against state without changing it.
// Inputs larger than the input-side reserve are rejected.
func GetAmountOut(amountIn fixedpoint.Amount, direction Direction, state cpamm.State, params Params) (fixedpoint.Amount, error) {
	if amountIn.IsZero() {
		return fixedpoint.Zero, fmt.Errorf("%w: input must be positive", ErrInvalidAmount)
	}
	reserveIn, reserveOut, err := GetReserves(direction, state)
	if err != nil {
		return fixedpoint.Zero, err
	}
	if !state.IsSeeded() {
		return fixedpoint.Zero, fmt.Errorf("%w: pool has no liquidity", ErrInsufficientLiquidity)
	}
	if amountIn.Gt(reserveIn) {
		return fixedpoint.Zero, fmt.Errorf("%w: input %s exceeds reserve %s", ErrInsufficientLiquidity, amountIn, reserveIn)
	}
	amountOut, err := SwapOutput(reserveIn, reserveOut, amountIn, params.FeeRate)
	if err != nil {
		return fixedpoint.Zero, err
	}
	if err := checkInvariant(reserveIn, reserveOut, amountIn, amountOut, params.FeeRate); err != nil {
		return fixedpoint.Zero, err
	}
	return amountOut, nil
}

// checkInvariant rejects swaps whose rounding would shrink the reserve
// product, and fee-bearing swaps too small to pay any fee.
func checkInvariant(reserveIn, reserveOut, amountIn, amountOut, feeRate fixedpoint.Amount) error {
	if !feeRate.IsZero() {
		fee, err := Fee(amountIn, feeRate)
		if err != nil {
			return err
		}
		if fee.IsZero() {
			return fmt.Errorf("%w: input %s too small to pay a fee", ErrInvalidAmount, amountIn)
		}
	}
	k, err := reserveIn.Mul(reserveOut)
	if err != nil {
		return arithmetic(err)
	}
	newIn, err := reserveIn.Add(amountIn)
	if err != nil {
		return arithmetic(err)
	}
	newOut, err := reserveOut.Sub(amountOut)
	if err != nil {
		return arithmetic(err)
	}
	kAfter, err := newIn.Mul(newOut)
	if err != nil {
		return arithmetic(err)
	}
	if kAfter.Lt(k) {
		return fmt.Errorf("%w: input %s too small to preserve the invariant", ErrInvalidAmount, amountIn)
	}
	return nil
}

// SimulateSwap returns the swap output and the pool state after the swap.
// The returned state shares no memory with state.
func SimulateSwap(amountIn fixedpoint.Amount, direction Direction, state cpamm.State, params Params) (fixedpoint.Amount, cpamm.State, error) {
	amountOut, err := GetAmountOut(amountIn, direction, state, params)
	if err != nil {
		return fixedpoint.Zero, cpamm.State{}, err
	}

	reserveIn, reserveOut, _ := GetReserves(direction, state)
	newIn, err := reserveIn.Add(amountIn)
	if err != nil {
		return fixedpoint.Zero, cpamm.State{}, arithmetic(err)
	}
	newOut, err := reserveOut.Sub(amountOut)
	if err != nil {
		return fixedpoint.Zero, cpamm.State{}, arithmetic(err)
	}

	next := state.Clone()
	if direction == TokenToBase {
		next.TokenReserve, next.BaseReserve = newIn, newOut
	} else {
		next.BaseReserve, next.TokenReserve = newIn, newOut
	}
	return amountOut, next, nil
}

// BootstrapShares returns the shares minted by the first deposit.
func BootstrapShares(baseIn fixedpoint.Amount, multiplier uint64) (fixedpoint.Amount, error) {
	shares, err := baseIn.MulUint64(multiplier)
	if err != nil {
		return fixedpoint.Zero, arithmetic(err)
	}
	return shares, nil
}

// RequiredTokens returns baseIn * tokenReserve / baseReserve, the token
// amount that keeps the reserve ratio unchanged.
func RequiredTokens(baseIn, baseReserve, tokenReserve fixedpoint.Amount) (fixedpoint.Amount, error) {
	if baseReserve.IsZero() {
		return fixedpoint.Zero, fmt.Errorf("%w: pool has no liquidity", ErrInsufficientLiquidity)
	}
	required, err := baseIn.MulDiv(tokenReserve, baseReserve)
	if err != nil {
		return fixedpoint.Zero, arithmetic(err)
	}
	return required, nil
}

// SharesToMint returns totalShares * baseIn / baseReserve.
func SharesToMint(baseIn, baseReserve, totalShares fixedpoint.Amount) (fixedpoint.Amount, error) {
	if baseReserve.IsZero() {
		return fixedpoint.Zero, fmt.Errorf("%w: pool has no liquidity", ErrInsufficientLiquidity)
	}
	minted, err := totalShares.MulDiv(baseIn, baseReserve)
	if err != nil {
		return fixedpoint.Zero, arithmetic(err)
	}
	return minted, nil
}

// Withdrawal returns the base and token paid out for burning shares.
func Withdrawal(shares fixedpoint.Amount, state cpamm.State) (baseOut, tokenOut fixedpoint.Amount, err error) {
	if state.TotalShares.IsZero() {
		return fixedpoint.Zero, fixedpoint.Zero, fmt.Errorf("%w: pool has no liquidity", ErrInsufficientLiquidity)
	}
	if shares.Gt(state.TotalShares) {
		return fixedpoint.Zero, fixedpoint.Zero, fmt.Errorf("%w: %s shares exceed total %s", ErrInsufficientLiquidity, shares, state.TotalShares)
	}
	baseOut, err = state.BaseReserve.MulDiv(shares, state.TotalShares)
	if err != nil {
		return fixedpoint.Zero, fixedpoint.Zero, arithmetic(err)
	}
	tokenOut, err = state.TokenReserve.MulDiv(shares, state.TotalShares)
	if err != nil {
		return fixedpoint.Zero, fixedpoint.Zero, arithmetic(err)
	}
	return baseOut, tokenOut, nil
}

// Price returns baseReserve * One / tokenReserve, the marginal base price
// of one token.
func Price(state cpamm.State) (fixedpoint.Amount, error) {
	if !state.IsSeeded() || state.TokenReserve.IsZero() {
		return fixedpoint.Zero, fmt.Errorf("%w: pool has no liquidity", ErrInsufficientLiquidity)
	}
	price, err := state.BaseReserve.MulDiv(fixedpoint.One, state.TokenReserve)
	if err != nil {
		return fixedpoint.Zero, arithmetic(err)
	}
	return price, nil
}
