package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/defistate/defistate-pool-go/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	method string
	asset  Asset
	from   common.Address
	to     common.Address
	amount fixedpoint.Amount
}

// recordingLedger records every transfer and fails with err when set.
type recordingLedger struct {
	calls []call
	err   error
}

func (l *recordingLedger) BalanceOf(context.Context, Asset, common.Address) (fixedpoint.Amount, error) {
	return fixedpoint.Zero, nil
}

func (l *recordingLedger) Allowance(context.Context, Asset, common.Address, common.Address) (fixedpoint.Amount, error) {
	return fixedpoint.Zero, nil
}

func (l *recordingLedger) TransferIn(_ context.Context, asset Asset, from, to common.Address, amount fixedpoint.Amount) error {
	l.calls = append(l.calls, call{"in", asset, from, to, amount})
	return l.err
}

func (l *recordingLedger) TransferOut(_ context.Context, asset Asset, from, to common.Address, amount fixedpoint.Amount) error {
	l.calls = append(l.calls, call{"out", asset, from, to, amount})
	return l.err
}

var (
	token  = common.HexToAddress("0xaa")
	holder = common.HexToAddress("0x01")
	pool   = common.HexToAddress("0x0f")
)

func TestReverse(t *testing.T) {
	testCases := []struct {
		name     string
		transfer Transfer
	}{
		{name: "pull becomes a push back", transfer: Transfer{Kind: In, Asset: token, From: holder, To: pool, Amount: fixedpoint.Units(3)}},
		{name: "push is undone by a push", transfer: Transfer{Kind: Out, Asset: Base, From: pool, To: holder, Amount: fixedpoint.Units(1)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			undo := Reverse(tc.transfer)
			assert.Equal(t, Out, undo.Kind)
			assert.Equal(t, tc.transfer.Asset, undo.Asset)
			assert.Equal(t, tc.transfer.To, undo.From)
			assert.Equal(t, tc.transfer.From, undo.To)
			assert.True(t, undo.Amount.Eq(tc.transfer.Amount))
		})
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	t.Run("dispatches by kind", func(t *testing.T) {
		l := &recordingLedger{}
		in := Transfer{Kind: In, Asset: token, From: holder, To: pool, Amount: fixedpoint.Units(2)}
		require.NoError(t, Apply(ctx, l, in))
		require.NoError(t, Apply(ctx, l, Reverse(in)))

		require.Len(t, l.calls, 2)
		assert.Equal(t, call{"in", token, holder, pool, fixedpoint.Units(2)}, l.calls[0])
		assert.Equal(t, call{"out", token, pool, holder, fixedpoint.Units(2)}, l.calls[1])
	})

	t.Run("returns the ledger error", func(t *testing.T) {
		rejected := errors.New("rejected")
		l := &recordingLedger{err: rejected}
		err := Apply(ctx, l, Transfer{Kind: Out, Asset: Base, From: pool, To: holder, Amount: fixedpoint.One})
		assert.ErrorIs(t, err, rejected)
	})
}
