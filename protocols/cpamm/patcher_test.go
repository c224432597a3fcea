package cpamm

import (
	"testing"

	"github.com/defistate/defistate-pool-go/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	token = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice = common.HexToAddress("0x0000000000000000000000000000000000000001")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

func seededState() State {
	s := NewState(token)
	s.BaseReserve = fixedpoint.Units(10)
	s.TokenReserve = fixedpoint.Units(10)
	s.TotalShares = fixedpoint.Units(100)
	s.Shares[alice] = fixedpoint.Units(100)
	return s
}

func amountPtr(a fixedpoint.Amount) *fixedpoint.Amount { return &a }

func TestPatcher(t *testing.T) {
	t.Run("should seed an empty pool", func(t *testing.T) {
		diff := StateDiff{
			BaseReserve:  amountPtr(fixedpoint.Units(10)),
			TokenReserve: amountPtr(fixedpoint.Units(10)),
			TotalShares:  amountPtr(fixedpoint.Units(100)),
		}
		diff.SetShares(alice, fixedpoint.Units(100))

		newState, err := Patcher(NewState(token), diff)
		require.NoError(t, err)

		assert.True(t, newState.IsSeeded())
		assert.True(t, newState.SharesOf(alice).Eq(fixedpoint.Units(100)))
	})

	t.Run("should handle holder deletion", func(t *testing.T) {
		prev := seededState()
		prev.TotalShares = fixedpoint.Units(200)
		prev.Shares[bob] = fixedpoint.Units(100)

		diff := StateDiff{
			BaseReserve:  amountPtr(fixedpoint.Units(5)),
			TokenReserve: amountPtr(fixedpoint.Units(5)),
			TotalShares:  amountPtr(fixedpoint.Units(100)),
		}
		diff.SetShares(bob, fixedpoint.Zero)

		newState, err := Patcher(prev, diff)
		require.NoError(t, err)

		_, exists := newState.Shares[bob]
		assert.False(t, exists, "zero balances should be removed")
		assert.Len(t, newState.Shares, 1)
	})

	t.Run("should not mutate the previous state", func(t *testing.T) {
		prev := seededState()
		diff := StateDiff{
			TotalShares: amountPtr(fixedpoint.Units(150)),
		}
		diff.SetShares(alice, fixedpoint.Units(150))

		newState, err := Patcher(prev, diff)
		require.NoError(t, err)

		assert.True(t, prev.SharesOf(alice).Eq(fixedpoint.Units(100)), "previous state must be untouched")
		assert.True(t, newState.SharesOf(alice).Eq(fixedpoint.Units(150)))

		newState.Shares[bob] = fixedpoint.Units(1)
		_, leaked := prev.Shares[bob]
		assert.False(t, leaked, "patched state must not share the map")
	})

	t.Run("should reject a partially empty pool", func(t *testing.T) {
		diff := StateDiff{BaseReserve: amountPtr(fixedpoint.Zero)}

		_, err := Patcher(seededState(), diff)
		assert.ErrorIs(t, err, ErrInconsistentState)
	})

	t.Run("should reject shares not summing to total", func(t *testing.T) {
		diff := StateDiff{TotalShares: amountPtr(fixedpoint.Units(101))}

		_, err := Patcher(seededState(), diff)
		assert.ErrorIs(t, err, ErrInconsistentState)
	})

	t.Run("empty diff is identity", func(t *testing.T) {
		prev := seededState()
		newState, err := Patcher(prev, StateDiff{})
		require.NoError(t, err)
		assert.Equal(t, prev, newState)
	})
}
