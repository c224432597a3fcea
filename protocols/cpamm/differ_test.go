package cpamm

import (
	"testing"

	"github.com/defistate/defistate-pool-go/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffer(t *testing.T) {
	t.Run("identical states produce an empty diff", func(t *testing.T) {
		diff := Differ(seededState(), seededState())
		assert.True(t, diff.IsEmpty())
	})

	t.Run("reserve changes are reported", func(t *testing.T) {
		old := seededState()
		updated := old.Clone()
		updated.TokenReserve = fixedpoint.Units(11)

		diff := Differ(old, updated)
		require.NotNil(t, diff.TokenReserve)
		assert.True(t, diff.TokenReserve.Eq(fixedpoint.Units(11)))
		assert.Nil(t, diff.BaseReserve)
		assert.Nil(t, diff.TotalShares)
		assert.Empty(t, diff.ShareUpdates)
	})

	t.Run("holder additions and deletions", func(t *testing.T) {
		old := seededState()
		updated := old.Clone()
		delete(updated.Shares, alice)
		updated.Shares[bob] = fixedpoint.Units(100)

		diff := Differ(old, updated)
		assert.Equal(t, []common.Address{alice}, diff.ShareDeletions)
		assert.True(t, diff.ShareUpdates[bob].Eq(fixedpoint.Units(100)))
	})

	t.Run("diff then patch reproduces the new state", func(t *testing.T) {
		old := seededState()
		updated := old.Clone()
		updated.BaseReserve = fixedpoint.Units(20)
		updated.TokenReserve = fixedpoint.Units(20)
		updated.TotalShares = fixedpoint.Units(200)
		updated.Shares[bob] = fixedpoint.Units(100)

		patched, err := Patcher(old, Differ(old, updated))
		require.NoError(t, err)
		assert.Equal(t, updated, patched)
	})
}

