package indexer

import (
	"testing"

	"github.com/defistate/defistate-pool-go/fixedpoint"
	cpamm "github.com/defistate/defistate-pool-go/protocols/cpamm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexableHolders(t *testing.T) {
	alice := common.HexToAddress("0x01")
	bob := common.HexToAddress("0x02")
	carol := common.HexToAddress("0x03")

	state := cpamm.NewState(common.HexToAddress("0xaa"))
	state.BaseReserve = fixedpoint.Units(20)
	state.TokenReserve = fixedpoint.Units(40)
	state.TotalShares = fixedpoint.Units(200)
	state.Shares[alice] = fixedpoint.Units(50)
	state.Shares[bob] = fixedpoint.Units(100)
	state.Shares[carol] = fixedpoint.Units(50)

	indexed, err := NewIndexableHolders(state)
	require.NoError(t, err)

	t.Run("Successful Lookups", func(t *testing.T) {
		h, found := indexed.GetByAddress(bob)
		require.True(t, found)
		assert.Equal(t, "100", h.Shares.Format())
		assert.Equal(t, "10", h.BaseClaim.Format())
		assert.Equal(t, "20", h.TokenClaim.Format())
	})

	t.Run("Not Found Lookups", func(t *testing.T) {
		_, found := indexed.GetByAddress(common.HexToAddress("0x99"))
		assert.False(t, found)
	})

	t.Run("All is ordered and a copy", func(t *testing.T) {
		all := indexed.All()
		require.Len(t, all, 3)
		assert.Equal(t, bob, all[0].Address)
		assert.Equal(t, alice, all[1].Address, "ties are ordered by address")
		assert.Equal(t, carol, all[2].Address)

		all[0].Shares = fixedpoint.Zero
		again, _ := indexed.GetByAddress(bob)
		assert.False(t, again.Shares.IsZero(), "modifying the returned slice should not affect the index")
	})

	t.Run("Edge Case - Empty Pool", func(t *testing.T) {
		empty, err := New().Index(cpamm.NewState(common.HexToAddress("0xaa")))
		require.NoError(t, err)
		assert.Len(t, empty.All(), 0)
		assert.NotNil(t, empty.All(), "All() should return an empty slice, not nil")
	})
}
