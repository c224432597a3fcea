package indexer

import (
	"github.com/defistate/defistate-pool-go/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
)

// Holder is one liquidity provider's position in a pool.
type Holder struct {
	Address common.Address    `json:"address"`
	Shares  fixedpoint.Amount `json:"shares"`
	// BaseClaim and TokenClaim are what burning Shares would pay out.
	BaseClaim  fixedpoint.Amount `json:"baseClaim"`
	TokenClaim fixedpoint.Amount `json:"tokenClaim"`
}

// IndexedHolders defines the methods for accessing indexed share holder data.
type IndexedHolders interface {
	GetByAddress(address common.Address) (Holder, bool)
	All() []Holder
}
