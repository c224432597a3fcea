package indexer

import (
	"bytes"
	"fmt"
	"sort"

	cpamm "github.com/defistate/defistate-pool-go/protocols/cpamm"
	"github.com/defistate/defistate-pool-go/protocols/cpamm/calculator"
	"github.com/ethereum/go-ethereum/common"
)

// Indexer builds IndexedHolders from pool snapshots.
type Indexer struct{}

// New creates a new Indexer.
func New() *Indexer {
	return &Indexer{}
}

// Index creates an indexed holder set from a pool state.
func (i *Indexer) Index(state cpamm.State) (IndexedHolders, error) {
	return NewIndexableHolders(state)
}

// IndexableHolders provides fast, indexed access to a pool's share holders.
type IndexableHolders struct {
	byAddress map[common.Address]Holder
	all       []Holder
}

// NewIndexableHolders indexes every holder of state. Holders are ordered by
// share balance, largest first, ties broken by address.
func NewIndexableHolders(state cpamm.State) (*IndexableHolders, error) {
	byAddress := make(map[common.Address]Holder, len(state.Shares))
	all := make([]Holder, 0, len(state.Shares))

	for address, shares := range state.Shares {
		baseClaim, tokenClaim, err := calculator.Withdrawal(shares, state)
		if err != nil {
			return nil, fmt.Errorf("indexing holder %s: %w", address.Hex(), err)
		}
		h := Holder{
			Address:    address,
			Shares:     shares,
			BaseClaim:  baseClaim,
			TokenClaim: tokenClaim,
		}
		byAddress[address] = h
		all = append(all, h)
	}

	sort.Slice(all, func(i, j int) bool {
		if c := all[i].Shares.Cmp(all[j].Shares); c != 0 {
			return c > 0
		}
		return bytes.Compare(all[i].Address[:], all[j].Address[:]) < 0
	})

	return &IndexableHolders{
		byAddress: byAddress,
		all:       all,
	}, nil
}

// GetByAddress retrieves a holder by address.
func (ih *IndexableHolders) GetByAddress(address common.Address) (Holder, bool) {
	h, ok := ih.byAddress[address]
	return h, ok
}

// All returns a defensive copy of the ordered holder list.
func (ih *IndexableHolders) All() []Holder {
	allCopy := make([]Holder, len(ih.all))
	copy(allCopy, ih.all)
	return allCopy
}
