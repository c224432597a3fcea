// Package events defines the structured events emitted by the pool and the
// sinks that receive them.
package events

import (
	"fmt"
	"strings"

	"github.com/defistate/defistate-pool-go/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
)

// Kind names an event type.
type Kind string

const (
	KindLiquidityAdded    Kind = "LiquidityAdded"
	KindLiquidityRemoved  Kind = "LiquidityRemoved"
	KindTokenPurchase     Kind = "TokenPurchase"
	KindBasePurchase      Kind = "BasePurchase"
	KindSharesTransferred Kind = "SharesTransferred"
)

// Kinds lists every event kind.
var Kinds = []Kind{
	KindLiquidityAdded,
	KindLiquidityRemoved,
	KindTokenPurchase,
	KindBasePurchase,
	KindSharesTransferred,
}

// ParseKind resolves an event kind name, ignoring case.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(name, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown event kind %q", name)
}

// Event is one committed pool state change.
type Event interface {
	Kind() Kind
	// Fields returns the event as alternating key/value pairs, in field order.
	Fields() []any
}

// LiquidityAdded is emitted by a successful deposit.
type LiquidityAdded struct {
	Provider     common.Address    `json:"provider"`
	BaseIn       fixedpoint.Amount `json:"baseIn"`
	TokenIn      fixedpoint.Amount `json:"tokenIn"`
	SharesMinted fixedpoint.Amount `json:"sharesMinted"`
}

func (LiquidityAdded) Kind() Kind { return KindLiquidityAdded }

func (e LiquidityAdded) Fields() []any {
	return []any{
		"provider", e.Provider.Hex(),
		"base_in", e.BaseIn.String(),
		"token_in", e.TokenIn.String(),
		"shares_minted", e.SharesMinted.String(),
	}
}

// LiquidityRemoved is emitted by a successful withdrawal.
type LiquidityRemoved struct {
	Provider     common.Address    `json:"provider"`
	BaseOut      fixedpoint.Amount `json:"baseOut"`
	TokenOut     fixedpoint.Amount `json:"tokenOut"`
	SharesBurned fixedpoint.Amount `json:"sharesBurned"`
}

func (LiquidityRemoved) Kind() Kind { return KindLiquidityRemoved }

func (e LiquidityRemoved) Fields() []any {
	return []any{
		"provider", e.Provider.Hex(),
		"base_out", e.BaseOut.String(),
		"token_out", e.TokenOut.String(),
		"shares_burned", e.SharesBurned.String(),
	}
}

// TokenPurchase is emitted when base currency is sold for token.
type TokenPurchase struct {
	Buyer          common.Address    `json:"buyer"`
	BaseSpent      fixedpoint.Amount `json:"baseSpent"`
	TokensReceived fixedpoint.Amount `json:"tokensReceived"`
	Recipient      common.Address    `json:"recipient"`
}

func (TokenPurchase) Kind() Kind { return KindTokenPurchase }

func (e TokenPurchase) Fields() []any {
	return []any{
		"buyer", e.Buyer.Hex(),
		"base_spent", e.BaseSpent.String(),
		"tokens_received", e.TokensReceived.String(),
		"recipient", e.Recipient.Hex(),
	}
}

// BasePurchase is emitted when token is sold for base currency.
type BasePurchase struct {
	Seller       common.Address    `json:"seller"`
	TokensSpent  fixedpoint.Amount `json:"tokensSpent"`
	BaseReceived fixedpoint.Amount `json:"baseReceived"`
	Recipient    common.Address    `json:"recipient"`
}

func (BasePurchase) Kind() Kind { return KindBasePurchase }

func (e BasePurchase) Fields() []any {
	return []any{
		"seller", e.Seller.Hex(),
		"tokens_spent", e.TokensSpent.String(),
		"base_received", e.BaseReceived.String(),
		"recipient", e.Recipient.Hex(),
	}
}

// SharesTransferred is emitted when a holder moves shares to another holder.
type SharesTransferred struct {
	From   common.Address    `json:"from"`
	To     common.Address    `json:"to"`
	Shares fixedpoint.Amount `json:"shares"`
}

func (SharesTransferred) Kind() Kind { return KindSharesTransferred }

func (e SharesTransferred) Fields() []any {
	return []any{
		"from", e.From.Hex(),
		"to", e.To.Hex(),
		"shares", e.Shares.String(),
	}
}
