package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/defistate/defistate-pool-go/events"
	"github.com/defistate/defistate-pool-go/fixedpoint"
	"github.com/defistate/defistate-pool-go/protocols/cpamm/calculator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
logLevel: debug
token: "0x00000000000000000000000000000000000000aa"
deployer: "0x00000000000000000000000000000000000000dd"
deployerNonce: 3
pool:
  feeRate: "0.003"
eventKinds: [tokenPurchase, BasePurchase]
accounts:
  - name: alice
    address: "0x0000000000000000000000000000000000000001"
    base: "100"
    token: "100"
  - name: bob
    base: "50.5"
    token: "20"
    approve: "5"
steps:
  - op: addLiquidity
    account: alice
    amount: "10"
    maxTokens: "10"
  - op: tokenToBase
    account: bob
    amount: 1
    recipient: alice
  - op: price
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	require.NoError(t, err)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	params := cfg.Params()
	assert.Equal(t, "0.003", params.FeeRate.Format())
	assert.Equal(t, calculator.DefaultBootstrapMultiplier, params.BootstrapMultiplier)

	assert.Equal(t, common.HexToAddress("0xaa"), cfg.TokenAddress())
	assert.Equal(t, crypto.CreateAddress(common.HexToAddress("0xdd"), 3), cfg.PoolAddress())

	alice, ok := cfg.AccountAddress("alice")
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress("0x01"), alice)

	bob, ok := cfg.AccountAddress("bob")
	require.True(t, ok)
	assert.Equal(t, common.BytesToAddress(crypto.Keccak256([]byte("bob"))), bob)

	assert.Equal(t, "50.5", cfg.Accounts[1].Base.Format())
	assert.Equal(t, "5", cfg.Accounts[1].Allowance().Format())
	assert.Equal(t, "100", cfg.Accounts[0].Allowance().Format())

	assert.Equal(t, []events.Kind{events.KindTokenPurchase, events.KindBasePurchase}, cfg.Kinds())

	require.Len(t, cfg.Steps, 3)
	assert.True(t, cfg.Steps[1].Amount.Eq(fixedpoint.Units(1)))
	assert.True(t, cfg.Steps[1].MinOut.IsZero())
}

func TestParseRejects(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
	}{
		{name: "bad token", yaml: `token: "nope"
deployer: "0x00000000000000000000000000000000000000dd"`},
		{name: "zero token", yaml: `token: "0x0000000000000000000000000000000000000000"
deployer: "0x00000000000000000000000000000000000000dd"`},
		{name: "bad deployer", yaml: `token: "0x00000000000000000000000000000000000000aa"`},
		{name: "bad level", yaml: `token: "0x00000000000000000000000000000000000000aa"
deployer: "0x00000000000000000000000000000000000000dd"
logLevel: loud`},
		{name: "fee rate of one", yaml: `token: "0x00000000000000000000000000000000000000aa"
deployer: "0x00000000000000000000000000000000000000dd"
pool:
  feeRate: "1"`},
		{name: "bad amount", yaml: `token: "0x00000000000000000000000000000000000000aa"
deployer: "0x00000000000000000000000000000000000000dd"
accounts:
  - name: alice
    base: "1.0000000000000000001"`},
		{name: "unknown event kind", yaml: `token: "0x00000000000000000000000000000000000000aa"
deployer: "0x00000000000000000000000000000000000000dd"
eventKinds: [sync]`},
		{name: "duplicate account", yaml: `token: "0x00000000000000000000000000000000000000aa"
deployer: "0x00000000000000000000000000000000000000dd"
accounts:
  - name: alice
  - name: alice`},
		{name: "unknown op", yaml: `token: "0x00000000000000000000000000000000000000aa"
deployer: "0x00000000000000000000000000000000000000dd"
steps:
  - op: flashLoan`},
		{name: "unknown account", yaml: `token: "0x00000000000000000000000000000000000000aa"
deployer: "0x00000000000000000000000000000000000000dd"
steps:
  - op: baseToToken
    account: mallory`},
		{name: "share transfer without recipient", yaml: `token: "0x00000000000000000000000000000000000000aa"
deployer: "0x00000000000000000000000000000000000000dd"
accounts:
  - name: alice
steps:
  - op: transferShares
    account: alice
    amount: "1"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validConfig), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Accounts, 2)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
