// Package config loads the pool simulator's YAML scenario file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/defistate/defistate-pool-go/events"
	"github.com/defistate/defistate-pool-go/fixedpoint"
	"github.com/defistate/defistate-pool-go/protocols/cpamm/calculator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/yaml.v3"
)

// Operations accepted in a scenario step.
const (
	OpAddLiquidity    = "addLiquidity"
	OpRemoveLiquidity = "removeLiquidity"
	OpTokenToBase     = "tokenToBase"
	OpBaseToToken     = "baseToToken"
	OpTransferShares  = "transferShares"
	OpPrice           = "price"
)

var knownOps = map[string]bool{
	OpAddLiquidity:    true,
	OpRemoveLiquidity: true,
	OpTokenToBase:     true,
	OpBaseToToken:     true,
	OpTransferShares:  true,
	OpPrice:           true,
}

// Units is an amount written in whole units, e.g. "10.5".
type Units struct {
	fixedpoint.Amount
}

func (u *Units) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a scalar", node.Line)
	}
	a, err := fixedpoint.ParseUnits(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	u.Amount = a
	return nil
}

// PoolConfig overrides the pool arithmetic constants.
type PoolConfig struct {
	FeeRate             *Units `yaml:"feeRate"`
	BootstrapMultiplier uint64 `yaml:"bootstrapMultiplier"`
}

// Account is a funded scenario participant.
type Account struct {
	Name string `yaml:"name"`
	// Address defaults to the last 20 bytes of keccak256(Name).
	Address string `yaml:"address"`
	Base    Units  `yaml:"base"`
	Token   Units  `yaml:"token"`
	// Approve is the token allowance granted to the pool. Defaults to Token.
	Approve *Units `yaml:"approve"`
}

// Step is one pool operation. Amount is the base deposit for addLiquidity,
// the input for swaps and the share count for removeLiquidity and
// transferShares.
type Step struct {
	Op        string `yaml:"op"`
	Account   string `yaml:"account"`
	Recipient string `yaml:"recipient"`
	Amount    Units  `yaml:"amount"`
	MaxTokens Units  `yaml:"maxTokens"`
	MinOut    Units  `yaml:"minOut"`
	MinBase   Units  `yaml:"minBase"`
	MinTokens Units  `yaml:"minTokens"`
}

// Config is the simulator configuration.
type Config struct {
	LogLevel    string `yaml:"logLevel"`
	MetricsAddr string `yaml:"metricsAddr"`

	// Token is the traded asset's address.
	Token string `yaml:"token"`

	// The pool address is derived from Deployer and DeployerNonce.
	Deployer      string     `yaml:"deployer"`
	DeployerNonce uint64     `yaml:"deployerNonce"`
	Pool          PoolConfig `yaml:"pool"`

	// EventKinds restricts which events are logged. Empty logs every kind.
	EventKinds []string  `yaml:"eventKinds"`
	Accounts   []Account `yaml:"accounts"`
	Steps      []Step    `yaml:"steps"`

	accounts map[string]common.Address
	kinds    []events.Kind
}

// LoadConfig reads and validates the configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !common.IsHexAddress(c.Token) {
		return fmt.Errorf("config: token %q is not a hex address", c.Token)
	}
	if common.HexToAddress(c.Token) == (common.Address{}) {
		return errors.New("config: token cannot be the zero address")
	}
	if !common.IsHexAddress(c.Deployer) {
		return fmt.Errorf("config: deployer %q is not a hex address", c.Deployer)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("config: pool: %w", err)
	}

	c.kinds = make([]events.Kind, 0, len(c.EventKinds))
	for i, name := range c.EventKinds {
		kind, err := events.ParseKind(name)
		if err != nil {
			return fmt.Errorf("config: eventKinds[%d]: %w", i, err)
		}
		c.kinds = append(c.kinds, kind)
	}

	c.accounts = make(map[string]common.Address, len(c.Accounts))
	for i, acc := range c.Accounts {
		if acc.Name == "" {
			return fmt.Errorf("config: accounts[%d]: name is required", i)
		}
		if _, dup := c.accounts[acc.Name]; dup {
			return fmt.Errorf("config: accounts[%d]: duplicate name %q", i, acc.Name)
		}
		addr, err := acc.address()
		if err != nil {
			return fmt.Errorf("config: accounts[%d]: %w", i, err)
		}
		c.accounts[acc.Name] = addr
	}

	for i, step := range c.Steps {
		if !knownOps[step.Op] {
			return fmt.Errorf("config: steps[%d]: unknown op %q", i, step.Op)
		}
		if step.Op == OpPrice {
			continue
		}
		if _, ok := c.accounts[step.Account]; !ok {
			return fmt.Errorf("config: steps[%d]: unknown account %q", i, step.Account)
		}
		if step.Recipient != "" {
			if _, ok := c.accounts[step.Recipient]; !ok {
				return fmt.Errorf("config: steps[%d]: unknown recipient %q", i, step.Recipient)
			}
		}
		if step.Op == OpTransferShares && step.Recipient == "" {
			return fmt.Errorf("config: steps[%d]: transferShares needs a recipient", i)
		}
	}
	return nil
}

func (a Account) address() (common.Address, error) {
	if a.Address == "" {
		return common.BytesToAddress(crypto.Keccak256([]byte(a.Name))), nil
	}
	if !common.IsHexAddress(a.Address) {
		return common.Address{}, fmt.Errorf("address %q is not a hex address", a.Address)
	}
	return common.HexToAddress(a.Address), nil
}

// Level returns the configured log level, Info when unset.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: logLevel: %w", err)
	}
	return level, nil
}

// Params returns the pool constants with defaults applied.
func (c *Config) Params() calculator.Params {
	params := calculator.DefaultParams()
	if c.Pool.FeeRate != nil {
		params.FeeRate = c.Pool.FeeRate.Amount
	}
	if c.Pool.BootstrapMultiplier != 0 {
		params.BootstrapMultiplier = c.Pool.BootstrapMultiplier
	}
	return params
}

// Kinds returns the logged event kinds, empty when every kind is logged.
func (c *Config) Kinds() []events.Kind {
	return c.kinds
}

// TokenAddress returns the traded token.
func (c *Config) TokenAddress() common.Address {
	return common.HexToAddress(c.Token)
}

// PoolAddress returns the address a contract created by Deployer at
// DeployerNonce would receive.
func (c *Config) PoolAddress() common.Address {
	return crypto.CreateAddress(common.HexToAddress(c.Deployer), c.DeployerNonce)
}

// AccountAddress resolves an account name.
func (c *Config) AccountAddress(name string) (common.Address, bool) {
	addr, ok := c.accounts[name]
	return addr, ok
}

// Allowance returns the token allowance an account grants the pool.
func (a Account) Allowance() fixedpoint.Amount {
	if a.Approve != nil {
		return a.Approve.Amount
	}
	return a.Token.Amount
}
