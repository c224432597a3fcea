package pool

import (
	"errors"

	"github.com/defistate/defistate-pool-go/events"
	"github.com/defistate/defistate-pool-go/ledger"
	"github.com/defistate/defistate-pool-go/protocols/cpamm/calculator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the pool identity and its dependencies.
type Config struct {
	// Token is the asset traded against the base currency.
	Token common.Address
	// Address is the pool's custody account in the ledger.
	Address common.Address
	Ledger  ledger.Ledger
	// Sink receives one event per committed operation. Defaults to events.Discard.
	Sink     events.Sink
	Logger   Logger
	Registry prometheus.Registerer
	// MetricsNamespace prefixes every collector. Defaults to "cpamm".
	MetricsNamespace string
	// Params defaults to calculator.DefaultParams when left zero.
	Params calculator.Params
}

func (c *Config) validate() error {
	if c.Token == ledger.Base {
		return errors.New("config: Token cannot be the zero address")
	}
	if c.Address == (common.Address{}) {
		return errors.New("config: Address cannot be the zero address")
	}
	if c.Address == c.Token {
		return errors.New("config: Address and Token must differ")
	}
	if c.Ledger == nil {
		return errors.New("config: Ledger cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	return c.params().Validate()
}

func (c *Config) params() calculator.Params {
	if c.Params == (calculator.Params{}) {
		return calculator.DefaultParams()
	}
	return c.Params
}
