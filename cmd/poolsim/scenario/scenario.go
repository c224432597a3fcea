// Package scenario drives a pool through the steps of a simulator config.
package scenario

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/defistate/defistate-pool-go/cmd/poolsim/config"
	"github.com/defistate/defistate-pool-go/events"
	"github.com/defistate/defistate-pool-go/fixedpoint"
	"github.com/defistate/defistate-pool-go/ledger"
	"github.com/defistate/defistate-pool-go/ledger/memory"
	"github.com/defistate/defistate-pool-go/pool"
	cpamm "github.com/defistate/defistate-pool-go/protocols/cpamm"
	"github.com/defistate/defistate-pool-go/protocols/cpamm/indexer"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index int
	Op    string
	Event events.Event
	// Price is set by price steps.
	Price *fixedpoint.Amount
	Diff  cpamm.StateDiff
	Err   error
}

// Report summarises a run.
type Report struct {
	Results []StepResult
	Failed  int
	Final   cpamm.State
	Holders []indexer.Holder
}

// Runner executes scenario steps against a pool backed by a memory ledger.
type Runner struct {
	cfg     *config.Config
	pool    *pool.Pool
	ledger  *memory.Ledger
	indexer *indexer.Indexer
	logger  Logger
}

// New creates a Runner.
func New(cfg *config.Config, p *pool.Pool, l *memory.Ledger, logger Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		pool:    p,
		ledger:  l,
		indexer: indexer.New(),
		logger:  logger,
	}
}

// NewEventSink logs events of the given kinds, or every event when kinds is empty.
func NewEventSink(logger Logger, kinds ...events.Kind) events.Sink {
	sink := events.NewLogSink(logger)
	if len(kinds) == 0 {
		return sink
	}
	return events.Filter(sink, kinds...)
}

// Fund mints every account's balances and grants the pool its token allowance.
func (r *Runner) Fund() error {
	token, poolAddr := r.pool.Token(), r.pool.Address()
	for _, acc := range r.cfg.Accounts {
		addr, _ := r.cfg.AccountAddress(acc.Name)
		if err := r.ledger.Mint(ledger.Base, addr, acc.Base.Amount); err != nil {
			return fmt.Errorf("funding %s: %w", acc.Name, err)
		}
		if err := r.ledger.Mint(token, addr, acc.Token.Amount); err != nil {
			return fmt.Errorf("funding %s: %w", acc.Name, err)
		}
		if err := r.ledger.Approve(token, addr, poolAddr, acc.Allowance()); err != nil {
			return fmt.Errorf("approving %s: %w", acc.Name, err)
		}
		r.logger.Debug("Funded account", "name", acc.Name, "address", addr.Hex(),
			"base", acc.Base.Format(), "token", acc.Token.Format())
	}
	return nil
}

// Run executes every step in order. Rejected operations are recorded and
// the run continues; only context cancellation stops it early.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	for i, step := range r.cfg.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		before := r.pool.View()
		result := r.execute(ctx, i, step)
		result.Diff = cpamm.Differ(before, r.pool.View())
		report.Results = append(report.Results, result)

		if result.Err != nil {
			report.Failed++
			r.logger.Warn("Step rejected", "index", i, "op", step.Op, "account", step.Account, "error", result.Err)
			continue
		}
		if !result.Diff.IsEmpty() {
			raw, err := json.Marshal(result.Diff)
			if err != nil {
				return report, fmt.Errorf("encoding diff of step %d: %w", i, err)
			}
			r.logger.Debug("Step applied", "index", i, "op", step.Op, "diff", string(raw))
		}
	}

	report.Final = r.pool.View()
	holders, err := r.indexer.Index(report.Final)
	if err != nil {
		return report, err
	}
	report.Holders = holders.All()
	return report, nil
}

func (r *Runner) execute(ctx context.Context, index int, step config.Step) StepResult {
	result := StepResult{Index: index, Op: step.Op}
	account, _ := r.cfg.AccountAddress(step.Account)
	recipient := account
	if step.Recipient != "" {
		recipient, _ = r.cfg.AccountAddress(step.Recipient)
	}

	switch step.Op {
	case config.OpAddLiquidity:
		result.Event, result.Err = unwrap(r.pool.AddLiquidity(ctx, account, step.MaxTokens.Amount, step.Amount.Amount))
	case config.OpRemoveLiquidity:
		result.Event, result.Err = unwrap(r.pool.RemoveLiquidity(ctx, account, step.Amount.Amount, step.MinBase.Amount, step.MinTokens.Amount))
	case config.OpTokenToBase:
		result.Event, result.Err = unwrap(r.pool.TokenToBaseTransfer(ctx, account, step.Amount.Amount, step.MinOut.Amount, recipient))
	case config.OpBaseToToken:
		result.Event, result.Err = unwrap(r.pool.BaseToTokenTransfer(ctx, account, step.Amount.Amount, step.MinOut.Amount, recipient))
	case config.OpTransferShares:
		result.Event, result.Err = unwrap(r.pool.TransferShares(ctx, account, recipient, step.Amount.Amount))
	case config.OpPrice:
		price, err := r.pool.Price()
		if err == nil {
			result.Price = &price
			r.logger.Info("Pool price", "index", index, "price", price.Format())
		}
		result.Err = err
	default:
		result.Err = fmt.Errorf("unknown op %q", step.Op)
	}
	return result
}

func unwrap[E events.Event](ev E, err error) (events.Event, error) {
	if err != nil {
		return nil, err
	}
	return ev, nil
}
