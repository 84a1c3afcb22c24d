package intake

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/mailsync/internal/store"
)

// Result is the outcome of applying a desired enabled state.
type Result int

// Apply results.
const (
	ResultNoOp Result = iota
	ResultTransitioned
	ResultNoSuchAccount
)

func (r Result) String() string {
	switch r {
	case ResultNoOp:
		return "noop"
	case ResultTransitioned:
		return "transitioned"
	case ResultNoSuchAccount:
		return "no_such_account"
	default:
		return "unknown"
	}
}

// StateGate applies a desired enabled state only when it differs from the
// stored one. It must be driven from the Executor: it does a plain
// read-then-write and relies on the caller for serialization.
type StateGate struct {
	accounts AccountStore
	flags    FlagStore
	logger   *slog.Logger
}

// NewStateGate creates a StateGate over the given stores.
func NewStateGate(accounts AccountStore, flags FlagStore, logger *slog.Logger) *StateGate {
	return &StateGate{accounts: accounts, flags: flags, logger: logger}
}

// Apply sets the sync flag of the account named exactly name.
func (g *StateGate) Apply(ctx context.Context, name string, desired bool) (Result, error) {
	account, err := g.accounts.AccountByName(ctx, name)
	if err != nil {
		return ResultNoOp, fmt.Errorf("intake: looking up account %q: %w", name, err)
	}

	if account == nil {
		g.logger.Warn("toggle for unknown account ignored", slog.String("account", name))

		return ResultNoSuchAccount, nil
	}

	if account.SyncEnabled == desired {
		g.logger.Debug("account already in requested state",
			slog.String("account", name),
			slog.Bool("enabled", desired),
		)

		return ResultNoOp, nil
	}

	if err := g.accounts.SetAccountSyncEnabled(ctx, account.ID, desired); err != nil {
		return ResultNoOp, fmt.Errorf("intake: updating account %q: %w", name, err)
	}

	g.logger.Info("account sync state changed",
		slog.String("account", name),
		slog.Int64("account_id", account.ID),
		slog.Bool("enabled", desired),
	)

	return ResultTransitioned, nil
}

// ApplyGlobal sets the global enabled preference. The schedule flag is
// cleared on every call, including no-ops, so a pending scheduled
// re-enable never overrides an explicit request.
func (g *StateGate) ApplyGlobal(ctx context.Context, desired bool) (Result, error) {
	if err := g.flags.SetGlobalFlag(ctx, store.PrefSchedule, false); err != nil {
		return ResultNoOp, fmt.Errorf("intake: clearing schedule: %w", err)
	}

	current, err := g.flags.GlobalFlag(ctx, store.PrefEnabled, true)
	if err != nil {
		return ResultNoOp, fmt.Errorf("intake: reading global enabled: %w", err)
	}

	if current == desired {
		g.logger.Debug("synchronization already in requested state", slog.Bool("enabled", desired))

		return ResultNoOp, nil
	}

	if err := g.flags.SetGlobalFlag(ctx, store.PrefEnabled, desired); err != nil {
		return ResultNoOp, fmt.Errorf("intake: updating global enabled: %w", err)
	}

	g.logger.Info("global synchronization state changed", slog.Bool("enabled", desired))

	return ResultTransitioned, nil
}
