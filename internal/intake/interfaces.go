// Package intake turns external triggers into account-state changes and
// engine signals. All state mutation funnels through a single-worker
// Executor so overlapping toggles never interleave their read-modify-write
// of a persisted flag.
package intake

import (
	"context"

	"github.com/tonimelisma/mailsync/internal/store"
)

// AccountStore is the slice of the persistent store the state gate needs
// for per-account toggles. Implemented by *store.Store.
type AccountStore interface {
	AccountByName(ctx context.Context, name string) (*store.Account, error)
	SetAccountSyncEnabled(ctx context.Context, id int64, enabled bool) error
}

// FlagStore holds the process-wide preference flags. Implemented by
// *store.Store.
type FlagStore interface {
	GlobalFlag(ctx context.Context, key string, def bool) (bool, error)
	SetGlobalFlag(ctx context.Context, key string, value bool) error
}

// Engine is the synchronization engine as seen by the intake. Both calls
// are fire-and-forget; an error means the signal could not be handed off,
// not that the engine failed. Implemented by *engine.Handoff.
type Engine interface {
	Process(ctx context.Context, immediate bool) error
	Reload(ctx context.Context, reason string) error
}

// EntitlementChecker reports whether the feature is licensed right now.
// Implemented by *license.FileChecker and license.Always.
type EntitlementChecker interface {
	IsLicensed(ctx context.Context) bool
}

// Presence is the host's foreground presence: a fixed, silent, low-priority
// notice that must be up before any trigger is processed. Establish must be
// idempotent. Implemented by *host.MarkerPresence.
type Presence interface {
	Establish(ctx context.Context) error
	Clear() error
}
