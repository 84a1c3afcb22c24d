package intake

import (
	"context"
	"log/slog"

	"github.com/tonimelisma/mailsync/internal/command"
)

// Gatekeeper rejects every command while the feature is not licensed. The
// checker is consulted per command, never cached.
type Gatekeeper struct {
	checker EntitlementChecker
	logger  *slog.Logger
}

// NewGatekeeper creates a Gatekeeper backed by checker.
func NewGatekeeper(checker EntitlementChecker, logger *slog.Logger) *Gatekeeper {
	return &Gatekeeper{checker: checker, logger: logger}
}

// Allow reports whether cmd may proceed. A rejection is logged only; the
// trigger source never learns about it.
func (g *Gatekeeper) Allow(ctx context.Context, cmd command.Command) bool {
	if g.checker.IsLicensed(ctx) {
		return true
	}

	g.logger.Info("command rejected: not licensed",
		slog.String("kind", cmd.Kind.String()),
	)

	return false
}
