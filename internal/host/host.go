// Package host adapts the intake to the process it runs in: the trigger
// sources that feed an Activation (spool directory, WebSocket, NATS) and
// the presence marker that stands in for a foreground notification.
package host

import (
	"context"
	"log/slog"

	"github.com/tonimelisma/mailsync/internal/command"
	"github.com/tonimelisma/mailsync/internal/intake"
)

// Source names, recorded on every trigger for log correlation.
const (
	SourceSpool     = "spool"
	SourceWebSocket = "websocket"
	SourceNATS      = "nats"
)

// Handler processes one trigger. Implemented by *intake.Activation.
type Handler interface {
	Handle(ctx context.Context, t command.Trigger) intake.Completion
}

// Reply is the informational answer a source sends back to a sender that
// can receive one. Errors are never included.
type Reply struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"`
}

// deliver decodes one payload and hands it to h. Undecodable payloads are
// logged and dropped; ok is false for them.
func deliver(ctx context.Context, h Handler, logger *slog.Logger, source string, data []byte) (Reply, bool) {
	t, err := command.DecodeTrigger(data)
	if err != nil {
		logger.Warn("malformed trigger dropped",
			slog.String("source", source),
			slog.String("error", err.Error()),
		)

		return Reply{}, false
	}

	t.Source = source
	done := h.Handle(ctx, t)

	logger.Debug("trigger handled",
		slog.String("trigger_id", done.TriggerID),
		slog.String("source", source),
		slog.String("outcome", done.Outcome.String()),
	)

	return Reply{ID: done.TriggerID, Outcome: done.Outcome.String()}, true
}
