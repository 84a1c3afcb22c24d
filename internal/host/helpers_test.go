package host

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/tonimelisma/mailsync/internal/command"
	"github.com/tonimelisma/mailsync/internal/intake"
)

// testLogger returns a debug-level logger that writes to t.Log,
// so all activity appears in CI output.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// testLogWriter adapts testing.T to io.Writer for slog.
type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

// recordingHandler records every trigger it is handed and answers with a
// fixed outcome.
type recordingHandler struct {
	mu       sync.Mutex
	triggers []command.Trigger
	outcome  intake.Outcome
}

func (h *recordingHandler) Handle(_ context.Context, t command.Trigger) intake.Completion {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.triggers = append(h.triggers, t)

	return intake.Completion{TriggerID: t.ID, Outcome: h.outcome}
}

func (h *recordingHandler) seen() []command.Trigger {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]command.Trigger(nil), h.triggers...)
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.triggers)
}
