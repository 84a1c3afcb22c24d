// Package engine delivers fire-and-forget signals to the synchronization
// engine. Callers enqueue process and reload requests on a Handoff and
// return immediately; a single delivery loop forwards them to a Target.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// ErrClosed is returned when signalling a Handoff after Close.
var ErrClosed = errors.New("engine: handoff closed")

// maxReloadReasons bounds the reasons kept for one coalesced reload.
const maxReloadReasons = 16

// SignalKind distinguishes the two engine requests.
type SignalKind int

// Signal kinds.
const (
	SignalProcess SignalKind = iota
	SignalReload
)

func (k SignalKind) String() string {
	if k == SignalReload {
		return "reload"
	}

	return "process"
}

// Signal is one delivery to the engine. Immediate applies to process
// signals, Reason to reload signals.
type Signal struct {
	Kind      SignalKind
	Immediate bool
	Reason    string
}

// Target receives signals from the delivery loop.
type Target interface {
	Deliver(ctx context.Context, sig Signal) error
}

// pending is the coalesced set of signals not yet delivered. Any number of
// requests between two deliveries collapse into at most one process and one
// reload, which is enough for the engine to converge on the latest state.
type pending struct {
	process   bool
	immediate bool
	reload    bool
	reasons   []string
	dropped   int
}

// Handoff is the engine notifier. Process and Reload never wait on the
// engine; Run drains the coalesced signals into the Target.
type Handoff struct {
	target Target
	logger *slog.Logger

	mu      sync.Mutex
	state   pending
	closed  bool
	wake    chan struct{} // capacity 1; a pending wake-up covers all later requests
	stopped chan struct{}
}

// NewHandoff creates a Handoff delivering to target. Call Run to start
// delivery.
func NewHandoff(target Target, logger *slog.Logger) *Handoff {
	return &Handoff{
		target:  target,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Process requests a synchronization pass. immediate asks the engine to run
// now instead of at its next scheduled time.
func (h *Handoff) Process(_ context.Context, immediate bool) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}

	h.state.process = true
	h.state.immediate = h.state.immediate || immediate
	h.mu.Unlock()

	h.notify()

	return nil
}

// Reload asks the engine to re-read account and preference state.
func (h *Handoff) Reload(_ context.Context, reason string) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}

	h.state.reload = true
	if len(h.state.reasons) < maxReloadReasons {
		h.state.reasons = append(h.state.reasons, reason)
	} else {
		h.state.dropped++
	}
	h.mu.Unlock()

	h.notify()

	return nil
}

func (h *Handoff) notify() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Run delivers signals until ctx is canceled or Close is called. Signals
// still pending at Close are delivered before Run returns.
func (h *Handoff) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopped:
			h.deliverPending(ctx)
			return
		case <-h.wake:
			h.deliverPending(ctx)
		}
	}
}

// Close stops accepting signals. Safe to call more than once.
func (h *Handoff) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true
	close(h.stopped)
}

func (h *Handoff) deliverPending(ctx context.Context) {
	h.mu.Lock()
	p := h.state
	h.state = pending{}
	h.mu.Unlock()

	if p.reload {
		reason := strings.Join(p.reasons, "; ")
		if p.dropped > 0 {
			h.logger.Debug("engine reload reasons truncated", slog.Int("dropped", p.dropped))
		}

		h.deliver(ctx, Signal{Kind: SignalReload, Reason: reason})
	}

	if p.process {
		h.deliver(ctx, Signal{Kind: SignalProcess, Immediate: p.immediate})
	}
}

// deliver forwards one signal. Failures are logged only: the caller that
// requested the signal has long since returned.
func (h *Handoff) deliver(ctx context.Context, sig Signal) {
	if err := h.target.Deliver(ctx, sig); err != nil {
		h.logger.Warn("engine signal delivery failed",
			slog.String("signal", sig.Kind.String()),
			slog.String("error", err.Error()),
		)

		return
	}

	h.logger.Debug("engine signal delivered",
		slog.String("signal", sig.Kind.String()),
		slog.Bool("immediate", sig.Immediate),
		slog.String("reason", sig.Reason),
	)
}
