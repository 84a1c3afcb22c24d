package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tonimelisma/mailsync/internal/command"
)

// ErrDestroyed is returned for triggers handled after Close.
var ErrDestroyed = errors.New("intake: activation destroyed")

// State is the lifecycle state of an Activation.
type State int

// Activation states.
const (
	StateCreated State = iota
	StateForeground
	StateProcessing
	StateIdle
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateForeground:
		return "foreground"
	case StateProcessing:
		return "processing"
	case StateIdle:
		return "idle"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Dispatcher handles one trigger. Implemented by *Service.
type Dispatcher interface {
	Dispatch(ctx context.Context, t command.Trigger) Completion
}

// Activation binds a Dispatcher to the host lifecycle: the foreground
// presence is up before any trigger is looked at, triggers are handed over
// one at a time, and every trigger ends with a Completion.
type Activation struct {
	mu       sync.Mutex
	state    State
	presence Presence
	service  Dispatcher
	logger   *slog.Logger
}

// NewActivation creates an activation in StateCreated.
func NewActivation(service Dispatcher, presence Presence, logger *slog.Logger) *Activation {
	return &Activation{
		state:    StateCreated,
		presence: presence,
		service:  service,
		logger:   logger,
	}
}

// Open establishes the foreground presence and leaves the activation idle.
func (a *Activation) Open(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateDestroyed {
		return ErrDestroyed
	}

	if err := a.establish(ctx); err != nil {
		return err
	}

	a.state = StateIdle
	a.logger.Info("intake activated")

	return nil
}

// Handle re-asserts the foreground presence, then dispatches t. The
// presence comes first unconditionally, even for triggers the gatekeeper
// will reject.
func (a *Activation) Handle(ctx context.Context, t command.Trigger) Completion {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateDestroyed {
		return Completion{TriggerID: t.ID, Outcome: OutcomeFailed, Err: ErrDestroyed}
	}

	if err := a.establish(ctx); err != nil {
		a.logger.Error("foreground presence unavailable, trigger dropped",
			slog.String("trigger_id", t.ID),
			slog.String("error", err.Error()),
		)

		return Completion{TriggerID: t.ID, Outcome: OutcomeFailed, Err: err}
	}

	a.state = StateProcessing
	done := a.service.Dispatch(ctx, t)
	a.state = StateIdle

	a.logger.Debug("trigger complete",
		slog.String("trigger_id", t.ID),
		slog.String("outcome", done.Outcome.String()),
	)

	return done
}

// Close clears the foreground presence. Later triggers get ErrDestroyed.
func (a *Activation) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateDestroyed {
		return nil
	}

	a.state = StateDestroyed
	a.logger.Info("intake deactivated")

	if err := a.presence.Clear(); err != nil {
		return fmt.Errorf("intake: clearing foreground presence: %w", err)
	}

	return nil
}

// State returns the current lifecycle state.
func (a *Activation) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.state
}

// establish must be called with a.mu held.
func (a *Activation) establish(ctx context.Context) error {
	if err := a.presence.Establish(ctx); err != nil {
		return fmt.Errorf("intake: establishing foreground presence: %w", err)
	}

	if a.state == StateCreated {
		a.state = StateForeground
	}

	return nil
}
