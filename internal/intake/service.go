package intake

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/mailsync/internal/command"
)

// ReasonGlobal is the reload reason for a global toggle.
const ReasonGlobal = "external"

// accountReason is the reload reason for a per-account toggle.
func accountReason(enabled bool) string {
	return fmt.Sprintf("account enabled=%t", enabled)
}

// Outcome says what Dispatch did with a trigger. It is informational: no
// outcome is an error from the trigger source's point of view.
type Outcome int

// Dispatch outcomes.
const (
	OutcomeIgnored Outcome = iota
	OutcomeRejected
	OutcomePolled
	OutcomeQueued
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRejected:
		return "rejected"
	case OutcomePolled:
		return "polled"
	case OutcomeQueued:
		return "queued"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Completion is returned for every trigger and is the host's signal that
// no more work is pending on the dispatch path. Err is set only when inline
// work (handing off a poll, queueing a job) failed.
type Completion struct {
	TriggerID string
	Outcome   Outcome
	Err       error
}

// ServiceConfig holds the collaborators of a Service.
type ServiceConfig struct {
	Parser     command.Parser
	Gatekeeper *Gatekeeper
	State      *StateGate
	Executor   *Executor
	Engine     Engine
	Logger     *slog.Logger
}

// Service is the dispatch entry point: parse, gate, then either poll
// inline or queue the toggle on the Executor.
type Service struct {
	parser   command.Parser
	gate     *Gatekeeper
	state    *StateGate
	executor *Executor
	engine   Engine
	logger   *slog.Logger
}

// NewService wires a Service from cfg.
func NewService(cfg *ServiceConfig) *Service {
	return &Service{
		parser:   cfg.Parser,
		gate:     cfg.Gatekeeper,
		state:    cfg.State,
		executor: cfg.Executor,
		engine:   cfg.Engine,
		logger:   cfg.Logger,
	}
}

// Dispatch handles one trigger and returns without waiting for queued
// state work. Global and per-account toggles share the Executor, so they
// apply in submission order.
func (s *Service) Dispatch(ctx context.Context, t command.Trigger) Completion {
	logger := s.logger.With(
		slog.String("trigger_id", t.ID),
		slog.String("source", t.Source),
	)

	done := Completion{TriggerID: t.ID}

	cmd := s.parser.Parse(t)
	if cmd.Kind == command.KindIgnore {
		logger.Info("unrecognized trigger ignored", slog.String("action", t.Action))
		done.Outcome = OutcomeIgnored

		return done
	}

	if !s.gate.Allow(ctx, cmd) {
		done.Outcome = OutcomeRejected

		return done
	}

	switch {
	case cmd.Kind == command.KindPoll:
		if err := s.engine.Process(ctx, true); err != nil {
			logger.Error("poll request failed", slog.String("error", err.Error()))
			done.Outcome = OutcomeFailed
			done.Err = fmt.Errorf("intake: requesting poll: %w", err)

			return done
		}

		logger.Info("poll requested")
		done.Outcome = OutcomePolled

	case cmd.Global():
		done = s.queue(logger, done, fmt.Sprintf("global enabled=%t", cmd.Enabled), s.globalJob(cmd.Enabled))

	default:
		done = s.queue(logger, done, "account "+cmd.Account, s.accountJob(cmd.Account, cmd.Enabled))
	}

	return done
}

func (s *Service) queue(logger *slog.Logger, done Completion, name string, job Job) Completion {
	if err := s.executor.Submit(name, job); err != nil {
		logger.Error("could not queue toggle", slog.String("job", name), slog.String("error", err.Error()))
		done.Outcome = OutcomeFailed
		done.Err = fmt.Errorf("intake: queueing %s: %w", name, err)

		return done
	}

	logger.Info("toggle queued", slog.String("job", name))
	done.Outcome = OutcomeQueued

	return done
}

func (s *Service) accountJob(name string, enabled bool) Job {
	return func(ctx context.Context) error {
		res, err := s.state.Apply(ctx, name, enabled)
		if err != nil {
			return err
		}

		if res != ResultTransitioned {
			return nil
		}

		return s.reload(ctx, accountReason(enabled))
	}
}

func (s *Service) globalJob(enabled bool) Job {
	return func(ctx context.Context) error {
		res, err := s.state.ApplyGlobal(ctx, enabled)
		if err != nil {
			return err
		}

		if res != ResultTransitioned {
			return nil
		}

		return s.reload(ctx, ReasonGlobal)
	}
}

func (s *Service) reload(ctx context.Context, reason string) error {
	if err := s.engine.Reload(ctx, reason); err != nil {
		return fmt.Errorf("intake: requesting reload (%s): %w", reason, err)
	}

	return nil
}
