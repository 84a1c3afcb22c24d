package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// Signals sent to the engine daemon by PIDTarget.
const (
	reloadSignal  = syscall.SIGHUP
	processSignal = syscall.SIGUSR1
)

// PIDTarget signals an engine daemon identified by its PID file: SIGHUP
// for reload, SIGUSR1 for process.
type PIDTarget struct {
	Path   string
	Logger *slog.Logger
}

// Deliver sends the OS signal matching sig to the engine daemon.
func (t *PIDTarget) Deliver(_ context.Context, sig Signal) error {
	osSig := processSignal
	if sig.Kind == SignalReload {
		osSig = reloadSignal
	}

	proc, pid, err := t.findEngine()
	if err != nil {
		return err
	}

	if err := proc.Signal(osSig); err != nil {
		return fmt.Errorf("engine: sending %s to engine (PID %d): %w", osSig, pid, err)
	}

	t.Logger.Debug("signalled engine",
		slog.Int("pid", pid),
		slog.String("os_signal", osSig.String()),
		slog.String("reason", sig.Reason),
	)

	return nil
}

// findEngine resolves the live engine process. Stale PID files (process
// dead) are removed.
func (t *PIDTarget) findEngine() (*os.Process, int, error) {
	pid, err := ReadPIDFile(t.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("engine: no running engine found (no PID file at %s)", t.Path)
		}

		return nil, 0, err
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, 0, fmt.Errorf("engine: finding process %d: %w", pid, err)
	}

	// Signal 0 checks liveness without delivering anything.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		os.Remove(t.Path)

		return nil, 0, fmt.Errorf("engine: engine (PID %d) is not running (stale PID file removed)", pid)
	}

	return proc, pid, nil
}

// ReadPIDFile reads the PID from the given file path.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("engine: reading PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("engine: invalid PID in %s: %w", path, err)
	}

	if pid <= 0 {
		return 0, fmt.Errorf("engine: invalid PID %d in %s", pid, path)
	}

	return pid, nil
}

// LogTarget only logs signals. Used when no engine daemon is configured.
type LogTarget struct {
	Logger *slog.Logger
}

// Deliver logs sig at info level.
func (t LogTarget) Deliver(_ context.Context, sig Signal) error {
	t.Logger.Info("engine signal (no engine configured)",
		slog.String("signal", sig.Kind.String()),
		slog.Bool("immediate", sig.Immediate),
		slog.String("reason", sig.Reason),
	)

	return nil
}
