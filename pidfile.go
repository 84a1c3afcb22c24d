package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/tonimelisma/mailsync/internal/engine"
)

// pidFilePermissions lets other local tools (and the engine) read the PID.
const pidFilePermissions = 0o644

// pidLock is the held serve PID file. The flock lives as long as f is open.
type pidLock struct {
	path string
	f    *os.File
}

// release removes the file before closing it so a new serve never finds
// a file it cannot lock.
func (l *pidLock) release() {
	os.Remove(l.path)
	l.f.Close()
}

// writePIDFile records the current PID at path under an exclusive,
// non-blocking flock. The lock is what enforces a single serve; the PID in
// the file is only for "reload". The returned cleanup releases both.
func writePIDFile(path string) (cleanup func(), err error) {
	if path == "" {
		return nil, errors.New("PID file path is empty, cannot determine data directory")
	}

	if err := os.MkdirAll(filepath.Dir(path), dataDirPermissions); err != nil {
		return nil, fmt.Errorf("creating PID file directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, pidFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening PID file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()

		return nil, fmt.Errorf("another mailsync serve is already running (could not lock %s)", path)
	}

	lock := &pidLock{path: path, f: f}

	if err := writePID(f); err != nil {
		f.Close()

		return nil, err
	}

	return lock.release, nil
}

// writePID replaces the file contents with the current PID and syncs so
// "reload" run right after startup sees it.
func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncating PID file: %w", err)
	}

	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing PID file: %w", err)
	}

	return nil
}

// sendSIGHUP asks the serve process named by pidPath to reload its
// config. A PID file left by a dead process is removed.
func sendSIGHUP(pidPath string) error {
	pid, err := engine.ReadPIDFile(pidPath)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no running daemon found (no PID file at %s)", pidPath)
	}

	if err != nil {
		return err
	}

	// On Unix FindProcess always succeeds; signal 0 is the liveness probe.
	proc, _ := os.FindProcess(pid)

	if err := proc.Signal(syscall.Signal(0)); err != nil {
		os.Remove(pidPath)

		return fmt.Errorf("daemon (PID %d) is not running (stale PID file removed)", pid)
	}

	if err := proc.Signal(syscall.SIGHUP); err != nil {
		return fmt.Errorf("sending SIGHUP to daemon (PID %d): %w", pid, err)
	}

	return nil
}
