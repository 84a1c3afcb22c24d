package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tonimelisma/mailsync/internal/command"
)

const (
	spoolExt      = ".json"
	spoolDirPerms = 0o700
	spoolFilePerm = 0o600

	// sweepInterval re-reads the spool directory to pick up files whose
	// events were lost (for example on watcher overflow).
	sweepInterval = time.Minute

	// settleTime is how long a file that is not yet complete JSON may stay
	// unchanged before it is dropped as malformed.
	settleTime = 5 * time.Second

	watchErrInitBackoff = time.Second
	watchErrMaxBackoff  = 30 * time.Second
	watchErrBackoffMult = 2
)

// FsWatcher is the subset of *fsnotify.Watcher the spool source uses.
type FsWatcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

// fsnotifyWrapper adapts *fsnotify.Watcher, whose channels are fields, to
// FsWatcher.
type fsnotifyWrapper struct {
	w *fsnotify.Watcher
}

func (f *fsnotifyWrapper) Add(name string) error         { return f.w.Add(name) }
func (f *fsnotifyWrapper) Close() error                  { return f.w.Close() }
func (f *fsnotifyWrapper) Events() <-chan fsnotify.Event { return f.w.Events }
func (f *fsnotifyWrapper) Errors() <-chan error          { return f.w.Errors }

func newFsnotifyWatcher() (FsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &fsnotifyWrapper{w: w}, nil
}

// SpoolSource treats every *.json file that appears in a directory as one
// trigger. Files are removed as they are read, so each is handled at
// most once.
type SpoolSource struct {
	dir     string
	handler Handler
	logger  *slog.Logger

	watcherFactory func() (FsWatcher, error)
	sweepEvery     time.Duration
	settle         time.Duration
	nowFunc        func() time.Time
}

// NewSpoolSource creates a source watching dir.
func NewSpoolSource(dir string, handler Handler, logger *slog.Logger) *SpoolSource {
	return &SpoolSource{
		dir:            dir,
		handler:        handler,
		logger:         logger,
		watcherFactory: newFsnotifyWatcher,
		sweepEvery:     sweepInterval,
		settle:         settleTime,
		nowFunc:        time.Now,
	}
}

// Run watches the spool directory until ctx is canceled. Files already in
// the directory are handled first, in name order.
func (s *SpoolSource) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, spoolDirPerms); err != nil {
		return fmt.Errorf("host: creating spool dir %s: %w", s.dir, err)
	}

	watcher, err := s.watcherFactory()
	if err != nil {
		return fmt.Errorf("host: creating spool watcher: %w", err)
	}
	defer watcher.Close()

	// Watch before sweeping so a file landing in between is not missed.
	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("host: watching spool dir %s: %w", s.dir, err)
	}

	s.logger.Info("spool source started", slog.String("dir", s.dir))
	s.sweep(ctx)

	return s.watchLoop(ctx, watcher)
}

func (s *SpoolSource) watchLoop(ctx context.Context, watcher FsWatcher) error {
	sweepTicker := time.NewTicker(s.sweepEvery)
	defer sweepTicker.Stop()

	errBackoff := watchErrInitBackoff

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}

			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				s.handleFile(ctx, ev.Name)
			}

			errBackoff = watchErrInitBackoff

		case watchErr, ok := <-watcher.Errors():
			if !ok {
				return nil
			}

			s.logger.Warn("spool watcher error",
				slog.String("error", watchErr.Error()),
				slog.Duration("backoff", errBackoff),
			)

			if sleepErr := sleepCtx(ctx, errBackoff); sleepErr != nil {
				return nil
			}

			errBackoff = min(errBackoff*watchErrBackoffMult, watchErrMaxBackoff)

			// Events may have been dropped; catch up.
			s.sweep(ctx)

		case <-sweepTicker.C:
			s.sweep(ctx)
		}
	}
}

// sweep handles every spool file currently present, in name order.
func (s *SpoolSource) sweep(ctx context.Context) {
	names, err := pendingSpoolFiles(s.dir)
	if err != nil {
		s.logger.Warn("spool sweep failed", slog.String("error", err.Error()))
		return
	}

	for _, name := range names {
		if ctx.Err() != nil {
			return
		}

		s.handleFile(ctx, filepath.Join(s.dir, name))
	}
}

// handleFile removes one spool file and delivers its content. A file that
// vanished was already handled by an earlier event or sweep.
func (s *SpoolSource) handleFile(ctx context.Context, path string) {
	if !isSpoolFile(filepath.Base(path)) {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("reading spool file failed",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}

		return
	}

	// A non-atomic sender may still be writing. The Write event or a later
	// sweep picks the file up again.
	if !json.Valid(data) && s.stillWriting(path) {
		return
	}

	// Removed before handling: spool delivery is at-most-once.
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("removing spool file failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return
	}

	deliver(ctx, s.handler, s.logger, SourceSpool, data)
}

// stillWriting reports whether path changed within the settle time.
func (s *SpoolSource) stillWriting(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return s.nowFunc().Sub(info.ModTime()) < s.settle
}

func pendingSpoolFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("host: reading spool dir: %w", err)
	}

	var names []string

	for _, e := range entries {
		if e.Type().IsRegular() && isSpoolFile(e.Name()) {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)

	return names, nil
}

// isSpoolFile reports whether name is a finished spool file. Temp files
// written by WriteSpoolFile start with a dot and are skipped.
func isSpoolFile(name string) bool {
	return strings.HasSuffix(name, spoolExt) && !strings.HasPrefix(name, ".")
}

// WriteSpoolFile atomically drops t into dir and returns the file path.
// The file name sorts by creation time so a sweep preserves send order.
func WriteSpoolFile(dir string, t command.Trigger) (string, error) {
	data, err := command.EncodeTrigger(t)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, spoolDirPerms); err != nil {
		return "", fmt.Errorf("host: creating spool dir %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, ".trigger-*.tmp")
	if err != nil {
		return "", fmt.Errorf("host: creating spool temp file: %w", err)
	}

	tempPath := f.Name()

	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return "", fmt.Errorf("host: writing spool file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("host: closing spool file: %w", err)
	}

	if err := os.Chmod(tempPath, spoolFilePerm); err != nil {
		return "", fmt.Errorf("host: setting spool file permissions: %w", err)
	}

	name := fmt.Sprintf("%020d-%s%s", time.Now().UnixNano(), t.ID, spoolExt)
	path := filepath.Join(dir, name)

	if err := os.Rename(tempPath, path); err != nil {
		return "", fmt.Errorf("host: publishing spool file: %w", err)
	}

	succeeded = true

	return path, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
