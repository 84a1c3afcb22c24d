package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Notice is the content of the presence marker. Every field except Title is
// fixed: the notice must stay silent, hidden and at the lowest priority.
type Notice struct {
	Title      string `toml:"title"`
	Priority   string `toml:"priority"`
	Visibility string `toml:"visibility"`
	Category   string `toml:"category"`
	LocalOnly  bool   `toml:"local_only"`
}

func newNotice(title string) Notice {
	return Notice{
		Title:      title,
		Priority:   "min",
		Visibility: "secret",
		Category:   "service",
		LocalOnly:  true,
	}
}

// MarkerPresence keeps a marker file on disk for as long as the intake is
// in the foreground. Supervisors watch the file the way a mobile host
// watches a foreground notification.
type MarkerPresence struct {
	path   string
	notice Notice
}

// NewMarkerPresence creates a presence backed by the file at path.
func NewMarkerPresence(path, title string) *MarkerPresence {
	return &MarkerPresence{path: path, notice: newNotice(title)}
}

// Establish writes the marker. Rewriting an existing marker is harmless.
func (m *MarkerPresence) Establish(_ context.Context) error {
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, spoolDirPerms); err != nil {
		return fmt.Errorf("host: creating presence dir: %w", err)
	}

	f, err := os.CreateTemp(dir, ".presence-*.tmp")
	if err != nil {
		return fmt.Errorf("host: creating presence marker: %w", err)
	}

	tempPath := f.Name()

	if err := toml.NewEncoder(f).Encode(m.notice); err != nil {
		f.Close()
		os.Remove(tempPath)

		return fmt.Errorf("host: encoding presence marker: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)

		return fmt.Errorf("host: closing presence marker: %w", err)
	}

	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)

		return fmt.Errorf("host: publishing presence marker: %w", err)
	}

	return nil
}

// Clear removes the marker. A missing marker is not an error.
func (m *MarkerPresence) Clear() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("host: removing presence marker: %w", err)
	}

	return nil
}

// ReadNotice parses a presence marker file.
func ReadNotice(path string) (Notice, error) {
	var n Notice
	if _, err := toml.DecodeFile(path, &n); err != nil {
		return Notice{}, fmt.Errorf("host: reading presence marker: %w", err)
	}

	return n, nil
}

// NopPresence is a presence with nothing behind it, for hosts without a
// marker file configured.
type NopPresence struct{}

// Establish does nothing.
func (NopPresence) Establish(context.Context) error { return nil }

// Clear does nothing.
func (NopPresence) Clear() error { return nil }
