// Package license answers whether the external-trigger feature is
// entitled. Answers are never cached: every call re-reads its source so a
// license installed or revoked while the daemon runs takes effect on the
// next trigger.
package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// File is the on-disk license format.
type File struct {
	Holder  string `toml:"holder"`
	Key     string `toml:"key"`
	Expires string `toml:"expires"` // RFC3339; empty means perpetual
}

// FileChecker reports licensed when the license file at the path returned
// by PathFunc parses, carries a key, and has not expired. PathFunc and
// DisabledFunc are consulted on every call so a config reload can move the
// file or switch the check off.
type FileChecker struct {
	PathFunc     func() string
	DisabledFunc func() bool      // nil means never disabled
	Logger       *slog.Logger
	NowFunc      func() time.Time // nil uses time.Now
}

// IsLicensed implements the entitlement check.
func (c *FileChecker) IsLicensed(_ context.Context) bool {
	if c.DisabledFunc != nil && c.DisabledFunc() {
		return true
	}

	path := c.PathFunc()
	if path == "" {
		c.Logger.Debug("no license file configured")
		return false
	}

	lf, err := Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.Logger.Debug("license file not found", slog.String("path", path))
		} else {
			c.Logger.Warn("license file unreadable",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}

		return false
	}

	now := time.Now
	if c.NowFunc != nil {
		now = c.NowFunc
	}

	if err := lf.Valid(now()); err != nil {
		c.Logger.Info("license not valid",
			slog.String("path", path),
			slog.String("reason", err.Error()),
		)

		return false
	}

	return true
}

// Read parses the license file at path.
func Read(path string) (*File, error) {
	var lf File

	if _, err := toml.DecodeFile(path, &lf); err != nil {
		return nil, fmt.Errorf("license: parsing %s: %w", path, err)
	}

	return &lf, nil
}

// Valid reports why the license is not usable at now, or nil.
func (f *File) Valid(now time.Time) error {
	if f.Key == "" {
		return errors.New("license key missing")
	}

	if f.Expires == "" {
		return nil
	}

	until, err := time.Parse(time.RFC3339, f.Expires)
	if err != nil {
		return fmt.Errorf("invalid expires %q: %w", f.Expires, err)
	}

	if !until.After(now) {
		return fmt.Errorf("expired at %s", f.Expires)
	}

	return nil
}

// Always is a fixed answer. Used when licensing is switched off in config
// and in tests.
type Always bool

// IsLicensed returns the fixed answer.
func (a Always) IsLicensed(_ context.Context) bool {
	return bool(a)
}
