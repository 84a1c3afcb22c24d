package config

import "sync"

// Holder provides thread-safe access to a mutable *Config and an immutable
// config file path. The serve command and the license checker read through
// one Holder, so a SIGHUP reload updates config in exactly one place.
type Holder struct {
	mu   sync.RWMutex
	cfg  *Config
	path string // immutable after construction
}

// NewHolder creates a Holder with the initial config and config file path.
func NewHolder(cfg *Config, path string) *Holder {
	return &Holder{
		cfg:  cfg,
		path: path,
	}
}

// Config returns the current config snapshot.
func (h *Holder) Config() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.cfg
}

// Path returns the config file path.
func (h *Holder) Path() string {
	return h.path
}

// LicenseFile returns the license path of the current snapshot.
func (h *Holder) LicenseFile() string {
	return h.Config().License.File
}

// LicenseDisabled reports whether the current snapshot switches the
// license check off.
func (h *Holder) LicenseDisabled() bool {
	return h.Config().License.Disabled
}

// Update replaces the config.
func (h *Holder) Update(cfg *Config) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cfg = cfg
}
