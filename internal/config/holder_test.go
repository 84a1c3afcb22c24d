package config

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHolder(t *testing.T) {
	cfg := DefaultConfig()
	h := NewHolder(cfg, "/etc/mailsync/config.toml")

	require.NotNil(t, h)
	assert.Equal(t, cfg, h.Config())
	assert.Equal(t, "/etc/mailsync/config.toml", h.Path())
}

func TestHolder_Update(t *testing.T) {
	cfg1 := DefaultConfig()
	h := NewHolder(cfg1, "/tmp/config.toml")

	cfg2 := DefaultConfig()
	cfg2.Logging.LogLevel = "debug"

	h.Update(cfg2)

	got := h.Config()
	assert.Same(t, cfg2, got)
	assert.Equal(t, "debug", got.Logging.LogLevel)
}

func TestHolder_License(t *testing.T) {
	cfg := DefaultConfig()
	cfg.License.File = "/a/license.toml"
	h := NewHolder(cfg, "")

	assert.Equal(t, "/a/license.toml", h.LicenseFile())
	assert.False(t, h.LicenseDisabled())

	next := DefaultConfig()
	next.License.File = "/b/license.toml"
	next.License.Disabled = true
	h.Update(next)

	assert.Equal(t, "/b/license.toml", h.LicenseFile())
	assert.True(t, h.LicenseDisabled())
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	h := NewHolder(DefaultConfig(), "/tmp/config.toml")

	var wg sync.WaitGroup

	for range 10 {
		wg.Add(2)

		go func() {
			defer wg.Done()

			_ = h.Config()
			_ = h.LicenseFile()
		}()

		go func() {
			defer wg.Done()

			h.Update(DefaultConfig())
		}()
	}

	wg.Wait()
	assert.NotNil(t, h.Config())
}
