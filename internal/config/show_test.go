package config

import (
	"bytes"
	"errors"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEffective_RoundTrips(t *testing.T) {
	cfg := validConfig()
	cfg.Intake.ListenAddr = "127.0.0.1:7878"
	cfg.Intake.ActionPrefix = "com.example.mail."
	cfg.License.Disabled = true

	var buf bytes.Buffer
	require.NoError(t, RenderEffective(cfg, "/etc/mailsync/config.toml", &buf))

	out := buf.String()
	assert.Contains(t, out, "# Effective configuration (file: /etc/mailsync/config.toml)")

	// The output is itself a valid config file describing the same values.
	var parsed Config
	_, err := toml.Decode(out, &parsed)
	require.NoError(t, err)
	assert.Equal(t, *cfg, parsed)
}

func TestRenderEffective_NoFile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderEffective(validConfig(), "", &buf))
	assert.Contains(t, buf.String(), "(file: none)")
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRenderEffective_WriteError(t *testing.T) {
	err := RenderEffective(validConfig(), "", failWriter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
