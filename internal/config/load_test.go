package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeTestConfig(t, `
[logging]
log_level = "debug"
log_format = "json"
log_file = "/var/log/mailsync.log"

[store]
db_path = "/var/lib/mailsync/state.db"

[intake]
spool_dir = "/var/spool/mailsync"
listen_addr = "127.0.0.1:7878"
nats_url = "nats://127.0.0.1:4222"
nats_subject = "mail.triggers"
action_prefix = "com.example.mail."
pid_file = "/run/mailsync/intake.pid"

[engine]
pid_file = "/run/mailsync.pid"

[license]
file = "/etc/mailsync/license.toml"
disabled = true

[presence]
marker_file = "/run/mailsync/presence.toml"
title = "Syncing mail"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "json", cfg.Logging.LogFormat)
	assert.Equal(t, "/var/log/mailsync.log", cfg.Logging.LogFile)
	assert.Equal(t, "/var/lib/mailsync/state.db", cfg.Store.DBPath)
	assert.Equal(t, "/var/spool/mailsync", cfg.Intake.SpoolDir)
	assert.Equal(t, "127.0.0.1:7878", cfg.Intake.ListenAddr)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.Intake.NATSURL)
	assert.Equal(t, "mail.triggers", cfg.Intake.NATSSubject)
	assert.Equal(t, "com.example.mail.", cfg.Intake.ActionPrefix)
	assert.Equal(t, "/run/mailsync/intake.pid", cfg.Intake.PIDFile)
	assert.Equal(t, "/run/mailsync.pid", cfg.Engine.PIDFile)
	assert.Equal(t, "/etc/mailsync/license.toml", cfg.License.File)
	assert.True(t, cfg.License.Disabled)
	assert.Equal(t, "/run/mailsync/presence.toml", cfg.Presence.MarkerFile)
	assert.Equal(t, "Syncing mail", cfg.Presence.Title)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	withHome(t)

	path := writeTestConfig(t, "[intake]\naction_prefix = \"app.\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, "app.", cfg.Intake.ActionPrefix)
	assert.Equal(t, def.Store.DBPath, cfg.Store.DBPath)
	assert.Equal(t, def.Intake.SpoolDir, cfg.Intake.SpoolDir)
	assert.Equal(t, def.Logging, cfg.Logging)
}

func TestLoad_ExpandsTilde(t *testing.T) {
	home := withHome(t)

	path := writeTestConfig(t, "[intake]\nspool_dir = \"~/drop\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "drop"), cfg.Intake.SpoolDir)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeTestConfig(t, "[logging\nlog_level = ")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_ValidationError(t *testing.T) {
	path := writeTestConfig(t, "[logging]\nlog_level = \"loud\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	withHome(t)

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOrDefault_EmptyPath(t *testing.T) {
	withHome(t)

	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolvePath_Precedence(t *testing.T) {
	withHome(t)

	assert.Equal(t, DefaultConfigPath(), ResolvePath(EnvOverrides{}, CLIOverrides{}))
	assert.Equal(t, "/env.toml", ResolvePath(EnvOverrides{ConfigPath: "/env.toml"}, CLIOverrides{}))
	assert.Equal(t, "/cli.toml", ResolvePath(
		EnvOverrides{ConfigPath: "/env.toml"},
		CLIOverrides{ConfigPath: "/cli.toml"},
	))
}

func TestResolve_OverrideChain(t *testing.T) {
	withHome(t)

	path := writeTestConfig(t, `
[intake]
spool_dir = "/from/file"

[license]
file = "/from/file/license.toml"
`)

	cfg, got, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, "/from/file", cfg.Intake.SpoolDir)

	cfg, _, err = Resolve(EnvOverrides{
		ConfigPath:  path,
		SpoolDir:    "/from/env",
		LicenseFile: "/from/env/license.toml",
	}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Intake.SpoolDir)
	assert.Equal(t, "/from/env/license.toml", cfg.License.File)

	cliSpool := "/from/cli"
	cfg, _, err = Resolve(
		EnvOverrides{ConfigPath: "/ignored.toml", SpoolDir: "/from/env"},
		CLIOverrides{ConfigPath: path, SpoolDir: &cliSpool},
	)
	require.NoError(t, err)
	assert.Equal(t, "/from/cli", cfg.Intake.SpoolDir)
}

func TestResolve_OverrideValidated(t *testing.T) {
	withHome(t)

	relative := "relative/spool"
	_, _, err := Resolve(EnvOverrides{}, CLIOverrides{
		ConfigPath: filepath.Join(t.TempDir(), "absent.toml"),
		SpoolDir:   &relative,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spool_dir")
}
