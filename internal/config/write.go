package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// configFilePermissions is the standard permission mode for config files.
// Owner read/write, group and others read-only.
const configFilePermissions = 0o644

// configDirPermissions is the standard permission mode for config directories.
const configDirPermissions = 0o755

// ErrConfigExists is returned by WriteTemplate when the target file exists.
var ErrConfigExists = errors.New("config file already exists")

// configTemplate is the file written by "config init". Every setting is
// present as a commented-out default so users can discover every option.
const configTemplate = `# mailsync configuration

[logging]
# Verbosity: debug, info, warn, error
# log_level = "info"
# Output format: auto (text on a terminal, JSON otherwise), text, json
# log_format = "auto"
# Append logs to this file instead of stderr
# log_file = ""

[store]
# SQLite database holding accounts and preferences
# db_path = "~/.local/share/mailsync/mailsync.db"

[intake]
# Each *.json file dropped here is one trigger
# spool_dir = "~/.local/share/mailsync/spool"
# WebSocket listener for triggers, e.g. "127.0.0.1:7878"; empty disables it
# listen_addr = ""
# NATS server for triggers; empty disables it
# nats_url = ""
# nats_subject = "mailsync.triggers"
# Prefix every action name must carry, e.g. "com.example.mail."
# action_prefix = ""
# PID file of "mailsync serve" itself
# pid_file = "~/.local/share/mailsync/intake.pid"

[engine]
# PID file of the running sync engine; signals go to this process.
# Empty logs signals instead of sending them.
# pid_file = "~/.local/share/mailsync/engine.pid"

[license]
# file = "~/.config/mailsync/license.toml"
# disabled = false

[presence]
# marker_file = "~/.local/share/mailsync/presence.toml"
# title = "Mail sync"
`

// WriteTemplate writes the commented default config to path. It refuses to
// overwrite an existing file.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	return atomicWriteFile(path, []byte(configTemplate))
}

// atomicWriteFile writes data to a temporary file in the same directory as
// path, then renames it to the target path. Parent directories are created
// as needed.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
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

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
