package config

import (
	"fmt"
	"io"
)

// RenderEffective writes the resolved configuration to w as annotated TOML.
// This powers "config show", giving users visibility into the values after
// defaults, file, env and CLI overrides have been applied.
func RenderEffective(cfg *Config, path string, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", orNone(path))

	ew.printf("[logging]\n")
	ew.printf("log_level = %q\n", cfg.Logging.LogLevel)
	ew.printf("log_format = %q\n", cfg.Logging.LogFormat)
	ew.printf("log_file = %q\n\n", cfg.Logging.LogFile)

	ew.printf("[store]\n")
	ew.printf("db_path = %q\n\n", cfg.Store.DBPath)

	ew.printf("[intake]\n")
	ew.printf("spool_dir = %q\n", cfg.Intake.SpoolDir)
	ew.printf("listen_addr = %q\n", cfg.Intake.ListenAddr)
	ew.printf("nats_url = %q\n", cfg.Intake.NATSURL)
	ew.printf("nats_subject = %q\n", cfg.Intake.NATSSubject)
	ew.printf("action_prefix = %q\n", cfg.Intake.ActionPrefix)
	ew.printf("pid_file = %q\n\n", cfg.Intake.PIDFile)

	ew.printf("[engine]\n")
	ew.printf("pid_file = %q\n\n", cfg.Engine.PIDFile)

	ew.printf("[license]\n")
	ew.printf("file = %q\n", cfg.License.File)
	ew.printf("disabled = %t\n\n", cfg.License.Disabled)

	ew.printf("[presence]\n")
	ew.printf("marker_file = %q\n", cfg.Presence.MarkerFile)
	ew.printf("title = %q\n", cfg.Presence.Title)

	return ew.err
}

func orNone(path string) string {
	if path == "" {
		return "none"
	}

	return path
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
