package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
	"unicode"
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateIntake(&cfg.Intake)...)
	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateLicense(&cfg.License)...)
	errs = append(errs, validatePresence(&cfg.Presence)...)

	return errors.Join(errs...)
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.LogLevel)...)
	errs = append(errs, validateLogFormat(l.LogFormat)...)
	errs = append(errs, validateOptionalAbs("log_file", l.LogFile)...)

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("log_format: must be one of auto, text, json; got %q", format)}
	}

	return nil
}

func validateStore(s *StoreConfig) []error {
	if s.DBPath == "" {
		return []error{errors.New("db_path: must not be empty")}
	}

	return validateOptionalAbs("db_path", s.DBPath)
}

func validateIntake(in *IntakeConfig) []error {
	var errs []error

	errs = append(errs, validateOptionalAbs("spool_dir", in.SpoolDir)...)
	errs = append(errs, validateOptionalAbs("pid_file", in.PIDFile)...)

	if in.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(in.ListenAddr); err != nil {
			errs = append(errs, fmt.Errorf("listen_addr: %w", err))
		}
	}

	if in.NATSURL != "" {
		u, err := url.Parse(in.NATSURL)
		if err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("nats_url: must be a URL such as nats://127.0.0.1:4222; got %q", in.NATSURL))
		}

		if in.NATSSubject == "" {
			errs = append(errs, errors.New("nats_subject: required when nats_url is set"))
		}
	}

	if strings.ContainsFunc(in.ActionPrefix, unicode.IsSpace) {
		errs = append(errs, fmt.Errorf("action_prefix: must not contain whitespace; got %q", in.ActionPrefix))
	}

	return errs
}

func validateEngine(e *EngineConfig) []error {
	return validateOptionalAbs("pid_file", e.PIDFile)
}

func validateLicense(l *LicenseConfig) []error {
	return validateOptionalAbs("file", l.File)
}

func validatePresence(p *PresenceConfig) []error {
	return validateOptionalAbs("marker_file", p.MarkerFile)
}

// validateOptionalAbs requires path to be absolute when set.
func validateOptionalAbs(field, path string) []error {
	if path != "" && !filepath.IsAbs(path) {
		return []error{fmt.Errorf("%s: must be an absolute path; got %q", field, path)}
	}

	return nil
}
