// Package config loads and validates the mailsync TOML configuration file.
//
// The file is organized into one table per concern. Every key is optional;
// missing keys fall back to DefaultConfig. Unknown keys are fatal so that a
// typo never silently changes behavior.
package config

// Config is the top-level configuration.
type Config struct {
	Logging  LoggingConfig  `toml:"logging"`
	Store    StoreConfig    `toml:"store"`
	Intake   IntakeConfig   `toml:"intake"`
	Engine   EngineConfig   `toml:"engine"`
	License  LicenseConfig  `toml:"license"`
	Presence PresenceConfig `toml:"presence"`
}

// LoggingConfig controls the slog handler built by the CLI.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogFile   string `toml:"log_file"`
}

// StoreConfig locates the SQLite database holding accounts and preferences.
type StoreConfig struct {
	DBPath string `toml:"db_path"`
}

// IntakeConfig describes the trigger sources the serve command listens on.
// Empty ListenAddr or NATSURL disables that source. PIDFile is the serve
// process's own PID file, used by "reload" and to refuse a second instance.
type IntakeConfig struct {
	SpoolDir     string `toml:"spool_dir"`
	ListenAddr   string `toml:"listen_addr"`
	NATSURL      string `toml:"nats_url"`
	NATSSubject  string `toml:"nats_subject"`
	ActionPrefix string `toml:"action_prefix"`
	PIDFile      string `toml:"pid_file"`
}

// EngineConfig locates the running sync engine.
type EngineConfig struct {
	PIDFile string `toml:"pid_file"`
}

// LicenseConfig configures the entitlement check.
type LicenseConfig struct {
	File     string `toml:"file"`
	Disabled bool   `toml:"disabled"`
}

// PresenceConfig configures the foreground presence marker written while
// a trigger is being handled.
type PresenceConfig struct {
	MarkerFile string `toml:"marker_file"`
	Title      string `toml:"title"`
}
