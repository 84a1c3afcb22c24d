package config

import "path/filepath"

// Default values for configuration options. Paths are derived from the
// platform data directory at DefaultConfig time.
const (
	defaultLogLevel      = "info"
	defaultLogFormat     = "auto"
	defaultNATSSubject   = "mailsync.triggers"
	defaultPresenceTitle = "Mail sync"
	defaultDBFile        = "mailsync.db"
	defaultSpoolDir      = "spool"
	defaultEnginePIDFile = "engine.pid"
	defaultIntakePIDFile = "intake.pid"
	defaultMarkerFile    = "presence.toml"
	defaultLicenseFile   = "license.toml"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	dataDir := DefaultDataDir()

	return &Config{
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		Store: StoreConfig{
			DBPath: dataPath(dataDir, defaultDBFile),
		},
		Intake: IntakeConfig{
			SpoolDir:    dataPath(dataDir, defaultSpoolDir),
			NATSSubject: defaultNATSSubject,
			PIDFile:     dataPath(dataDir, defaultIntakePIDFile),
		},
		Engine: EngineConfig{
			PIDFile: dataPath(dataDir, defaultEnginePIDFile),
		},
		License: LicenseConfig{
			File: DefaultLicensePath(),
		},
		Presence: PresenceConfig{
			MarkerFile: dataPath(dataDir, defaultMarkerFile),
			Title:      defaultPresenceTitle,
		},
	}
}

// dataPath joins name onto dir, or returns "" when the platform data
// directory could not be determined.
func dataPath(dir, name string) string {
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, name)
}
