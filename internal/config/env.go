package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig      = "MAILSYNC_CONFIG"
	EnvSpoolDir    = "MAILSYNC_SPOOL_DIR"
	EnvLicenseFile = "MAILSYNC_LICENSE_FILE"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath  string // MAILSYNC_CONFIG: override config file path
	SpoolDir    string // MAILSYNC_SPOOL_DIR: spool directory override
	LicenseFile string // MAILSYNC_LICENSE_FILE: license file override
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:  os.Getenv(EnvConfig),
		SpoolDir:    os.Getenv(EnvSpoolDir),
		LicenseFile: os.Getenv(EnvLicenseFile),
	}
}

// CLIOverrides holds values from command-line flags. Pointer fields are nil
// when the flag was not given.
type CLIOverrides struct {
	ConfigPath string
	SpoolDir   *string
}
