package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/mailsync/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// flagSpoolDir is bound by the commands that read or write the spool
// directory.
var flagSpoolDir string

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE,
// resolvedPath the file it came from, and resolvedCLI the overrides that
// produced it so a SIGHUP reload can resolve again the same way.
var (
	resolvedCfg  *config.Config
	resolvedPath string
	resolvedCLI  config.CLIOverrides
)

// skipConfigCommands lists commands that must run without a loadable
// config file.
var skipConfigCommands = map[string]bool{
	"mailsync config init": true,
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mailsync",
		Short:   "External command intake for the mail sync engine",
		Long:    "Receives POLL, ENABLE and DISABLE triggers and turns them into account state changes and engine signals.",
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipConfigCommands[cmd.CommandPath()] {
				return nil
			}

			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "only log errors")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newPollCmd())
	cmd.AddCommand(newEnableCmd())
	cmd.AddCommand(newDisableCmd())
	cmd.AddCommand(newReloadCmd())
	cmd.AddCommand(newAccountsCmd())
	cmd.AddCommand(newAccountCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the override chain
// and stores the result for use by subcommands.
func loadConfig(cmd *cobra.Command) error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
	}

	// Only pass --spool-dir to the resolver if the user explicitly set it.
	if f := cmd.Flags().Lookup("spool-dir"); f != nil && f.Changed {
		dir := flagSpoolDir
		cli.SpoolDir = &dir
	}

	cfg, path, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = cfg
	resolvedPath = path
	resolvedCLI = cli

	return nil
}

// logLevel maps the config log level and the CLI flags to a slog level.
// Config provides the baseline; --verbose and --quiet override it.
func logLevel(cfg *config.Config) slog.Level {
	level := slog.LevelInfo

	if cfg != nil {
		switch cfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return level
}

// newLogHandler picks the handler for format. "auto" means text for a human
// at a terminal and JSON for everything else (journald, files, pipes).
func newLogHandler(w io.Writer, format string, terminal bool, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	if format == "json" || (format != "text" && !terminal) {
		return slog.NewJSONHandler(w, opts)
	}

	return slog.NewTextHandler(w, opts)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// buildLogger creates the process logger from cfg. The returned LevelVar
// lets a config reload change verbosity in place; close releases the log
// file, if any.
func buildLogger(cfg *config.Config) (logger *slog.Logger, level *slog.LevelVar, closeFn func(), err error) {
	level = new(slog.LevelVar)
	level.Set(logLevel(cfg))

	var w io.Writer = os.Stderr

	closeFn = func() {}

	format := "auto"
	if cfg != nil {
		format = cfg.Logging.LogFormat

		if cfg.Logging.LogFile != "" {
			f, openErr := os.OpenFile(cfg.Logging.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions)
			if openErr != nil {
				return nil, nil, nil, fmt.Errorf("opening log file: %w", openErr)
			}

			w = f
			closeFn = func() { f.Close() }
		}
	}

	return slog.New(newLogHandler(w, format, isTerminal(w), level)), level, closeFn, nil
}

// logFilePermissions keeps logs private to the user; they name accounts.
const logFilePermissions = 0o600

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
