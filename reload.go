package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask the running daemon to re-read its config",
		Long: `Send SIGHUP to the running "mailsync serve". The daemon re-reads the
config file and applies the new log level and license settings. An invalid
file is logged and the previous config stays in effect.`,
		Args: cobra.NoArgs,
		RunE: runReload,
	}
}

func runReload(_ *cobra.Command, _ []string) error {
	pidPath := resolvedCfg.Intake.PIDFile
	if pidPath == "" {
		return errors.New("no PID file configured: set [intake] pid_file")
	}

	if err := sendSIGHUP(pidPath); err != nil {
		return err
	}

	statusf("Reload requested\n")

	return nil
}
