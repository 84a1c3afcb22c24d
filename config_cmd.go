package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/mailsync/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		RunE:  runConfigShow,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if resolvedCfg == nil {
		return errors.New("no configuration loaded")
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), resolvedCfg)
	}

	return config.RenderEffective(resolvedCfg, resolvedPath, cmd.OutOrStdout())
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a commented default config file",
		Long: `Write a config file listing every setting with its default commented out.
The file goes to --config, $MAILSYNC_CONFIG, or the default location, and an
existing file is never overwritten.`,
		RunE: runConfigInit,
	}
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	path := config.ResolvePath(config.ReadEnvOverrides(), config.CLIOverrides{ConfigPath: flagConfigPath})
	if path == "" {
		return errors.New("cannot determine config path: set --config or $" + config.EnvConfig)
	}

	if err := config.WriteTemplate(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	statusf("Wrote %s\n", path)

	return nil
}

