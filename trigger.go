package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/mailsync/internal/command"
	"github.com/tonimelisma/mailsync/internal/config"
	"github.com/tonimelisma/mailsync/internal/host"
)

// Transports a trigger command can send through.
const (
	viaSpool     = "spool"
	viaWebSocket = "websocket"
	viaNATS      = "nats"
)

// sendTimeout bounds a network send including the wait for the reply.
const sendTimeout = 10 * time.Second

// triggerOptions holds the flags shared by poll, enable and disable.
type triggerOptions struct {
	account string
	via     string
	url     string
}

// triggerResult is what a trigger command reports. Outcome is set for
// transports that reply; SpoolFile for the spool.
type triggerResult struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	Transport string `json:"transport"`
	Outcome   string `json:"outcome,omitempty"`
	SpoolFile string `json:"spool_file,omitempty"`
}

func newPollCmd() *cobra.Command {
	return newTriggerCmd(
		"poll",
		"Ask the sync engine to synchronize now",
		command.ActionPoll,
		false,
	)
}

func newEnableCmd() *cobra.Command {
	return newTriggerCmd(
		"enable",
		"Enable synchronization for an account, or globally without --account",
		command.ActionEnable,
		true,
	)
}

func newDisableCmd() *cobra.Command {
	return newTriggerCmd(
		"disable",
		"Disable synchronization for an account, or globally without --account",
		command.ActionDisable,
		true,
	)
}

func newTriggerCmd(use, short, action string, takesAccount bool) *cobra.Command {
	opts := &triggerOptions{}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

By default the trigger is dropped into the spool directory and the command
returns once it is queued. With --via websocket or --via nats it goes to the
running daemon directly and the command prints the daemon's outcome.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrigger(cmd, action, opts)
		},
	}

	if takesAccount {
		cmd.Flags().StringVar(&opts.account, "account", "", "account name (omit for the global switch)")
	}

	cmd.Flags().StringVar(&opts.via, "via", viaSpool, "transport: spool, websocket or nats")
	cmd.Flags().StringVar(&opts.url, "url", "", "override the WebSocket or NATS URL from the config")
	cmd.Flags().StringVar(&flagSpoolDir, "spool-dir", "", "override the spool directory")

	return cmd
}

func runTrigger(cmd *cobra.Command, action string, opts *triggerOptions) error {
	t := buildTrigger(resolvedCfg, action, opts.account)

	ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
	defer cancel()

	res, err := sendTrigger(ctx, resolvedCfg, opts, t)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}

	if res.SpoolFile != "" {
		statusf("Queued %s (%s)\n", res.Action, res.SpoolFile)
		return nil
	}

	statusf("%s %s via %s\n", res.Action, res.Outcome, res.Transport)

	return nil
}

// buildTrigger qualifies action with the configured prefix so the daemon's
// parser recognizes it.
func buildTrigger(cfg *config.Config, action, account string) command.Trigger {
	var params map[string]string
	if account != "" {
		params = map[string]string{command.ParamAccount: account}
	}

	t := command.NewTrigger(cfg.Intake.ActionPrefix+action, params)
	t.Source = "cli"

	return t
}

func sendTrigger(ctx context.Context, cfg *config.Config, opts *triggerOptions, t command.Trigger) (*triggerResult, error) {
	res := &triggerResult{ID: t.ID, Action: t.Action, Transport: opts.via}

	switch opts.via {
	case viaSpool:
		if cfg.Intake.SpoolDir == "" {
			return nil, errors.New("no spool directory configured: set [intake] spool_dir or --spool-dir")
		}

		path, err := host.WriteSpoolFile(cfg.Intake.SpoolDir, t)
		if err != nil {
			return nil, err
		}

		res.SpoolFile = path

	case viaWebSocket:
		url, err := webSocketURL(cfg, opts.url)
		if err != nil {
			return nil, err
		}

		reply, err := host.SendWebSocket(ctx, url, t)
		if err != nil {
			return nil, err
		}

		res.Outcome = reply.Outcome

	case viaNATS:
		url := opts.url
		if url == "" {
			url = cfg.Intake.NATSURL
		}

		if url == "" {
			return nil, errors.New("no NATS server configured: set [intake] nats_url or --url")
		}

		reply, err := host.SendNATS(ctx, url, cfg.Intake.NATSSubject, t)
		if err != nil {
			return nil, err
		}

		res.Outcome = reply.Outcome

	default:
		return nil, fmt.Errorf("unknown transport %q (want %s, %s or %s)", opts.via, viaSpool, viaWebSocket, viaNATS)
	}

	return res, nil
}

// webSocketURL derives the daemon's trigger endpoint from listen_addr. A
// listener bound to all interfaces is reached through loopback.
func webSocketURL(cfg *config.Config, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if cfg.Intake.ListenAddr == "" {
		return "", errors.New("no WebSocket listener configured: set [intake] listen_addr or --url")
	}

	hostname, port, err := net.SplitHostPort(cfg.Intake.ListenAddr)
	if err != nil {
		return "", fmt.Errorf("parsing listen_addr: %w", err)
	}

	if hostname == "" || hostname == "0.0.0.0" || hostname == "::" {
		hostname = "127.0.0.1"
	}

	return "ws://" + net.JoinHostPort(hostname, port) + host.TriggerPath, nil
}
