package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/mailsync/internal/config"
	"github.com/tonimelisma/mailsync/internal/store"
)

// accountJSON is the JSON form of one account row.
type accountJSON struct {
	Name        string    `json:"name"`
	SyncEnabled bool      `json:"sync_enabled"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// accountsJSON is the JSON output of "mailsync accounts".
type accountsJSON struct {
	GlobalEnabled bool          `json:"global_enabled"`
	Accounts      []accountJSON `json:"accounts"`
}

func newAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List accounts and their sync state",
		Args:  cobra.NoArgs,
		RunE:  runAccounts,
	}
}

func runAccounts(cmd *cobra.Command, _ []string) error {
	logger, closeLog, err := cliLogger(resolvedCfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := cmd.Context()

	st, err := openStore(ctx, resolvedCfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	accounts, err := st.ListAccounts(ctx)
	if err != nil {
		return err
	}

	global, err := st.GlobalFlag(ctx, store.PrefEnabled, true)
	if err != nil {
		return err
	}

	if flagJSON {
		out := accountsJSON{GlobalEnabled: global, Accounts: make([]accountJSON, 0, len(accounts))}
		for _, a := range accounts {
			out.Accounts = append(out.Accounts, accountJSON{Name: a.Name, SyncEnabled: a.SyncEnabled, UpdatedAt: a.UpdatedAt})
		}

		return printJSON(cmd.OutOrStdout(), out)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Sync: %s\n\n", formatEnabled(global))

	if len(accounts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No accounts. Add one with 'mailsync account add <name>'.")
		return nil
	}

	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, []string{a.Name, formatEnabled(a.SyncEnabled), formatTime(a.UpdatedAt)})
	}

	printTable(cmd.OutOrStdout(), []string{"NAME", "SYNC", "UPDATED"}, rows)

	return nil
}

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	cmd.AddCommand(newAccountAddCmd())

	return cmd
}

func newAccountAddCmd() *cobra.Command {
	var disabled bool

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an account to the store",
		Long: `Add an account to the store. Triggers only toggle accounts that exist;
the name must match the trigger's account parameter exactly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountAdd(cmd, args[0], !disabled)
		},
	}

	cmd.Flags().BoolVar(&disabled, "disabled", false, "create the account with sync disabled")

	return cmd
}

func runAccountAdd(cmd *cobra.Command, name string, enabled bool) error {
	if name == "" {
		return errors.New("account name must not be empty")
	}

	// Triggers match names byte for byte and senders emit composed text.
	if !norm.NFC.IsNormalString(name) {
		return fmt.Errorf("account name %q is not NFC-normalized, use %q", name, norm.NFC.String(name))
	}

	logger, closeLog, err := cliLogger(resolvedCfg)
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := openStore(cmd.Context(), resolvedCfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	a, err := st.CreateAccount(cmd.Context(), name, enabled)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateAccount) {
			return fmt.Errorf("account %q already exists", name)
		}

		return err
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), accountJSON{Name: a.Name, SyncEnabled: a.SyncEnabled, UpdatedAt: a.UpdatedAt})
	}

	statusf("Added account %s (sync %s)\n", a.Name, formatEnabled(a.SyncEnabled))

	return nil
}

// cliLogger is the logger for one-shot commands. Routine info lines such
// as migrations are hidden unless --verbose is set.
func cliLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	logger, level, closeFn, err := buildLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	if !flagVerbose && level.Level() < slog.LevelWarn {
		level.Set(slog.LevelWarn)
	}

	return logger, closeFn, nil
}
