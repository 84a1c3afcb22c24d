package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/mailsync/internal/command"
	"github.com/tonimelisma/mailsync/internal/config"
	"github.com/tonimelisma/mailsync/internal/engine"
	"github.com/tonimelisma/mailsync/internal/host"
	"github.com/tonimelisma/mailsync/internal/intake"
	"github.com/tonimelisma/mailsync/internal/license"
	"github.com/tonimelisma/mailsync/internal/store"
)

// dataDirPermissions keeps the database and spool private to the user.
const dataDirPermissions = 0o700

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the trigger intake daemon",
		Long: `Run the trigger intake daemon in the foreground.

Triggers arrive through the spool directory, the WebSocket listener and the
NATS subject, whichever are configured. Account toggles are applied in
arrival order and the sync engine is signalled afterwards.

SIGHUP reloads the config file (log level and license settings). SIGINT or
SIGTERM lets the in-flight toggle finish, then exits.`,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&flagSpoolDir, "spool-dir", "", "override the spool directory")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger, level, closeLog, err := buildLogger(resolvedCfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := shutdownContext(cmd.Context(), logger)

	d, err := newDaemon(ctx, resolvedCfg, resolvedPath, logger)
	if err != nil {
		return err
	}

	// The PID file advertises the daemon to "reload", so SIGHUP must be
	// handled before it exists.
	reloadOnHangup(ctx, logger, d.reloadConfig(resolvedCLI, level))

	if pidPath := resolvedCfg.Intake.PIDFile; pidPath != "" {
		cleanup, pidErr := writePIDFile(pidPath)
		if pidErr != nil {
			d.store.Close()
			return pidErr
		}
		defer cleanup()
	}

	return d.run(ctx)
}

// intakeSource is one trigger transport.
type intakeSource interface {
	Run(ctx context.Context) error
}

// daemon owns every long-lived component of "mailsync serve".
type daemon struct {
	holder     *config.Holder
	logger     *slog.Logger
	store      *store.Store
	handoff    *engine.Handoff
	executor   *intake.Executor
	activation *intake.Activation
	sources    []intakeSource
}

// newDaemon opens the store and wires the intake pipeline:
// sources -> activation -> service -> executor -> store, with engine
// signals flowing out through the handoff.
func newDaemon(ctx context.Context, cfg *config.Config, path string, logger *slog.Logger) (*daemon, error) {
	holder := config.NewHolder(cfg, path)

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	handoff := engine.NewHandoff(newEngineTarget(cfg, logger), logger)
	executor := intake.NewExecutor(logger)

	checker := &license.FileChecker{
		PathFunc:     holder.LicenseFile,
		DisabledFunc: holder.LicenseDisabled,
		Logger:       logger,
	}

	svc := intake.NewService(&intake.ServiceConfig{
		Parser:     command.Parser{Prefix: cfg.Intake.ActionPrefix},
		Gatekeeper: intake.NewGatekeeper(checker, logger),
		State:      intake.NewStateGate(st, st, logger),
		Executor:   executor,
		Engine:     handoff,
		Logger:     logger,
	})

	activation := intake.NewActivation(svc, newPresence(cfg), logger)

	sources, err := buildSources(cfg, activation, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &daemon{
		holder:     holder,
		logger:     logger,
		store:      st,
		handoff:    handoff,
		executor:   executor,
		activation: activation,
		sources:    sources,
	}, nil
}

// openStore opens the database, creating its directory if needed.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.DBPath), dataDirPermissions); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return store.Open(ctx, cfg.Store.DBPath, logger)
}

// newEngineTarget signals the engine daemon when its PID file is
// configured and only logs signals otherwise.
func newEngineTarget(cfg *config.Config, logger *slog.Logger) engine.Target {
	if cfg.Engine.PIDFile == "" {
		return engine.LogTarget{Logger: logger}
	}

	return &engine.PIDTarget{Path: cfg.Engine.PIDFile, Logger: logger}
}

func newPresence(cfg *config.Config) intake.Presence {
	if cfg.Presence.MarkerFile == "" {
		return host.NopPresence{}
	}

	return host.NewMarkerPresence(cfg.Presence.MarkerFile, cfg.Presence.Title)
}

// buildSources returns one source per configured transport.
func buildSources(cfg *config.Config, h host.Handler, logger *slog.Logger) ([]intakeSource, error) {
	var sources []intakeSource

	if cfg.Intake.SpoolDir != "" {
		sources = append(sources, host.NewSpoolSource(cfg.Intake.SpoolDir, h, logger))
	}

	if cfg.Intake.ListenAddr != "" {
		sources = append(sources, host.NewWebSocketSource(cfg.Intake.ListenAddr, h, logger))
	}

	if cfg.Intake.NATSURL != "" {
		sources = append(sources, host.NewNATSSource(cfg.Intake.NATSURL, cfg.Intake.NATSSubject, h, logger))
	}

	if len(sources) == 0 {
		return nil, errors.New("no trigger source configured: set spool_dir, listen_addr or nats_url in [intake]")
	}

	return sources, nil
}

// run serves triggers until ctx is canceled or a source fails, then tears
// the pipeline down in dependency order.
func (d *daemon) run(ctx context.Context) error {
	// The in-flight toggle must finish even after shutdown begins.
	workCtx := context.WithoutCancel(ctx)

	d.executor.Start(workCtx)

	handoffDone := make(chan struct{})

	go func() {
		defer close(handoffDone)
		d.handoff.Run(workCtx)
	}()

	defer d.shutdown(handoffDone)

	if err := d.activation.Open(ctx); err != nil {
		return fmt.Errorf("activating intake: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, src := range d.sources {
		g.Go(func() error { return src.Run(gctx) })
	}

	d.logger.Info("mailsync serve started", slog.Int("sources", len(d.sources)))

	return g.Wait()
}

// shutdown stops intake first, then lets the executor finish its current
// job so any reload it requests reaches the handoff before the final
// delivery.
func (d *daemon) shutdown(handoffDone <-chan struct{}) {
	if err := d.activation.Close(); err != nil {
		d.logger.Warn("closing activation", slog.String("error", err.Error()))
	}

	d.executor.Stop()

	d.handoff.Close()
	<-handoffDone

	succeeded, failed := d.executor.Stats()
	d.logger.Info("mailsync serve stopped",
		slog.Int("jobs_succeeded", succeeded),
		slog.Int("jobs_failed", failed),
	)

	if err := d.store.Close(); err != nil {
		d.logger.Warn("closing store", slog.String("error", err.Error()))
	}
}

// reloadConfig returns the SIGHUP handler. It resolves the config the same
// way startup did; sources and the action prefix keep their startup values.
func (d *daemon) reloadConfig(cli config.CLIOverrides, level *slog.LevelVar) func() error {
	return func() error {
		cfg, _, err := config.Resolve(config.ReadEnvOverrides(), cli)
		if err != nil {
			return err
		}

		d.holder.Update(cfg)
		level.Set(logLevel(cfg))

		return nil
	}
}
