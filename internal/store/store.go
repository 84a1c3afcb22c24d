// Package store persists mail accounts and the process-wide preference flags
// in a single SQLite database. It is the only shared mutable state the intake
// touches: one sync_enabled flag per account plus the global "enabled" and
// "schedule" preferences.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Preference keys for the global flags.
const (
	PrefEnabled  = "enabled"
	PrefSchedule = "schedule"
)

// ErrDuplicateAccount is returned by CreateAccount when the name is taken.
var ErrDuplicateAccount = errors.New("store: account name already exists")

// SQL statements for account and preference operations.
const (
	sqlGetAccountByName = `SELECT id, name, sync_enabled, updated_at FROM accounts WHERE name = ?`

	sqlListAccounts = `SELECT id, name, sync_enabled, updated_at FROM accounts ORDER BY name`

	sqlSetAccountSyncEnabled = `UPDATE accounts SET sync_enabled = ?, updated_at = ? WHERE id = ?`

	sqlInsertAccount = `INSERT INTO accounts (name, sync_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?)`

	sqlGetPreference = `SELECT value FROM preferences WHERE key = ?`

	sqlUpsertPreference = `INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
		 value = excluded.value,
		 updated_at = excluded.updated_at`
)

// Account is a configured mail identity. The intake only ever reads and
// updates SyncEnabled.
type Account struct {
	ID          int64
	Name        string
	SyncEnabled bool
	UpdatedAt   time.Time
}

// Store is the SQLite-backed account and preference store.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests
}

// Open opens the SQLite database at dbPath, runs migrations, and returns a
// ready-to-use store. The database uses WAL mode with synchronous=FULL so a
// toggle acknowledged in the log survives a crash.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening database %s: %w", dbPath, err)
	}

	// Sole-writer pattern: only one connection writes at a time.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("store initialized", slog.String("db_path", dbPath))

	return &Store{
		db:      db,
		logger:  logger,
		nowFunc: time.Now,
	}, nil
}

// AccountByName returns the account with exactly this name, or nil if there
// is none.
func (s *Store) AccountByName(ctx context.Context, name string) (*Account, error) {
	var (
		a         Account
		enabled   int
		updatedAt int64
	)

	err := s.db.QueryRowContext(ctx, sqlGetAccountByName, name).Scan(&a.ID, &a.Name, &enabled, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("store: getting account %q: %w", name, err)
	}

	a.SyncEnabled = enabled != 0
	a.UpdatedAt = time.Unix(0, updatedAt)

	return &a, nil
}

// ListAccounts returns all accounts ordered by name.
func (s *Store) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, sqlListAccounts)
	if err != nil {
		return nil, fmt.Errorf("store: listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account

	for rows.Next() {
		var (
			a         Account
			enabled   int
			updatedAt int64
		)

		if err := rows.Scan(&a.ID, &a.Name, &enabled, &updatedAt); err != nil {
			return nil, fmt.Errorf("store: scanning account row: %w", err)
		}

		a.SyncEnabled = enabled != 0
		a.UpdatedAt = time.Unix(0, updatedAt)
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating account rows: %w", err)
	}

	return accounts, nil
}

// CreateAccount inserts a new account. Used by operator tooling to seed the
// table; the intake itself never creates accounts.
func (s *Store) CreateAccount(ctx context.Context, name string, syncEnabled bool) (*Account, error) {
	existing, err := s.AccountByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateAccount, name)
	}

	now := s.nowFunc()

	res, err := s.db.ExecContext(ctx, sqlInsertAccount, name, boolToInt(syncEnabled), now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("store: inserting account %q: %w", name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: reading id of account %q: %w", name, err)
	}

	s.logger.Info("account created",
		slog.Int64("account_id", id),
		slog.String("name", name),
		slog.Bool("sync_enabled", syncEnabled),
	)

	return &Account{ID: id, Name: name, SyncEnabled: syncEnabled, UpdatedAt: time.Unix(0, now.UnixNano())}, nil
}

// SetAccountSyncEnabled persists the sync flag for one account.
func (s *Store) SetAccountSyncEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := s.db.ExecContext(ctx, sqlSetAccountSyncEnabled, boolToInt(enabled), s.nowFunc().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("store: setting sync_enabled for account %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: checking update of account %d: %w", id, err)
	}

	if n == 0 {
		return fmt.Errorf("store: account %d not found", id)
	}

	s.logger.Debug("account sync flag written",
		slog.Int64("account_id", id),
		slog.Bool("sync_enabled", enabled),
	)

	return nil
}

// GlobalFlag returns the preference stored under key, or def if it was
// never set.
func (s *Store) GlobalFlag(ctx context.Context, key string, def bool) (bool, error) {
	var value int

	err := s.db.QueryRowContext(ctx, sqlGetPreference, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}

	if err != nil {
		return false, fmt.Errorf("store: getting preference %q: %w", key, err)
	}

	return value != 0, nil
}

// SetGlobalFlag persists a preference.
func (s *Store) SetGlobalFlag(ctx context.Context, key string, value bool) error {
	if _, err := s.db.ExecContext(ctx, sqlUpsertPreference, key, boolToInt(value), s.nowFunc().UnixNano()); err != nil {
		return fmt.Errorf("store: setting preference %q: %w", key, err)
	}

	s.logger.Debug("preference written", slog.String("key", key), slog.Bool("value", value))

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: closing database: %w", err)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
