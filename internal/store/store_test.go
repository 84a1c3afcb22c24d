package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger returns a debug-level logger that writes to t.Log,
// so all activity appears in CI output.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// testLogWriter adapts testing.T to io.Writer for slog.
type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

// newTestStore creates a Store backed by a temp directory, registering
// cleanup with t.Cleanup.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(context.Background(), dbPath, testLogger(t))
	require.NoError(t, err, "Open(%q)", dbPath)

	t.Cleanup(func() {
		assert.NoError(t, s.Close())
	})

	return s
}

func TestOpen_WALMode(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	var journalMode string

	err := s.db.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&journalMode)
	require.NoError(t, err)
	assert.Equal(t, "wal", journalMode)
}

func TestOpen_RunsMigrations(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	var count int

	err := s.db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM goose_db_version WHERE version_id > 0",
	).Scan(&count)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestOpen_Reopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	s1, err := Open(ctx, dbPath, testLogger(t))
	require.NoError(t, err)

	_, err = s1.CreateAccount(ctx, "Work", false)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(ctx, dbPath, testLogger(t))
	require.NoError(t, err)

	defer s2.Close()

	a, err := s2.AccountByName(ctx, "Work")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.False(t, a.SyncEnabled)
}

func TestAccountByName_NotFound(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	a, err := s.AccountByName(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestAccountByName_ExactMatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateAccount(ctx, "Work", true)
	require.NoError(t, err)

	a, err := s.AccountByName(ctx, "work")
	require.NoError(t, err)
	assert.Nil(t, a, "lookup must be case-sensitive")

	a, err = s.AccountByName(ctx, "Work")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "Work", a.Name)
	assert.True(t, a.SyncEnabled)
}

func TestCreateAccount_Duplicate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateAccount(ctx, "Gmail", true)
	require.NoError(t, err)

	_, err = s.CreateAccount(ctx, "Gmail", false)
	require.ErrorIs(t, err, ErrDuplicateAccount)
}

func TestSetAccountSyncEnabled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	a, err := s.CreateAccount(ctx, "Work", false)
	require.NoError(t, err)

	require.NoError(t, s.SetAccountSyncEnabled(ctx, a.ID, true))

	got, err := s.AccountByName(ctx, "Work")
	require.NoError(t, err)
	assert.True(t, got.SyncEnabled)

	require.NoError(t, s.SetAccountSyncEnabled(ctx, a.ID, false))

	got, err = s.AccountByName(ctx, "Work")
	require.NoError(t, err)
	assert.False(t, got.SyncEnabled)
}

func TestSetAccountSyncEnabled_UnknownID(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	err := s.SetAccountSyncEnabled(context.Background(), 4242, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListAccounts_SortedByName(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	for _, name := range []string{"Work", "Gmail", "Archive"} {
		_, err := s.CreateAccount(ctx, name, true)
		require.NoError(t, err)
	}

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, "Archive", accounts[0].Name)
	assert.Equal(t, "Gmail", accounts[1].Name)
	assert.Equal(t, "Work", accounts[2].Name)
}

func TestGlobalFlag_DefaultWhenUnset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	v, err := s.GlobalFlag(ctx, PrefEnabled, true)
	require.NoError(t, err)
	assert.True(t, v)

	v, err = s.GlobalFlag(ctx, PrefSchedule, false)
	require.NoError(t, err)
	assert.False(t, v)
}

func TestSetGlobalFlag_Upsert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SetGlobalFlag(ctx, PrefEnabled, false))

	v, err := s.GlobalFlag(ctx, PrefEnabled, true)
	require.NoError(t, err)
	assert.False(t, v)

	require.NoError(t, s.SetGlobalFlag(ctx, PrefEnabled, true))

	v, err = s.GlobalFlag(ctx, PrefEnabled, false)
	require.NoError(t, err)
	assert.True(t, v)

	var rows int

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM preferences WHERE key = ?", PrefEnabled).Scan(&rows)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
}

func TestClose_ThenQueryFails(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "closed.db")

	s, err := Open(context.Background(), dbPath, testLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.AccountByName(context.Background(), "Work")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestSetAccountSyncEnabled_BumpsUpdatedAt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	created := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
	toggled := created.Add(time.Hour)

	s.nowFunc = func() time.Time { return created }

	a, err := s.CreateAccount(ctx, "Work", false)
	require.NoError(t, err)
	assert.True(t, created.Equal(a.UpdatedAt))

	s.nowFunc = func() time.Time { return toggled }
	require.NoError(t, s.SetAccountSyncEnabled(ctx, a.ID, true))

	got, err := s.AccountByName(ctx, "Work")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, toggled.Equal(got.UpdatedAt))

	list, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, toggled.Equal(list[0].UpdatedAt))
}
