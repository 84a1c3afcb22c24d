package intake

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tonimelisma/mailsync/internal/store"
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

var errStoreDown = errors.New("store unavailable")

// fakeStore is an in-memory AccountStore and FlagStore that counts every
// access.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*store.Account
	flags    map[string]bool

	accountReads  int
	accountWrites int
	flagReads     int
	flagWrites    []flagWrite

	failReads  bool
	failWrites bool
}

type flagWrite struct {
	key   string
	value bool
}

func newFakeStore(accounts ...store.Account) *fakeStore {
	fs := &fakeStore{
		accounts: make(map[string]*store.Account),
		flags:    make(map[string]bool),
	}

	for i := range accounts {
		a := accounts[i]
		fs.accounts[a.Name] = &a
	}

	return fs
}

func (f *fakeStore) AccountByName(_ context.Context, name string) (*store.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.accountReads++

	if f.failReads {
		return nil, errStoreDown
	}

	a, ok := f.accounts[name]
	if !ok {
		return nil, nil
	}

	cp := *a

	return &cp, nil
}

func (f *fakeStore) SetAccountSyncEnabled(_ context.Context, id int64, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWrites {
		return errStoreDown
	}

	for _, a := range f.accounts {
		if a.ID == id {
			a.SyncEnabled = enabled
			f.accountWrites++

			return nil
		}
	}

	return errors.New("no such id")
}

func (f *fakeStore) GlobalFlag(_ context.Context, key string, def bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.flagReads++

	if f.failReads {
		return false, errStoreDown
	}

	v, ok := f.flags[key]
	if !ok {
		return def, nil
	}

	return v, nil
}

func (f *fakeStore) SetGlobalFlag(_ context.Context, key string, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWrites {
		return errStoreDown
	}

	f.flags[key] = value
	f.flagWrites = append(f.flagWrites, flagWrite{key: key, value: value})

	return nil
}

func (f *fakeStore) enabled(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.accounts[name].SyncEnabled
}

func (f *fakeStore) flag(key string) (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.flags[key]

	return v, ok
}

// accesses returns the total number of store calls of any kind.
func (f *fakeStore) accesses() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.accountReads + f.accountWrites + f.flagReads + len(f.flagWrites)
}

func (f *fakeStore) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.accountWrites + len(f.flagWrites)
}

// recordingEngine records process and reload calls.
type recordingEngine struct {
	mu        sync.Mutex
	processes []bool
	reloads   []string
	err       error
}

func (r *recordingEngine) Process(_ context.Context, immediate bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.processes = append(r.processes, immediate)

	return nil
}

func (r *recordingEngine) Reload(_ context.Context, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.reloads = append(r.reloads, reason)

	return nil
}

func (r *recordingEngine) Reloads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.reloads...)
}

func (r *recordingEngine) Processes() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]bool(nil), r.processes...)
}

// switchChecker is an EntitlementChecker whose answer tests can flip.
type switchChecker struct {
	licensed atomic.Bool
	calls    atomic.Int32
}

func newSwitchChecker(licensed bool) *switchChecker {
	c := &switchChecker{}
	c.licensed.Store(licensed)

	return c
}

func (c *switchChecker) IsLicensed(context.Context) bool {
	c.calls.Add(1)

	return c.licensed.Load()
}

// fakePresence counts Establish/Clear calls and can be told to fail.
type fakePresence struct {
	mu          sync.Mutex
	established int
	cleared     int
	up          bool
	failNext    error
	events      *[]string
}

func (p *fakePresence) Establish(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failNext != nil {
		err := p.failNext
		p.failNext = nil

		return err
	}

	p.established++
	p.up = true

	if p.events != nil {
		*p.events = append(*p.events, "establish")
	}

	return nil
}

func (p *fakePresence) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cleared++
	p.up = false

	return nil
}
