package intake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tonimelisma/mailsync/internal/command"
	"github.com/tonimelisma/mailsync/internal/license"
)

func TestGatekeeper_Allow(t *testing.T) {
	t.Parallel()

	cmds := []command.Command{
		{Kind: command.KindPoll},
		{Kind: command.KindSetEnabled, Enabled: true},
		{Kind: command.KindSetEnabled, Account: "Work", HasAccount: true},
	}

	licensed := NewGatekeeper(license.Always(true), testLogger(t))
	unlicensed := NewGatekeeper(license.Always(false), testLogger(t))

	for _, cmd := range cmds {
		assert.True(t, licensed.Allow(context.Background(), cmd), cmd.Kind.String())
		assert.False(t, unlicensed.Allow(context.Background(), cmd), cmd.Kind.String())
	}
}

func TestGatekeeper_NotCached(t *testing.T) {
	t.Parallel()

	checker := newSwitchChecker(true)
	g := NewGatekeeper(checker, testLogger(t))
	cmd := command.Command{Kind: command.KindPoll}

	assert.True(t, g.Allow(context.Background(), cmd))

	checker.licensed.Store(false)
	assert.False(t, g.Allow(context.Background(), cmd))

	checker.licensed.Store(true)
	assert.True(t, g.Allow(context.Background(), cmd))

	assert.Equal(t, int32(3), checker.calls.Load())
}
