package host

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/mailsync/internal/command"
	"github.com/tonimelisma/mailsync/internal/intake"
)

// envNATSURL points the integration test at a running NATS server.
const envNATSURL = "MAILSYNC_TEST_NATS_URL"

func TestNATSSource_HandleMsg(t *testing.T) {
	t.Parallel()

	h := &recordingHandler{outcome: intake.OutcomeQueued}
	src := NewNATSSource("nats://unused", "mail.triggers", h, testLogger(t))

	src.handleMsg(context.Background(), &nats.Msg{
		Subject: "mail.triggers",
		Data:    []byte(`{"id":"n-1","action":"DISABLE"}`),
	})
	src.handleMsg(context.Background(), &nats.Msg{Subject: "mail.triggers", Data: []byte("garbage")})

	got := h.seen()
	require.Len(t, got, 1)
	assert.Equal(t, "n-1", got[0].ID)
	assert.Equal(t, SourceNATS, got[0].Source)
}

func TestNATSSource_ConnectError(t *testing.T) {
	t.Parallel()

	src := NewNATSSource("nats://127.0.0.1:1", "mail.triggers", &recordingHandler{}, testLogger(t))

	err := src.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting to nats")
}

func TestNATSSource_RequestReply(t *testing.T) {
	url := os.Getenv(envNATSURL)
	if url == "" {
		t.Skipf("%s not set", envNATSURL)
	}

	h := &recordingHandler{outcome: intake.OutcomePolled}
	subject := "mailsync.test." + uuid.NewString()
	src := NewNATSSource(url, subject, h, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- src.Run(ctx) }()

	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	tr := command.NewTrigger(command.ActionPoll, nil)

	var reply Reply

	// The subscription may not be live yet on the first attempt.
	require.Eventually(t, func() bool {
		reqCtx, reqCancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer reqCancel()

		var err error
		reply, err = SendNATS(reqCtx, url, subject, tr)

		return err == nil
	}, 10*time.Second, 100*time.Millisecond)

	assert.Equal(t, Reply{ID: tr.ID, Outcome: "polled"}, reply)
}
