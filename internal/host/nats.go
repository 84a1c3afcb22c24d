package host

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/tonimelisma/mailsync/internal/command"
)

const (
	natsClientName = "mailsync"
	natsBuffer     = 64
)

// NATSSource takes triggers from a NATS subject. A message sent as a
// request gets the Reply back.
type NATSSource struct {
	url     string
	subject string
	handler Handler
	logger  *slog.Logger
}

// NewNATSSource creates a source subscribing to subject on the server at url.
func NewNATSSource(url, subject string, handler Handler, logger *slog.Logger) *NATSSource {
	return &NATSSource{url: url, subject: subject, handler: handler, logger: logger}
}

// Run subscribes and handles messages until ctx is canceled. The
// connection reconnects on its own; only the initial connect can fail.
func (s *NATSSource) Run(ctx context.Context) error {
	nc, err := nats.Connect(s.url,
		nats.Name(natsClientName),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				s.logger.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			s.logger.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return fmt.Errorf("host: connecting to nats %s: %w", s.url, err)
	}
	defer nc.Close()

	msgs := make(chan *nats.Msg, natsBuffer)

	sub, err := nc.ChanSubscribe(s.subject, msgs)
	if err != nil {
		return fmt.Errorf("host: subscribing to %s: %w", s.subject, err)
	}
	defer sub.Unsubscribe() //nolint:errcheck // connection closes right after

	s.logger.Info("nats source started",
		slog.String("url", s.url),
		slog.String("subject", s.subject),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			s.handleMsg(ctx, msg)
		}
	}
}

func (s *NATSSource) handleMsg(ctx context.Context, msg *nats.Msg) {
	reply, ok := deliver(ctx, s.handler, s.logger, SourceNATS, msg.Data)
	if !ok || msg.Reply == "" {
		return
	}

	data, err := json.Marshal(reply)
	if err != nil {
		return
	}

	if err := msg.Respond(data); err != nil {
		s.logger.Debug("nats reply failed", slog.String("error", err.Error()))
	}
}

// SendNATS publishes one trigger as a request on subject and waits for
// the source's reply.
func SendNATS(ctx context.Context, url, subject string, t command.Trigger) (Reply, error) {
	nc, err := nats.Connect(url, nats.Name(natsClientName))
	if err != nil {
		return Reply{}, fmt.Errorf("host: connecting to nats %s: %w", url, err)
	}
	defer nc.Close()

	data, err := command.EncodeTrigger(t)
	if err != nil {
		return Reply{}, err
	}

	msg, err := nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return Reply{}, fmt.Errorf("host: nats request on %s: %w", subject, err)
	}

	var reply Reply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return Reply{}, fmt.Errorf("host: decoding nats reply: %w", err)
	}

	return reply, nil
}
