package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/tonimelisma/mailsync/internal/command"
)

// TriggerPath is the HTTP path the WebSocket source accepts connections on.
const TriggerPath = "/trigger"

const (
	maxTriggerBytes   = 64 << 10
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// WebSocketSource accepts triggers as text frames on ws://<addr>/trigger.
// Each frame is one trigger; the reply frame carries the trigger ID and
// outcome.
type WebSocketSource struct {
	addr    string
	handler Handler
	logger  *slog.Logger
}

// NewWebSocketSource creates a source that will listen on addr.
func NewWebSocketSource(addr string, handler Handler, logger *slog.Logger) *WebSocketSource {
	return &WebSocketSource{addr: addr, handler: handler, logger: logger}
}

// Run listens on the configured address until ctx is canceled.
func (s *WebSocketSource) Run(ctx context.Context) error {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("host: listening on %s: %w", s.addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled.
func (s *WebSocketSource) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("websocket source started", slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)

	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("websocket shutdown", slog.String("error", err.Error()))
		}

		<-errCh

		return nil

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("host: serving websocket: %w", err)
	}
}

// Handler returns the HTTP handler serving TriggerPath.
func (s *WebSocketSource) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(TriggerPath, s.serveTrigger)

	return mux
}

func (s *WebSocketSource) serveTrigger(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer c.CloseNow()

	c.SetReadLimit(maxTriggerBytes)

	ctx := r.Context()

	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			if ctx.Err() == nil && !isNormalClose(err) {
				s.logger.Debug("websocket connection ended", slog.String("error", err.Error()))
			}

			return
		}

		if typ != websocket.MessageText {
			s.logger.Warn("binary websocket frame dropped", slog.String("remote", r.RemoteAddr))
			continue
		}

		reply, ok := deliver(ctx, s.handler, s.logger, SourceWebSocket, data)
		if !ok {
			continue
		}

		if err := wsjson.Write(ctx, c, reply); err != nil {
			s.logger.Debug("websocket reply failed", slog.String("error", err.Error()))
			return
		}
	}
}

func isNormalClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}

// SendWebSocket sends one trigger to a WebSocket source at url and waits
// for its reply.
func SendWebSocket(ctx context.Context, url string, t command.Trigger) (Reply, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return Reply{}, fmt.Errorf("host: connecting to %s: %w", url, err)
	}
	defer c.CloseNow()

	data, err := command.EncodeTrigger(t)
	if err != nil {
		return Reply{}, err
	}

	if err := c.Write(ctx, websocket.MessageText, data); err != nil {
		return Reply{}, fmt.Errorf("host: sending trigger: %w", err)
	}

	var reply Reply
	if err := wsjson.Read(ctx, c, &reply); err != nil {
		return Reply{}, fmt.Errorf("host: reading reply: %w", err)
	}

	c.Close(websocket.StatusNormalClosure, "")

	return reply, nil
}
