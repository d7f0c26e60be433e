package feed

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/SwarmMonkey/tensor-listener/internal/domain"
	"github.com/SwarmMonkey/tensor-listener/internal/observability"
)

// ConnState is the connection lifecycle state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateClosing
)

// Handler consumes decoded transaction events. Implementations log their
// own failures; a handler error must never close the connection, so the
// contract carries no error return.
type Handler interface {
	HandleTransaction(ctx context.Context, ev *domain.TransactionEvent)
}

// Config configures feed client behavior.
type Config struct {
	// Endpoint is the websocket URL of the transaction feed.
	Endpoint string
	// APIKey is the static credential sent on the handshake.
	APIKey string
	// Collections is the monitored set; each gets an id and a slug
	// subscription.
	Collections []domain.Collection
	// ReconnectBase is the backoff base delay.
	ReconnectBase time.Duration
	// ReconnectCap is the maximum delay between reconnect attempts.
	ReconnectCap time.Duration
	// PingInterval is the keep-alive ping period while connected.
	PingInterval time.Duration
	// WriteTimeout bounds every outbound write.
	WriteTimeout time.Duration
	// HandshakeTimeout bounds the dial.
	HandshakeTimeout time.Duration
	// ShutdownGrace bounds how long Close waits for the server to answer
	// the close frame.
	ShutdownGrace time.Duration
}

// DefaultConfig returns default feed client configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectBase:    1 * time.Second,
		ReconnectCap:     30 * time.Second,
		PingInterval:     30 * time.Second,
		WriteTimeout:     10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		ShutdownGrace:    1 * time.Second,
	}
}

// connEvent is one lifecycle event delivered through a single ordered
// channel into the processing loop.
type connEvent struct {
	kind  eventKind
	frame []byte
	err   error
}

type eventKind int

const (
	evFrame eventKind = iota
	evClosed
)

// Client owns the persistent feed connection: dial, subscribe, keep-alive,
// reconnect with exponential backoff, graceful shutdown. Frames are decoded
// and handled one at a time in arrival order.
type Client struct {
	config  Config
	handler Handler
	logger  *logrus.Logger

	state atomic.Int32
}

// NewClient creates a feed client. Zero durations in cfg fall back to the
// defaults.
func NewClient(cfg Config, handler Handler, logger *logrus.Logger) *Client {
	def := DefaultConfig()
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = def.ReconnectBase
	}
	if cfg.ReconnectCap <= 0 {
		cfg.ReconnectCap = def.ReconnectCap
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = def.ShutdownGrace
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		config:  cfg,
		handler: handler,
		logger:  logger,
	}
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *Client) setState(s ConnState) {
	c.state.Store(int32(s))
	observability.SetConnectionState(int(s))
}

// Run drives the connection until ctx is canceled. It retries indefinitely
// on transport failures and returns nil on graceful shutdown. The attempt
// counter resets on every successful open, before subscriptions are sent.
func (c *Client) Run(ctx context.Context) error {
	attempts := 0

	for {
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return nil
		}

		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			c.setState(StateDisconnected)
			if ctx.Err() != nil {
				return nil
			}
			attempts++
			observability.RecordReconnect()
			delay := backoffDelay(c.config.ReconnectBase, c.config.ReconnectCap, attempts)
			c.logger.WithError(err).WithFields(logrus.Fields{
				"attempts": attempts,
				"delay":    delay,
			}).Warn("feed dial failed, reconnecting")
			if !sleepCtx(ctx, delay) {
				return nil
			}
			continue
		}

		attempts = 0
		c.setState(StateConnected)
		c.logger.WithField("endpoint", c.config.Endpoint).Info("feed connected")

		if err := c.subscribeAll(conn); err != nil {
			c.logger.WithError(err).Warn("subscribe failed, reconnecting")
			conn.Close()
			c.setState(StateDisconnected)
			attempts++
			observability.RecordReconnect()
			if !sleepCtx(ctx, backoffDelay(c.config.ReconnectBase, c.config.ReconnectCap, attempts)) {
				return nil
			}
			continue
		}

		err = c.serve(ctx, conn)
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return nil
		}

		c.setState(StateDisconnected)
		attempts++
		observability.RecordReconnect()
		delay := backoffDelay(c.config.ReconnectBase, c.config.ReconnectCap, attempts)
		c.logger.WithError(err).WithFields(logrus.Fields{
			"attempts": attempts,
			"delay":    delay,
		}).Warn("feed connection lost, reconnecting")
		if !sleepCtx(ctx, delay) {
			return nil
		}
	}
}

// dial opens the websocket with the credential header.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
	}
	header := http.Header{}
	if c.config.APIKey != "" {
		header.Set("x-tensor-api-key", c.config.APIKey)
	}

	conn, _, err := dialer.DialContext(ctx, c.config.Endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// subscribeAll sends one subscription per collection id and one per slug.
// Subscribing on both keeps the stream intact when the feed recognizes
// only one of the two references.
func (c *Client) subscribeAll(conn *websocket.Conn) error {
	for _, coll := range c.config.Collections {
		reqs := []subscribeRequest{
			{Event: "newTransaction", Payload: subscribePayload{CollID: coll.ID}},
			{Event: "newTransaction", Payload: subscribePayload{Slug: coll.Slug}},
		}
		for _, req := range reqs {
			conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := conn.WriteJSON(req); err != nil {
				return fmt.Errorf("write subscribe for %s: %w", coll.ID, err)
			}
		}
	}
	return nil
}

// serve processes one established connection until it closes or ctx is
// canceled. A reader goroutine feeds frames and the close event through
// one ordered channel, so a close is still observed while a frame's
// storage I/O is in flight.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	events := make(chan connEvent, 64)
	readerDone := make(chan struct{})
	defer close(readerDone)
	go readLoop(conn, events, readerDone)

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.setState(StateClosing)
			c.closeGracefully(conn, events)
			return ctx.Err()

		case ev := <-events:
			switch ev.kind {
			case evFrame:
				// Storage and notification I/O must survive shutdown;
				// the grace window, not cancellation, bounds in-flight
				// work.
				c.handleFrame(context.WithoutCancel(ctx), ev.frame)
			case evClosed:
				conn.Close()
				return ev.err
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := conn.WriteJSON(keepAlivePing{Type: "ping"}); err != nil {
				// Write errors alone do not close the connection; the
				// reader's close event is authoritative.
				c.logger.WithError(err).Warn("keep-alive ping failed")
			}
		}
	}
}

// closeGracefully sends a close frame and waits up to the grace window for
// the reader to observe the server's close.
func (c *Client) closeGracefully(conn *websocket.Conn, events <-chan connEvent) {
	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	deadline := time.NewTimer(c.config.ShutdownGrace)
	defer deadline.Stop()
	for {
		select {
		case ev := <-events:
			if ev.kind == evClosed {
				conn.Close()
				return
			}
		case <-deadline.C:
			conn.Close()
			return
		}
	}
}

// handleFrame decodes one frame and dispatches it. Decode failures and
// handler outcomes are isolated per message.
func (c *Client) handleFrame(ctx context.Context, raw []byte) {
	observability.RecordFrame()

	msg, err := Decode(raw)
	if err != nil {
		observability.RecordDecodeFailure()
		c.logger.WithError(err).WithField("payload", string(raw)).Warn("dropping undecodable frame")
		return
	}

	switch m := msg.(type) {
	case KeepAliveAck:
		observability.RecordDecoded("pong")
	case ErrorReport:
		observability.RecordDecoded("error")
		c.logger.WithField("message", m.Message).Warn("feed reported error")
	case TransactionMessage:
		observability.RecordDecoded("transaction")
		c.handler.HandleTransaction(ctx, m.Event)
	case Unrecognized:
		observability.RecordDecoded("unrecognized")
		c.logger.WithField("type", m.Type).Debug("ignoring unrecognized frame")
	}
}

// readLoop reads frames until the connection errors and reports them in
// order. done unblocks pending sends once the consumer has left the loop,
// so a backlog of undelivered frames cannot strand the reader.
func readLoop(conn *websocket.Conn, events chan<- connEvent, done <-chan struct{}) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case events <- connEvent{kind: evClosed, err: err}:
			case <-done:
			}
			return
		}
		select {
		case events <- connEvent{kind: evFrame, frame: msg}:
		case <-done:
			return
		}
	}
}

// backoffDelay computes min(base * 2^attempts, cap) for attempts >= 1.
func backoffDelay(base, max time.Duration, attempts int) time.Duration {
	if attempts > 30 {
		return max
	}
	d := base << uint(attempts)
	if d <= 0 || d > max {
		return max
	}
	return d
}

// sleepCtx waits for d, returning false if ctx is canceled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
