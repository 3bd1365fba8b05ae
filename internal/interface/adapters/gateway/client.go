// Package gateway is the transport client for the chat bridge. The bridge
// owns the chat network session; this side speaks a small JSON protocol over
// a websocket: correlated requests going out, responses and events coming in.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"guardBot/internal/domain"
)

var ErrClosed = errors.New("gateway: connection closed")

const (
	defaultRequestTimeout = 30 * time.Second
	defaultReconnectMin   = time.Second
	defaultReconnectMax   = 30 * time.Second
	eventQueueSize        = 256
)

type Config struct {
	URL            string
	Token          string
	Logger         *slog.Logger
	RequestTimeout time.Duration
	ReconnectMin   time.Duration
	ReconnectMax   time.Duration
	Dialer         *websocket.Dialer
}

// Client implements domain.Transport and domain.EventSource.
type Client struct {
	cfg    Config
	logger *slog.Logger

	hmu        sync.RWMutex
	messages   domain.MessagesHandler
	calls      domain.CallHandler
	membership domain.MembershipHandler
	connection domain.ConnectionHandler

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan frame

	writeMu sync.Mutex
}

var (
	_ domain.Transport   = (*Client)(nil)
	_ domain.EventSource = (*Client)(nil)
)

func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = defaultReconnectMin
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = defaultReconnectMax
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Client{
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "gateway"),
		pending: make(map[string]chan frame),
	}
}

func (c *Client) OnMessages(h domain.MessagesHandler) {
	c.hmu.Lock()
	c.messages = h
	c.hmu.Unlock()
}

func (c *Client) OnCalls(h domain.CallHandler) {
	c.hmu.Lock()
	c.calls = h
	c.hmu.Unlock()
}

func (c *Client) OnMembership(h domain.MembershipHandler) {
	c.hmu.Lock()
	c.membership = h
	c.hmu.Unlock()
}

func (c *Client) OnConnection(h domain.ConnectionHandler) {
	c.hmu.Lock()
	c.connection = h
	c.hmu.Unlock()
}

// Run keeps a session with the bridge open until ctx is cancelled,
// redialling with exponential backoff whenever it drops.
func (c *Client) Run(ctx context.Context) error {
	if c.cfg.URL == "" {
		return errors.New("gateway: no bridge url configured")
	}
	backoff := c.cfg.ReconnectMin
	for {
		started := time.Now()
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(started) > c.cfg.ReconnectMax {
			backoff = c.cfg.ReconnectMin
		}
		c.logger.Warn("bridge session ended, redialling", "err", err, "backoff", backoff)
		c.emitConnection(ctx, domain.ConnectionUpdate{State: domain.ConnectionConnecting})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, c.cfg.ReconnectMax)
	}
}

// Reconnect asks the bridge to re-establish the chat network session. The
// websocket to the bridge itself stays up.
func (c *Client) Reconnect(ctx context.Context, reason int) {
	if err := c.call(ctx, opReconnect, reconnectParams{Reason: reason}, nil); err != nil {
		c.logger.Warn("reconnect request failed", "reason", reason, "err", err)
	}
}

// Close drops the current bridge session. Run redials unless its context is
// done.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Client) session(ctx context.Context) error {
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	conn, _, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("gateway: dial: %w", err)
	}
	c.logger.Info("connected to bridge", "url", c.cfg.URL)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	events := newEventQueue(eventQueueSize)
	done := make(chan struct{})
	go func() {
		defer close(done)
		events.drain(func(f frame) { c.dispatch(ctx, f) })
	}()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	readErr := c.readLoop(conn, events)

	events.close()
	<-done
	c.detach(conn)
	return readErr
}

// readLoop never waits on handlers. Connection updates are always queued;
// other events are dropped while the queue is full.
func (c *Client) readLoop(conn *websocket.Conn, events *eventQueue) error {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return fmt.Errorf("gateway: read: %w", err)
		}
		switch f.Type {
		case frameResponse:
			c.resolve(f)
		case frameEvent:
			if !events.push(f, f.Event == eventConnection) {
				eventsDropped.WithLabelValues(f.Event).Inc()
				c.logger.Warn("event queue full, dropping event", "event", f.Event)
			}
		default:
			c.logger.Debug("ignoring unknown frame", "type", f.Type)
		}
	}
}

// detach forgets conn and fails every request still waiting on it.
func (c *Client) detach(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
	_ = conn.Close()
	for id, ch := range c.pending {
		ch <- frame{Type: frameResponse, ID: id, Error: ErrClosed.Error()}
		delete(c.pending, id)
	}
}

func (c *Client) resolve(f frame) {
	c.mu.Lock()
	ch, ok := c.pending[f.ID]
	delete(c.pending, f.ID)
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("response for unknown request", "id", f.ID)
		return
	}
	ch <- f
}

func (c *Client) dispatch(ctx context.Context, f frame) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("event handler exception", "event", f.Event, "err", rec)
		}
	}()

	c.hmu.RLock()
	messages, calls, membership := c.messages, c.calls, c.membership
	c.hmu.RUnlock()

	switch f.Event {
	case eventMessages:
		var batch []domain.ConversationEvent
		if c.decode(f, &batch) && messages != nil {
			messages(ctx, batch)
		}
	case eventCalls:
		var list []domain.CallEvent
		if c.decode(f, &list) && calls != nil {
			calls(ctx, list)
		}
	case eventMembership:
		var change domain.MembershipEvent
		if c.decode(f, &change) && membership != nil {
			membership(ctx, change)
		}
	case eventConnection:
		var update domain.ConnectionUpdate
		if c.decode(f, &update) {
			c.emitConnection(ctx, update)
		}
	default:
		c.logger.Debug("ignoring unknown event", "event", f.Event)
	}
}

func (c *Client) decode(f frame, v any) bool {
	if err := json.Unmarshal(f.Data, v); err != nil {
		c.logger.Warn("malformed event", "event", f.Event, "err", err)
		return false
	}
	return true
}

func (c *Client) emitConnection(ctx context.Context, update domain.ConnectionUpdate) {
	c.hmu.RLock()
	h := c.connection
	c.hmu.RUnlock()
	if h != nil {
		h(ctx, update)
	}
}

// call sends one request and waits for its response. out may be nil.
func (c *Client) call(ctx context.Context, op string, params, out any) error {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return domain.ErrNotConnected
	}
	id := uuid.NewString()
	ch := make(chan frame, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}

	c.writeMu.Lock()
	err := conn.WriteJSON(frame{Type: frameRequest, ID: id, Op: op, Params: params})
	c.writeMu.Unlock()
	if err != nil {
		forget()
		return fmt.Errorf("gateway: %s: write: %w", op, err)
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()

	var resp frame
	select {
	case resp = <-ch:
	case <-ctx.Done():
		forget()
		return ctx.Err()
	case <-timer.C:
		forget()
		return fmt.Errorf("gateway: %s: timed out after %s", op, c.cfg.RequestTimeout)
	}

	if resp.Error == ErrClosed.Error() {
		return fmt.Errorf("gateway: %s: %w", op, ErrClosed)
	}
	if !resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = "request rejected"
		}
		return fmt.Errorf("gateway: %s: %s", op, msg)
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("gateway: %s: decode: %w", op, err)
		}
	}
	return nil
}
