package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardBot/internal/domain"
)

// bridge is a scripted stand-in for the chat bridge.
type bridge struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conn     *websocket.Conn
	requests []frame
	auth     string
	// reply decides the response for a request; nil means ok with no data.
	reply func(req frame) frame

	connected chan struct{}
}

func newBridge(t *testing.T) *bridge {
	b := &bridge{t: t, connected: make(chan struct{}, 4)}
	b.srv = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *bridge) url() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http")
}

func (b *bridge) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.conn = conn
	b.auth = r.Header.Get("Authorization")
	b.mu.Unlock()
	b.connected <- struct{}{}

	for {
		var req frame
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		b.mu.Lock()
		b.requests = append(b.requests, req)
		reply := b.reply
		b.mu.Unlock()

		resp := frame{Type: frameResponse, ID: req.ID, OK: true}
		if reply != nil {
			resp = reply(req)
			resp.Type = frameResponse
			resp.ID = req.ID
		}
		if err := b.write(resp); err != nil {
			return
		}
	}
}

func (b *bridge) write(f frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn.WriteJSON(f)
}

func (b *bridge) push(event string, data any) {
	raw, err := json.Marshal(data)
	require.NoError(b.t, err)
	require.NoError(b.t, b.write(frame{Type: frameEvent, Event: event, Data: raw}))
}

func (b *bridge) dropConnection() {
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.conn.Close()
}

func (b *bridge) recorded() []frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]frame(nil), b.requests...)
}

func startClient(t *testing.T, b *bridge, cfg Config) (*Client, context.CancelFunc) {
	t.Helper()
	cfg.URL = b.url()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if cfg.ReconnectMin == 0 {
		cfg.ReconnectMin = 10 * time.Millisecond
		cfg.ReconnectMax = 50 * time.Millisecond
	}
	c := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("client did not stop")
		}
	})

	select {
	case <-b.connected:
	case <-time.After(2 * time.Second):
		t.Fatal("client never connected")
	}
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.conn != nil
	}, time.Second, 5*time.Millisecond)
	return c, cancel
}

func TestNotConnected(t *testing.T) {
	c := New(Config{URL: "ws://127.0.0.1:1"})
	err := c.SendMessage(context.Background(), "g@g.us", domain.OutboundPayload{Text: "hi"}, domain.SendOptions{})
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestRunRequiresURL(t *testing.T) {
	assert.Error(t, New(Config{}).Run(context.Background()))
}

func TestSendMessageRoundTrip(t *testing.T) {
	b := newBridge(t)
	c, _ := startClient(t, b, Config{Token: "secret"})

	quoted := domain.MessageKey{ConversationID: "g@g.us", ID: "ABC"}
	err := c.SendMessage(context.Background(), "g@g.us", domain.OutboundPayload{Text: "hello", Mentions: []string{"1@s.whatsapp.net"}}, domain.SendOptions{Quoted: &quoted})
	require.NoError(t, err)

	reqs := b.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, frameRequest, reqs[0].Type)
	assert.Equal(t, opSendMessage, reqs[0].Op)
	assert.NotEmpty(t, reqs[0].ID)

	raw, err := json.Marshal(reqs[0].Params)
	require.NoError(t, err)
	var params sendParams
	require.NoError(t, json.Unmarshal(raw, &params))
	assert.Equal(t, "g@g.us", params.ConversationID)
	assert.Equal(t, "hello", params.Payload.Text)
	require.NotNil(t, params.Options.Quoted)
	assert.Equal(t, "ABC", params.Options.Quoted.ID)

	b.mu.Lock()
	assert.Equal(t, "Bearer secret", b.auth)
	b.mu.Unlock()
}

func TestResponsesDecoded(t *testing.T) {
	b := newBridge(t)
	b.reply = func(req frame) frame {
		switch req.Op {
		case opGroupMetadata:
			data, _ := json.Marshal(domain.ConversationMetadata{ID: "g@g.us", Subject: "Team", Participants: []domain.Participant{{ID: "1@s.whatsapp.net", Admin: true}}})
			return frame{OK: true, Data: data}
		case opDownloadMedia:
			data, _ := json.Marshal(mediaResult{Data: []byte("jpeg")})
			return frame{OK: true, Data: data}
		case opRemoveParticipant:
			return frame{Error: "not an admin"}
		}
		return frame{OK: true}
	}
	c, _ := startClient(t, b, Config{})
	ctx := context.Background()

	meta, err := c.ConversationMetadata(ctx, "g@g.us")
	require.NoError(t, err)
	assert.Equal(t, "Team", meta.Subject)
	assert.True(t, meta.IsAdmin("1@s.whatsapp.net"))

	data, err := c.DownloadMedia(ctx, domain.MediaRef{Kind: domain.MediaImage, Handle: "h1"})
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	err = c.RemoveParticipant(ctx, "g@g.us", "2@s.whatsapp.net")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an admin")

	require.NoError(t, c.MarkRead(ctx, nil), "empty mark-read is a no-op")
	ops := []string{}
	for _, r := range b.recorded() {
		ops = append(ops, r.Op)
	}
	assert.Equal(t, []string{opGroupMetadata, opDownloadMedia, opRemoveParticipant}, ops)
}

func TestEventsDispatched(t *testing.T) {
	b := newBridge(t)
	c := New(Config{URL: b.url(), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	got := make(chan string, 8)
	c.OnMessages(func(ctx context.Context, batch []domain.ConversationEvent) {
		for _, evt := range batch {
			got <- "msg:" + evt.Text
		}
	})
	c.OnCalls(func(ctx context.Context, calls []domain.CallEvent) { got <- "call:" + calls[0].ID })
	c.OnMembership(func(ctx context.Context, change domain.MembershipEvent) { got <- "member:" + string(change.Action) })
	c.OnConnection(func(ctx context.Context, update domain.ConnectionUpdate) {
		if update.State == domain.ConnectionOpen {
			got <- "open:" + update.SelfID
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()
	<-b.connected
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.conn != nil
	}, time.Second, 5*time.Millisecond)

	b.push(eventConnection, domain.ConnectionUpdate{State: domain.ConnectionOpen, SelfID: "bot"})
	b.push(eventMessages, []domain.ConversationEvent{{Kind: domain.EventText, Text: "one"}, {Kind: domain.EventText, Text: "two"}})
	b.push(eventCalls, []domain.CallEvent{{ID: "c1"}})
	b.push(eventMembership, domain.MembershipEvent{Action: domain.MembershipAdd})

	want := []string{"open:bot", "msg:one", "msg:two", "call:c1", "member:add"}
	for _, w := range want {
		select {
		case v := <-got:
			assert.Equal(t, w, v)
		case <-time.After(2 * time.Second):
			t.Fatalf("missing event %q", w)
		}
	}
}

func TestPendingRequestsFailOnDrop(t *testing.T) {
	b := newBridge(t)
	release := make(chan struct{})
	b.reply = func(req frame) frame {
		<-release
		return frame{OK: true}
	}
	c, _ := startClient(t, b, Config{})
	defer close(release)

	errc := make(chan error, 1)
	go func() { errc <- c.DeleteMessage(context.Background(), domain.MessageKey{ID: "x"}) }()

	require.Eventually(t, func() bool { return len(b.recorded()) == 1 }, time.Second, 5*time.Millisecond)
	b.dropConnection()

	select {
	case err := <-errc:
		assert.True(t, errors.Is(err, ErrClosed), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("pending request never failed")
	}
}

func TestRedialsAfterDrop(t *testing.T) {
	b := newBridge(t)
	var states []domain.ConnectionState
	var mu sync.Mutex
	c := New(Config{
		URL:          b.url(),
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		ReconnectMin: 10 * time.Millisecond,
		ReconnectMax: 20 * time.Millisecond,
	})
	c.OnConnection(func(ctx context.Context, update domain.ConnectionUpdate) {
		mu.Lock()
		states = append(states, update.State)
		mu.Unlock()
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	<-b.connected
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.conn != nil
	}, time.Second, 5*time.Millisecond)
	b.dropConnection()

	select {
	case <-b.connected:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not redial")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, states, domain.ConnectionConnecting)
}

func TestRequestTimeout(t *testing.T) {
	b := newBridge(t)
	block := make(chan struct{})
	b.reply = func(req frame) frame {
		<-block
		return frame{OK: true}
	}
	c, _ := startClient(t, b, Config{RequestTimeout: 30 * time.Millisecond})
	defer close(block)

	err := c.SendPresence(context.Background(), "g@g.us", domain.PresenceComposing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestResponsesResolvedWhileHandlerBusy(t *testing.T) {
	b := newBridge(t)
	b.reply = func(req frame) frame {
		// Flood past the dispatch queue before answering.
		batch := []domain.ConversationEvent{{Kind: domain.EventText, Text: "spam"}}
		for range eventQueueSize + 44 {
			b.push(eventMessages, batch)
		}
		b.push(eventConnection, domain.ConnectionUpdate{State: domain.ConnectionOpen, SelfID: "bot"})
		return frame{OK: true}
	}
	c := New(Config{
		URL:            b.url(),
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		RequestTimeout: 2 * time.Second,
	})

	sendErr := make(chan error, 1)
	var once sync.Once
	c.OnMessages(func(ctx context.Context, batch []domain.ConversationEvent) {
		once.Do(func() {
			sendErr <- c.SendMessage(ctx, "g@g.us", domain.OutboundPayload{Text: "warned"}, domain.SendOptions{})
		})
	})
	opened := make(chan string, 1)
	c.OnConnection(func(ctx context.Context, update domain.ConnectionUpdate) {
		if update.State == domain.ConnectionOpen {
			opened <- update.SelfID
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()
	<-b.connected
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.conn != nil
	}, time.Second, 5*time.Millisecond)

	b.push(eventMessages, []domain.ConversationEvent{{Kind: domain.EventText, Text: "trigger"}})

	select {
	case err := <-sendErr:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("answered request stayed blocked behind the event queue")
	}
	select {
	case self := <-opened:
		assert.Equal(t, "bot", self, "connection updates survive a full queue")
	case <-time.After(2 * time.Second):
		t.Fatal("connection update lost")
	}
}
