package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardBot/internal/app/events"
	"guardBot/internal/usecase/commands"
)

type fakeCommands struct {
	list     []commands.CommandDTO
	upserted []commands.CommandMutationDTO
	deleted  []string
	err      error
}

func (f *fakeCommands) List(ctx context.Context) ([]commands.CommandDTO, error) {
	return f.list, f.err
}

func (f *fakeCommands) Upsert(ctx context.Context, input commands.CommandMutationDTO) (commands.CommandDTO, error) {
	if f.err != nil {
		return commands.CommandDTO{}, f.err
	}
	f.upserted = append(f.upserted, input)
	return commands.CommandDTO{Name: input.Name, Source: commands.CommandSourceCustom}, nil
}

func (f *fakeCommands) Delete(ctx context.Context, name string) (bool, error) {
	f.deleted = append(f.deleted, name)
	return name == "rules", f.err
}

const testToken = "t0k"

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if cfg.Token == "" {
		cfg.Token = testToken
	}
	s := NewServer(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(s.Handler(ctx))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return s, srv
}

// call sends an authenticated request.
func call(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestHealth(t *testing.T) {
	state := "connecting"
	_, srv := newTestServer(t, Config{Health: func() Health { return Health{Connection: state, Uptime: "1s"} }})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	state = "open"
	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var h Health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, "open", h.Connection)
}

func TestMetricsExposed(t *testing.T) {
	_, srv := newTestServer(t, Config{})
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestCommandAPI(t *testing.T) {
	svc := &fakeCommands{list: []commands.CommandDTO{{Name: "ping", Source: commands.CommandSourceBuiltin}}}
	_, srv := newTestServer(t, Config{Commands: svc})

	resp := call(t, http.MethodGet, srv.URL+"/api/commands", "")
	var list commandListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list.Commands, 1)
	assert.Equal(t, "ping", list.Commands[0].Name)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	resp = call(t, http.MethodPost, srv.URL+"/api/commands", `{"name":"rules","response":"Be kind"}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, svc.upserted, 1)
	assert.Equal(t, "Be kind", *svc.upserted[0].Response)

	resp = call(t, http.MethodPost, srv.URL+"/api/commands", `{"response":"x"}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	for name, want := range map[string]int{"rules": http.StatusNoContent, "nope": http.StatusNotFound} {
		resp := call(t, http.MethodDelete, srv.URL+"/api/commands/"+name, "")
		resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, name)
	}
}

func TestCommandAPIUnavailable(t *testing.T) {
	svc := &fakeCommands{err: commands.ErrServiceUnavailable}
	_, srv := newTestServer(t, Config{Commands: svc})

	resp := call(t, http.MethodPost, srv.URL+"/api/commands", `{"name":"rules"}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	svc.err = errors.New("disk on fire")
	resp = call(t, http.MethodGet, srv.URL+"/api/commands", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestEventStream(t *testing.T) {
	bus := events.NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer bus.Close()
	s, srv := newTestServer(t, Config{Events: bus})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer " + testToken}})
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	// Subscriptions are set up right after the upgrade; publish until one lands.
	dto := events.ConnectionDTO{State: "open", SelfID: "bot"}
	got := make(chan map[string]json.RawMessage, 1)
	go func() {
		var msg map[string]json.RawMessage
		if err := conn.ReadJSON(&msg); err == nil {
			got <- msg
		}
	}()
	deadline := time.After(2 * time.Second)
	for {
		bus.Publish(events.TopicConnection, dto)
		select {
		case msg := <-got:
			var topic string
			require.NoError(t, json.Unmarshal(msg["type"], &topic))
			assert.Equal(t, events.TopicConnection, topic)
			var data events.ConnectionDTO
			require.NoError(t, json.Unmarshal(msg["data"], &data))
			assert.Equal(t, "bot", data.SelfID)
			return
		case <-deadline:
			t.Fatal("no event received")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestEventStreamUnconfigured(t *testing.T) {
	_, srv := newTestServer(t, Config{})
	resp := call(t, http.MethodGet, srv.URL+"/ws/events", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	svc := &fakeCommands{}
	bus := events.NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer bus.Close()
	_, srv := newTestServer(t, Config{Commands: svc, Events: bus, AllowedOrigins: []string{"https://panel.example"}})

	for name, header := range map[string]string{
		"missing": "",
		"wrong":   "Bearer nope",
		"scheme":  "Basic " + testToken,
	} {
		t.Run(name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/commands", strings.NewReader(`{"name":"rules","response":"spam"}`))
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
		})
	}
	assert.Empty(t, svc.upserted)

	resp, err := http.Get(srv.URL + "/ws/events")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Health and metrics stay open for probes.
	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminRoutesDisabledWithoutToken(t *testing.T) {
	svc := &fakeCommands{}
	s := NewServer(Config{Commands: svc, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	srv := httptest.NewServer(s.Handler(context.Background()))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/commands", nil)
	req.Header.Set("Authorization", "Bearer ")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOrigins(t *testing.T) {
	svc := &fakeCommands{}
	bus := events.NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer bus.Close()
	_, srv := newTestServer(t, Config{Commands: svc, Events: bus, AllowedOrigins: []string{"https://panel.example/"}})

	send := func(method, origin string) *http.Response {
		req, _ := http.NewRequest(method, srv.URL+"/api/commands", strings.NewReader(`{"name":"rules","response":"x"}`))
		req.Header.Set("Authorization", "Bearer "+testToken)
		req.Header.Set("Origin", origin)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	resp := send(http.MethodPost, "http://evil.example")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, svc.upserted)

	resp = send(http.MethodOptions, "https://panel.example")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://panel.example", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")

	resp = send(http.MethodPost, "https://panel.example")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, svc.upserted, 1)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{
		"Authorization": {"Bearer " + testToken},
		"Origin":        {"http://evil.example"},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
