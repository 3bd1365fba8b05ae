// Package ws serves the admin surface: metrics, health, the command API and
// a websocket that streams bot events.
package ws

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"guardBot/internal/app/events"
)

// EventSource is the part of the event bus the stream needs.
type EventSource interface {
	Subscribe(topic string) (<-chan any, func())
}

// StreamTopics are forwarded to every /ws/events client.
var StreamTopics = []string{
	events.TopicMessage,
	events.TopicModeration,
	events.TopicCommand,
	events.TopicConnection,
	events.TopicAppError,
}

const DefaultAddr = "127.0.0.1:3998"

type Health struct {
	Connection string `json:"connection"`
	SelfID     string `json:"self_id,omitempty"`
	Uptime     string `json:"uptime"`
}

type Config struct {
	Addr     string
	Logger   *slog.Logger
	Commands CommandService
	Events   EventSource
	Health   func() Health
	// Token is the bearer token required on /api/ and /ws/events. When it is
	// empty those routes always answer 401.
	Token string
	// AllowedOrigins lists the browser origins granted CORS and websocket
	// access. Requests without an Origin header are not affected.
	AllowedOrigins []string
}

type Server struct {
	addr     string
	logger   *slog.Logger
	token    string
	origins  map[string]struct{}
	upgrader websocket.Upgrader
	events   EventSource
	health   func() Health
	api      *apiHandlers

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	httpSrv *http.Server
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	logger := cfg.Logger.With("component", "admin")
	s := &Server{
		addr:    cfg.Addr,
		logger:  logger,
		token:   cfg.Token,
		origins: make(map[string]struct{}, len(cfg.AllowedOrigins)),
		events:  cfg.Events,
		health:  cfg.Health,
		api:     &apiHandlers{commands: cfg.Commands, logger: logger},
		clients: make(map[*wsClient]struct{}),
	}
	for _, o := range cfg.AllowedOrigins {
		s.origins[strings.TrimRight(o, "/")] = struct{}{}
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.originAllowed}
	if s.token == "" {
		logger.Warn("no admin token configured, command API and event stream are disabled")
	}
	return s
}

// originAllowed accepts requests without an Origin header (non-browser
// clients) and listed origins.
func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	_, ok := s.origins[origin]
	return ok
}

func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return false
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) == 1
}

// Handler builds the routing table. ctx bounds the lifetime of event
// streams.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ws/events", func(w http.ResponseWriter, r *http.Request) {
		s.handleWS(ctx, w, r)
	})
	s.api.register(mux)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api := strings.HasPrefix(r.URL.Path, "/api/")
		if api {
			if !s.originAllowed(r) {
				writeError(w, http.StatusForbidden, "origin not allowed")
				return
			}
			setCORSHeaders(w, r.Header.Get("Origin"))
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		if (api || r.URL.Path == "/ws/events") && !s.authorized(r) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("shutdown error", "err", err)
		}
	}()

	s.logger.Info("admin server listening", "addr", s.addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := Health{Connection: "unknown"}
	if s.health != nil {
		h = s.health()
	}
	status := http.StatusOK
	if h.Connection != "open" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

func (s *Server) handleWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream not configured")
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade error", "err", err)
		return
	}

	client := &wsClient{conn: conn}

	s.mu.Lock()
	s.clients[client] = struct{}{}
	clientCount := len(s.clients)
	s.mu.Unlock()

	s.logger.Info("stream client connected", "remote", r.RemoteAddr, "clients", clientCount)

	go s.handleClient(ctx, client)
}

func (s *Server) handleClient(ctx context.Context, client *wsClient) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		client.conn.Close()

		s.mu.Lock()
		delete(s.clients, client)
		clientCount := len(s.clients)
		s.mu.Unlock()

		s.logger.Info("stream client closed", "clients", clientCount)
	}()

	// The stream is one-way; reading only detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := client.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	merged := make(chan envelope, 64)
	var wg sync.WaitGroup
	for _, topic := range StreamTopics {
		ch, unsubscribe := s.events.Subscribe(topic)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer unsubscribe()
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-ch:
					if !ok {
						return
					}
					select {
					case merged <- envelope{Type: topic, Data: payload}:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case env := <-merged:
			if err := client.writeJSON(env); err != nil {
				s.logger.Debug("removing stream client after write error", "err", err)
				return
			}
		}
	}
}

// ClientCount reports how many event stream clients are connected.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
