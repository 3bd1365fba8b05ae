// Package router owns the connection lifecycle and fans inbound events out
// to their pipelines.
package router

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"guardBot/internal/domain"
)

const DefaultMaxConcurrent = 64

type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
)

type MessagePipeline interface {
	Handle(ctx context.Context, evt domain.ConversationEvent, selfID string)
}

type CallPipeline interface {
	Handle(ctx context.Context, calls []domain.CallEvent)
}

type MembershipPipeline interface {
	Handle(ctx context.Context, change domain.MembershipEvent)
}

type Config struct {
	Logger     *slog.Logger
	Messages   MessagePipeline
	Calls      CallPipeline
	Membership MembershipPipeline
	// OnOpen runs on every transition to open, after the state changed.
	OnOpen func(ctx context.Context, selfID string)
	// OnTransient asks the transport to re-establish the session.
	OnTransient func(ctx context.Context, reason int)
	// OnState observes every state change.
	OnState       func(state State, reason int, class Class)
	MaxConcurrent int
}

type Router struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.RWMutex
	state  State
	selfID string

	fatal     chan error
	fatalOnce sync.Once
}

func New(cfg Config) *Router {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	return &Router{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "router"),
		state:  StateConnecting,
		fatal:  make(chan error, 1),
	}
}

// Attach subscribes the router to every event kind of src.
func (r *Router) Attach(src domain.EventSource) {
	src.OnMessages(r.HandleMessages)
	src.OnCalls(r.HandleCalls)
	src.OnMembership(r.HandleMembership)
	src.OnConnection(r.OnConnection)
}

func (r *Router) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Router) SelfID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selfID
}

// Fatal delivers the first non-transient close. The process should stop
// when it fires.
func (r *Router) Fatal() <-chan error {
	return r.fatal
}

func (r *Router) OnConnection(ctx context.Context, update domain.ConnectionUpdate) {
	switch update.State {
	case domain.ConnectionConnecting:
		r.setState(StateConnecting, "")
		r.notify(StateConnecting, 0, "")

	case domain.ConnectionOpen:
		r.setState(StateOpen, update.SelfID)
		r.logger.Info("connection open", "self", update.SelfID)
		r.notify(StateOpen, 0, "")
		if r.cfg.OnOpen != nil {
			r.safely("on_open", func() { r.cfg.OnOpen(ctx, r.SelfID()) })
		}

	case domain.ConnectionClosed:
		r.setState(StateClosed, "")
		class, err := Classify(update.Reason)
		connectionCloses.WithLabelValues(string(class)).Inc()
		r.notify(StateClosed, update.Reason, class)
		if err == nil {
			r.logger.Warn("connection closed, reconnecting", "reason", update.Reason)
			if r.cfg.OnTransient != nil {
				r.safely("on_transient", func() { r.cfg.OnTransient(ctx, update.Reason) })
			}
			return
		}
		r.logger.Error("connection closed", "reason", update.Reason, "class", class, "err", err)
		r.fatalOnce.Do(func() { r.fatal <- err })
	}
}

// HandleMessages starts one pipeline per event, in batch order, and returns
// once all of them finished. Events arriving while the connection is not
// open are dropped.
func (r *Router) HandleMessages(ctx context.Context, batch []domain.ConversationEvent) {
	if !r.accepting("message", len(batch)) {
		return
	}
	selfID := r.SelfID()

	var g errgroup.Group
	g.SetLimit(r.cfg.MaxConcurrent)
	for _, evt := range batch {
		g.Go(func() error {
			r.pipeline(string(evt.Kind), func() { r.cfg.Messages.Handle(ctx, evt, selfID) })
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Router) HandleCalls(ctx context.Context, calls []domain.CallEvent) {
	if r.cfg.Calls == nil || !r.accepting("call", len(calls)) {
		return
	}
	r.pipeline(string(domain.EventCall), func() { r.cfg.Calls.Handle(ctx, calls) })
}

func (r *Router) HandleMembership(ctx context.Context, change domain.MembershipEvent) {
	if r.cfg.Membership == nil || !r.accepting("membership", 1) {
		return
	}
	r.pipeline(string(domain.EventMembership), func() { r.cfg.Membership.Handle(ctx, change) })
}

func (r *Router) accepting(kind string, n int) bool {
	if r.State() == StateOpen {
		return true
	}
	r.logger.Debug("dropping events while not open", "kind", kind, "count", n)
	eventsProcessed.WithLabelValues("dropped").Add(float64(n))
	return false
}

// pipeline runs fn and keeps its panics from reaching the caller.
func (r *Router) pipeline(kind string, fn func()) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			pipelinePanics.Inc()
			r.logger.Error("pipeline execution exception", "err", rec, "kind", kind)
		}
		eventsProcessed.WithLabelValues(kind).Inc()
		pipelineDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()
	fn()
}

func (r *Router) safely(name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("connection hook exception", "hook", name, "err", rec)
		}
	}()
	fn()
}

func (r *Router) setState(state State, selfID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	if selfID != "" {
		r.selfID = selfID
	}
}

func (r *Router) notify(state State, reason int, class Class) {
	if r.cfg.OnState != nil {
		r.cfg.OnState(state, reason, class)
	}
}
