// Package outs wraps the transport so that every outbound call yields a
// Result. Callers decide explicitly whether a failure matters.
package outs

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"guardBot/internal/domain"
)

type Op string

const (
	OpSend       Op = "send"
	OpReact      Op = "react"
	OpDelete     Op = "delete"
	OpRemove     Op = "remove"
	OpMetadata   Op = "metadata"
	OpMarkRead   Op = "mark_read"
	OpDownload   Op = "download"
	OpRejectCall Op = "reject_call"
	OpPresence   Op = "presence"
)

var transportFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardbot_transport_failures",
	Help: "Number of failed outbound transport calls",
}, []string{"op"})

type Result struct {
	Op     Op
	Target string
	Err    error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Log records a failed result and returns it unchanged, so a call site can
// write `out.Delete(ctx, key).Log(logger)` and move on.
func (r Result) Log(logger *slog.Logger) Result {
	if r.Err != nil && logger != nil {
		logger.Warn("outbound call failed", "op", string(r.Op), "target", r.Target, "err", r.Err)
	}
	return r
}

// Outbox sends through a transport. It is safe for concurrent use as long as
// the transport is.
type Outbox struct {
	transport domain.Transport
}

func New(transport domain.Transport) *Outbox {
	return &Outbox{transport: transport}
}

func (o *Outbox) Transport() domain.Transport {
	if o == nil {
		return nil
	}
	return o.transport
}

func (o *Outbox) Send(ctx context.Context, conversationID string, payload domain.OutboundPayload, opts domain.SendOptions) Result {
	op := OpSend
	if payload.React != nil {
		op = OpReact
	}
	return o.do(op, conversationID, func(t domain.Transport) error {
		return t.SendMessage(ctx, conversationID, payload, opts)
	})
}

// Reply sends text to the event's conversation quoting the event.
func (o *Outbox) Reply(ctx context.Context, evt domain.ConversationEvent, text string, mentions ...string) Result {
	key := evt.Key
	return o.Send(ctx, evt.ConversationID, domain.OutboundPayload{
		Text:     text,
		Mentions: mentions,
	}, domain.SendOptions{Quoted: &key})
}

func (o *Outbox) Delete(ctx context.Context, key domain.MessageKey) Result {
	return o.do(OpDelete, key.ConversationID, func(t domain.Transport) error {
		return t.DeleteMessage(ctx, key)
	})
}

func (o *Outbox) Remove(ctx context.Context, conversationID, participantID string) Result {
	return o.do(OpRemove, conversationID, func(t domain.Transport) error {
		return t.RemoveParticipant(ctx, conversationID, participantID)
	})
}

func (o *Outbox) MarkRead(ctx context.Context, keys ...domain.MessageKey) Result {
	target := ""
	if len(keys) > 0 {
		target = keys[0].ConversationID
	}
	return o.do(OpMarkRead, target, func(t domain.Transport) error {
		return t.MarkRead(ctx, keys)
	})
}

func (o *Outbox) RejectCall(ctx context.Context, callID, callerID string) Result {
	return o.do(OpRejectCall, callerID, func(t domain.Transport) error {
		return t.RejectCall(ctx, callID, callerID)
	})
}

func (o *Outbox) Presence(ctx context.Context, conversationID string, presence domain.Presence) Result {
	return o.do(OpPresence, conversationID, func(t domain.Transport) error {
		return t.SendPresence(ctx, conversationID, presence)
	})
}

func (o *Outbox) Metadata(ctx context.Context, conversationID string) (*domain.ConversationMetadata, Result) {
	var meta *domain.ConversationMetadata
	res := o.do(OpMetadata, conversationID, func(t domain.Transport) error {
		var err error
		meta, err = t.ConversationMetadata(ctx, conversationID)
		return err
	})
	return meta, res
}

func (o *Outbox) Download(ctx context.Context, ref domain.MediaRef) ([]byte, Result) {
	var data []byte
	res := o.do(OpDownload, ref.Handle, func(t domain.Transport) error {
		var err error
		data, err = t.DownloadMedia(ctx, ref)
		return err
	})
	return data, res
}

func (o *Outbox) do(op Op, target string, call func(domain.Transport) error) Result {
	res := Result{Op: op, Target: target}
	if o == nil || o.transport == nil {
		res.Err = domain.ErrNotConnected
	} else {
		res.Err = call(o.transport)
	}
	if res.Err != nil {
		transportFailures.WithLabelValues(string(op)).Inc()
	}
	return res
}
