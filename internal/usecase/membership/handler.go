// Package membership greets members joining a group and notes those who
// leave, when the group has opted in.
package membership

import (
	"context"
	"log/slog"

	"guardBot/internal/domain"
	"guardBot/internal/interface/outs"
	"guardBot/internal/usecase/notify"
)

type Handler struct {
	logger  *slog.Logger
	out     *outs.Outbox
	store   domain.GroupEventStore
	notices *notify.Composer
}

func NewHandler(out *outs.Outbox, store domain.GroupEventStore, notices *notify.Composer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:  logger.With("component", "membership"),
		out:     out,
		store:   store,
		notices: notices,
	}
}

func (h *Handler) Handle(ctx context.Context, change domain.MembershipEvent) {
	var event domain.GroupEvent
	switch change.Action {
	case domain.MembershipAdd:
		event = domain.GroupEventWelcome
	case domain.MembershipRemove:
		event = domain.GroupEventGoodbye
	default:
		return
	}
	logger := h.logger.With("conversation", change.ConversationID, "event", event)

	enabled, err := h.store.GroupEventEnabled(ctx, change.ConversationID, event)
	if err != nil {
		logger.Warn("group event lookup failed", "err", err)
		return
	}
	if !enabled {
		return
	}

	subject := ""
	if meta, res := h.out.Metadata(ctx, change.ConversationID); res.Log(logger).OK() && meta != nil {
		subject = meta.Subject
	}

	for _, member := range change.Participants {
		var payload domain.OutboundPayload
		if event == domain.GroupEventWelcome {
			payload = h.notices.Welcome(member, subject, "")
		} else {
			payload = h.notices.Goodbye(member, subject, "")
		}
		h.out.Send(ctx, change.ConversationID, payload, domain.SendOptions{}).Log(logger)
	}
}
