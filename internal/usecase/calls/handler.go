// Package calls rejects incoming calls when anti-call is on.
package calls

import (
	"context"
	"log/slog"
	"time"

	"guardBot/internal/domain"
	"guardBot/internal/interface/outs"
	"guardBot/internal/usecase/ratelimit"
	"guardBot/internal/usecase/settings"
)

const DefaultMessage = "Call rejected"

type Handler struct {
	logger    *slog.Logger
	out       *outs.Outbox
	settings  *settings.Service
	replyGate *ratelimit.Gate
	now       func() time.Time
}

// NewHandler shares replyGate with the other automatic replies.
func NewHandler(out *outs.Outbox, svc *settings.Service, replyGate *ratelimit.Gate, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger.With("component", "calls"),
		out:       out,
		settings:  svc,
		replyGate: replyGate,
		now:       time.Now,
	}
}

// Handle rejects every offered call. The explanation message goes out at
// most once per reply interval.
func (h *Handler) Handle(ctx context.Context, calls []domain.CallEvent) {
	if !h.settings.Enabled(ctx, settings.KeyAntiCall) {
		return
	}
	for _, call := range calls {
		if call.ID == "" || call.From == "" {
			continue
		}
		if call.Status != "" && call.Status != "offer" {
			continue
		}
		logger := h.logger.With("call", call.ID, "from", call.From)
		h.out.RejectCall(ctx, call.ID, call.From).Log(logger)

		if !h.replyGate.TryAcquire(h.now()) {
			continue
		}
		text := h.settings.Get(ctx, settings.KeyAntiCallMessage)
		if text == "" {
			text = DefaultMessage
		}
		h.out.Send(ctx, domain.BareID(call.From), domain.OutboundPayload{Text: text}, domain.SendOptions{}).Log(logger)
	}
}
