package moderation

import (
	"context"
	"log/slog"

	"guardBot/internal/domain"
	"guardBot/internal/interface/outs"
)

// Enforce applies one matched decision. Every outbound call is best effort.
func (eng *Engine) Enforce(ctx context.Context, evt domain.ConversationEvent, ident domain.Identity, d domain.PolicyDecision) {
	logger := eng.Logger.With("policy", d.Policy, "action", d.Action, "conversation", evt.ConversationID, "author", ident.AuthorID)
	actionCount.WithLabelValues(string(d.Policy), string(d.Action)).Inc()
	logger.Info("enforcing moderation policy", "reason", d.Reason)

	switch d.Action {
	case domain.ActionRemove:
		eng.notice(ctx, evt, eng.Notices.PolicyNotice(d.Policy, d.Action, ident.AuthorID), logger)
		eng.removeAndDelete(ctx, evt, ident, logger)
	case domain.ActionWarn:
		eng.warn(ctx, evt, ident, d, logger)
	default:
		eng.notice(ctx, evt, eng.Notices.PolicyNotice(d.Policy, domain.ActionDelete, ident.AuthorID), logger)
		eng.Out.Delete(ctx, evt.Key).Log(logger)
	}
}

// warn removes the author on the infraction that reaches the limit and
// otherwise bumps the stored count.
func (eng *Engine) warn(ctx context.Context, evt domain.ConversationEvent, ident domain.Identity, d domain.PolicyDecision, logger *slog.Logger) {
	limit := eng.WarnLimit
	if limit <= 0 {
		limit = DefaultWarnLimit
	}

	count, err := eng.Warns.WarnCount(ctx, ident.AuthorID)
	if err != nil {
		logger.Warn("warn count lookup failed", "err", err)
		count = 0
	}

	if count+1 >= limit {
		eng.notice(ctx, evt, eng.Notices.WarnLimitNotice(d.Policy, ident.AuthorID), logger)
		eng.removeAndDelete(ctx, evt, ident, logger)
		return
	}

	if err := eng.Warns.IncrementWarn(ctx, ident.AuthorID); err != nil {
		logger.Warn("warn count update failed", "err", err)
	}
	eng.notice(ctx, evt, eng.Notices.WarnNotice(d.Policy, ident.AuthorID, limit-count), logger)
	eng.Out.Delete(ctx, evt.Key).Log(logger)
}

// removeAndDelete always attempts the delete, even when removal failed.
func (eng *Engine) removeAndDelete(ctx context.Context, evt domain.ConversationEvent, ident domain.Identity, logger *slog.Logger) {
	eng.Out.Remove(ctx, evt.ConversationID, ident.AuthorID).Log(logger)
	eng.Out.Delete(ctx, evt.Key).Log(logger)
}

func (eng *Engine) notice(ctx context.Context, evt domain.ConversationEvent, payload domain.OutboundPayload, logger *slog.Logger) outs.Result {
	key := evt.Key
	return eng.Out.Send(ctx, evt.ConversationID, payload, domain.SendOptions{Quoted: &key}).Log(logger)
}
