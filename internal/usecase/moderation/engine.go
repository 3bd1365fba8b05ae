// Package moderation evaluates the group moderation policies and enforces
// their configured action.
package moderation

import (
	"context"
	"log/slog"

	"guardBot/internal/domain"
	"guardBot/internal/interface/outs"
	"guardBot/internal/usecase/notify"
)

const DefaultWarnLimit = 3

// Engine runs every policy of its table against a group message. Storage
// and transport failures never escape: a failed lookup disables the policy
// for that event, a failed enforcement call is logged and skipped.
//
// Fields must be set before the first call; Logger, Out and Notices are
// required.
type Engine struct {
	Logger    *slog.Logger
	Policies  []Policy
	Settings  domain.PolicyStore
	Warns     domain.WarnStore
	Out       *outs.Outbox
	Notices   *notify.Composer
	WarnLimit int
}

// Eligible reports whether the event is subject to moderation at all.
func Eligible(evt domain.ConversationEvent, ident domain.Identity) bool {
	if !ident.IsGroup || ident.IsSuperUser || ident.IsBot() {
		return false
	}
	switch evt.Kind {
	case domain.EventText, domain.EventMedia, domain.EventReaction:
		return true
	}
	return false
}

// Process evaluates the table in order and enforces every matched policy.
// It returns one decision per policy.
func (eng *Engine) Process(ctx context.Context, evt domain.ConversationEvent, ident domain.Identity) []domain.PolicyDecision {
	defer func() {
		if r := recover(); r != nil {
			panicCount.Inc()
			eng.Logger.Error("moderation execution exception", "err", r, "conversation", evt.ConversationID, "id", evt.Key.ID)
		}
	}()

	decisions := eng.Evaluate(ctx, evt, ident)
	for _, d := range decisions {
		if d.Matched {
			eng.Enforce(ctx, evt, ident, d)
		}
	}
	return decisions
}

// Evaluate runs the table without enforcing anything.
func (eng *Engine) Evaluate(ctx context.Context, evt domain.ConversationEvent, ident domain.Identity) []domain.PolicyDecision {
	decisions := make([]domain.PolicyDecision, 0, len(eng.Policies))
	if !Eligible(evt, ident) {
		for _, p := range eng.Policies {
			decisions = append(decisions, domain.PolicyDecision{Policy: p.Name(), Reason: "not eligible"})
		}
		return decisions
	}

	meta := &lazyMetadata{out: eng.Out, conversationID: evt.ConversationID, logger: eng.Logger}
	for _, p := range eng.Policies {
		decisions = append(decisions, eng.evaluate(ctx, p, evt, ident, meta))
	}
	return decisions
}

func (eng *Engine) evaluate(ctx context.Context, p Policy, evt domain.ConversationEvent, ident domain.Identity, meta *lazyMetadata) domain.PolicyDecision {
	d := domain.PolicyDecision{Policy: p.Name()}

	reason, ok := p.Match(evt)
	if !ok {
		return d
	}

	setting, err := eng.Settings.PolicySetting(ctx, p.Name(), evt.ConversationID)
	if err != nil {
		eng.Logger.Warn("policy lookup failed", "policy", p.Name(), "conversation", evt.ConversationID, "err", err)
		d.Reason = "lookup failed"
		return d
	}
	if !setting.Enabled {
		d.Reason = "disabled"
		return d
	}

	if !p.Permits(ident, meta.get(ctx)) {
		d.Reason = "not permitted"
		return d
	}

	d.Matched = true
	d.Reason = reason
	d.Action = setting.Action
	if !d.Action.Valid() {
		d.Action = domain.ActionDelete
	}
	return d
}

// lazyMetadata fetches the conversation metadata at most once per event,
// and only when a policy gets far enough to need it.
type lazyMetadata struct {
	out            *outs.Outbox
	conversationID string
	logger         *slog.Logger

	fetched bool
	meta    *domain.ConversationMetadata
}

func (l *lazyMetadata) get(ctx context.Context) *domain.ConversationMetadata {
	if l.fetched {
		return l.meta
	}
	l.fetched = true
	meta, res := l.out.Metadata(ctx, l.conversationID)
	if res.Log(l.logger).OK() {
		l.meta = meta
	}
	return l.meta
}
