// Package handle_message runs the per-message pipeline: identity, archive,
// auto replies, anti-delete, status feed, moderation and commands.
package handle_message

import (
	"context"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"guardBot/internal/app/events"
	"guardBot/internal/domain"
	"guardBot/internal/interface/outs"
	"guardBot/internal/usecase/archive"
	"guardBot/internal/usecase/commands"
	"guardBot/internal/usecase/identity"
	"guardBot/internal/usecase/moderation"
	"guardBot/internal/usecase/notify"
	"guardBot/internal/usecase/settings"
	"guardBot/internal/usecase/status"
)

const defaultGreetCacheSize = 10000

// Deps wires the pipeline. Bus and Status are optional.
type Deps struct {
	Logger       *slog.Logger
	Out          *outs.Outbox
	Identity     *identity.Resolver
	Archive      *archive.Archive
	Moderation   *moderation.Engine
	Router       *commands.Router
	Introspector *commands.Introspector
	Status       *status.Feed
	Settings     *settings.Service
	Notices      *notify.Composer
	Bus          *events.Bus

	GreetCacheSize int
}

type Interactor struct {
	Deps
	greeted *lru.Cache[string, struct{}]
}

func NewInteractor(deps Deps) (*Interactor, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("component", "pipeline")
	size := deps.GreetCacheSize
	if size <= 0 {
		size = defaultGreetCacheSize
	}
	greeted, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &Interactor{Deps: deps, greeted: greeted}, nil
}

// Handle runs every stage for one event. Stages are independent: a panic in
// one is logged and the next still runs. Identity resolution is the
// exception, since nothing downstream is safe without it.
func (uc *Interactor) Handle(ctx context.Context, evt domain.ConversationEvent, selfID string) {
	ident := uc.Identity.Resolve(ctx, evt, selfID)
	logger := uc.Logger.With("conversation", evt.ConversationID, "id", evt.Key.ID, "author", ident.AuthorID)

	uc.stage(logger, "publish", func() {
		uc.Bus.Publish(events.TopicMessage, events.NewMessageDTO(evt, ident))
	})
	uc.stage(logger, "presence", func() { uc.presence(ctx, evt, logger) })

	if !evt.IsSystem() && evt.Key.ID != "" {
		uc.stage(logger, "archive", func() {
			uc.Archive.Append(evt.ConversationID, archive.FromEvent(evt, ident.AuthorID))
		})
	}

	if evt.IsRevoke() {
		uc.stage(logger, "antidelete", func() { uc.recoverDeleted(ctx, evt, ident, logger) })
		return
	}

	if domain.IsStatusID(evt.ConversationID) {
		if uc.Status != nil {
			uc.stage(logger, "status", func() { uc.Status.Handle(ctx, evt, ident, selfID) })
		}
		return
	}

	uc.stage(logger, "greet", func() { uc.greet(ctx, evt, ident, logger) })

	if !ident.FromMe {
		uc.stage(logger, "autoread", func() {
			if uc.Settings.Enabled(ctx, settings.KeyAutoRead) {
				uc.Out.MarkRead(ctx, evt.Key).Log(logger)
			}
		})
	}

	introspected := false
	if uc.Introspector != nil {
		uc.stage(logger, "introspection", func() {
			introspected = uc.Introspector.Handle(ctx, evt, ident)
		})
	}

	uc.stage(logger, "moderation", func() {
		for _, d := range uc.Moderation.Process(ctx, evt, ident) {
			if d.Matched {
				uc.Bus.Publish(events.TopicModeration, events.NewModerationDTO(evt, ident, d))
			}
		}
	})

	if introspected || evt.Kind == domain.EventReaction {
		return
	}
	uc.stage(logger, "commands", func() { uc.dispatch(ctx, evt, ident) })
}

func (uc *Interactor) dispatch(ctx context.Context, evt domain.ConversationEvent, ident domain.Identity) {
	outcome := uc.Router.Handle(ctx, evt, ident)
	if !outcome.Matched {
		return
	}
	dto := events.CommandDTO{
		ConversationID: evt.ConversationID,
		AuthorID:       ident.AuthorID,
		Command:        outcome.Command,
	}
	if outcome.Rejected != nil {
		dto.RejectedBy = outcome.Rejected.Guard
	}
	if outcome.Err != nil {
		dto.Error = outcome.Err.Error()
	}
	uc.Bus.Publish(events.TopicCommand, dto)
}

func (uc *Interactor) stage(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			stagePanics.WithLabelValues(name).Inc()
			logger.Error("pipeline stage exception", "stage", name, "err", r)
		}
	}()
	fn()
}

var presences = map[string]domain.Presence{
	"0": domain.PresenceUnavailable,
	"1": domain.PresenceAvailable,
	"2": domain.PresenceComposing,
	"3": domain.PresenceRecording,
}

func (uc *Interactor) presence(ctx context.Context, evt domain.ConversationEvent, logger *slog.Logger) {
	if domain.IsStatusID(evt.ConversationID) || evt.Key.FromMe {
		return
	}
	p, ok := presences[uc.Settings.Get(ctx, settings.KeyPresence)]
	if !ok {
		return
	}
	uc.Out.Presence(ctx, evt.ConversationID, p).Log(logger)
}

// greet answers the first direct message of each contact once per process.
func (uc *Interactor) greet(ctx context.Context, evt domain.ConversationEvent, ident domain.Identity, logger *slog.Logger) {
	if ident.IsGroup || ident.FromMe || evt.IsSystem() {
		return
	}
	if !uc.Settings.Enabled(ctx, settings.KeyGreet) {
		return
	}
	if found, _ := uc.greeted.ContainsOrAdd(evt.ConversationID, struct{}{}); found {
		return
	}
	uc.Out.Send(ctx, evt.ConversationID, uc.Notices.Greeting(evt.ConversationID), domain.SendOptions{}).Log(logger)
}

// recoverDeleted reposts a revoked message found in the archive. Unknown
// keys are skipped silently.
func (uc *Interactor) recoverDeleted(ctx context.Context, evt domain.ConversationEvent, ident domain.Identity, logger *slog.Logger) {
	if !uc.Settings.Enabled(ctx, settings.KeyAntiDelete) || evt.Protocol == nil {
		return
	}
	msg, ok := uc.Archive.FindByKey(evt.ConversationID, evt.Protocol.Key.ID)
	if !ok {
		logger.Debug("revoked message not archived", "revoked", evt.Protocol.Key.ID)
		return
	}

	subject := ""
	if ident.IsGroup {
		if meta, res := uc.Out.Metadata(ctx, evt.ConversationID); res.Log(logger).OK() && meta != nil {
			subject = meta.Subject
		}
	}

	var media []byte
	if msg.Media != nil && (msg.Media.Kind == domain.MediaImage || msg.Media.Kind == domain.MediaVideo) {
		data, res := uc.Out.Download(ctx, *msg.Media)
		if res.Log(logger).OK() {
			media = data
		}
	}

	payload := uc.Notices.Recovered(ident.AuthorID, subject, ident.IsGroup, msg, media)
	uc.Out.Send(ctx, evt.ConversationID, payload, domain.SendOptions{}).Log(logger)
}
