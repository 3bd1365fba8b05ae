// Package status handles posts on the status feed.
package status

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"guardBot/internal/domain"
	"guardBot/internal/interface/outs"
	"guardBot/internal/usecase/ratelimit"
	"guardBot/internal/usecase/settings"
)

var DefaultEmojis = []string{"✅", "🔥", "🗿", "🤍", "🩵", "💙", "💚", "💦", "👻"}

// Feed reacts to status posts: read, like, reply and forward, each behind
// its own toggle.
type Feed struct {
	logger   *slog.Logger
	out      *outs.Outbox
	settings *settings.Service
	likeGate *ratelimit.Gate
	emojis   []string

	intn func(n int) int
	now  func() time.Time
}

func NewFeed(out *outs.Outbox, svc *settings.Service, likeGate *ratelimit.Gate, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		logger:   logger.With("component", "status"),
		out:      out,
		settings: svc,
		likeGate: likeGate,
		emojis:   DefaultEmojis,
		intn:     rand.IntN,
		now:      time.Now,
	}
}

// Handle processes one status post. selfID is the bot's own chat, where
// forwarded posts land.
func (f *Feed) Handle(ctx context.Context, evt domain.ConversationEvent, ident domain.Identity, selfID string) {
	if !domain.IsStatusID(evt.ConversationID) || ident.FromMe {
		return
	}
	logger := f.logger.With("poster", ident.AuthorID, "id", evt.Key.ID)
	key := evt.Key

	if f.settings.Enabled(ctx, settings.KeyAutoStatusReply) && ident.AuthorID != "" {
		if text := f.settings.Get(ctx, settings.KeyAutoStatusMessage); text != "" {
			f.out.Send(ctx, ident.AuthorID, domain.OutboundPayload{Text: text}, domain.SendOptions{Quoted: &key}).Log(logger)
		}
	}

	if f.settings.Enabled(ctx, settings.KeyAutoReadStatus) {
		f.out.MarkRead(ctx, key).Log(logger)
	}

	if f.settings.Enabled(ctx, settings.KeyAutoLikeStatus) && f.likeGate.TryAcquire(f.now()) {
		emoji := f.emojis[f.intn(len(f.emojis))]
		f.out.Send(ctx, evt.ConversationID, domain.OutboundPayload{
			React: &domain.Reaction{Key: key, Emoji: emoji},
		}, domain.SendOptions{}).Log(logger)
	}

	if f.settings.Enabled(ctx, settings.KeyAutoDownloadStatus) && selfID != "" {
		f.forward(ctx, evt, domain.BareID(selfID), logger)
	}
}

func (f *Feed) forward(ctx context.Context, evt domain.ConversationEvent, selfID string, logger *slog.Logger) {
	key := evt.Key
	opts := domain.SendOptions{Quoted: &key}

	if evt.Media == nil {
		if evt.Text != "" {
			f.out.Send(ctx, selfID, domain.OutboundPayload{Text: evt.Text}, opts).Log(logger)
		}
		return
	}
	if evt.Media.Kind != domain.MediaImage && evt.Media.Kind != domain.MediaVideo {
		return
	}
	data, res := f.out.Download(ctx, *evt.Media)
	if !res.Log(logger).OK() || len(data) == 0 {
		return
	}
	f.out.Send(ctx, selfID, domain.OutboundPayload{
		Media: &domain.MediaPayload{
			Kind:     evt.Media.Kind,
			Data:     data,
			Mimetype: evt.Media.Mimetype,
			Caption:  evt.Media.Caption,
		},
	}, opts).Log(logger)
}
