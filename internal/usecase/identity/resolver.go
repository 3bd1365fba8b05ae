package identity

import (
	"context"
	"log/slog"

	"guardBot/internal/domain"
)

// DefaultDevelopers are always treated as superusers.
var DefaultDevelopers = []string{"254114141192", "254737681758"}

type Config struct {
	OwnerNumber string
	Developers  []string
}

type Resolver struct {
	owner      string
	developers map[string]struct{}
	sudo       domain.SudoStore
	logger     *slog.Logger
}

func NewResolver(cfg Config, sudo domain.SudoStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	devs := cfg.Developers
	if len(devs) == 0 {
		devs = DefaultDevelopers
	}
	developers := make(map[string]struct{}, len(devs))
	for _, n := range devs {
		if id := domain.UserID(n); id != "" {
			developers[id] = struct{}{}
		}
	}
	return &Resolver{
		owner:      domain.UserID(cfg.OwnerNumber),
		developers: developers,
		sudo:       sudo,
		logger:     logger.With("component", "identity"),
	}
}

// Resolve derives who is speaking where. It never fails: a sudo lookup error
// only means no extra superusers for this event.
func (r *Resolver) Resolve(ctx context.Context, evt domain.ConversationEvent, selfID string) domain.Identity {
	botID := domain.BareID(selfID)
	isGroup := domain.IsGroupID(evt.ConversationID)

	author := evt.ConversationID
	switch {
	case evt.Key.FromMe && botID != "":
		author = botID
	case isGroup || domain.IsStatusID(evt.ConversationID):
		author = evt.Key.ParticipantID
		if author == "" {
			author = evt.AuthorID
		}
	}
	author = domain.BareID(author)

	_, isDev := r.developers[author]
	ident := domain.Identity{
		IsGroup:     isGroup,
		AuthorID:    author,
		BotID:       botID,
		IsDeveloper: isDev,
		FromMe:      evt.Key.FromMe,
	}
	ident.IsSuperUser = author != "" && (isDev || author == botID || author == r.owner || r.isSudo(ctx, author))
	return ident
}

func (r *Resolver) isSudo(ctx context.Context, author string) bool {
	if r.sudo == nil {
		return false
	}
	numbers, err := r.sudo.SudoNumbers(ctx)
	if err != nil {
		r.logger.Warn("sudo lookup failed", "err", err)
		return false
	}
	for _, n := range numbers {
		if domain.UserID(domain.NumberOf(n)) == author {
			return true
		}
	}
	return false
}

// SuperUsers lists the static superuser ids, used by diagnostics.
func (r *Resolver) SuperUsers() []string {
	out := make([]string, 0, len(r.developers)+1)
	if r.owner != "" {
		out = append(out, r.owner)
	}
	for id := range r.developers {
		out = append(out, id)
	}
	return out
}
