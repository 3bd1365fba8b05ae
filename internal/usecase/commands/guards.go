package commands

import (
	"context"
	"log/slog"

	"guardBot/internal/domain"
)

const (
	NoticeIgnored = "_Input Ignored❗❗_"
	NoticeBanned  = "You are banned from using bot commands."
)

// Request is what the guards see.
type Request struct {
	Event    domain.ConversationEvent
	Identity domain.Identity
	Command  Command
}

// Rejection stops dispatch. An empty Notice drops the command silently.
type Rejection struct {
	Guard  string
	Notice string
}

type Guard interface {
	Name() string
	Check(ctx context.Context, req Request) *Rejection
}

// ModeSource and PrivacySource are satisfied by settings.Service.
type ModeSource interface {
	Public(ctx context.Context) bool
}

type PrivacySource interface {
	PrivateCommandsBlocked(ctx context.Context) bool
}

type ModeGuard struct {
	Mode ModeSource
}

func (g ModeGuard) Name() string { return "mode" }

func (g ModeGuard) Check(ctx context.Context, req Request) *Rejection {
	if req.Identity.IsSuperUser || g.Mode.Public(ctx) {
		return nil
	}
	return &Rejection{Guard: g.Name(), Notice: NoticeIgnored}
}

type PrivateGuard struct {
	Privacy PrivacySource
	BotName string
}

func (g PrivateGuard) Name() string { return "private" }

func (g PrivateGuard) Check(ctx context.Context, req Request) *Rejection {
	if req.Identity.IsSuperUser || req.Identity.IsGroup || !g.Privacy.PrivateCommandsBlocked(ctx) {
		return nil
	}
	return &Rejection{
		Guard:  g.Name(),
		Notice: "Access Denied ❗\n\nYou don't have permission to use " + g.BotName + " in private chat.",
	}
}

// GroupBanGuard drops commands in banned groups. Storage failures count as
// not banned.
type GroupBanGuard struct {
	Bans   domain.BanStore
	Logger *slog.Logger
}

func (g GroupBanGuard) Name() string { return "group_ban" }

func (g GroupBanGuard) Check(ctx context.Context, req Request) *Rejection {
	if req.Identity.IsSuperUser || !req.Identity.IsGroup {
		return nil
	}
	banned, err := g.Bans.IsGroupBanned(ctx, req.Event.ConversationID)
	if err != nil {
		g.Logger.Warn("group ban lookup failed", "conversation", req.Event.ConversationID, "err", err)
		return nil
	}
	if banned {
		return &Rejection{Guard: g.Name()}
	}
	return nil
}

type AdminOnlyGuard struct {
	Store  domain.OnlyAdminStore
	Logger *slog.Logger
}

func (g AdminOnlyGuard) Name() string { return "admin_only" }

func (g AdminOnlyGuard) Check(ctx context.Context, req Request) *Rejection {
	if req.Identity.IsSuperUser || !req.Identity.IsGroup {
		return nil
	}
	restricted, err := g.Store.IsOnlyAdmin(ctx, req.Event.ConversationID)
	if err != nil {
		g.Logger.Warn("admin-only lookup failed", "conversation", req.Event.ConversationID, "err", err)
		return nil
	}
	if restricted {
		return &Rejection{Guard: g.Name()}
	}
	return nil
}

type UserBanGuard struct {
	Bans   domain.BanStore
	Logger *slog.Logger
}

func (g UserBanGuard) Name() string { return "user_ban" }

func (g UserBanGuard) Check(ctx context.Context, req Request) *Rejection {
	if req.Identity.IsSuperUser {
		return nil
	}
	banned, err := g.Bans.IsUserBanned(ctx, domain.BareID(req.Identity.AuthorID))
	if err != nil {
		g.Logger.Warn("user ban lookup failed", "author", req.Identity.AuthorID, "err", err)
		return nil
	}
	if banned {
		return &Rejection{Guard: g.Name(), Notice: NoticeBanned}
	}
	return nil
}

// DefaultGuards returns the chain in evaluation order.
func DefaultGuards(mode ModeSource, privacy PrivacySource, store domain.Storage, botName string, logger *slog.Logger) []Guard {
	return []Guard{
		ModeGuard{Mode: mode},
		PrivateGuard{Privacy: privacy, BotName: botName},
		GroupBanGuard{Bans: store, Logger: logger},
		AdminOnlyGuard{Store: store, Logger: logger},
		UserBanGuard{Bans: store, Logger: logger},
	}
}
