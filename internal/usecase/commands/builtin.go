package commands

import (
	"context"
	"time"

	"guardBot/internal/domain"
	"guardBot/internal/usecase/settings"
)

const (
	NoticeOwnerOnly = "This command is reserved for the bot owner."
	NoticeAdminOnly = "This command is for group admins only."
	NoticeGroupOnly = "This command only works in groups."
)

// builtin checks the descriptor's access rules before running.
type builtin struct {
	desc Descriptor
	run  func(ctx context.Context, c *Context) error
}

func (b *builtin) Name() string         { return b.desc.Name }
func (b *builtin) Aliases() []string    { return b.desc.Aliases }
func (b *builtin) Describe() Descriptor { return b.desc }

func (b *builtin) Handle(ctx context.Context, c *Context) error {
	if b.desc.GroupOnly && !c.Identity.IsGroup {
		return c.Reply(ctx, NoticeGroupOnly)
	}
	switch b.desc.Access {
	case AccessSuperUser:
		if !c.Identity.IsSuperUser {
			return c.Reply(ctx, NoticeOwnerOnly)
		}
	case AccessAdmin:
		if !c.Identity.IsSuperUser && !c.IsAdmin(ctx) {
			return c.Reply(ctx, NoticeAdminOnly)
		}
	}
	return b.run(ctx, c)
}

// Builtins holds what the shipped commands operate on.
type Builtins struct {
	Store     domain.Storage
	Settings  *settings.Service
	Custom    *CustomCommandManager
	Table     func() *Table
	Prefix    string
	BotName   string
	WarnLimit int
	Started   time.Time
}

// Commands returns every shipped command, in menu order.
func (b *Builtins) Commands() []Command {
	cmds := []Command{
		NewPingCommand(b.Started),
		b.menu(),
		b.policyToggle(domain.PolicyLink, "Configure link moderation for this group."),
		b.policyToggle(domain.PolicyImpersonation, "Configure bot-message moderation for this group."),
		b.warn(),
		b.resetWarn(),
		b.ban(),
		b.unban(),
		b.banGroup(),
		b.unbanGroup(),
		b.onlyAdmin(),
		b.sudo(),
		b.groupEvent(domain.GroupEventWelcome),
		b.groupEvent(domain.GroupEventGoodbye),
		b.mode(),
		b.setVar(),
		b.automute(),
	}
	if b.Custom != nil {
		cmds = append(cmds, NewManageCustomCommand(b.Custom))
	}
	return cmds
}

func (b *Builtins) warnLimit() int {
	if b.WarnLimit > 0 {
		return b.WarnLimit
	}
	return 3
}
