package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guardBot/internal/domain"
)

func onOff(arg string) (enabled, ok bool) {
	switch strings.ToLower(arg) {
	case "on", "yes", "enable":
		return true, true
	case "off", "no", "disable":
		return false, true
	}
	return false, false
}

func status(enabled bool) string {
	if enabled {
		return "ON"
	}
	return "OFF"
}

func (b *Builtins) policyToggle(policy domain.PolicyName, description string) Command {
	name := string(policy)
	return &builtin{
		desc: Descriptor{
			Name:        name,
			Category:    "Group",
			Description: description,
			Usage:       name + " on|off|delete|remove|warn",
			Access:      AccessAdmin,
			GroupOnly:   true,
		},
		run: func(ctx context.Context, c *Context) error {
			current, err := b.Store.PolicySetting(ctx, policy, c.ConversationID)
			if err != nil {
				return fmt.Errorf("read %s: %w", policy, err)
			}
			arg := strings.ToLower(c.Arg(0))
			if arg == "" {
				action := current.Action
				if !action.Valid() {
					action = domain.ActionDelete
				}
				return c.Reply(ctx, fmt.Sprintf("*%s* is %s, action: %s\nUsage: %s%s on|off|delete|remove|warn", name, status(current.Enabled), action, c.Prefix, name))
			}

			next := current
			if enabled, ok := onOff(arg); ok {
				next.Enabled = enabled
			} else if action := domain.Action(arg); action.Valid() {
				next.Enabled = true
				next.Action = action
			} else {
				return c.Reply(ctx, fmt.Sprintf("Unknown option %q. Use on, off, delete, remove or warn.", arg))
			}
			if !next.Action.Valid() {
				next.Action = domain.ActionDelete
			}
			if err := b.Store.SetPolicy(ctx, policy, c.ConversationID, next); err != nil {
				return fmt.Errorf("save %s: %w", policy, err)
			}
			return c.Reply(ctx, fmt.Sprintf("*%s* is now %s, action: %s", name, status(next.Enabled), next.Action))
		},
	}
}

func (b *Builtins) warn() Command {
	return &builtin{
		desc: Descriptor{
			Name:        "warn",
			Category:    "Group",
			Description: "Warn a member. Reaching the limit removes them.",
			Usage:       "warn @user",
			Access:      AccessAdmin,
			GroupOnly:   true,
		},
		run: func(ctx context.Context, c *Context) error {
			target := c.Target()
			if target == "" {
				return c.Reply(ctx, "Mention the member to warn.")
			}
			count, err := b.Store.WarnCount(ctx, target)
			if err != nil {
				return fmt.Errorf("warn count: %w", err)
			}
			limit := b.warnLimit()
			tag := "@" + domain.NumberOf(target)
			if count+1 >= limit {
				if err := c.Reply(ctx, tag+" reached the warn limit and will be removed.", target); err != nil {
					return err
				}
				c.Out.Remove(ctx, c.ConversationID, target).Log(c.Logger)
				return b.Store.ResetWarn(ctx, target)
			}
			if err := b.Store.IncrementWarn(ctx, target); err != nil {
				return fmt.Errorf("warn increment: %w", err)
			}
			return c.Reply(ctx, fmt.Sprintf("%s warned (%d/%d).", tag, count+1, limit), target)
		},
	}
}

func (b *Builtins) resetWarn() Command {
	return &builtin{
		desc: Descriptor{
			Name:        "resetwarn",
			Aliases:     []string{"delwarn"},
			Category:    "Group",
			Description: "Clear a member's warnings.",
			Usage:       "resetwarn @user",
			Access:      AccessAdmin,
			GroupOnly:   true,
		},
		run: func(ctx context.Context, c *Context) error {
			target := c.Target()
			if target == "" {
				return c.Reply(ctx, "Mention the member whose warnings should be cleared.")
			}
			if err := b.Store.ResetWarn(ctx, target); err != nil {
				return fmt.Errorf("reset warn: %w", err)
			}
			return c.Reply(ctx, "Warnings cleared for @"+domain.NumberOf(target)+".", target)
		},
	}
}

func (b *Builtins) onlyAdmin() Command {
	return &builtin{
		desc: Descriptor{
			Name:        "onlyadmin",
			Category:    "Group",
			Description: "Restrict bot commands in this group to admins.",
			Usage:       "onlyadmin on|off",
			Access:      AccessAdmin,
			GroupOnly:   true,
		},
		run: func(ctx context.Context, c *Context) error {
			enabled, ok := onOff(c.Arg(0))
			if !ok {
				current, err := b.Store.IsOnlyAdmin(ctx, c.ConversationID)
				if err != nil {
					return fmt.Errorf("read onlyadmin: %w", err)
				}
				return c.Reply(ctx, fmt.Sprintf("onlyadmin is %s\nUsage: %sonlyadmin on|off", status(current), c.Prefix))
			}
			if err := b.Store.SetOnlyAdmin(ctx, c.ConversationID, enabled); err != nil {
				return fmt.Errorf("save onlyadmin: %w", err)
			}
			return c.Reply(ctx, "onlyadmin is now "+status(enabled))
		},
	}
}

func (b *Builtins) groupEvent(event domain.GroupEvent) Command {
	name := string(event)
	return &builtin{
		desc: Descriptor{
			Name:        name,
			Category:    "Group",
			Description: "Toggle the " + name + " message for this group.",
			Usage:       name + " on|off",
			Access:      AccessAdmin,
			GroupOnly:   true,
		},
		run: func(ctx context.Context, c *Context) error {
			enabled, ok := onOff(c.Arg(0))
			if !ok {
				current, err := b.Store.GroupEventEnabled(ctx, c.ConversationID, event)
				if err != nil {
					return fmt.Errorf("read %s: %w", name, err)
				}
				return c.Reply(ctx, fmt.Sprintf("%s is %s\nUsage: %s%s on|off", name, status(current), c.Prefix, name))
			}
			if err := b.Store.SetGroupEvent(ctx, c.ConversationID, event, enabled); err != nil {
				return fmt.Errorf("save %s: %w", name, err)
			}
			return c.Reply(ctx, name+" is now "+status(enabled))
		},
	}
}

// automute only records the schedule; nothing here opens or closes groups.
func (b *Builtins) automute() Command {
	return &builtin{
		desc: Descriptor{
			Name:        "automute",
			Category:    "Group",
			Description: "Record the daily mute and unmute times of this group.",
			Usage:       "automute HH:MM HH:MM | automute off",
			Access:      AccessAdmin,
			GroupOnly:   true,
		},
		run: func(ctx context.Context, c *Context) error {
			switch {
			case strings.EqualFold(c.Arg(0), "off"):
				if err := b.Store.SetMuteSchedule(ctx, domain.MuteSchedule{ConversationID: c.ConversationID}); err != nil {
					return fmt.Errorf("clear schedule: %w", err)
				}
				return c.Reply(ctx, "Mute schedule removed.")
			case len(c.Args) == 2:
				muteAt, unmuteAt := c.Arg(0), c.Arg(1)
				for _, v := range []string{muteAt, unmuteAt} {
					if _, err := time.Parse("15:04", v); err != nil {
						return c.Reply(ctx, fmt.Sprintf("Invalid time %q, expected HH:MM.", v))
					}
				}
				schedule := domain.MuteSchedule{ConversationID: c.ConversationID, MuteAt: muteAt, UnmuteAt: unmuteAt}
				if err := b.Store.SetMuteSchedule(ctx, schedule); err != nil {
					return fmt.Errorf("save schedule: %w", err)
				}
				return c.Reply(ctx, fmt.Sprintf("Group will be muted at %s and unmuted at %s.", muteAt, unmuteAt))
			}

			schedules, err := b.Store.MuteSchedules(ctx)
			if err != nil {
				return fmt.Errorf("list schedules: %w", err)
			}
			for _, s := range schedules {
				if s.ConversationID == c.ConversationID {
					return c.Reply(ctx, fmt.Sprintf("Mute at %s, unmute at %s.", s.MuteAt, s.UnmuteAt))
				}
			}
			return c.Reply(ctx, fmt.Sprintf("No schedule.\nUsage: %sautomute HH:MM HH:MM", c.Prefix))
		},
	}
}
