package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"guardBot/internal/domain"
	"guardBot/internal/usecase/settings"
)

func (b *Builtins) ban() Command {
	return &builtin{
		desc: Descriptor{
			Name:        "ban",
			Category:    "Owner",
			Description: "Ban a user from bot commands.",
			Usage:       "ban @user",
			Access:      AccessSuperUser,
		},
		run: func(ctx context.Context, c *Context) error {
			target := c.Target()
			if target == "" {
				return c.Reply(ctx, "Mention the user to ban.")
			}
			if err := b.Store.BanUser(ctx, target); err != nil {
				return fmt.Errorf("ban user: %w", err)
			}
			return c.Reply(ctx, "@"+domain.NumberOf(target)+" is banned from bot commands.", target)
		},
	}
}

func (b *Builtins) unban() Command {
	return &builtin{
		desc: Descriptor{
			Name:        "unban",
			Category:    "Owner",
			Description: "Lift a user ban.",
			Usage:       "unban @user",
			Access:      AccessSuperUser,
		},
		run: func(ctx context.Context, c *Context) error {
			target := c.Target()
			if target == "" {
				return c.Reply(ctx, "Mention the user to unban.")
			}
			if err := b.Store.UnbanUser(ctx, target); err != nil {
				return fmt.Errorf("unban user: %w", err)
			}
			return c.Reply(ctx, "@"+domain.NumberOf(target)+" may use bot commands again.", target)
		},
	}
}

func (b *Builtins) banGroup() Command {
	return &builtin{
		desc: Descriptor{
			Name:        "bangroup",
			Category:    "Owner",
			Description: "Ignore commands in this group.",
			Usage:       "bangroup",
			Access:      AccessSuperUser,
			GroupOnly:   true,
		},
		run: func(ctx context.Context, c *Context) error {
			if err := b.Store.BanGroup(ctx, c.ConversationID); err != nil {
				return fmt.Errorf("ban group: %w", err)
			}
			return c.Reply(ctx, "Commands are now ignored in this group.")
		},
	}
}

func (b *Builtins) unbanGroup() Command {
	return &builtin{
		desc: Descriptor{
			Name:        "unbangroup",
			Category:    "Owner",
			Description: "Accept commands in this group again.",
			Usage:       "unbangroup",
			Access:      AccessSuperUser,
			GroupOnly:   true,
		},
		run: func(ctx context.Context, c *Context) error {
			if err := b.Store.UnbanGroup(ctx, c.ConversationID); err != nil {
				return fmt.Errorf("unban group: %w", err)
			}
			return c.Reply(ctx, "Commands are accepted in this group again.")
		},
	}
}

func (b *Builtins) sudo() Command {
	return &builtin{
		desc: Descriptor{
			Name:        "sudo",
			Category:    "Owner",
			Description: "Manage users with owner rights.",
			Usage:       "sudo add|del <number or @user> | sudo list",
			Access:      AccessSuperUser,
		},
		run: func(ctx context.Context, c *Context) error {
			sub := strings.ToLower(c.Arg(0))
			if sub == "list" || sub == "" {
				numbers, err := b.Store.SudoNumbers(ctx)
				if err != nil {
					return fmt.Errorf("list sudo: %w", err)
				}
				if len(numbers) == 0 {
					return c.Reply(ctx, "No sudo users.")
				}
				slices.Sort(numbers)
				return c.Reply(ctx, "*Sudo users*\n"+strings.Join(numbers, "\n"))
			}

			number := ""
			if len(c.Event.Mentions) > 0 {
				number = domain.NumberOf(domain.BareID(c.Event.Mentions[0]))
			} else if len(c.Args) > 1 {
				number = domain.NumberOf(domain.UserID(strings.Join(c.Args[1:], "")))
			}
			if number == "" {
				return c.Reply(ctx, fmt.Sprintf("Usage: %ssudo add|del <number>", c.Prefix))
			}
			switch sub {
			case "add":
				if err := b.Store.AddSudo(ctx, number); err != nil {
					return fmt.Errorf("add sudo: %w", err)
				}
				return c.Reply(ctx, number+" now has owner rights.")
			case "del", "remove", "rm":
				if err := b.Store.RemoveSudo(ctx, number); err != nil {
					return fmt.Errorf("remove sudo: %w", err)
				}
				return c.Reply(ctx, number+" no longer has owner rights.")
			}
			return c.Reply(ctx, fmt.Sprintf("Usage: %ssudo add|del <number>", c.Prefix))
		},
	}
}

func (b *Builtins) mode() Command {
	return &builtin{
		desc: Descriptor{
			Name:        "mode",
			Category:    "Owner",
			Description: "Switch between public and private mode.",
			Usage:       "mode public|private",
			Access:      AccessSuperUser,
		},
		run: func(ctx context.Context, c *Context) error {
			arg := strings.ToLower(c.Arg(0))
			if arg != "public" && arg != "private" {
				current := "private"
				if b.Settings.Public(ctx) {
					current = "public"
				}
				return c.Reply(ctx, fmt.Sprintf("Mode is %s.\nUsage: %smode public|private", current, c.Prefix))
			}
			if err := b.Settings.Set(ctx, settings.KeyMode, arg); err != nil {
				return err
			}
			return c.Reply(ctx, "Mode set to "+arg+".")
		},
	}
}

func (b *Builtins) setVar() Command {
	return &builtin{
		desc: Descriptor{
			Name:        "setvar",
			Aliases:     []string{"set"},
			Category:    "Owner",
			Description: "Change a runtime setting.",
			Usage:       "setvar <key> <value>",
			Access:      AccessSuperUser,
		},
		run: func(ctx context.Context, c *Context) error {
			key, ok := settings.ParseKey(c.Arg(0))
			if !ok || len(c.Args) < 2 {
				keys := make([]string, 0, len(settings.Keys))
				for _, k := range settings.Keys {
					keys = append(keys, string(k))
				}
				return c.Reply(ctx, fmt.Sprintf("Usage: %ssetvar <key> <value>\nKeys: %s", c.Prefix, strings.Join(keys, ", ")))
			}
			value := strings.Join(c.Args[1:], " ")
			if err := b.Settings.Set(ctx, key, value); err != nil {
				return err
			}
			return c.Reply(ctx, fmt.Sprintf("%s = %s", key, value))
		},
	}
}

func (b *Builtins) menu() Command {
	return &builtin{
		desc: Descriptor{
			Name:        "menu",
			Aliases:     []string{"help", "list"},
			Category:    "General",
			Description: "List the available commands.",
			Usage:       "menu",
			Access:      AccessEveryone,
			Reaction:    "📜",
		},
		run: func(ctx context.Context, c *Context) error {
			var table *Table
			if b.Table != nil {
				table = b.Table()
			}
			return c.Reply(ctx, renderMenu(b.BotName, c.Prefix, table))
		},
	}
}

func renderMenu(botName, prefix string, table *Table) string {
	groups := make(map[string][]Descriptor)
	var categories []string
	for _, d := range Describe(table) {
		cat := d.Category
		if cat == "" {
			cat = "Other"
		}
		if _, ok := groups[cat]; !ok {
			categories = append(categories, cat)
		}
		groups[cat] = append(groups[cat], d)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s commands*\n", botName)
	for _, cat := range categories {
		fmt.Fprintf(&sb, "\n*%s*\n", cat)
		for _, d := range groups[cat] {
			fmt.Fprintf(&sb, "• %s%s", prefix, d.Name)
			if d.Description != "" {
				sb.WriteString(" - " + d.Description)
			}
			sb.WriteByte('\n')
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
