package commands

import (
	"context"
	"fmt"
	"strings"
)

type ManageCustomCommand struct {
	manager *CustomCommandManager
}

func NewManageCustomCommand(manager *CustomCommandManager) *ManageCustomCommand {
	return &ManageCustomCommand{manager: manager}
}

func (c *ManageCustomCommand) Name() string {
	return "cmd"
}

func (c *ManageCustomCommand) Aliases() []string {
	return []string{"command"}
}

func (c *ManageCustomCommand) Describe() Descriptor {
	return Descriptor{
		Name:        c.Name(),
		Aliases:     c.Aliases(),
		Category:    "Owner",
		Description: "Create, edit, list or delete custom reply commands.",
		Usage:       "cmd <name> [aliases:a,b] [access:owner|everyone] [action:delete] <response> | cmd list",
		Access:      AccessSuperUser,
	}
}

func (c *ManageCustomCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	if c.manager == nil {
		return nil
	}
	if !cmdCtx.Identity.IsSuperUser {
		return cmdCtx.Reply(ctx, NoticeOwnerOnly)
	}

	payload := cmdCtx.Payload()
	if payload == "" {
		return c.usage(ctx, cmdCtx)
	}
	if strings.EqualFold(payload, "list") {
		return c.list(ctx, cmdCtx)
	}

	name, rest := cutNext(payload)
	if name == "" {
		return c.usage(ctx, cmdCtx)
	}

	var aliases []string
	var responseText string
	var hasResponse bool
	var hasAliases bool
	var superUserOnly *bool
	action := ""

	for {
		token, remaining := cutNext(rest)
		if token == "" {
			break
		}

		lower := strings.ToLower(token)
		switch {
		case strings.HasPrefix(lower, "aliases:"):
			hasAliases = true
			aliases = parseCSV(token[len("aliases:"):])
			rest = remaining
			continue
		case strings.HasPrefix(lower, "access:"):
			owner := strings.TrimSpace(lower[len("access:"):]) == "owner"
			superUserOnly = &owner
			rest = remaining
			continue
		case strings.HasPrefix(lower, "action:"):
			action = strings.TrimSpace(token[len("action:"):])
			rest = remaining
			continue
		default:
			responseText = rest
			hasResponse = true
			rest = ""
		}
		break
	}

	if strings.EqualFold(action, "delete") {
		deleted, err := c.manager.Delete(ctx, name)
		if err != nil {
			return cmdCtx.Reply(ctx, fmt.Sprintf("⚠️ %v", err))
		}
		if !deleted {
			return cmdCtx.Reply(ctx, "⚠️ Command not found.")
		}
		return cmdCtx.Reply(ctx, fmt.Sprintf("🗑️ Command %s deleted.", name))
	}

	var responsePtr *string
	if hasResponse {
		trimmed := strings.TrimSpace(responseText)
		responsePtr = &trimmed
	}

	result, created, err := c.manager.Upsert(ctx, UpdateCustomCommandInput{
		Name:          name,
		Response:      responsePtr,
		Aliases:       aliases,
		HasAliases:    hasAliases,
		SuperUserOnly: superUserOnly,
	})
	if err != nil {
		return cmdCtx.Reply(ctx, fmt.Sprintf("⚠️ %v", err))
	}

	actionMsg := "updated"
	if created {
		actionMsg = "created"
	}

	return cmdCtx.Reply(ctx, fmt.Sprintf("✅ Command %s %s.", result.Name, actionMsg))
}

func (c *ManageCustomCommand) list(ctx context.Context, cmdCtx *Context) error {
	cmds := c.manager.List()
	if len(cmds) == 0 {
		return cmdCtx.Reply(ctx, "No custom commands yet.")
	}
	var sb strings.Builder
	sb.WriteString("*Custom commands*")
	for _, cmd := range cmds {
		sb.WriteString("\n• " + cmdCtx.Prefix + cmd.Name)
		if len(cmd.Aliases) > 0 {
			sb.WriteString(" (" + strings.Join(cmd.Aliases, ", ") + ")")
		}
	}
	return cmdCtx.Reply(ctx, sb.String())
}

func (c *ManageCustomCommand) usage(ctx context.Context, cmdCtx *Context) error {
	return cmdCtx.Reply(ctx,
		fmt.Sprintf("Usage: %scmd <name> [aliases:a,b] [access:owner] [action:delete] <response>", cmdCtx.Prefix))
}

// cutNext splits off the first whitespace-delimited token. rest keeps its
// inner line breaks.
func cutNext(input string) (token string, rest string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ""
	}
	i := strings.IndexAny(input, " \t\n")
	if i < 0 {
		return input, ""
	}
	return input[:i], strings.TrimSpace(input[i:])
}

func parseCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
