package commands

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"guardBot/internal/domain"
	"guardBot/internal/interface/outs"
)

type Command interface {
	Name() string
	Aliases() []string
	Handle(ctx context.Context, c *Context) error
}

// Access is the minimum caller role a command expects. Handlers enforce it
// themselves; the dispatcher only runs the guard chain.
type Access string

const (
	AccessEveryone  Access = "everyone"
	AccessAdmin     Access = "admin"
	AccessSuperUser Access = "superuser"
)

// Descriptor is the help metadata of a command.
type Descriptor struct {
	Name        string
	Aliases     []string
	Category    string
	Description string
	Usage       string
	Access      Access
	GroupOnly   bool
	// Reaction is sent on the triggering message before the handler runs.
	Reaction string
}

// Described is implemented by commands that carry help metadata.
type Described interface {
	Describe() Descriptor
}

// Context is what a handler gets to work with.
type Context struct {
	ConversationID string
	Event          domain.ConversationEvent
	Identity       domain.Identity
	Out            *outs.Outbox
	// Logger carries the conversation and command; may be nil.
	Logger *slog.Logger

	Prefix string
	Name   string
	Raw    string
	Args   []string
}

// Transport exposes the underlying client for handlers that need calls the
// outbox does not wrap.
func (c *Context) Transport() domain.Transport {
	return c.Out.Transport()
}

// Reply answers in the originating conversation, quoting the trigger.
func (c *Context) Reply(ctx context.Context, text string, mentions ...string) error {
	return c.Out.Reply(ctx, c.Event, text, mentions...).Err
}

// Rest returns the arguments joined back together.
func (c *Context) Rest() string {
	return strings.Join(c.Args, " ")
}

func (c *Context) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// IsAdmin reports whether the caller administers the current group. A
// metadata failure counts as not admin.
func (c *Context) IsAdmin(ctx context.Context) bool {
	if !c.Identity.IsGroup {
		return false
	}
	meta, res := c.Out.Metadata(ctx, c.ConversationID)
	if !res.OK() {
		return false
	}
	return meta.IsAdmin(c.Identity.AuthorID)
}

// Target picks the user a moderation command refers to: the first mention,
// else the first argument that looks like a phone number.
func (c *Context) Target() string {
	if len(c.Event.Mentions) > 0 {
		return domain.BareID(c.Event.Mentions[0])
	}
	for _, a := range c.Args {
		if id := domain.UserID(a); id != "" {
			return id
		}
	}
	return ""
}

// Payload returns everything after the command word, with the original
// spacing and line breaks kept.
func (c *Context) Payload() string {
	raw := strings.TrimSpace(c.Raw)
	i := strings.IndexFunc(raw, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(raw[i:])
}
