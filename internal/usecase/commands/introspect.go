package commands

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"guardBot/internal/domain"
	"guardBot/internal/interface/outs"
	"guardBot/internal/usecase/archive"
	"guardBot/internal/usecase/settings"
)

// Introspection topics. Superusers send "<topic" or ">topic".
const (
	TopicConfig   = "config"
	TopicCommands = "commands"
	TopicPolicies = "policies"
	TopicArchive  = "archive"
	TopicUptime   = "uptime"
)

var topics = []string{TopicConfig, TopicCommands, TopicPolicies, TopicArchive, TopicUptime}

// IsIntrospection reports whether text is addressed to the introspector.
func IsIntrospection(text string) bool {
	text = strings.TrimSpace(text)
	return strings.HasPrefix(text, "<") || strings.HasPrefix(text, ">")
}

// Introspector answers a closed set of diagnostic questions. It never
// evaluates anything.
type Introspector struct {
	Logger   *slog.Logger
	Out      *outs.Outbox
	Settings *settings.Service
	Policies domain.PolicyStore
	Archive  *archive.Archive
	Table    func() *Table
	Started  time.Time
}

// Handle answers the request if text is one. It reports whether it did.
func (in *Introspector) Handle(ctx context.Context, evt domain.ConversationEvent, ident domain.Identity) bool {
	text := strings.TrimSpace(evt.Content())
	if !IsIntrospection(text) {
		return false
	}
	logger := in.Logger.With("conversation", evt.ConversationID, "author", ident.AuthorID)
	if !ident.IsSuperUser {
		in.Out.Reply(ctx, evt, NoticeOwnerOnly).Log(logger)
		return true
	}

	topic := strings.ToLower(strings.TrimSpace(text[1:]))
	logger.Info("introspection", "topic", topic)
	in.Out.Reply(ctx, evt, in.answer(ctx, topic, evt.ConversationID)).Log(logger)
	return true
}

func (in *Introspector) answer(ctx context.Context, topic, conversationID string) string {
	switch topic {
	case TopicConfig:
		snap := in.Settings.Snapshot(ctx)
		keys := make([]string, 0, len(snap))
		for k := range snap {
			keys = append(keys, string(k))
		}
		slices.Sort(keys)
		var sb strings.Builder
		sb.WriteString("*config*")
		for _, k := range keys {
			fmt.Fprintf(&sb, "\n%s = %s", k, snap[settings.Key(k)])
		}
		return sb.String()

	case TopicCommands:
		var names []string
		for _, d := range Describe(in.Table()) {
			entry := d.Name
			if len(d.Aliases) > 0 {
				entry += " (" + strings.Join(d.Aliases, ", ") + ")"
			}
			names = append(names, entry)
		}
		return fmt.Sprintf("*commands* %d\n%s", len(names), strings.Join(names, "\n"))

	case TopicPolicies:
		var sb strings.Builder
		sb.WriteString("*policies* " + conversationID)
		for _, p := range []domain.PolicyName{domain.PolicyLink, domain.PolicyImpersonation} {
			setting, err := in.Policies.PolicySetting(ctx, p, conversationID)
			if err != nil {
				fmt.Fprintf(&sb, "\n%s: error: %v", p, err)
				continue
			}
			fmt.Fprintf(&sb, "\n%s: %s (%s)", p, status(setting.Enabled), setting.Action)
		}
		return sb.String()

	case TopicArchive:
		return fmt.Sprintf("*archive*\nconversations: %d\nthis conversation: %d",
			in.Archive.Conversations(), in.Archive.Len(conversationID))

	case TopicUptime:
		return "*uptime* " + time.Since(in.Started).Truncate(time.Second).String()
	}
	return "Unknown topic. Try: " + strings.Join(topics, ", ")
}
