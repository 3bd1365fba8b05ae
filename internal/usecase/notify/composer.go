// Package notify builds outbound payloads. It never talks to the transport.
package notify

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"guardBot/internal/domain"
	"guardBot/internal/usecase/archive"
)

const (
	forwardingScore    = 999
	minServerMessageID = 100000
	maxServerMessageID = 999999
)

type Config struct {
	BotName        string
	OwnerName      string
	NewsletterJID  string
	NewsletterName string
	ThumbnailURL   string
	SourceURL      string
}

type Composer struct {
	cfg  Config
	intn func(n int) int
}

func NewComposer(cfg Config) *Composer {
	if cfg.NewsletterJID == "" {
		cfg.NewsletterJID = "120363276287415739@newsletter"
	}
	if cfg.NewsletterName == "" {
		cfg.NewsletterName = cfg.BotName
	}
	return &Composer{cfg: cfg, intn: rand.IntN}
}

// Mentions deduplicates ids and drops empty ones, keeping first-seen order.
func Mentions(ids ...string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Tag renders the inline "@number" form of a mention.
func Tag(id string) string {
	return "@" + domain.NumberOf(id)
}

// ForwardedContext marks a payload as forwarded from the bot's channel.
func (c *Composer) ForwardedContext(mentions ...string) *domain.ContextInfo {
	return &domain.ContextInfo{
		MentionedIDs:    Mentions(mentions...),
		ForwardingScore: forwardingScore,
		IsForwarded:     true,
		Newsletter: &domain.NewsletterInfo{
			JID:             c.cfg.NewsletterJID,
			Name:            c.cfg.NewsletterName,
			ServerMessageID: minServerMessageID + c.intn(maxServerMessageID-minServerMessageID+1),
		},
	}
}

func (c *Composer) withAd(info *domain.ContextInfo, title, body, thumbnail string, attribution bool) *domain.ContextInfo {
	if thumbnail == "" {
		thumbnail = c.cfg.ThumbnailURL
	}
	info.ExternalAd = &domain.ExternalAd{
		Title:           title,
		Body:            body,
		ThumbnailURL:    thumbnail,
		SourceURL:       c.cfg.SourceURL,
		ShowAttribution: attribution,
	}
	return info
}

func (c *Composer) Reaction(key domain.MessageKey, emoji string) domain.OutboundPayload {
	return domain.OutboundPayload{React: &domain.Reaction{Key: key, Emoji: emoji}}
}

func (c *Composer) Text(text string, mentions ...string) domain.OutboundPayload {
	return domain.OutboundPayload{Text: text, Mentions: Mentions(mentions...)}
}

type policyWording struct {
	label   string
	deleted string
	limit   string
}

var wording = map[domain.PolicyName]policyWording{
	domain.PolicyLink: {
		label:   "Link detected",
		deleted: "Sending other group links here is prohibited!",
		limit:   "link detected, you will be removed because of reaching the warn limit",
	},
	domain.PolicyImpersonation: {
		label:   "Bot detected",
		deleted: "Avoid sending bot messages.",
		limit:   "BOT DETECTED!!! You will be removed because of reaching the warn limit",
	},
}

func wordingFor(policy domain.PolicyName) policyWording {
	if w, ok := wording[policy]; ok {
		return w
	}
	return policyWording{label: "Rule violation", deleted: "This message is not allowed here.", limit: "you will be removed because of reaching the warn limit"}
}

// PolicyNotice is the message announcing a remove or delete enforcement.
func (c *Composer) PolicyNotice(policy domain.PolicyName, action domain.Action, authorID string) domain.OutboundPayload {
	w := wordingFor(policy)
	var text string
	switch action {
	case domain.ActionRemove:
		text = fmt.Sprintf("%s,\nmessage deleted\n%s removed from group.", w.label, Tag(authorID))
	default:
		text = fmt.Sprintf("%s,\nmessage deleted\n%s %s", w.label, Tag(authorID), w.deleted)
	}
	return c.Text(text, authorID)
}

func (c *Composer) WarnNotice(policy domain.PolicyName, authorID string, remaining int) domain.OutboundPayload {
	w := wordingFor(policy)
	text := fmt.Sprintf("%s, %s your warn count was upgraded;\nrest: %d", w.label, Tag(authorID), remaining)
	return c.Text(text, authorID)
}

func (c *Composer) WarnLimitNotice(policy domain.PolicyName, authorID string) domain.OutboundPayload {
	w := wordingFor(policy)
	return c.Text(fmt.Sprintf("%s %s", Tag(authorID), w.limit), authorID)
}

// Recovered builds the anti-delete repost. media may be nil when the
// download failed or the message had none.
func (c *Composer) Recovered(deleterID, groupSubject string, isGroup bool, msg archive.ArchivedMessage, media []byte) domain.OutboundPayload {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s ANTIDELETE*\n", strings.ToUpper(c.cfg.BotName))
	fmt.Fprintf(&b, "• Deleted by: %s\n", Tag(deleterID))
	fmt.Fprintf(&b, "• Original sender: %s\n", Tag(msg.AuthorID))
	if isGroup {
		if groupSubject != "" {
			fmt.Fprintf(&b, "• Group: %s\n", groupSubject)
		} else {
			b.WriteString("• Group information unavailable.\n")
		}
	}
	b.WriteString("• Message recovered")
	notice := b.String()

	mentions := Mentions(deleterID, msg.AuthorID)
	info := c.withAd(c.ForwardedContext(mentions...), c.cfg.BotName, "Deleted Message Alert", "", true)
	payload := domain.OutboundPayload{Mentions: mentions, Context: info}

	switch {
	case msg.Media == nil && msg.Content != "":
		payload.Text = notice + "\n\n*Deleted Text:*\n" + msg.Content
	case msg.Media != nil && (msg.Media.Kind == domain.MediaImage || msg.Media.Kind == domain.MediaVideo):
		label := "Image"
		if msg.Media.Kind == domain.MediaVideo {
			label = "Video"
		}
		if len(media) == 0 {
			payload.Text = fmt.Sprintf("%s\n\n*%s deleted*", notice, label)
			break
		}
		payload.Media = &domain.MediaPayload{
			Kind:     msg.Media.Kind,
			Data:     media,
			Mimetype: msg.Media.Mimetype,
			Caption:  fmt.Sprintf("%s\n\n*%s Caption:*\n%s", notice, label, msg.Media.Caption),
		}
	default:
		payload.Text = notice + "\n\n*Unsupported message type was deleted*"
	}
	return payload
}

func (c *Composer) Greeting(contactID string) domain.OutboundPayload {
	text := fmt.Sprintf("Hello %s, %s is unavailable right now. Kindly leave a message.", Tag(contactID), c.cfg.OwnerName)
	p := c.Text(text, contactID)
	p.Context = c.ForwardedContext()
	return p
}

func (c *Composer) Welcome(memberID, groupName, groupPicture string) domain.OutboundPayload {
	return c.memberPayload(fmt.Sprintf("Hello *%s* welcome here.", Tag(memberID)), memberID, groupName, groupPicture)
}

func (c *Composer) Goodbye(memberID, groupName, groupPicture string) domain.OutboundPayload {
	return c.memberPayload(fmt.Sprintf("*%s* has left the group.", Tag(memberID)), memberID, groupName, groupPicture)
}

func (c *Composer) memberPayload(text, memberID, groupName, groupPicture string) domain.OutboundPayload {
	p := c.Text(text, memberID)
	p.Context = c.withAd(c.ForwardedContext(memberID), groupName, c.cfg.BotName, groupPicture, false)
	return p
}

// Announcement is posted to the bot's own chat once the connection opens.
func (c *Composer) Announcement(selfID string, public bool, prefixes []string, commandCount int) domain.OutboundPayload {
	mode := "PRIVATE"
	if public {
		mode = "PUBLIC"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* connected\n", c.cfg.BotName)
	fmt.Fprintf(&b, "• Admin: *%s*\n", c.cfg.OwnerName)
	fmt.Fprintf(&b, "• Prefix: [ %s ]\n", strings.Join(prefixes, " "))
	fmt.Fprintf(&b, "• Mode: %s MODE\n", mode)
	fmt.Fprintf(&b, "• Commands: %d", commandCount)
	p := c.Text(b.String())
	p.Context = c.ForwardedContext(selfID)
	return p
}
