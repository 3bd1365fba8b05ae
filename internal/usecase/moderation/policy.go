package moderation

import (
	"strings"

	"guardBot/internal/domain"
)

// Policy is one entry of the moderation table. Match looks at the event
// alone; Permits decides, given the conversation metadata, whether the
// policy may act. Metadata may be nil when it could not be fetched.
type Policy interface {
	Name() domain.PolicyName
	Match(evt domain.ConversationEvent) (reason string, ok bool)
	Permits(ident domain.Identity, meta *domain.ConversationMetadata) bool
}

// LinkPolicy matches text carrying a link marker. It only acts when the bot
// can moderate the group.
type LinkPolicy struct {
	Markers []string
}

func NewLinkPolicy(markers []string) *LinkPolicy {
	clean := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.TrimSpace(m); m != "" {
			clean = append(clean, strings.ToLower(m))
		}
	}
	if len(clean) == 0 {
		clean = []string{"https://"}
	}
	return &LinkPolicy{Markers: clean}
}

func (p *LinkPolicy) Name() domain.PolicyName { return domain.PolicyLink }

func (p *LinkPolicy) Match(evt domain.ConversationEvent) (string, bool) {
	text := strings.ToLower(evt.Content())
	if text == "" {
		return "", false
	}
	for _, m := range p.Markers {
		if strings.Contains(text, m) {
			return "link marker " + m, true
		}
	}
	return "", false
}

func (p *LinkPolicy) Permits(ident domain.Identity, meta *domain.ConversationMetadata) bool {
	return meta.IsAdmin(ident.BotID)
}

// ImpersonationPolicy matches messages whose id carries the signature of
// another automation client. Group admins are exempt.
type ImpersonationPolicy struct {
	Prefixes []string
	IDLength int
}

func NewImpersonationPolicy(prefixes []string, idLength int) *ImpersonationPolicy {
	clean := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			clean = append(clean, p)
		}
	}
	if len(clean) == 0 {
		clean = []string{"BAES", "BAE5"}
	}
	if idLength <= 0 {
		idLength = 16
	}
	return &ImpersonationPolicy{Prefixes: clean, IDLength: idLength}
}

func (p *ImpersonationPolicy) Name() domain.PolicyName { return domain.PolicyImpersonation }

func (p *ImpersonationPolicy) Match(evt domain.ConversationEvent) (string, bool) {
	if evt.Kind == domain.EventReaction {
		return "", false
	}
	id := evt.Key.ID
	if len(id) != p.IDLength {
		return "", false
	}
	for _, prefix := range p.Prefixes {
		if strings.HasPrefix(id, prefix) {
			return "automation id prefix " + prefix, true
		}
	}
	return "", false
}

func (p *ImpersonationPolicy) Permits(ident domain.Identity, meta *domain.ConversationMetadata) bool {
	if meta == nil {
		return false
	}
	return !meta.IsAdmin(ident.AuthorID)
}

// DefaultPolicies returns the table in evaluation order.
func DefaultPolicies(linkMarkers, impersonationPrefixes []string, idLength int) []Policy {
	return []Policy{
		NewLinkPolicy(linkMarkers),
		NewImpersonationPolicy(impersonationPrefixes, idLength),
	}
}
