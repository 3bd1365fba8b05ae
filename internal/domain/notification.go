package domain

// ContextInfo is the forwarded-context metadata attached to outbound messages.
type ContextInfo struct {
	MentionedIDs    []string        `json:"mentioned_jid,omitempty"`
	ForwardingScore int             `json:"forwarding_score,omitempty"`
	IsForwarded     bool            `json:"is_forwarded,omitempty"`
	Newsletter      *NewsletterInfo `json:"forwarded_newsletter_message_info,omitempty"`
	ExternalAd      *ExternalAd     `json:"external_ad_reply,omitempty"`
}

type NewsletterInfo struct {
	JID             string `json:"newsletter_jid"`
	Name            string `json:"newsletter_name"`
	ServerMessageID int    `json:"server_message_id"`
}

type ExternalAd struct {
	Title           string `json:"title"`
	Body            string `json:"body"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	SourceURL       string `json:"source_url,omitempty"`
	ShowAttribution bool   `json:"show_ad_attribution"`
}

type Reaction struct {
	Key   MessageKey `json:"key"`
	Emoji string     `json:"text"`
}

type MediaPayload struct {
	Kind     MediaKind `json:"kind"`
	Data     []byte    `json:"data,omitempty"`
	URL      string    `json:"url,omitempty"`
	Mimetype string    `json:"mimetype,omitempty"`
	Caption  string    `json:"caption,omitempty"`
}

// OutboundPayload is everything the transport needs to render one message.
type OutboundPayload struct {
	Text     string        `json:"text,omitempty"`
	Mentions []string      `json:"mentions,omitempty"`
	Context  *ContextInfo  `json:"context_info,omitempty"`
	Media    *MediaPayload `json:"media,omitempty"`
	React    *Reaction     `json:"react,omitempty"`
}

type SendOptions struct {
	Quoted *MessageKey `json:"quoted,omitempty"`
}

type Presence string

const (
	PresenceAvailable   Presence = "available"
	PresenceComposing   Presence = "composing"
	PresenceRecording   Presence = "recording"
	PresenceUnavailable Presence = "unavailable"
)

type Participant struct {
	ID    string `json:"id"`
	Admin bool   `json:"admin"`
}

type ConversationMetadata struct {
	ID           string        `json:"id"`
	Subject      string        `json:"subject"`
	Participants []Participant `json:"participants"`
}

func (m *ConversationMetadata) IsAdmin(id string) bool {
	if m == nil {
		return false
	}
	for _, p := range m.Participants {
		if p.Admin && BareID(p.ID) == BareID(id) {
			return true
		}
	}
	return false
}
