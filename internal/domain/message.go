package domain

import "time"

type EventKind string

const (
	EventText       EventKind = "text"
	EventMedia      EventKind = "media"
	EventReaction   EventKind = "reaction"
	EventProtocol   EventKind = "protocol"
	EventCall       EventKind = "call"
	EventMembership EventKind = "membership"
)

// MessageKey identifies a message on the transport. It is what gets quoted,
// deleted or reacted to.
type MessageKey struct {
	ConversationID string `json:"remote_jid"`
	ID             string `json:"id"`
	ParticipantID  string `json:"participant,omitempty"`
	FromMe         bool   `json:"from_me"`
}

type ProtocolType int

const (
	// ProtocolRevoke is the "delete for everyone" protocol message.
	ProtocolRevoke ProtocolType = 0
)

type ProtocolInfo struct {
	Type ProtocolType `json:"type"`
	Key  MessageKey   `json:"key"`
}

type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
	MediaSticker  MediaKind = "sticker"
)

// MediaRef points at downloadable media attached to a message.
type MediaRef struct {
	Kind     MediaKind `json:"kind"`
	Mimetype string    `json:"mimetype,omitempty"`
	Caption  string    `json:"caption,omitempty"`
	FileName string    `json:"file_name,omitempty"`
	// Handle is opaque to the bot; the transport resolves it on download.
	Handle string `json:"handle"`
}

// ConversationEvent is one inbound message-like unit. It is never mutated
// after the transport hands it over.
type ConversationEvent struct {
	Kind           EventKind     `json:"kind"`
	ConversationID string        `json:"conversation_id"`
	AuthorID       string        `json:"author_id,omitempty"`
	PushName       string        `json:"push_name,omitempty"`
	Text           string        `json:"text,omitempty"`
	Media          *MediaRef     `json:"media,omitempty"`
	Mentions       []string      `json:"mentions,omitempty"`
	Key            MessageKey    `json:"key"`
	Protocol       *ProtocolInfo `json:"protocol,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}

// Content returns the text carried by the event, falling back to the media
// caption or file name.
func (e ConversationEvent) Content() string {
	if e.Text != "" {
		return e.Text
	}
	if e.Media != nil {
		if e.Media.Caption != "" {
			return e.Media.Caption
		}
		return e.Media.FileName
	}
	return ""
}

func (e ConversationEvent) IsRevoke() bool {
	return e.Kind == EventProtocol && e.Protocol != nil && e.Protocol.Type == ProtocolRevoke
}

// IsSystem reports whether the event carries no user content of its own.
func (e ConversationEvent) IsSystem() bool {
	return e.Kind == EventProtocol || e.Kind == EventCall || e.Kind == EventMembership
}

type CallEvent struct {
	ID             string    `json:"id"`
	From           string    `json:"from"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Status         string    `json:"status,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

type MembershipAction string

const (
	MembershipAdd     MembershipAction = "add"
	MembershipRemove  MembershipAction = "remove"
	MembershipPromote MembershipAction = "promote"
	MembershipDemote  MembershipAction = "demote"
)

type MembershipEvent struct {
	ConversationID string           `json:"conversation_id"`
	Action         MembershipAction `json:"action"`
	Participants   []string         `json:"participants"`
}

type ConnectionState string

const (
	ConnectionConnecting ConnectionState = "connecting"
	ConnectionOpen       ConnectionState = "open"
	ConnectionClosed     ConnectionState = "close"
)

type ConnectionUpdate struct {
	State  ConnectionState `json:"state"`
	Reason int             `json:"reason,omitempty"`
	SelfID string          `json:"self,omitempty"`
}
