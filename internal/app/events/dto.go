package events

import (
	"time"

	"guardBot/internal/domain"
)

// MessageDTO is published for every inbound message once it is classified.
type MessageDTO struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	AuthorID       string `json:"author_id"`
	Kind           string `json:"kind"`
	IsGroup        bool   `json:"is_group"`
	IsSuperUser    bool   `json:"is_superuser"`
	Text           string `json:"text,omitempty"`
	Timestamp      string `json:"timestamp"`
}

func NewMessageDTO(evt domain.ConversationEvent, ident domain.Identity) MessageDTO {
	return MessageDTO{
		ConversationID: evt.ConversationID,
		MessageID:      evt.Key.ID,
		AuthorID:       ident.AuthorID,
		Kind:           string(evt.Kind),
		IsGroup:        ident.IsGroup,
		IsSuperUser:    ident.IsSuperUser,
		Text:           evt.Content(),
		Timestamp:      now(),
	}
}

type ModerationDTO struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	AuthorID       string `json:"author_id"`
	Policy         string `json:"policy"`
	Action         string `json:"action"`
	Reason         string `json:"reason,omitempty"`
	Timestamp      string `json:"timestamp"`
}

func NewModerationDTO(evt domain.ConversationEvent, ident domain.Identity, d domain.PolicyDecision) ModerationDTO {
	return ModerationDTO{
		ConversationID: evt.ConversationID,
		MessageID:      evt.Key.ID,
		AuthorID:       ident.AuthorID,
		Policy:         string(d.Policy),
		Action:         string(d.Action),
		Reason:         d.Reason,
		Timestamp:      now(),
	}
}

type CommandDTO struct {
	ConversationID string `json:"conversation_id"`
	AuthorID       string `json:"author_id"`
	Command        string `json:"command"`
	RejectedBy     string `json:"rejected_by,omitempty"`
	Error          string `json:"error,omitempty"`
	Timestamp      string `json:"timestamp"`
}

type ConnectionDTO struct {
	State     string `json:"state"`
	Reason    int    `json:"reason,omitempty"`
	Class     string `json:"class,omitempty"`
	SelfID    string `json:"self_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

func NewConnectionDTO(state string, reason int, class, selfID string) ConnectionDTO {
	return ConnectionDTO{State: state, Reason: reason, Class: class, SelfID: selfID, Timestamp: now()}
}

type ErrorDTO struct {
	Source    string `json:"source"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

func NewErrorDTO(source string, err error) ErrorDTO {
	return ErrorDTO{Source: source, Error: err.Error(), Timestamp: now()}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
