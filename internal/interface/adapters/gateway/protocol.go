package gateway

import (
	"encoding/json"

	"guardBot/internal/domain"
)

// Frame types exchanged with the bridge. Every frame is one JSON text
// message.
const (
	frameRequest  = "request"
	frameResponse = "response"
	frameEvent    = "event"
)

// Event names pushed by the bridge.
const (
	eventMessages   = "messages"
	eventCalls      = "calls"
	eventMembership = "membership"
	eventConnection = "connection"
)

// Request operations understood by the bridge.
const (
	opSendMessage       = "send_message"
	opDeleteMessage     = "delete_message"
	opRemoveParticipant = "remove_participant"
	opGroupMetadata     = "group_metadata"
	opMarkRead          = "mark_read"
	opDownloadMedia     = "download_media"
	opRejectCall        = "reject_call"
	opSendPresence      = "send_presence"
	opReconnect         = "reconnect"
)

type frame struct {
	Type   string          `json:"type"`
	ID     string          `json:"id,omitempty"`
	Op     string          `json:"op,omitempty"`
	Event  string          `json:"event,omitempty"`
	Params any             `json:"params,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	OK     bool            `json:"ok,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type sendParams struct {
	ConversationID string                 `json:"conversation_id"`
	Payload        domain.OutboundPayload `json:"payload"`
	Options        domain.SendOptions     `json:"options"`
}

type keyParams struct {
	Key domain.MessageKey `json:"key"`
}

type keysParams struct {
	Keys []domain.MessageKey `json:"keys"`
}

type participantParams struct {
	ConversationID string `json:"conversation_id"`
	ParticipantID  string `json:"participant_id"`
}

type conversationParams struct {
	ConversationID string `json:"conversation_id"`
}

type mediaParams struct {
	Media domain.MediaRef `json:"media"`
}

type mediaResult struct {
	Data []byte `json:"data"`
}

type callParams struct {
	CallID   string `json:"call_id"`
	CallerID string `json:"caller_id"`
}

type presenceParams struct {
	ConversationID string          `json:"conversation_id"`
	Presence       domain.Presence `json:"presence"`
}

type reconnectParams struct {
	Reason int `json:"reason"`
}
