package domain

import (
	"context"
	"errors"
)

var ErrNotConnected = errors.New("transport: not connected")

// Transport is the outbound half of the chat client.
type Transport interface {
	SendMessage(ctx context.Context, conversationID string, payload OutboundPayload, opts SendOptions) error
	DeleteMessage(ctx context.Context, key MessageKey) error
	RemoveParticipant(ctx context.Context, conversationID, participantID string) error
	ConversationMetadata(ctx context.Context, conversationID string) (*ConversationMetadata, error)
	MarkRead(ctx context.Context, keys []MessageKey) error
	DownloadMedia(ctx context.Context, ref MediaRef) ([]byte, error)
	RejectCall(ctx context.Context, callID, callerID string) error
	SendPresence(ctx context.Context, conversationID string, presence Presence) error
}

type MessagesHandler func(ctx context.Context, batch []ConversationEvent)
type CallHandler func(ctx context.Context, calls []CallEvent)
type MembershipHandler func(ctx context.Context, change MembershipEvent)
type ConnectionHandler func(ctx context.Context, update ConnectionUpdate)

// EventSource is the inbound half of the chat client.
type EventSource interface {
	OnMessages(h MessagesHandler)
	OnCalls(h CallHandler)
	OnMembership(h MembershipHandler)
	OnConnection(h ConnectionHandler)
}

type PolicyStore interface {
	PolicySetting(ctx context.Context, policy PolicyName, conversationID string) (PolicySetting, error)
	SetPolicy(ctx context.Context, policy PolicyName, conversationID string, setting PolicySetting) error
}

type WarnStore interface {
	WarnCount(ctx context.Context, userID string) (int, error)
	IncrementWarn(ctx context.Context, userID string) error
	ResetWarn(ctx context.Context, userID string) error
}

type BanStore interface {
	IsUserBanned(ctx context.Context, userID string) (bool, error)
	BanUser(ctx context.Context, userID string) error
	UnbanUser(ctx context.Context, userID string) error
	IsGroupBanned(ctx context.Context, conversationID string) (bool, error)
	BanGroup(ctx context.Context, conversationID string) error
	UnbanGroup(ctx context.Context, conversationID string) error
}

type OnlyAdminStore interface {
	IsOnlyAdmin(ctx context.Context, conversationID string) (bool, error)
	SetOnlyAdmin(ctx context.Context, conversationID string, enabled bool) error
}

type SudoStore interface {
	SudoNumbers(ctx context.Context) ([]string, error)
	AddSudo(ctx context.Context, userID string) error
	RemoveSudo(ctx context.Context, userID string) error
}

type GroupEventStore interface {
	GroupEventEnabled(ctx context.Context, conversationID string, event GroupEvent) (bool, error)
	SetGroupEvent(ctx context.Context, conversationID string, event GroupEvent, enabled bool) error
}

type ScheduleStore interface {
	MuteSchedules(ctx context.Context) ([]MuteSchedule, error)
	SetMuteSchedule(ctx context.Context, schedule MuteSchedule) error
}

type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Storage bundles every store the bot needs. Both the sqlite and the memory
// backends implement it.
type Storage interface {
	PolicyStore
	WarnStore
	BanStore
	OnlyAdminStore
	SudoStore
	GroupEventStore
	ScheduleStore
	SettingsStore
	CustomCommandRepository
	Close() error
}
