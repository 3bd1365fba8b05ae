// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"
	"sync"

	"guardBot/internal/domain"
)

type Sent struct {
	ConversationID string
	Payload        domain.OutboundPayload
	Opts           domain.SendOptions
}

type Removed struct {
	ConversationID string
	ParticipantID  string
}

// FakeTransport records every call. Errors can be injected per operation
// name ("send", "react", "delete", "remove", "metadata", "mark_read", "download",
// "reject_call", "presence").
type FakeTransport struct {
	mu sync.Mutex

	Sent      []Sent
	Deleted   []domain.MessageKey
	Removed   []Removed
	Read      []domain.MessageKey
	Rejected  []string
	Presences []domain.Presence

	Metadata map[string]*domain.ConversationMetadata
	Media    map[string][]byte
	Errors   map[string]error

	// Calls lists operation names in call order.
	Calls []string
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		Metadata: make(map[string]*domain.ConversationMetadata),
		Media:    make(map[string][]byte),
		Errors:   make(map[string]error),
	}
}

func (f *FakeTransport) record(op string) error {
	f.Calls = append(f.Calls, op)
	return f.Errors[op]
}

func (f *FakeTransport) SendMessage(ctx context.Context, conversationID string, payload domain.OutboundPayload, opts domain.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	op := "send"
	if payload.React != nil {
		op = "react"
	}
	if err := f.record(op); err != nil {
		return err
	}
	f.Sent = append(f.Sent, Sent{ConversationID: conversationID, Payload: payload, Opts: opts})
	return nil
}

func (f *FakeTransport) DeleteMessage(ctx context.Context, key domain.MessageKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete"); err != nil {
		return err
	}
	f.Deleted = append(f.Deleted, key)
	return nil
}

func (f *FakeTransport) RemoveParticipant(ctx context.Context, conversationID, participantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("remove"); err != nil {
		return err
	}
	f.Removed = append(f.Removed, Removed{ConversationID: conversationID, ParticipantID: participantID})
	return nil
}

func (f *FakeTransport) ConversationMetadata(ctx context.Context, conversationID string) (*domain.ConversationMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("metadata"); err != nil {
		return nil, err
	}
	meta, ok := f.Metadata[conversationID]
	if !ok {
		return &domain.ConversationMetadata{ID: conversationID}, nil
	}
	return meta, nil
}

func (f *FakeTransport) MarkRead(ctx context.Context, keys []domain.MessageKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("mark_read"); err != nil {
		return err
	}
	f.Read = append(f.Read, keys...)
	return nil
}

func (f *FakeTransport) DownloadMedia(ctx context.Context, ref domain.MediaRef) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("download"); err != nil {
		return nil, err
	}
	return f.Media[ref.Handle], nil
}

func (f *FakeTransport) RejectCall(ctx context.Context, callID, callerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("reject_call"); err != nil {
		return err
	}
	f.Rejected = append(f.Rejected, callID)
	return nil
}

func (f *FakeTransport) SendPresence(ctx context.Context, conversationID string, presence domain.Presence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("presence"); err != nil {
		return err
	}
	f.Presences = append(f.Presences, presence)
	return nil
}

// Texts returns the text of every sent message, in order.
func (f *FakeTransport) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Sent))
	for _, s := range f.Sent {
		if s.Payload.React == nil {
			out = append(out, s.Payload.Text)
		}
	}
	return out
}

// Reactions returns the emoji of every sent reaction, in order.
func (f *FakeTransport) Reactions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.Sent {
		if s.Payload.React != nil {
			out = append(out, s.Payload.React.Emoji)
		}
	}
	return out
}

// SetAdmins stores group metadata with the given admins plus members.
func (f *FakeTransport) SetAdmins(conversationID, subject string, admins []string, members ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta := &domain.ConversationMetadata{ID: conversationID, Subject: subject}
	for _, a := range admins {
		meta.Participants = append(meta.Participants, domain.Participant{ID: a, Admin: true})
	}
	for _, m := range members {
		meta.Participants = append(meta.Participants, domain.Participant{ID: m})
	}
	f.Metadata[conversationID] = meta
}

var _ domain.Transport = (*FakeTransport)(nil)
