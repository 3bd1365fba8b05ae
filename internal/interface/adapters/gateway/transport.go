package gateway

import (
	"context"

	"guardBot/internal/domain"
)

func (c *Client) SendMessage(ctx context.Context, conversationID string, payload domain.OutboundPayload, opts domain.SendOptions) error {
	return c.call(ctx, opSendMessage, sendParams{ConversationID: conversationID, Payload: payload, Options: opts}, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, key domain.MessageKey) error {
	return c.call(ctx, opDeleteMessage, keyParams{Key: key}, nil)
}

func (c *Client) RemoveParticipant(ctx context.Context, conversationID, participantID string) error {
	return c.call(ctx, opRemoveParticipant, participantParams{ConversationID: conversationID, ParticipantID: participantID}, nil)
}

func (c *Client) ConversationMetadata(ctx context.Context, conversationID string) (*domain.ConversationMetadata, error) {
	var meta domain.ConversationMetadata
	if err := c.call(ctx, opGroupMetadata, conversationParams{ConversationID: conversationID}, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *Client) MarkRead(ctx context.Context, keys []domain.MessageKey) error {
	if len(keys) == 0 {
		return nil
	}
	return c.call(ctx, opMarkRead, keysParams{Keys: keys}, nil)
}

func (c *Client) DownloadMedia(ctx context.Context, ref domain.MediaRef) ([]byte, error) {
	var res mediaResult
	if err := c.call(ctx, opDownloadMedia, mediaParams{Media: ref}, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (c *Client) RejectCall(ctx context.Context, callID, callerID string) error {
	return c.call(ctx, opRejectCall, callParams{CallID: callID, CallerID: callerID}, nil)
}

func (c *Client) SendPresence(ctx context.Context, conversationID string, presence domain.Presence) error {
	return c.call(ctx, opSendPresence, presenceParams{ConversationID: conversationID, Presence: presence}, nil)
}
