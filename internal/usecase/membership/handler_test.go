package membership

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"guardBot/internal/domain"
	"guardBot/internal/infrastructure/persistence/memory"
	"guardBot/internal/interface/outs"
	"guardBot/internal/testutil"
	"guardBot/internal/usecase/notify"

	"github.com/stretchr/testify/assert"
)

const group = "120363000000000001@g.us"

func TestWelcomeAndGoodbye(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	ft := testutil.NewFakeTransport()
	ft.SetAdmins(group, "Team", nil)
	store := memory.NewStore()
	h := NewHandler(outs.New(ft), store, notify.NewComposer(notify.Config{BotName: "Guard"}), slog.New(slog.NewTextHandler(io.Discard, nil)))

	join := domain.MembershipEvent{ConversationID: group, Action: domain.MembershipAdd, Participants: []string{"1@s.whatsapp.net", "2@s.whatsapp.net"}}
	h.Handle(ctx, join)
	assert.Empty(ft.Sent)

	store.SetGroupEvent(ctx, group, domain.GroupEventWelcome, true)
	h.Handle(ctx, join)
	texts := ft.Texts()
	assert.Len(texts, 2)
	assert.Contains(texts[0], "@1")
	assert.Equal("Team", ft.Sent[0].Payload.Context.ExternalAd.Title)

	leave := domain.MembershipEvent{ConversationID: group, Action: domain.MembershipRemove, Participants: []string{"1@s.whatsapp.net"}}
	h.Handle(ctx, leave)
	assert.Len(ft.Texts(), 2)

	store.SetGroupEvent(ctx, group, domain.GroupEventGoodbye, true)
	h.Handle(ctx, leave)
	assert.Contains(ft.Texts()[2], "left the group")

	h.Handle(ctx, domain.MembershipEvent{ConversationID: group, Action: domain.MembershipPromote, Participants: []string{"1@s.whatsapp.net"}})
	assert.Len(ft.Texts(), 3)
}
