package notify

import (
	"testing"

	"guardBot/internal/domain"
	"guardBot/internal/usecase/archive"

	"github.com/stretchr/testify/assert"
)

func testComposer() *Composer {
	c := NewComposer(Config{BotName: "Guard", OwnerName: "Owner"})
	c.intn = func(n int) int { return n - 1 }
	return c
}

func TestMentionsDedupe(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{"a", "b"}, Mentions("a", "", "b", "a"))
	assert.Empty(Mentions())
}

func TestForwardedContext(t *testing.T) {
	assert := assert.New(t)
	c := testComposer()

	info := c.ForwardedContext("1@s.whatsapp.net", "1@s.whatsapp.net")
	assert.True(info.IsForwarded)
	assert.Equal(999, info.ForwardingScore)
	assert.Equal([]string{"1@s.whatsapp.net"}, info.MentionedIDs)
	assert.Equal(999999, info.Newsletter.ServerMessageID)

	c.intn = func(int) int { return 0 }
	assert.Equal(100000, c.ForwardedContext().Newsletter.ServerMessageID)
}

func TestPolicyNotices(t *testing.T) {
	assert := assert.New(t)
	c := testComposer()
	author := "254700000001@s.whatsapp.net"

	p := c.PolicyNotice(domain.PolicyLink, domain.ActionRemove, author)
	assert.Contains(p.Text, "Link detected")
	assert.Contains(p.Text, "@254700000001 removed from group")
	assert.Equal([]string{author}, p.Mentions)

	p = c.PolicyNotice(domain.PolicyImpersonation, domain.ActionDelete, author)
	assert.Contains(p.Text, "Bot detected")

	p = c.WarnNotice(domain.PolicyLink, author, 2)
	assert.Contains(p.Text, "rest: 2")

	p = c.WarnLimitNotice(domain.PolicyImpersonation, author)
	assert.Contains(p.Text, "warn limit")
}

func TestRecoveredText(t *testing.T) {
	assert := assert.New(t)
	c := testComposer()

	msg := archive.ArchivedMessage{AuthorID: "2@s.whatsapp.net", Content: "secret"}
	p := c.Recovered("3@s.whatsapp.net", "Team", true, msg, nil)

	assert.Contains(p.Text, "Deleted by: @3")
	assert.Contains(p.Text, "Original sender: @2")
	assert.Contains(p.Text, "Group: Team")
	assert.Contains(p.Text, "*Deleted Text:*\nsecret")
	assert.ElementsMatch([]string{"3@s.whatsapp.net", "2@s.whatsapp.net"}, p.Mentions)
	assert.NotNil(p.Context.ExternalAd)
}

func TestRecoveredMedia(t *testing.T) {
	assert := assert.New(t)
	c := testComposer()

	msg := archive.ArchivedMessage{
		AuthorID: "2@s.whatsapp.net",
		Media:    &domain.MediaRef{Kind: domain.MediaImage, Mimetype: "image/jpeg", Caption: "look"},
	}
	p := c.Recovered("2@s.whatsapp.net", "", false, msg, []byte{1, 2})
	assert.NotNil(p.Media)
	assert.Equal(domain.MediaImage, p.Media.Kind)
	assert.Contains(p.Media.Caption, "*Image Caption:*\nlook")
	assert.NotContains(p.Media.Caption, "Group")

	p = c.Recovered("2@s.whatsapp.net", "", true, msg, nil)
	assert.Nil(p.Media)
	assert.Contains(p.Text, "Image deleted")
	assert.Contains(p.Text, "Group information unavailable")

	msg.Media = &domain.MediaRef{Kind: domain.MediaSticker}
	p = c.Recovered("2@s.whatsapp.net", "", false, msg, nil)
	assert.Contains(p.Text, "Unsupported message type")
}
