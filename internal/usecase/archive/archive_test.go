package archive

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"guardBot/internal/domain"
)

func msg(conv, id, text string) ArchivedMessage {
	return ArchivedMessage{
		ConversationID: conv,
		Key:            domain.MessageKey{ConversationID: conv, ID: id},
		Content:        text,
		Timestamp:      time.Unix(1700000000, 0),
	}
}

func TestArchiveAppendFind(t *testing.T) {
	assert := assert.New(t)
	a := New(Config{})

	a.Append("g1@g.us", msg("g1@g.us", "A1", "hello"))
	a.Append("g2@g.us", msg("g2@g.us", "A1", "other"))

	got, ok := a.FindByKey("g1@g.us", "A1")
	assert.True(ok)
	assert.Equal("hello", got.Content)

	got, ok = a.FindByKey("g2@g.us", "A1")
	assert.True(ok)
	assert.Equal("other", got.Content)

	_, ok = a.FindByKey("g1@g.us", "missing")
	assert.False(ok)
	_, ok = a.FindByKey("unknown@g.us", "A1")
	assert.False(ok)
}

func TestArchiveFIFOEviction(t *testing.T) {
	assert := assert.New(t)
	a := New(Config{PerConversation: 3})

	for i := 0; i < 5; i++ {
		a.Append("c", msg("c", fmt.Sprintf("m%d", i), fmt.Sprintf("text %d", i)))
	}

	assert.Equal(3, a.Len("c"))
	for _, id := range []string{"m0", "m1"} {
		_, ok := a.FindByKey("c", id)
		assert.False(ok, id)
	}
	for _, id := range []string{"m2", "m3", "m4"} {
		_, ok := a.FindByKey("c", id)
		assert.True(ok, id)
	}
}

func TestArchiveDuplicateKeyReplaces(t *testing.T) {
	assert := assert.New(t)
	a := New(Config{PerConversation: 2})

	a.Append("c", msg("c", "m1", "first"))
	a.Append("c", msg("c", "m1", "edited"))
	a.Append("c", msg("c", "m2", "second"))

	assert.Equal(2, a.Len("c"))
	got, ok := a.FindByKey("c", "m1")
	assert.True(ok)
	assert.Equal("edited", got.Content)
}

func TestArchiveConversationBound(t *testing.T) {
	assert := assert.New(t)
	a := New(Config{PerConversation: 2, MaxConversations: 2})

	a.Append("c1", msg("c1", "x", "1"))
	a.Append("c2", msg("c2", "x", "2"))
	a.Append("c3", msg("c3", "x", "3"))

	assert.Equal(2, a.Conversations())
	_, ok := a.FindByKey("c1", "x")
	assert.False(ok)
	_, ok = a.FindByKey("c3", "x")
	assert.True(ok)
}

func TestArchiveIgnoresIncomplete(t *testing.T) {
	a := New(Config{})
	a.Append("", msg("", "x", "no conversation"))
	a.Append("c", msg("c", "", "no id"))
	assert.Equal(t, 0, a.Conversations())

	var nilArchive *Archive
	nilArchive.Append("c", msg("c", "x", "ignored"))
	_, ok := nilArchive.FindByKey("c", "x")
	assert.False(t, ok)
}

func TestFromEventCopiesMedia(t *testing.T) {
	evt := domain.ConversationEvent{
		Kind:           domain.EventMedia,
		ConversationID: "c",
		Media:          &domain.MediaRef{Kind: domain.MediaImage, Caption: "pic"},
		Key:            domain.MessageKey{ID: "m"},
	}
	archived := FromEvent(evt, "u@s.whatsapp.net")
	evt.Media.Caption = "changed"
	assert.Equal(t, "pic", archived.Media.Caption)
	assert.Equal(t, "u@s.whatsapp.net", archived.AuthorID)
}
