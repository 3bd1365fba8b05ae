// Package archive keeps a bounded window of recently seen messages so that
// deleted content can be recovered.
package archive

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"guardBot/internal/domain"
)

const (
	DefaultPerConversation  = 200
	DefaultMaxConversations = 1000
)

type ArchivedMessage struct {
	ConversationID string
	Key            domain.MessageKey
	AuthorID       string
	Content        string
	Media          *domain.MediaRef
	Timestamp      time.Time
}

// FromEvent snapshots the parts of an event the archive keeps.
func FromEvent(evt domain.ConversationEvent, authorID string) ArchivedMessage {
	var media *domain.MediaRef
	if evt.Media != nil {
		m := *evt.Media
		media = &m
	}
	return ArchivedMessage{
		ConversationID: evt.ConversationID,
		Key:            evt.Key,
		AuthorID:       authorID,
		Content:        evt.Text,
		Media:          media,
		Timestamp:      evt.Timestamp,
	}
}

type Config struct {
	PerConversation  int
	MaxConversations int
}

// Archive is a FIFO log per conversation. The set of conversations itself is
// an LRU, so both dimensions are bounded.
type Archive struct {
	perConversation int
	conversations   *lru.Cache[string, *ring]
}

func New(cfg Config) *Archive {
	if cfg.PerConversation <= 0 {
		cfg.PerConversation = DefaultPerConversation
	}
	if cfg.MaxConversations <= 0 {
		cfg.MaxConversations = DefaultMaxConversations
	}
	cache, err := lru.New[string, *ring](cfg.MaxConversations)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &Archive{
		perConversation: cfg.PerConversation,
		conversations:   cache,
	}
}

func (a *Archive) Append(conversationID string, msg ArchivedMessage) {
	if a == nil || conversationID == "" || msg.Key.ID == "" {
		return
	}
	r, ok := a.conversations.Get(conversationID)
	if !ok {
		r = newRing(a.perConversation)
		if prev, found, _ := a.conversations.PeekOrAdd(conversationID, r); found {
			r = prev
		}
	}
	r.push(msg)
}

// FindByKey looks a message up by id. A miss is normal: the message predates
// the process or was evicted.
func (a *Archive) FindByKey(conversationID, messageID string) (ArchivedMessage, bool) {
	if a == nil {
		return ArchivedMessage{}, false
	}
	r, ok := a.conversations.Get(conversationID)
	if !ok {
		return ArchivedMessage{}, false
	}
	return r.find(messageID)
}

// Len returns the number of archived messages for a conversation.
func (a *Archive) Len(conversationID string) int {
	if a == nil {
		return 0
	}
	r, ok := a.conversations.Peek(conversationID)
	if !ok {
		return 0
	}
	return r.len()
}

func (a *Archive) Conversations() int {
	if a == nil {
		return 0
	}
	return a.conversations.Len()
}

type ring struct {
	mu    sync.Mutex
	items []ArchivedMessage
	head  int
	size  int
	index map[string]int
}

func newRing(capacity int) *ring {
	return &ring{
		items: make([]ArchivedMessage, capacity),
		index: make(map[string]int, capacity),
	}
}

func (r *ring) push(msg ArchivedMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pos, ok := r.index[msg.Key.ID]; ok {
		r.items[pos] = msg
		return
	}

	pos := (r.head + r.size) % len(r.items)
	if r.size == len(r.items) {
		evicted := r.items[r.head]
		delete(r.index, evicted.Key.ID)
		pos = r.head
		r.head = (r.head + 1) % len(r.items)
	} else {
		r.size++
	}
	r.items[pos] = msg
	r.index[msg.Key.ID] = pos
}

func (r *ring) find(id string) (ArchivedMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.index[id]
	if !ok {
		return ArchivedMessage{}, false
	}
	return r.items[pos], true
}

func (r *ring) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
