package commands

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"guardBot/internal/domain"
	"guardBot/internal/interface/outs"
	"guardBot/internal/usecase/archive"

	"github.com/stretchr/testify/assert"
)

func newIntrospector(f *fixture) *Introspector {
	return &Introspector{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Out:      outs.New(f.ft),
		Settings: f.settings,
		Policies: f.store,
		Archive:  archive.New(archive.Config{}),
		Table:    f.router.Table,
		Started:  time.Now().Add(-time.Hour),
	}
}

func TestIntrospectionOwnerOnly(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t, publicDefaults())
	in := newIntrospector(f)

	handled := in.Handle(context.Background(), textIn(testGroup, ">config"), caller(true))

	assert.True(handled)
	assert.Equal([]string{NoticeOwnerOnly}, f.ft.Texts())
}

func TestIntrospectionTopics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	f := newFixture(t, publicDefaults())
	f.router.Load(&recorder{name: "ping", aliases: []string{"speed"}})
	f.store.SetPolicy(ctx, domain.PolicyLink, testGroup, domain.PolicySetting{Enabled: true, Action: domain.ActionWarn})
	in := newIntrospector(f)
	super := caller(true)
	super.IsSuperUser = true

	for _, text := range []string{"<config", ">commands", "> policies", "<archive", "<uptime", "<os.exit()"} {
		assert.True(in.Handle(ctx, textIn(testGroup, text), super))
	}

	texts := f.ft.Texts()
	assert.Len(texts, 6)
	assert.Contains(texts[0], "mode = public")
	assert.Contains(texts[1], "ping (speed)")
	assert.Contains(texts[2], "antilink: ON (warn)")
	assert.Contains(texts[3], "conversations: 0")
	assert.Contains(texts[4], "1h")
	assert.Contains(texts[5], "Unknown topic")
}

func TestNotIntrospection(t *testing.T) {
	f := newFixture(t, publicDefaults())
	in := newIntrospector(f)
	assert.False(t, in.Handle(context.Background(), textIn(testGroup, "hello <b>"), caller(true)))
	assert.Empty(t, f.ft.Calls)
}
