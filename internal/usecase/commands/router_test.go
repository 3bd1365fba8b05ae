package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"guardBot/internal/domain"
	"guardBot/internal/infrastructure/persistence/memory"
	"guardBot/internal/interface/outs"
	"guardBot/internal/testutil"
	"guardBot/internal/usecase/settings"

	"github.com/stretchr/testify/assert"
)

const (
	testGroup  = "120363000000000001@g.us"
	testUser   = "254700000001@s.whatsapp.net"
	testBot    = "254700000099@s.whatsapp.net"
	testPrefix = "."
)

type fixture struct {
	router   *Router
	ft       *testutil.FakeTransport
	store    *memory.Store
	settings *settings.Service
	logs     *bytes.Buffer
}

func newFixture(t *testing.T, defaults map[settings.Key]string) *fixture {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))
	store := memory.NewStore()
	svc := settings.NewService(store, defaults, logger)
	ft := testutil.NewFakeTransport()
	router := NewRouter(NewParser([]string{testPrefix}), DefaultGuards(svc, svc, store, "Guard", logger), outs.New(ft), logger)
	return &fixture{router: router, ft: ft, store: store, settings: svc, logs: logs}
}

func publicDefaults() map[settings.Key]string {
	return map[settings.Key]string{settings.KeyMode: "public"}
}

func textIn(conversation, text string) domain.ConversationEvent {
	return domain.ConversationEvent{
		Kind:           domain.EventText,
		ConversationID: conversation,
		Text:           text,
		Key:            domain.MessageKey{ConversationID: conversation, ID: "3EB0TEST", ParticipantID: testUser},
	}
}

func caller(group bool) domain.Identity {
	return domain.Identity{IsGroup: group, AuthorID: testUser, BotID: testBot}
}

// recorder counts invocations.
type recorder struct {
	name    string
	aliases []string
	calls   int
	err     error
	panics  bool
	last    *Context
}

func (r *recorder) Name() string      { return r.name }
func (r *recorder) Aliases() []string { return r.aliases }

func (r *recorder) Handle(ctx context.Context, c *Context) error {
	r.calls++
	r.last = c
	if r.panics {
		panic("boom")
	}
	return r.err
}

func TestAliasTransparency(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t, publicDefaults())
	cmd := &recorder{name: "a", aliases: []string{"b"}}
	f.router.Load(cmd)

	first := f.router.Handle(context.Background(), textIn(testGroup, ".a x y"), caller(true))
	second := f.router.Handle(context.Background(), textIn(testGroup, ".B x y"), caller(true))

	assert.Equal(first.Command, second.Command)
	assert.True(first.Matched)
	assert.True(second.Matched)
	assert.Equal(2, cmd.calls)
	assert.Equal([]string{"x", "y"}, cmd.last.Args)
}

func TestUnknownCommandIsNoop(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t, publicDefaults())
	f.router.Load(&recorder{name: "a"})

	out := f.router.Handle(context.Background(), textIn(testGroup, ".zzz"), caller(true))
	assert.False(out.Matched)
	out = f.router.Handle(context.Background(), textIn(testGroup, "a without prefix"), caller(true))
	assert.False(out.Matched)
	assert.Empty(f.ft.Calls)
}

func TestPrivateCommandsDenied(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t, map[settings.Key]string{settings.KeyMode: "public", settings.KeyPMPermit: "yes"})
	ping := &recorder{name: "ping"}
	f.router.Load(ping)

	out := f.router.Handle(context.Background(), textIn(testUser, ".ping"), caller(false))

	assert.Equal(0, ping.calls)
	assert.Equal("private", out.Rejected.Guard)
	assert.Len(f.ft.Texts(), 1)
	assert.Contains(f.ft.Texts()[0], "Access Denied")
}

func TestModeGate(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t, map[settings.Key]string{settings.KeyMode: "private"})
	cmd := &recorder{name: "ping"}
	f.router.Load(cmd)

	out := f.router.Handle(context.Background(), textIn(testGroup, ".ping"), caller(true))
	assert.Equal("mode", out.Rejected.Guard)
	assert.Equal([]string{NoticeIgnored}, f.ft.Texts())

	super := caller(true)
	super.IsSuperUser = true
	out = f.router.Handle(context.Background(), textIn(testGroup, ".ping"), super)
	assert.Nil(out.Rejected)
	assert.Equal(1, cmd.calls)
}

func TestBannedUserGetsBannedNotice(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	f := newFixture(t, publicDefaults())
	cmd := &recorder{name: "ping"}
	f.router.Load(cmd)
	f.store.BanUser(ctx, testUser)

	out := f.router.Handle(ctx, textIn(testGroup, ".ping"), caller(true))

	assert.Equal("user_ban", out.Rejected.Guard)
	assert.Equal([]string{NoticeBanned}, f.ft.Texts())
	assert.Equal(0, cmd.calls)
}

func TestGuardOrder(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		setup  func(f *fixture)
		guard  string
		notice string
	}{
		{
			name: "group ban before admin only and user ban",
			setup: func(f *fixture) {
				f.store.BanGroup(ctx, testGroup)
				f.store.SetOnlyAdmin(ctx, testGroup, true)
				f.store.BanUser(ctx, testUser)
			},
			guard: "group_ban",
		},
		{
			name: "admin only before user ban",
			setup: func(f *fixture) {
				f.store.SetOnlyAdmin(ctx, testGroup, true)
				f.store.BanUser(ctx, testUser)
			},
			guard: "admin_only",
		},
		{
			name: "mode before everything",
			setup: func(f *fixture) {
				f.settings.Set(ctx, settings.KeyMode, "private")
				f.store.BanGroup(ctx, testGroup)
				f.store.BanUser(ctx, testUser)
			},
			guard:  "mode",
			notice: NoticeIgnored,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			f := newFixture(t, publicDefaults())
			f.router.Load(&recorder{name: "ping"})
			tc.setup(f)

			out := f.router.Handle(ctx, textIn(testGroup, ".ping"), caller(true))

			assert.Equal(tc.guard, out.Rejected.Guard)
			if tc.notice == "" {
				assert.Empty(f.ft.Texts())
			} else {
				assert.Equal([]string{tc.notice}, f.ft.Texts())
			}
		})
	}
}

func TestSuperUserBypassesGuards(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	f := newFixture(t, map[settings.Key]string{settings.KeyMode: "private", settings.KeyPMPermit: "yes"})
	cmd := &recorder{name: "ping"}
	f.router.Load(cmd)
	f.store.BanGroup(ctx, testGroup)
	f.store.SetOnlyAdmin(ctx, testGroup, true)
	f.store.BanUser(ctx, testUser)

	super := caller(true)
	super.IsSuperUser = true
	out := f.router.Handle(ctx, textIn(testGroup, ".ping"), super)

	assert.Nil(out.Rejected)
	assert.Equal(1, cmd.calls)
}

func TestHandlerErrorIsolated(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t, publicDefaults())
	failing := &recorder{name: "fail", err: errors.New("secret internals")}
	panicking := &recorder{name: "crash", panics: true}
	ok := &recorder{name: "ok"}
	f.router.Load(failing, panicking, ok)

	out := f.router.Handle(context.Background(), textIn(testGroup, ".fail"), caller(true))
	assert.Error(out.Err)
	out = f.router.Handle(context.Background(), textIn(testGroup, ".crash"), caller(true))
	assert.ErrorContains(out.Err, "panicked")
	out = f.router.Handle(context.Background(), textIn(testGroup, ".ok"), caller(true))
	assert.NoError(out.Err)

	assert.Equal(1, ok.calls)
	assert.Equal([]string{NoticeCommandError, NoticeCommandError}, f.ft.Texts())
	for _, text := range f.ft.Texts() {
		assert.NotContains(text, "secret internals")
	}
}

func TestReactionAcknowledgement(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t, publicDefaults())
	f.router.Load(NewPingCommand(time.Time{}))

	f.router.Handle(context.Background(), textIn(testGroup, ".ping"), caller(true))

	assert.Equal([]string{"🏓"}, f.ft.Reactions())
	assert.Equal("react", f.ft.Calls[0])
	assert.Contains(f.ft.Texts()[0], "Pong")
}

func TestReloadReplacesTable(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t, publicDefaults())
	first := &recorder{name: "a"}
	second := &recorder{name: "a"}

	source := []Command{first}
	f.router.SetSource(func(context.Context) []Command { return source })
	f.router.Reload(context.Background())
	source = []Command{second}
	f.router.Reload(context.Background())
	f.router.Reload(context.Background())

	f.router.Handle(context.Background(), textIn(testGroup, ".a"), caller(true))
	assert.Equal(0, first.calls)
	assert.Equal(1, second.calls)
	assert.Equal(1, f.router.Table().Len())
}
