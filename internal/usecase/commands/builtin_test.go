package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"guardBot/internal/domain"
	"guardBot/internal/usecase/settings"

	"github.com/stretchr/testify/assert"
)

func newBuiltinFixture(t *testing.T) (*fixture, *Builtins) {
	t.Helper()
	f := newFixture(t, publicDefaults())
	mgr, err := NewCustomCommandManager(context.Background(), f.store)
	assert.NoError(t, err)
	b := &Builtins{
		Store:     f.store,
		Settings:  f.settings,
		Custom:    mgr,
		Table:     f.router.Table,
		BotName:   "Guard",
		WarnLimit: 3,
		Started:   time.Now(),
	}
	mgr.SetReservedChecker(NewTable(b.Commands()...).Has)
	mgr.OnChange(func(ctx context.Context) { f.router.Reload(ctx) })
	f.router.SetSource(func(context.Context) []Command {
		return append(b.Commands(), mgr.Commands()...)
	})
	f.router.Reload(context.Background())
	return f, b
}

func admin() domain.Identity {
	return caller(true)
}

func TestPolicyToggleRequiresAdmin(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	f, _ := newBuiltinFixture(t)
	f.ft.SetAdmins(testGroup, "Team", []string{testBot}, testUser)

	f.router.Handle(ctx, textIn(testGroup, ".antilink on"), caller(true))

	assert.Equal([]string{NoticeAdminOnly}, f.ft.Texts())
	setting, _ := f.store.PolicySetting(ctx, domain.PolicyLink, testGroup)
	assert.False(setting.Enabled)
}

func TestPolicyToggle(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	f, _ := newBuiltinFixture(t)
	f.ft.SetAdmins(testGroup, "Team", []string{testBot, testUser})

	f.router.Handle(ctx, textIn(testGroup, ".antilink warn"), admin())
	setting, _ := f.store.PolicySetting(ctx, domain.PolicyLink, testGroup)
	assert.Equal(domain.PolicySetting{Enabled: true, Action: domain.ActionWarn}, setting)

	f.router.Handle(ctx, textIn(testGroup, ".antibot on"), admin())
	setting, _ = f.store.PolicySetting(ctx, domain.PolicyImpersonation, testGroup)
	assert.Equal(domain.PolicySetting{Enabled: true, Action: domain.ActionDelete}, setting)

	f.router.Handle(ctx, textIn(testGroup, ".antilink off"), admin())
	setting, _ = f.store.PolicySetting(ctx, domain.PolicyLink, testGroup)
	assert.False(setting.Enabled)
	assert.Equal(domain.ActionWarn, setting.Action)
}

func TestPolicyToggleGroupOnly(t *testing.T) {
	f, _ := newBuiltinFixture(t)
	f.router.Handle(context.Background(), textIn(testUser, ".antilink on"), caller(false))
	assert.Equal(t, []string{NoticeGroupOnly}, f.ft.Texts())
}

func TestBanRequiresSuperUser(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	f, _ := newBuiltinFixture(t)
	target := "254711111111@s.whatsapp.net"

	evt := textIn(testGroup, ".ban @254711111111")
	evt.Mentions = []string{target}
	f.router.Handle(ctx, evt, caller(true))
	banned, _ := f.store.IsUserBanned(ctx, target)
	assert.False(banned)
	assert.Equal([]string{NoticeOwnerOnly}, f.ft.Texts())

	super := caller(true)
	super.IsSuperUser = true
	f.router.Handle(ctx, evt, super)
	banned, _ = f.store.IsUserBanned(ctx, target)
	assert.True(banned)

	f.router.Handle(ctx, textIn(testGroup, ".unban 254711111111"), super)
	banned, _ = f.store.IsUserBanned(ctx, target)
	assert.False(banned)
}

func TestSudoAndMode(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	f, _ := newBuiltinFixture(t)
	super := caller(false)
	super.IsSuperUser = true

	f.router.Handle(ctx, textIn(testUser, ".sudo add +254 711 111111"), super)
	numbers, _ := f.store.SudoNumbers(ctx)
	assert.Equal([]string{"254711111111"}, numbers)

	f.router.Handle(ctx, textIn(testUser, ".mode private"), super)
	assert.False(f.settings.Public(ctx))

	f.router.Handle(ctx, textIn(testUser, ".setvar greet yes"), super)
	assert.True(f.settings.Enabled(ctx, settings.KeyGreet))
}

func TestWarnCommandRemovesAtLimit(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	f, _ := newBuiltinFixture(t)
	target := "254711111111@s.whatsapp.net"
	super := caller(true)
	super.IsSuperUser = true

	evt := textIn(testGroup, ".warn")
	evt.Mentions = []string{target}
	f.router.Handle(ctx, evt, super)
	f.router.Handle(ctx, evt, super)
	count, _ := f.store.WarnCount(ctx, target)
	assert.Equal(2, count)
	assert.Empty(f.ft.Removed)

	f.router.Handle(ctx, evt, super)
	assert.Len(f.ft.Removed, 1)
	count, _ = f.store.WarnCount(ctx, target)
	assert.Equal(0, count)
}

func TestWarnCommandLogsFailedRemoval(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	f, _ := newBuiltinFixture(t)
	f.ft.Errors["remove"] = errors.New("not an admin")
	target := "254711111111@s.whatsapp.net"
	super := caller(true)
	super.IsSuperUser = true
	assert.NoError(f.store.IncrementWarn(ctx, target))
	assert.NoError(f.store.IncrementWarn(ctx, target))

	evt := textIn(testGroup, ".warn")
	evt.Mentions = []string{target}
	outcome := f.router.Handle(ctx, evt, super)

	assert.NoError(outcome.Err)
	assert.Empty(f.ft.Removed)
	assert.Contains(f.logs.String(), "outbound call failed")
	assert.Contains(f.logs.String(), "op=remove")
	assert.Contains(f.logs.String(), "command=warn")
}

func TestAutomuteRecordsSchedule(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	f, _ := newBuiltinFixture(t)
	super := caller(true)
	super.IsSuperUser = true

	f.router.Handle(ctx, textIn(testGroup, ".automute 22:00 06:30"), super)
	schedules, _ := f.store.MuteSchedules(ctx)
	assert.Equal([]domain.MuteSchedule{{ConversationID: testGroup, MuteAt: "22:00", UnmuteAt: "06:30"}}, schedules)

	f.router.Handle(ctx, textIn(testGroup, ".automute 25:00 06:30"), super)
	assert.Contains(f.ft.Texts()[1], "Invalid time")

	f.router.Handle(ctx, textIn(testGroup, ".automute off"), super)
	schedules, _ = f.store.MuteSchedules(ctx)
	assert.Empty(schedules)
}

func TestCustomCommandLifecycle(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	f, _ := newBuiltinFixture(t)
	super := caller(true)
	super.IsSuperUser = true

	f.router.Handle(ctx, textIn(testGroup, ".cmd rules aliases:r,regeln Be kind.\nNo spam."), super)
	assert.Contains(f.ft.Texts()[0], "created")

	f.router.Handle(ctx, textIn(testGroup, ".r"), caller(true))
	assert.Equal("Be kind.\nNo spam.", f.ft.Texts()[1])

	f.router.Handle(ctx, textIn(testGroup, ".cmd ping pong"), super)
	assert.Contains(f.ft.Texts()[2], "built-in")

	f.router.Handle(ctx, textIn(testGroup, ".cmd rules action:delete"), super)
	assert.Contains(f.ft.Texts()[3], "deleted")
	out := f.router.Handle(ctx, textIn(testGroup, ".rules"), caller(true))
	assert.False(out.Matched)
}

func TestMenuListsCommands(t *testing.T) {
	assert := assert.New(t)
	f, _ := newBuiltinFixture(t)

	f.router.Handle(context.Background(), textIn(testGroup, ".help"), caller(true))

	texts := f.ft.Texts()
	assert.Len(texts, 1)
	assert.Contains(texts[0], ".antilink")
	assert.Contains(texts[0], ".ping")
	assert.Equal([]string{"📜"}, f.ft.Reactions())
}
