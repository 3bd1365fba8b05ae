// Package storetest holds the behaviour every domain.Storage backend must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardBot/internal/domain"
)

const (
	group = "120363000000000001@g.us"
	user  = "254700000001@s.whatsapp.net"
	other = "254700000002@s.whatsapp.net"
)

func Run(t *testing.T, open func(t *testing.T) domain.Storage) {
	tests := map[string]func(t *testing.T, s domain.Storage){
		"policies":        testPolicies,
		"warns":           testWarns,
		"bans":            testBans,
		"only admin":      testOnlyAdmin,
		"sudo":            testSudo,
		"group events":    testGroupEvents,
		"mute schedules":  testSchedules,
		"settings":        testSettings,
		"custom commands": testCustomCommands,
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			fn(t, s)
		})
	}
}

func testPolicies(t *testing.T, s domain.Storage) {
	ctx := context.Background()

	setting, err := s.PolicySetting(ctx, domain.PolicyLink, group)
	require.NoError(t, err)
	assert.False(t, setting.Enabled, "unknown policy is disabled")

	require.NoError(t, s.SetPolicy(ctx, domain.PolicyLink, group, domain.PolicySetting{Enabled: true, Action: domain.ActionWarn}))
	setting, err = s.PolicySetting(ctx, domain.PolicyLink, group)
	require.NoError(t, err)
	assert.Equal(t, domain.PolicySetting{Enabled: true, Action: domain.ActionWarn}, setting)

	other, err := s.PolicySetting(ctx, domain.PolicyImpersonation, group)
	require.NoError(t, err)
	assert.False(t, other.Enabled, "policies are independent")

	require.NoError(t, s.SetPolicy(ctx, domain.PolicyLink, group, domain.PolicySetting{}))
	setting, err = s.PolicySetting(ctx, domain.PolicyLink, group)
	require.NoError(t, err)
	assert.False(t, setting.Enabled)
}

func testWarns(t *testing.T, s domain.Storage) {
	ctx := context.Background()

	n, err := s.WarnCount(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.IncrementWarn(ctx, user))
	require.NoError(t, s.IncrementWarn(ctx, user))
	n, err = s.WarnCount(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.ResetWarn(ctx, user))
	n, err = s.WarnCount(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testBans(t *testing.T, s domain.Storage) {
	ctx := context.Background()

	require.NoError(t, s.BanUser(ctx, user))
	require.NoError(t, s.BanUser(ctx, user))
	banned, err := s.IsUserBanned(ctx, user)
	require.NoError(t, err)
	assert.True(t, banned)
	banned, err = s.IsUserBanned(ctx, other)
	require.NoError(t, err)
	assert.False(t, banned)

	require.NoError(t, s.UnbanUser(ctx, user))
	banned, err = s.IsUserBanned(ctx, user)
	require.NoError(t, err)
	assert.False(t, banned)

	require.NoError(t, s.BanGroup(ctx, group))
	banned, err = s.IsGroupBanned(ctx, group)
	require.NoError(t, err)
	assert.True(t, banned)
	require.NoError(t, s.UnbanGroup(ctx, group))
	banned, err = s.IsGroupBanned(ctx, group)
	require.NoError(t, err)
	assert.False(t, banned)
}

func testOnlyAdmin(t *testing.T, s domain.Storage) {
	ctx := context.Background()

	require.NoError(t, s.SetOnlyAdmin(ctx, group, true))
	on, err := s.IsOnlyAdmin(ctx, group)
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, s.SetOnlyAdmin(ctx, group, false))
	on, err = s.IsOnlyAdmin(ctx, group)
	require.NoError(t, err)
	assert.False(t, on)
}

func testSudo(t *testing.T, s domain.Storage) {
	ctx := context.Background()

	require.NoError(t, s.AddSudo(ctx, user))
	require.NoError(t, s.AddSudo(ctx, other))
	require.NoError(t, s.AddSudo(ctx, user))
	ids, err := s.SudoNumbers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{user, other}, ids)

	require.NoError(t, s.RemoveSudo(ctx, user))
	ids, err = s.SudoNumbers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{other}, ids)
}

func testGroupEvents(t *testing.T, s domain.Storage) {
	ctx := context.Background()

	require.NoError(t, s.SetGroupEvent(ctx, group, domain.GroupEventWelcome, true))
	on, err := s.GroupEventEnabled(ctx, group, domain.GroupEventWelcome)
	require.NoError(t, err)
	assert.True(t, on)
	on, err = s.GroupEventEnabled(ctx, group, domain.GroupEventGoodbye)
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, s.SetGroupEvent(ctx, group, domain.GroupEventWelcome, false))
	on, err = s.GroupEventEnabled(ctx, group, domain.GroupEventWelcome)
	require.NoError(t, err)
	assert.False(t, on)
}

func testSchedules(t *testing.T, s domain.Storage) {
	ctx := context.Background()

	sch := domain.MuteSchedule{ConversationID: group, MuteAt: "22:00", UnmuteAt: "06:30"}
	require.NoError(t, s.SetMuteSchedule(ctx, sch))
	list, err := s.MuteSchedules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.MuteSchedule{sch}, list)

	require.NoError(t, s.SetMuteSchedule(ctx, domain.MuteSchedule{ConversationID: group}))
	list, err = s.MuteSchedules(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testSettings(t *testing.T, s domain.Storage) {
	ctx := context.Background()

	v, err := s.GetSetting(ctx, "mode")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetSetting(ctx, "mode", "private"))
	require.NoError(t, s.SetSetting(ctx, "mode", "public"))
	v, err = s.GetSetting(ctx, "mode")
	require.NoError(t, err)
	assert.Equal(t, "public", v)
}

func testCustomCommands(t *testing.T, s domain.Storage) {
	ctx := context.Background()

	missing, err := s.GetCustomCommand(ctx, "rules")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.UpsertCustomCommand(ctx, &domain.CustomCommand{Name: "rules", Response: "Be kind", Aliases: []string{"r"}}))
	require.NoError(t, s.UpsertCustomCommand(ctx, &domain.CustomCommand{Name: "admin", Response: "secret", SuperUserOnly: true}))

	got, err := s.GetCustomCommand(ctx, "RULES")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Be kind", got.Response)
	assert.Equal(t, []string{"r"}, got.Aliases)
	assert.False(t, got.UpdatedAt.IsZero())

	list, err := s.ListCustomCommands(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "admin", list[0].Name)
	assert.True(t, list[0].SuperUserOnly)

	require.NoError(t, s.DeleteCustomCommand(ctx, "rules"))
	got, err = s.GetCustomCommand(ctx, "rules")
	require.NoError(t, err)
	assert.Nil(t, got)
}
