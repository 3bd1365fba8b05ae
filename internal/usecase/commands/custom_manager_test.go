package commands

import (
	"context"
	"testing"

	"guardBot/internal/infrastructure/persistence/memory"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestCustomManagerPersistsAndReloads(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := memory.NewStore()

	mgr, err := NewCustomCommandManager(ctx, store)
	assert.NoError(err)

	changes := 0
	mgr.OnChange(func(context.Context) { changes++ })

	cmd, created, err := mgr.Upsert(ctx, UpdateCustomCommandInput{Name: " Rules ", Response: strPtr("be nice"), Aliases: []string{"R", "r"}, HasAliases: true})
	assert.NoError(err)
	assert.True(created)
	assert.Equal("rules", cmd.Name)
	assert.Equal([]string{"r"}, cmd.Aliases)
	assert.Equal(1, changes)

	_, created, err = mgr.Upsert(ctx, UpdateCustomCommandInput{Name: "rules", Response: strPtr("be very nice")})
	assert.NoError(err)
	assert.False(created)

	reloaded, err := NewCustomCommandManager(ctx, store)
	assert.NoError(err)
	found := reloaded.Find("r")
	assert.NotNil(found)
	assert.Equal("be very nice", found.Response)
	assert.Len(reloaded.Commands(), 1)
}

func TestCustomManagerConflicts(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	mgr, _ := NewCustomCommandManager(ctx, memory.NewStore())
	mgr.SetReservedChecker(func(name string) bool { return name == "ping" })

	_, _, err := mgr.Upsert(ctx, UpdateCustomCommandInput{Name: "ping", Response: strPtr("x")})
	assert.Error(err)

	_, _, err = mgr.Upsert(ctx, UpdateCustomCommandInput{Name: "a", Response: strPtr("x"), Aliases: []string{"b"}, HasAliases: true})
	assert.NoError(err)
	_, _, err = mgr.Upsert(ctx, UpdateCustomCommandInput{Name: "c", Response: strPtr("x"), Aliases: []string{"b"}, HasAliases: true})
	assert.Error(err)
	_, _, err = mgr.Upsert(ctx, UpdateCustomCommandInput{Name: "d", Response: strPtr("x"), Aliases: []string{"a"}, HasAliases: true})
	assert.Error(err)

	_, _, err = mgr.Upsert(ctx, UpdateCustomCommandInput{Name: "empty"})
	assert.Error(err)

	deleted, err := mgr.Delete(ctx, "A")
	assert.NoError(err)
	assert.True(deleted)
	deleted, err = mgr.Delete(ctx, "a")
	assert.NoError(err)
	assert.False(deleted)
}
