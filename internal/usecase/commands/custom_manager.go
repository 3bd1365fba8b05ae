package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"guardBot/internal/domain"
)

type CustomCommandManager struct {
	repo domain.CustomCommandRepository

	mu          sync.RWMutex
	commands    map[string]*domain.CustomCommand
	aliasToName map[string]string
	isReserved  func(string) bool
	onChange    func(ctx context.Context)
}

type UpdateCustomCommandInput struct {
	Name          string
	Response      *string
	Aliases       []string
	HasAliases    bool
	SuperUserOnly *bool
}

func NewCustomCommandManager(ctx context.Context, repo domain.CustomCommandRepository) (*CustomCommandManager, error) {
	mgr := &CustomCommandManager{
		repo:        repo,
		commands:    make(map[string]*domain.CustomCommand),
		aliasToName: make(map[string]string),
	}

	if repo == nil {
		return mgr, nil
	}

	list, err := repo.ListCustomCommands(ctx)
	if err != nil {
		return nil, fmt.Errorf("custom manager: list: %w", err)
	}

	for _, cmd := range list {
		if cmd == nil {
			continue
		}
		name := normalizeCommandName(cmd.Name)
		if name == "" {
			continue
		}
		mgr.commands[name] = cloneCommand(cmd)
	}
	mgr.rebuildAliasesLocked()

	return mgr, nil
}

func (m *CustomCommandManager) rebuildAliasesLocked() {
	m.aliasToName = make(map[string]string)
	for name, cmd := range m.commands {
		for _, alias := range cmd.Aliases {
			aliasKey := normalizeCommandName(alias)
			if aliasKey == "" {
				continue
			}
			m.aliasToName[aliasKey] = name
		}
	}
}

func (m *CustomCommandManager) Find(trigger string) *domain.CustomCommand {
	if m == nil {
		return nil
	}

	key := normalizeCommandName(trigger)
	if key == "" {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if cmd, ok := m.commands[key]; ok {
		return cloneCommand(cmd)
	}
	if canonical, ok := m.aliasToName[key]; ok {
		if cmd, ok := m.commands[canonical]; ok {
			return cloneCommand(cmd)
		}
	}
	return nil
}

func (m *CustomCommandManager) List() []*domain.CustomCommand {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.CustomCommand, 0, len(m.commands))
	for _, cmd := range m.commands {
		out = append(out, cloneCommand(cmd))
	}
	slices.SortFunc(out, func(a, b *domain.CustomCommand) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Commands wraps every stored custom command for the dispatch table.
func (m *CustomCommandManager) Commands() []Command {
	list := m.List()
	out := make([]Command, 0, len(list))
	for _, cmd := range list {
		if strings.TrimSpace(cmd.Response) == "" {
			continue
		}
		out = append(out, &customReply{cmd: cmd})
	}
	return out
}

func (m *CustomCommandManager) Upsert(ctx context.Context, input UpdateCustomCommandInput) (*domain.CustomCommand, bool, error) {
	if m == nil {
		return nil, false, fmt.Errorf("custom manager: nil")
	}
	name := normalizeCommandName(input.Name)
	if name == "" {
		return nil, false, fmt.Errorf("invalid command name")
	}

	m.mu.Lock()

	existing := cloneCommand(m.commands[name])
	created := false
	if existing == nil {
		existing = &domain.CustomCommand{
			Name: name,
		}
		created = true
	}

	if input.Response != nil {
		existing.Response = strings.TrimSpace(*input.Response)
	}
	if existing.Response == "" {
		m.mu.Unlock()
		return nil, false, fmt.Errorf("the command response is required")
	}

	proposedAliases := existing.Aliases
	if input.HasAliases {
		proposedAliases = normalizeAliasList(input.Aliases)
	}
	if err := m.ensureNoConflicts(name, created, proposedAliases, input.HasAliases); err != nil {
		m.mu.Unlock()
		return nil, false, err
	}

	if input.HasAliases {
		existing.Aliases = proposedAliases
	}
	if input.SuperUserOnly != nil {
		existing.SuperUserOnly = *input.SuperUserOnly
	}
	existing.UpdatedAt = time.Now()

	if m.repo != nil {
		if err := m.repo.UpsertCustomCommand(ctx, existing); err != nil {
			m.mu.Unlock()
			return nil, false, err
		}
	}

	m.commands[name] = cloneCommand(existing)
	m.rebuildAliasesLocked()
	onChange := m.onChange
	m.mu.Unlock()

	if onChange != nil {
		onChange(ctx)
	}
	return cloneCommand(existing), created, nil
}

func (m *CustomCommandManager) Delete(ctx context.Context, name string) (bool, error) {
	if m == nil {
		return false, fmt.Errorf("custom manager nil")
	}
	key := normalizeCommandName(name)
	if key == "" {
		return false, fmt.Errorf("invalid command name")
	}

	m.mu.Lock()

	if _, ok := m.commands[key]; !ok {
		m.mu.Unlock()
		return false, nil
	}

	if m.repo != nil {
		if err := m.repo.DeleteCustomCommand(ctx, key); err != nil {
			m.mu.Unlock()
			return false, err
		}
	}

	delete(m.commands, key)
	m.rebuildAliasesLocked()
	onChange := m.onChange
	m.mu.Unlock()

	if onChange != nil {
		onChange(ctx)
	}
	return true, nil
}

func normalizeCommandName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (m *CustomCommandManager) ensureNoConflicts(name string, created bool, aliases []string, hasAliases bool) error {
	if created && m.isReserved != nil && m.isReserved(name) {
		return fmt.Errorf("the name %q is taken by a built-in command", name)
	}

	if hasAliases && m.isReserved != nil {
		for _, alias := range aliases {
			if alias == "" {
				continue
			}
			if m.isReserved(alias) {
				return fmt.Errorf("the alias %q is taken by a built-in command", alias)
			}
		}
	}

	for existingName, cmd := range m.commands {
		if existingName == name {
			continue
		}
		if hasAliases {
			for _, alias := range aliases {
				if alias == "" {
					continue
				}
				if alias == existingName {
					return fmt.Errorf("the alias %q matches another command", alias)
				}
				for _, otherAlias := range cmd.Aliases {
					if alias == normalizeCommandName(otherAlias) {
						return fmt.Errorf("the alias %q is already in use", alias)
					}
				}
			}
		}
	}

	return nil
}

func (m *CustomCommandManager) SetReservedChecker(fn func(string) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isReserved = fn
}

// OnChange registers a callback run after every successful mutation,
// outside the manager lock.
func (m *CustomCommandManager) OnChange(fn func(ctx context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

func normalizeAliasList(values []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range values {
		key := normalizeCommandName(v)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func cloneCommand(cmd *domain.CustomCommand) *domain.CustomCommand {
	if cmd == nil {
		return nil
	}
	copyCmd := *cmd
	if cmd.Aliases != nil {
		copyCmd.Aliases = append([]string(nil), cmd.Aliases...)
	}
	return &copyCmd
}

// customReply answers with a stored text.
type customReply struct {
	cmd *domain.CustomCommand
}

func (c *customReply) Name() string      { return c.cmd.Name }
func (c *customReply) Aliases() []string { return c.cmd.Aliases }

func (c *customReply) Describe() Descriptor {
	access := AccessEveryone
	if c.cmd.SuperUserOnly {
		access = AccessSuperUser
	}
	return Descriptor{
		Name:     c.cmd.Name,
		Aliases:  c.cmd.Aliases,
		Category: "Custom",
		Usage:    c.cmd.Name,
		Access:   access,
	}
}

func (c *customReply) Handle(ctx context.Context, cmdCtx *Context) error {
	if c.cmd.SuperUserOnly && !cmdCtx.Identity.IsSuperUser {
		return cmdCtx.Reply(ctx, NoticeOwnerOnly)
	}
	return cmdCtx.Reply(ctx, c.cmd.Response)
}
