// Package memory is a process-local storage backend. Nothing survives a
// restart.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"guardBot/internal/domain"
)

type policyKey struct {
	policy         domain.PolicyName
	conversationID string
}

type groupEventKey struct {
	conversationID string
	event          domain.GroupEvent
}

type Store struct {
	mu sync.RWMutex

	policies    map[policyKey]domain.PolicySetting
	warns       map[string]int
	bannedUsers map[string]bool
	bannedGroup map[string]bool
	onlyAdmin   map[string]bool
	sudo        []string
	groupEvents map[groupEventKey]bool
	schedules   map[string]domain.MuteSchedule
	settings    map[string]string
	commands    map[string]*domain.CustomCommand
}

func NewStore() *Store {
	return &Store{
		policies:    make(map[policyKey]domain.PolicySetting),
		warns:       make(map[string]int),
		bannedUsers: make(map[string]bool),
		bannedGroup: make(map[string]bool),
		onlyAdmin:   make(map[string]bool),
		groupEvents: make(map[groupEventKey]bool),
		schedules:   make(map[string]domain.MuteSchedule),
		settings:    make(map[string]string),
		commands:    make(map[string]*domain.CustomCommand),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) PolicySetting(ctx context.Context, policy domain.PolicyName, conversationID string) (domain.PolicySetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policies[policyKey{policy, conversationID}], nil
}

func (s *Store) SetPolicy(ctx context.Context, policy domain.PolicyName, conversationID string, setting domain.PolicySetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[policyKey{policy, conversationID}] = setting
	return nil
}

func (s *Store) WarnCount(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.warns[userID], nil
}

func (s *Store) IncrementWarn(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warns[userID]++
	return nil
}

func (s *Store) ResetWarn(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.warns, userID)
	return nil
}

func (s *Store) IsUserBanned(ctx context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bannedUsers[userID], nil
}

func (s *Store) BanUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bannedUsers[userID] = true
	return nil
}

func (s *Store) UnbanUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bannedUsers, userID)
	return nil
}

func (s *Store) IsGroupBanned(ctx context.Context, conversationID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bannedGroup[conversationID], nil
}

func (s *Store) BanGroup(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bannedGroup[conversationID] = true
	return nil
}

func (s *Store) UnbanGroup(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bannedGroup, conversationID)
	return nil
}

func (s *Store) IsOnlyAdmin(ctx context.Context, conversationID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.onlyAdmin[conversationID], nil
}

func (s *Store) SetOnlyAdmin(ctx context.Context, conversationID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled {
		s.onlyAdmin[conversationID] = true
	} else {
		delete(s.onlyAdmin, conversationID)
	}
	return nil
}

func (s *Store) SudoNumbers(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sudo), nil
}

func (s *Store) AddSudo(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.sudo, userID) {
		s.sudo = append(s.sudo, userID)
	}
	return nil
}

func (s *Store) RemoveSudo(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sudo = slices.DeleteFunc(s.sudo, func(v string) bool { return v == userID })
	return nil
}

func (s *Store) GroupEventEnabled(ctx context.Context, conversationID string, event domain.GroupEvent) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groupEvents[groupEventKey{conversationID, event}], nil
}

func (s *Store) SetGroupEvent(ctx context.Context, conversationID string, event domain.GroupEvent, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groupEvents[groupEventKey{conversationID, event}] = enabled
	return nil
}

func (s *Store) MuteSchedules(ctx context.Context) ([]domain.MuteSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MuteSchedule, 0, len(s.schedules))
	for _, sch := range s.schedules {
		out = append(out, sch)
	}
	slices.SortFunc(out, func(a, b domain.MuteSchedule) int {
		return strings.Compare(a.ConversationID, b.ConversationID)
	})
	return out, nil
}

func (s *Store) SetMuteSchedule(ctx context.Context, schedule domain.MuteSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if schedule.MuteAt == "" && schedule.UnmuteAt == "" {
		delete(s.schedules, schedule.ConversationID)
		return nil
	}
	s.schedules[schedule.ConversationID] = schedule
	return nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings[key], nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

func (s *Store) UpsertCustomCommand(ctx context.Context, cmd *domain.CustomCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cmd
	c.Aliases = slices.Clone(cmd.Aliases)
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	s.commands[strings.ToLower(c.Name)] = &c
	return nil
}

func (s *Store) GetCustomCommand(ctx context.Context, name string) (*domain.CustomCommand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.commands[strings.ToLower(name)]
	if !ok {
		return nil, nil
	}
	out := *c
	out.Aliases = slices.Clone(c.Aliases)
	return &out, nil
}

func (s *Store) ListCustomCommands(ctx context.Context) ([]*domain.CustomCommand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.CustomCommand, 0, len(s.commands))
	for _, c := range s.commands {
		cp := *c
		cp.Aliases = slices.Clone(c.Aliases)
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *domain.CustomCommand) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *Store) DeleteCustomCommand(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.commands, strings.ToLower(name))
	return nil
}

var _ domain.Storage = (*Store)(nil)
