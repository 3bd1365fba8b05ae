// Package settings exposes the runtime toggles. Values set from chat are
// stored and take precedence over the process configuration.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"guardBot/internal/domain"
)

type Key string

const (
	KeyMode               Key = "mode"
	KeyPMPermit           Key = "pm_permit"
	KeyAntiCall           Key = "anticall"
	KeyAntiCallMessage    Key = "anticall_msg"
	KeyGreet              Key = "greet"
	KeyAntiDelete         Key = "antidelete"
	KeyAutoRead           Key = "auto_read_messages"
	KeyPresence           Key = "presence"
	KeyAutoReadStatus     Key = "auto_read_status"
	KeyAutoLikeStatus     Key = "auto_like_status"
	KeyAutoStatusReply    Key = "auto_status_reply"
	KeyAutoStatusMessage  Key = "auto_status_msg"
	KeyAutoDownloadStatus Key = "auto_download_status"
	KeyAnnounce           Key = "status_announce"
)

// Keys lists every key that may be changed at runtime.
var Keys = []Key{
	KeyMode, KeyPMPermit, KeyAntiCall, KeyAntiCallMessage, KeyGreet, KeyAntiDelete,
	KeyAutoRead, KeyPresence, KeyAutoReadStatus, KeyAutoLikeStatus, KeyAutoStatusReply,
	KeyAutoStatusMessage, KeyAutoDownloadStatus, KeyAnnounce,
}

func ParseKey(raw string) (Key, bool) {
	k := Key(strings.ToLower(strings.TrimSpace(raw)))
	return k, slices.Contains(Keys, k)
}

type Service struct {
	store    domain.SettingsStore
	defaults map[Key]string
	logger   *slog.Logger
}

func NewService(store domain.SettingsStore, defaults map[Key]string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	d := make(map[Key]string, len(defaults))
	for k, v := range defaults {
		d[k] = v
	}
	return &Service{store: store, defaults: d, logger: logger.With("component", "settings")}
}

// Get returns the stored value, or the configured default when nothing is
// stored or the store fails.
func (s *Service) Get(ctx context.Context, key Key) string {
	if s.store != nil {
		v, err := s.store.GetSetting(ctx, string(key))
		if err != nil {
			s.logger.Warn("setting lookup failed", "key", key, "err", err)
		} else if v != "" {
			return v
		}
	}
	return s.defaults[key]
}

func (s *Service) Enabled(ctx context.Context, key Key) bool {
	return Truthy(s.Get(ctx, key))
}

func (s *Service) Set(ctx context.Context, key Key, value string) error {
	if _, ok := ParseKey(string(key)); !ok {
		return fmt.Errorf("settings: unknown key %q", key)
	}
	if s.store == nil {
		return fmt.Errorf("settings: no store")
	}
	if err := s.store.SetSetting(ctx, string(key), strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("settings: set %s: %w", key, err)
	}
	return nil
}

// Public reports whether non-superusers may run commands.
func (s *Service) Public(ctx context.Context) bool {
	switch strings.ToLower(s.Get(ctx, KeyMode)) {
	case "public", "yes":
		return true
	}
	return false
}

// PrivateCommandsBlocked reports whether non-superusers are refused in
// direct chats.
func (s *Service) PrivateCommandsBlocked(ctx context.Context) bool {
	return s.Enabled(ctx, KeyPMPermit)
}

// Snapshot returns the effective value of every key.
func (s *Service) Snapshot(ctx context.Context) map[Key]string {
	out := make(map[Key]string, len(Keys))
	for _, k := range Keys {
		out[k] = s.Get(ctx, k)
	}
	return out
}

// Truthy accepts the usual spellings of an enabled flag.
func Truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "true", "on", "1", "enable", "enabled":
		return true
	}
	return false
}
