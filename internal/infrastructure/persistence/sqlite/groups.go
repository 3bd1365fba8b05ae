package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"guardBot/internal/domain"
)

func (s *Store) GroupEventEnabled(ctx context.Context, conversationID string, event domain.GroupEvent) (bool, error) {
	var enabled int
	err := s.db.QueryRowContext(ctx, `SELECT enabled FROM group_events WHERE conversation_id = ? AND event = ? LIMIT 1;`, conversationID, string(event)).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: group event: %w", err)
	}
	return enabled != 0, nil
}

func (s *Store) SetGroupEvent(ctx context.Context, conversationID string, event domain.GroupEvent, enabled bool) error {
	const stmt = `
INSERT INTO group_events (conversation_id, event, enabled) VALUES (?, ?, ?)
ON CONFLICT(conversation_id, event) DO UPDATE SET enabled=excluded.enabled;
`
	return s.exec(ctx, "set group event", stmt, conversationID, string(event), boolInt(enabled))
}

func (s *Store) MuteSchedules(ctx context.Context) ([]domain.MuteSchedule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT conversation_id, mute_at, unmute_at FROM mute_schedules ORDER BY conversation_id;`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list mute schedules: %w", err)
	}
	defer rows.Close()

	var out []domain.MuteSchedule
	for rows.Next() {
		var sch domain.MuteSchedule
		var muteAt, unmuteAt sql.NullString
		if err := rows.Scan(&sch.ConversationID, &muteAt, &unmuteAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan mute schedule: %w", err)
		}
		sch.MuteAt = muteAt.String
		sch.UnmuteAt = unmuteAt.String
		out = append(out, sch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list mute schedule rows: %w", err)
	}
	return out, nil
}

// SetMuteSchedule stores the schedule; an empty schedule clears it.
func (s *Store) SetMuteSchedule(ctx context.Context, schedule domain.MuteSchedule) error {
	if schedule.MuteAt == "" && schedule.UnmuteAt == "" {
		return s.exec(ctx, "clear mute schedule", `DELETE FROM mute_schedules WHERE conversation_id = ?;`, schedule.ConversationID)
	}
	const stmt = `
INSERT INTO mute_schedules (conversation_id, mute_at, unmute_at) VALUES (?, ?, ?)
ON CONFLICT(conversation_id) DO UPDATE SET
	mute_at=excluded.mute_at,
	unmute_at=excluded.unmute_at;
`
	return s.exec(ctx, "set mute schedule", stmt, schedule.ConversationID, schedule.MuteAt, schedule.UnmuteAt)
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("sqlite: empty setting key")
	}

	const stmt = `
INSERT INTO settings (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	value=excluded.value,
	updated_at=excluded.updated_at;
`
	return s.exec(ctx, "set setting", stmt, key, value, time.Now().UTC())
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("sqlite: empty setting key")
	}

	var value sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ? LIMIT 1;`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: get setting: %w", err)
	}
	return value.String, nil
}
