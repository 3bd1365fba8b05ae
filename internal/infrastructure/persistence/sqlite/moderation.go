package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"guardBot/internal/domain"
)

func (s *Store) PolicySetting(ctx context.Context, policy domain.PolicyName, conversationID string) (domain.PolicySetting, error) {
	const query = `SELECT enabled, action FROM policies WHERE policy = ? AND conversation_id = ? LIMIT 1;`

	var enabled int
	var action sql.NullString
	err := s.db.QueryRowContext(ctx, query, string(policy), conversationID).Scan(&enabled, &action)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PolicySetting{}, nil
	}
	if err != nil {
		return domain.PolicySetting{}, fmt.Errorf("sqlite: get policy: %w", err)
	}
	return domain.PolicySetting{Enabled: enabled != 0, Action: domain.Action(action.String)}, nil
}

func (s *Store) SetPolicy(ctx context.Context, policy domain.PolicyName, conversationID string, setting domain.PolicySetting) error {
	const stmt = `
INSERT INTO policies (policy, conversation_id, enabled, action, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(policy, conversation_id) DO UPDATE SET
	enabled=excluded.enabled,
	action=excluded.action,
	updated_at=excluded.updated_at;
`
	if _, err := s.db.ExecContext(ctx, stmt, string(policy), conversationID, boolInt(setting.Enabled), string(setting.Action), time.Now().UTC()); err != nil {
		return fmt.Errorf("sqlite: set policy: %w", err)
	}
	return nil
}

func (s *Store) WarnCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count FROM warns WHERE user_id = ? LIMIT 1;`, userID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: warn count: %w", err)
	}
	return count, nil
}

func (s *Store) IncrementWarn(ctx context.Context, userID string) error {
	const stmt = `
INSERT INTO warns (user_id, count) VALUES (?, 1)
ON CONFLICT(user_id) DO UPDATE SET count = count + 1;
`
	if _, err := s.db.ExecContext(ctx, stmt, userID); err != nil {
		return fmt.Errorf("sqlite: increment warn: %w", err)
	}
	return nil
}

func (s *Store) ResetWarn(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM warns WHERE user_id = ?;`, userID); err != nil {
		return fmt.Errorf("sqlite: reset warn: %w", err)
	}
	return nil
}

func (s *Store) IsUserBanned(ctx context.Context, userID string) (bool, error) {
	return s.exists(ctx, "is user banned", `SELECT 1 FROM banned_users WHERE user_id = ? LIMIT 1;`, userID)
}

func (s *Store) BanUser(ctx context.Context, userID string) error {
	return s.exec(ctx, "ban user", `INSERT OR IGNORE INTO banned_users (user_id, created_at) VALUES (?, ?);`, userID, time.Now().UTC())
}

func (s *Store) UnbanUser(ctx context.Context, userID string) error {
	return s.exec(ctx, "unban user", `DELETE FROM banned_users WHERE user_id = ?;`, userID)
}

func (s *Store) IsGroupBanned(ctx context.Context, conversationID string) (bool, error) {
	return s.exists(ctx, "is group banned", `SELECT 1 FROM banned_groups WHERE conversation_id = ? LIMIT 1;`, conversationID)
}

func (s *Store) BanGroup(ctx context.Context, conversationID string) error {
	return s.exec(ctx, "ban group", `INSERT OR IGNORE INTO banned_groups (conversation_id, created_at) VALUES (?, ?);`, conversationID, time.Now().UTC())
}

func (s *Store) UnbanGroup(ctx context.Context, conversationID string) error {
	return s.exec(ctx, "unban group", `DELETE FROM banned_groups WHERE conversation_id = ?;`, conversationID)
}

func (s *Store) IsOnlyAdmin(ctx context.Context, conversationID string) (bool, error) {
	return s.exists(ctx, "is only admin", `SELECT 1 FROM only_admin WHERE conversation_id = ? LIMIT 1;`, conversationID)
}

func (s *Store) SetOnlyAdmin(ctx context.Context, conversationID string, enabled bool) error {
	if enabled {
		return s.exec(ctx, "set only admin", `INSERT OR IGNORE INTO only_admin (conversation_id) VALUES (?);`, conversationID)
	}
	return s.exec(ctx, "set only admin", `DELETE FROM only_admin WHERE conversation_id = ?;`, conversationID)
}

func (s *Store) SudoNumbers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM sudo ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list sudo: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scan sudo: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list sudo rows: %w", err)
	}
	return out, nil
}

func (s *Store) AddSudo(ctx context.Context, userID string) error {
	return s.exec(ctx, "add sudo", `INSERT OR IGNORE INTO sudo (user_id) VALUES (?);`, userID)
}

func (s *Store) RemoveSudo(ctx context.Context, userID string) error {
	return s.exec(ctx, "remove sudo", `DELETE FROM sudo WHERE user_id = ?;`, userID)
}

func (s *Store) exists(ctx context.Context, op, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: %s: %w", op, err)
	}
	return true, nil
}

func (s *Store) exec(ctx context.Context, op, stmt string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("sqlite: %s: %w", op, err)
	}
	return nil
}
