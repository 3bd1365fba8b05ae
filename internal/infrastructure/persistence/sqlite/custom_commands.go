package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"guardBot/internal/domain"
)

func (s *Store) UpsertCustomCommand(ctx context.Context, cmd *domain.CustomCommand) error {
	if cmd == nil {
		return fmt.Errorf("sqlite: custom command nil")
	}

	if cmd.UpdatedAt.IsZero() {
		cmd.UpdatedAt = time.Now().UTC()
	}

	const stmt = `
INSERT INTO custom_commands (name, response, aliases, superuser_only, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	response=excluded.response,
	aliases=excluded.aliases,
	superuser_only=excluded.superuser_only,
	updated_at=excluded.updated_at;
`

	_, err := s.db.ExecContext(ctx, stmt,
		strings.ToLower(cmd.Name),
		cmd.Response,
		encodeStringSlice(cmd.Aliases),
		boolInt(cmd.SuperUserOnly),
		cmd.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert custom command: %w", err)
	}
	return nil
}

func (s *Store) GetCustomCommand(ctx context.Context, name string) (*domain.CustomCommand, error) {
	const query = `
SELECT name, response, aliases, superuser_only, updated_at
FROM custom_commands
WHERE LOWER(name) = LOWER(?)
LIMIT 1;
`
	record, err := scanCustomCommand(s.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get custom command: %w", err)
	}
	return record, nil
}

func (s *Store) ListCustomCommands(ctx context.Context) ([]*domain.CustomCommand, error) {
	const query = `
SELECT name, response, aliases, superuser_only, updated_at
FROM custom_commands
ORDER BY name;
`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list custom commands: %w", err)
	}
	defer rows.Close()

	var cmds []*domain.CustomCommand
	for rows.Next() {
		record, err := scanCustomCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan custom command: %w", err)
		}
		cmds = append(cmds, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list custom command rows: %w", err)
	}
	return cmds, nil
}

func (s *Store) DeleteCustomCommand(ctx context.Context, name string) error {
	return s.exec(ctx, "delete custom command", `DELETE FROM custom_commands WHERE LOWER(name) = LOWER(?);`, name)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCustomCommand(row scanner) (*domain.CustomCommand, error) {
	var record domain.CustomCommand
	var aliasesRaw sql.NullString
	var superUserOnly int
	var updatedAt sql.NullTime

	if err := row.Scan(&record.Name, &record.Response, &aliasesRaw, &superUserOnly, &updatedAt); err != nil {
		return nil, err
	}
	record.Aliases = decodeStringSlice(aliasesRaw.String)
	record.SuperUserOnly = superUserOnly != 0
	record.UpdatedAt = updatedAt.Time
	return &record, nil
}

func encodeStringSlice(values []string) any {
	clean := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return nil
	}
	b, err := json.Marshal(clean)
	if err != nil {
		return nil
	}
	return string(b)
}

func decodeStringSlice(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}
