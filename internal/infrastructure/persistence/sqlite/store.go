// Package sqlite is the durable storage backend.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"guardBot/internal/domain"
)

type Store struct {
	db *sql.DB
}

var _ domain.Storage = (*Store)(nil)

func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite: empty db path")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: creating dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

var migrations = []struct {
	name   string
	schema string
}{
	{"policies", `
CREATE TABLE IF NOT EXISTS policies (
	policy TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 0,
	action TEXT,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (policy, conversation_id)
);`},
	{"warns", `
CREATE TABLE IF NOT EXISTS warns (
	user_id TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 0
);`},
	{"banned_users", `
CREATE TABLE IF NOT EXISTS banned_users (
	user_id TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL
);`},
	{"banned_groups", `
CREATE TABLE IF NOT EXISTS banned_groups (
	conversation_id TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL
);`},
	{"only_admin", `
CREATE TABLE IF NOT EXISTS only_admin (
	conversation_id TEXT PRIMARY KEY
);`},
	{"sudo", `
CREATE TABLE IF NOT EXISTS sudo (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL UNIQUE
);`},
	{"group_events", `
CREATE TABLE IF NOT EXISTS group_events (
	conversation_id TEXT NOT NULL,
	event TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (conversation_id, event)
);`},
	{"mute_schedules", `
CREATE TABLE IF NOT EXISTS mute_schedules (
	conversation_id TEXT PRIMARY KEY,
	mute_at TEXT,
	unmute_at TEXT
);`},
	{"settings", `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT,
	updated_at TIMESTAMP NOT NULL
);`},
	{"custom_commands", `
CREATE TABLE IF NOT EXISTS custom_commands (
	name TEXT PRIMARY KEY,
	response TEXT NOT NULL,
	aliases TEXT,
	updated_at TIMESTAMP NOT NULL
);`},
}

func migrate(db *sql.DB) error {
	for _, m := range migrations {
		if _, err := db.Exec(m.schema); err != nil {
			return fmt.Errorf("sqlite: migrate %s: %w", m.name, err)
		}
	}

	if _, err := db.Exec(`ALTER TABLE custom_commands ADD COLUMN superuser_only INTEGER NOT NULL DEFAULT 0;`); err != nil {
		if !strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
			return fmt.Errorf("sqlite: add superuser_only column: %w", err)
		}
	}

	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
