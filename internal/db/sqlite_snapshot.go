package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fogiking/formpulse/internal/store"
)

// SQLiteSnapshot stores the serialized repository state as a single JSON
// document in a key-value table, addressed by a stable snapshot name.
type SQLiteSnapshot struct {
	db   *sql.DB
	name string
}

const schema = `CREATE TABLE IF NOT EXISTS snapshots (
	name       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// NewSQLiteSnapshot prepares the connection (pragmas, schema) and returns a
// snapshot provider bound to the given name.
func NewSQLiteSnapshot(db *sql.DB, name string) (*SQLiteSnapshot, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	if name == "" {
		name = "formpulse"
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}
	return &SQLiteSnapshot{db: db, name: name}, nil
}

func (s *SQLiteSnapshot) Load() (*store.State, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM snapshots WHERE name = ?`, s.name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return &store.State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %q: %w", s.name, err)
	}
	var st store.State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("decode snapshot %q: %w", s.name, err)
	}
	return &st, nil
}

func (s *SQLiteSnapshot) Save(st *store.State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO snapshots (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.name, string(b), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", s.name, err)
	}
	return nil
}

var _ store.Snapshot = (*SQLiteSnapshot)(nil)
