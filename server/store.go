package server

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/strandvm/strand/vm"
)

// ErrSessionNotFound reports a session ID absent from the store.
var ErrSessionNotFound = errors.New("session not found")

// Store persists suspended sessions in sqlite so runs survive server
// restarts. Checkpoints and variables travel as their canonical binary
// encodings; the store never interprets them.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the sqlite database at dbPath and
// ensures the schema exists.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			checkpoint BLOB NOT NULL,
			variables BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return nil, fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Save upserts a session's suspended state.
func (s *Store) Save(session *Session) error {
	cpData, err := session.Checkpoint.Marshal()
	if err != nil {
		return err
	}
	varData, err := session.Vars.Marshal()
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO sessions (id, checkpoint, variables, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   checkpoint = excluded.checkpoint,
		   variables = excluded.variables,
		   updated_at = excluded.updated_at`,
		session.ID, cpData, varData, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// Load reconstructs a persisted session by ID.
func (s *Store) Load(id string) (*Session, error) {
	var cpData, varData []byte
	err := s.db.QueryRow(
		`SELECT checkpoint, variables FROM sessions WHERE id = ?`, id,
	).Scan(&cpData, &varData)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	cp, err := vm.UnmarshalCheckpoint(cpData)
	if err != nil {
		return nil, err
	}
	vars, err := vm.UnmarshalMapStore(varData)
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, Checkpoint: cp, Vars: vars}, nil
}

// Delete removes a persisted session. Deleting an absent ID is not an
// error.
func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
