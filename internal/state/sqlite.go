package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/multierr"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `CREATE TABLE IF NOT EXISTS positions (
	hash       TEXT PRIMARY KEY,
	file       TEXT NOT NULL,
	anchor     TEXT NOT NULL,
	percentage REAL NOT NULL,
	chapter    TEXT NOT NULL DEFAULT '',
	updated_at INTEGER NOT NULL
)`

// SQLiteStore keeps positions in a SQLite database, convenient when many
// books are tracked or the file is shared between machines.
type SQLiteStore struct {
	path string
	mu   sync.Mutex
	conn *sqlite.Conn
}

// NewSQLiteStore opens (creating when necessary) database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	if err := sqlitex.Execute(conn, schema, nil); err != nil {
		return nil, multierr.Append(fmt.Errorf("create schema: %w", err), conn.Close())
	}
	return &SQLiteStore{path: path, conn: conn}, nil
}

// Path returns location of the database.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Get(hash string) (pos Position, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return Position{}, false, ErrClosed
	}
	err = sqlitex.Execute(s.conn,
		`SELECT file, anchor, percentage, chapter, updated_at FROM positions WHERE hash = ?`,
		&sqlitex.ExecOptions{
			Args: []any{hash},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				pos = scanPosition(stmt)
				found = true
				return nil
			}})
	if err != nil {
		return Position{}, false, fmt.Errorf("read position: %w", err)
	}
	return pos, found, nil
}

func (s *SQLiteStore) Set(hash string, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrClosed
	}
	err := sqlitex.Execute(s.conn,
		`INSERT INTO positions (hash, file, anchor, percentage, chapter, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			file = excluded.file,
			anchor = excluded.anchor,
			percentage = excluded.percentage,
			chapter = excluded.chapter,
			updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{
			Args: []any{hash, pos.File, pos.Anchor, pos.Percentage, pos.Chapter, pos.UpdatedAt.UnixNano()},
		})
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrClosed
	}
	err := sqlitex.Execute(s.conn, `DELETE FROM positions WHERE hash = ?`,
		&sqlitex.ExecOptions{Args: []any{hash}})
	if err != nil {
		return fmt.Errorf("clear position: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, ErrClosed
	}
	var entries []Entry
	err := sqlitex.Execute(s.conn,
		`SELECT file, anchor, percentage, chapter, updated_at, hash FROM positions`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			entries = append(entries, Entry{Hash: stmt.ColumnText(5), Position: scanPosition(stmt)})
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	sortEntries(entries)
	return entries, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func scanPosition(stmt *sqlite.Stmt) Position {
	return Position{
		File:       stmt.ColumnText(0),
		Anchor:     stmt.ColumnText(1),
		Percentage: stmt.ColumnFloat(2),
		Chapter:    stmt.ColumnText(3),
		UpdatedAt:  time.Unix(0, stmt.ColumnInt64(4)),
	}
}
