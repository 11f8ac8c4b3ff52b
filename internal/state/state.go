// Package state keeps reading positions between sessions.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/maruel/natural"
)

const hashBytes = 8192 // First 8KB for content hash

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

var (
	// ErrUnknownBackend is returned by Open for unsupported backend names.
	ErrUnknownBackend = errors.New("unknown state backend")
	// ErrClosed is returned by operations on a closed database store.
	ErrClosed = errors.New("state store is closed")
)

// Position is the saved reading location of a single document.
type Position struct {
	File       string    `json:"file"`
	Anchor     string    `json:"anchor"`
	Percentage float64   `json:"percentage"`
	Chapter    string    `json:"chapter,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Entry is a position together with the document hash it belongs to.
type Entry struct {
	Hash string
	Position
}

// Store manages persistent reading positions keyed by content hash.
type Store interface {
	// Get returns saved position, false if there is none.
	Get(hash string) (Position, bool, error)
	Set(hash string, pos Position) error
	Clear(hash string) error
	// List returns all saved positions ordered by file name.
	List() ([]Entry, error)
	Close() error
}

// Open creates store for backend. Empty path selects default location in
// the state directory.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendJSON, "":
		if path == "" {
			path = filepath.Join(Dir(), "reading_positions.json")
		}
		return NewFileStore(path)
	case BackendSQLite:
		if path == "" {
			path = filepath.Join(Dir(), "reading_positions.db")
		}
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// Dir returns XDG_STATE_HOME/folio or ~/.local/state/folio
func Dir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "folio")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "folio")
}

// ComputeHash generates content hash for file identity
func ComputeHash(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, hashBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}

	hash := sha256.Sum256(buf[:n])
	return hex.EncodeToString(hash[:16]), nil // First 16 bytes = 32 hex chars
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].File != entries[j].File {
			return natural.Less(entries[i].File, entries[j].File)
		}
		return entries[i].Hash < entries[j].Hash
	})
}
