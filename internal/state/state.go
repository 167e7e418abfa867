// Package state persists the station catalog, favorites and player state in SQLite.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName      = "onair"
	dbFileName   = "onair.db"
	saveDebounce = 500 * time.Millisecond
)

type Manager struct {
	db            *sql.DB
	saveMu        sync.Mutex
	saveTimer     *time.Timer
	pendingVolume *int
	onSaveError   func(error)
}

// Open opens the database in the XDG data directory.
func Open() (*Manager, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	return OpenPath(dbPath)
}

// OpenPath opens the database at path. ":memory:" is accepted for tests.
func OpenPath(path string) (*Manager, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer; one connection also keeps :memory: databases intact.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Manager{db: db}, nil
}

// OnSaveError registers a callback for failures of debounced writes.
func (m *Manager) OnSaveError(fn func(error)) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	m.onSaveError = fn
}

func (m *Manager) Close() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	pending := m.pendingVolume
	m.pendingVolume = nil
	m.saveMu.Unlock()

	// Flush pending state
	if pending != nil {
		_ = saveVolume(context.Background(), m.db, *pending)
	}

	return m.db.Close()
}

func (m *Manager) DB() *sql.DB {
	return m.db
}

func getDBPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}
