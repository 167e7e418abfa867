package state

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// DefaultVolume is returned when no volume has been saved yet.
const DefaultVolume = 75

// GetVolume returns the saved volume level (0-100).
func (m *Manager) GetVolume() (int, error) {
	m.saveMu.Lock()
	pending := m.pendingVolume
	m.saveMu.Unlock()
	if pending != nil {
		return *pending, nil
	}
	return getVolume(m.db)
}

// SaveVolume schedules a debounced write of the volume level.
// Rapid volume changes coalesce into a single write.
func (m *Manager) SaveVolume(volume int) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	v := volume
	m.pendingVolume = &v

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}

	m.saveTimer = time.AfterFunc(saveDebounce, func() {
		m.saveMu.Lock()
		pending := m.pendingVolume
		m.pendingVolume = nil
		onErr := m.onSaveError
		m.saveMu.Unlock()

		if pending == nil {
			return
		}
		if err := saveVolume(context.Background(), m.db, *pending); err != nil && onErr != nil {
			onErr(err)
		}
	})
}

// SaveVolumeNow writes the volume level immediately, dropping any pending write.
func (m *Manager) SaveVolumeNow(volume int) error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	m.pendingVolume = nil
	m.saveMu.Unlock()

	return saveVolume(context.Background(), m.db, volume)
}

// InitVolume stores volume unless a level has already been saved.
func (m *Manager) InitVolume(volume int) error {
	_, err := m.db.Exec(`
		INSERT INTO player_state (id, volume)
		VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET
			volume = COALESCE(player_state.volume, excluded.volume)
	`, clampVolume(volume))
	return err
}

func getVolume(db *sql.DB) (int, error) {
	var volume sql.NullInt64
	row := db.QueryRow(`SELECT volume FROM player_state WHERE id = 1`)
	err := row.Scan(&volume)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultVolume, nil
	}
	if err != nil {
		return 0, err
	}
	if !volume.Valid {
		return DefaultVolume, nil
	}
	return clampVolume(int(volume.Int64)), nil
}

func saveVolume(ctx context.Context, db *sql.DB, volume int) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO player_state (id, volume)
		VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET
			volume = excluded.volume
	`, clampVolume(volume))
	return err
}

func clampVolume(v int) int {
	return max(0, min(100, v))
}
