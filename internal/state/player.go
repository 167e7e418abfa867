package state

import (
	"database/sql"
	"errors"

	dbutil "github.com/llehouerou/onair/internal/db"
)

// PlayerState is the last selection restored at startup.
type PlayerState struct {
	LastStation string
	StreamName  string
}

// GetPlayerState returns the saved selection, or nil if nothing was saved.
func (m *Manager) GetPlayerState() (*PlayerState, error) {
	var station, stream sql.NullString

	row := m.db.QueryRow(`SELECT last_station, stream_name FROM player_state WHERE id = 1`)
	err := row.Scan(&station, &stream)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil state is valid when none saved
	}
	if err != nil {
		return nil, err
	}
	if !station.Valid {
		return nil, nil //nolint:nilnil // row may only hold the volume
	}

	return &PlayerState{
		LastStation: station.String,
		StreamName:  dbutil.NullStringValue(stream),
	}, nil
}

// SaveLastStation records the selected station and stream quality.
func (m *Manager) SaveLastStation(station, streamName string) error {
	_, err := m.db.Exec(`
		INSERT INTO player_state (id, last_station, stream_name)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_station = excluded.last_station,
			stream_name = excluded.stream_name
	`, dbutil.NullString(station), dbutil.NullString(streamName))
	return err
}
