package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbutil "github.com/llehouerou/onair/internal/db"
)

// ErrStationNotFound is returned when a station name is not in the catalog.
var ErrStationNotFound = errors.New("station not found")

// StationRecord is a catalog entry with its ordered streams.
type StationRecord struct {
	Name     string
	Title    string
	URL      string
	Image    string
	Favorite bool
	Streams  []StreamRecord
}

// StreamRecord is one quality variant of a station.
type StreamRecord struct {
	Name string
	URL  string
}

// SyncStations replaces the catalog with records, preserving favorites
// of stations that remain.
func (m *Manager) SyncStations(ctx context.Context, records []StationRecord) error {
	return dbutil.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		keep := make(map[string]struct{}, len(records))
		for i, r := range records {
			keep[r.Name] = struct{}{}
			if err := upsertStation(ctx, tx, i, r); err != nil {
				return fmt.Errorf("sync station %q: %w", r.Name, err)
			}
		}

		rows, err := tx.QueryContext(ctx, `SELECT name FROM stations`)
		if err != nil {
			return err
		}
		var stale []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return err
			}
			if _, ok := keep[name]; !ok {
				stale = append(stale, name)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, name := range stale {
			if _, err := tx.ExecContext(ctx, `DELETE FROM stations WHERE name = ?`, name); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertStation(ctx context.Context, tx *sql.Tx, position int, r StationRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stations (name, position, title, url, image)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			position = excluded.position,
			title = excluded.title,
			url = excluded.url,
			image = excluded.image
	`, r.Name, position, r.Title, dbutil.NullString(r.URL), dbutil.NullString(r.Image))
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM station_streams WHERE station_name = ?`, r.Name); err != nil {
		return err
	}
	for i, s := range r.Streams {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO station_streams (station_name, position, name, url)
			VALUES (?, ?, ?, ?)
		`, r.Name, i, s.Name, s.URL)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListStations returns the catalog in configuration order.
func (m *Manager) ListStations() ([]StationRecord, error) {
	rows, err := m.db.Query(`
		SELECT name, title, url, image, favorite
		FROM stations
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []StationRecord
	for rows.Next() {
		r, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	streams, err := m.listStreams()
	if err != nil {
		return nil, err
	}
	for i := range stations {
		stations[i].Streams = streams[stations[i].Name]
	}
	return stations, nil
}

// GetStation returns a single station by name.
func (m *Manager) GetStation(name string) (*StationRecord, error) {
	row := m.db.QueryRow(`
		SELECT name, title, url, image, favorite
		FROM stations
		WHERE name = ?
	`, name)
	r, err := scanStation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStationNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := m.db.Query(`
		SELECT name, url FROM station_streams
		WHERE station_name = ?
		ORDER BY position
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s StreamRecord
		if err := rows.Scan(&s.Name, &s.URL); err != nil {
			return nil, err
		}
		r.Streams = append(r.Streams, s)
	}
	return &r, rows.Err()
}

// SetFavorite marks or unmarks a station as favorite.
func (m *Manager) SetFavorite(name string, favorite bool) error {
	var favoritedAt sql.NullInt64
	if favorite {
		favoritedAt = sql.NullInt64{Int64: time.Now().Unix(), Valid: true}
	}
	res, err := m.db.Exec(`
		UPDATE stations SET favorite = ?, favorited_at = ? WHERE name = ?
	`, favorite, favoritedAt, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStationNotFound
	}
	return nil
}

func (m *Manager) listStreams() (map[string][]StreamRecord, error) {
	rows, err := m.db.Query(`
		SELECT station_name, name, url FROM station_streams
		ORDER BY station_name, position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	streams := make(map[string][]StreamRecord)
	for rows.Next() {
		var station string
		var s StreamRecord
		if err := rows.Scan(&station, &s.Name, &s.URL); err != nil {
			return nil, err
		}
		streams[station] = append(streams[station], s)
	}
	return streams, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStation(row rowScanner) (StationRecord, error) {
	var r StationRecord
	var url, image sql.NullString
	if err := row.Scan(&r.Name, &r.Title, &url, &image, &r.Favorite); err != nil {
		return StationRecord{}, err
	}
	r.URL = dbutil.NullStringValue(url)
	r.Image = dbutil.NullStringValue(image)
	return r, nil
}
