package state

import (
	"context"
	"database/sql"
)

// Interface defines the state manager contract for dependency injection and testing.
type Interface interface {
	DB() *sql.DB
	SyncStations(ctx context.Context, records []StationRecord) error
	ListStations() ([]StationRecord, error)
	GetStation(name string) (*StationRecord, error)
	SetFavorite(name string, favorite bool) error
	GetPlayerState() (*PlayerState, error)
	SaveLastStation(station, streamName string) error
	GetVolume() (int, error)
	InitVolume(volume int) error
	SaveVolume(volume int)
	SaveVolumeNow(volume int) error
	Close() error
}

// Verify Manager implements Interface at compile time.
var _ Interface = (*Manager)(nil)
