package station

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/llehouerou/onair/internal/config"
	"github.com/llehouerou/onair/internal/errmsg"
	"github.com/llehouerou/onair/internal/logging"
	"github.com/llehouerou/onair/internal/state"
)

// Directory is the station catalog plus the current selection.
// Safe for concurrent use.
type Directory struct {
	mu        sync.Mutex
	store     state.Interface
	logger    *slog.Logger
	current   *Station
	streamIdx int
}

// Option configures a Directory.
type Option func(*Directory)

// WithLogger sets the directory logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Directory) {
		d.logger = logging.Component(l, "station")
	}
}

// NewDirectory creates a directory backed by store.
func NewDirectory(store state.Interface, opts ...Option) *Directory {
	d := &Directory{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Seed replaces the catalog with the configured stations and restores the
// last selection if that station still exists.
func (d *Directory) Seed(ctx context.Context, stations []config.StationConfig) error {
	records := RecordsFromConfig(stations)
	if err := d.store.SyncStations(ctx, records); err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpStationSeed, err)
	}
	d.logger.Debug("catalog seeded", "stations", len(records))

	ps, err := d.store.GetPlayerState()
	if err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpStationSeed, err)
	}
	if ps == nil {
		return nil
	}

	st, err := d.load(ps.LastStation)
	if errors.Is(err, ErrNotFound) {
		d.logger.Info("last station no longer configured", "station", ps.LastStation)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpStationSeed, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = st
	d.streamIdx = max(0, st.streamIndex(ps.StreamName))
	return nil
}

// Select resolves name, makes it the current station with its primary
// stream and persists the choice. A station without streams is rejected with
// ErrNoStreams and the selection is left unchanged.
func (d *Directory) Select(ctx context.Context, name string) (*Station, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st, err := d.load(name)
	if err != nil {
		return nil, err
	}
	if _, err := st.Primary(); err != nil {
		return nil, fmt.Errorf("%w: %s", err, name)
	}

	d.mu.Lock()
	d.current = st
	d.streamIdx = 0
	d.mu.Unlock()

	d.persist(st, 0)
	cp := *st
	return &cp, nil
}

// Current returns a copy of the current station.
func (d *Directory) Current() (*Station, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return nil, false
	}
	cp := *d.current
	return &cp, true
}

// CurrentName returns the current station name, or "" when none is selected.
func (d *Directory) CurrentName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return ""
	}
	return d.current.Name
}

// CurrentStream returns the selected stream of the current station.
func (d *Directory) CurrentStream() (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return Stream{}, ErrNoCurrent
	}
	if len(d.current.Streams) == 0 {
		return Stream{}, ErrNoStreams
	}
	return d.current.Streams[d.streamIdx%len(d.current.Streams)], nil
}

// Names returns station names in catalog order.
func (d *Directory) Names(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := d.store.ListStations()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errmsg.OpStationList, err)
	}
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	return names, nil
}

// Stations returns the catalog with favorites first. Order within each
// group follows the catalog.
func (d *Directory) Stations(ctx context.Context) ([]Station, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := d.store.ListStations()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errmsg.OpStationList, err)
	}
	stations := make([]Station, len(records))
	for i, r := range records {
		stations[i] = fromRecord(r)
	}
	slices.SortStableFunc(stations, func(a, b Station) int {
		return cmp.Compare(rank(a), rank(b))
	})
	return stations, nil
}

func rank(s Station) int {
	if s.Favorite {
		return 0
	}
	return 1
}

// SelectStream makes the named stream of the current station the selected
// one and returns its URL.
func (d *Directory) SelectStream(ctx context.Context, quality string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.Lock()
	if d.current == nil {
		d.mu.Unlock()
		return "", ErrNoCurrent
	}
	idx := d.current.streamIndex(quality)
	if idx < 0 {
		d.mu.Unlock()
		return "", fmt.Errorf("%w: %q on %s", ErrStreamNotFound, quality, d.current.Name)
	}
	d.streamIdx = idx
	st := d.current
	url := st.Streams[idx].URL
	d.mu.Unlock()

	d.persist(st, idx)
	return url, nil
}

// NextStream advances the current station to its next stream, wrapping
// around, and returns its URL. Used as the retry fallback.
func (d *Directory) NextStream(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return "", ErrNoCurrent
	}
	n := len(d.current.Streams)
	if n == 0 {
		return "", ErrNoStreams
	}
	d.streamIdx = (d.streamIdx + 1) % n
	next := d.current.Streams[d.streamIdx]
	d.logger.Debug("fallback stream", "station", d.current.Name, "stream", next.Name)
	return next.URL, nil
}

// Volume returns the persisted volume level.
func (d *Directory) Volume(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v, err := d.store.GetVolume()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", errmsg.OpVolumeLoad, err)
	}
	return v, nil
}

// SetVolume persists the volume level. The write is debounced.
func (d *Directory) SetVolume(ctx context.Context, v int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.store.SaveVolume(v)
	return nil
}

// Like marks a station as favorite.
func (d *Directory) Like(ctx context.Context, name string) error {
	return d.setFavorite(ctx, name, true)
}

// Dislike removes a station from favorites.
func (d *Directory) Dislike(ctx context.Context, name string) error {
	return d.setFavorite(ctx, name, false)
}

// IsFavorite reports whether name is a favorite.
func (d *Directory) IsFavorite(name string) (bool, error) {
	st, err := d.load(name)
	if err != nil {
		return false, err
	}
	return st.Favorite, nil
}

func (d *Directory) setFavorite(ctx context.Context, name string, favorite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := d.store.SetFavorite(name, favorite)
	if errors.Is(err, state.ErrStationNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpFavoriteToggle, err)
	}

	d.mu.Lock()
	if d.current != nil && d.current.Name == name {
		d.current.Favorite = favorite
	}
	d.mu.Unlock()
	return nil
}

func (d *Directory) load(name string) (*Station, error) {
	r, err := d.store.GetStation(name)
	if errors.Is(err, state.ErrStationNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errmsg.OpStationResolve, err)
	}
	st := fromRecord(*r)
	return &st, nil
}

func (d *Directory) persist(st *Station, idx int) {
	var quality string
	if idx < len(st.Streams) {
		quality = st.Streams[idx].Name
	}
	if err := d.store.SaveLastStation(st.Name, quality); err != nil {
		d.logger.Warn("persist last station failed", "station", st.Name, "error", err)
	}
}
