package station

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/onair/internal/config"
	"github.com/llehouerou/onair/internal/state"
)

func testStations() []config.StationConfig {
	return []config.StationConfig{
		{
			Name:  "groovesalad",
			Title: "Groove Salad",
			Streams: []config.StreamConfig{
				{Name: "high", URL: "http://a/high"},
				{Name: "low", URL: "http://a/low"},
				{Name: "aac", URL: "http://a/aac"},
			},
		},
		{
			Name:    "dronezone",
			Title:   "Drone Zone",
			Streams: []config.StreamConfig{{Name: "high", URL: "http://b/high"}},
		},
		{Name: "silent", Title: "Silent"},
	}
}

func newTestDirectory(t *testing.T) (*Directory, *state.Manager) {
	t.Helper()
	store, err := state.OpenPath(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	d := NewDirectory(store)
	require.NoError(t, d.Seed(context.Background(), testStations()))
	return d, store
}

func TestRecordsFromConfig(t *testing.T) {
	records := RecordsFromConfig([]config.StationConfig{
		{Name: "a", Streams: []config.StreamConfig{{URL: "http://x"}, {Name: "empty"}}},
		{Name: ""},
		{Name: "a", Title: "duplicate"},
	})

	require.Len(t, records, 1)
	require.Len(t, records[0].Streams, 1)
	assert.Equal(t, "http://x", records[0].Streams[0].Name, "unnamed stream uses its URL")
}

func TestSelect(t *testing.T) {
	d, store := newTestDirectory(t)
	ctx := context.Background()

	st, err := d.Select(ctx, "groovesalad")
	require.NoError(t, err)
	assert.Equal(t, "Groove Salad", st.Title)

	primary, err := st.Primary()
	require.NoError(t, err)
	assert.Equal(t, "http://a/high", primary.URL)
	assert.Equal(t, "groovesalad", d.CurrentName())

	ps, err := store.GetPlayerState()
	require.NoError(t, err)
	require.NotNil(t, ps)
	assert.Equal(t, "groovesalad", ps.LastStation)
	assert.Equal(t, "high", ps.StreamName)
}

func TestSelect_Unknown(t *testing.T) {
	d, _ := newTestDirectory(t)

	_, err := d.Select(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, d.CurrentName(), "failed resolve leaves selection unchanged")
}

func TestSelect_NoStreamsLeavesSelection(t *testing.T) {
	d, store := newTestDirectory(t)
	ctx := context.Background()

	_, err := d.Select(ctx, "dronezone")
	require.NoError(t, err)

	_, err = d.Select(ctx, "silent")
	require.ErrorIs(t, err, ErrNoStreams)
	assert.Equal(t, "dronezone", d.CurrentName())

	cur, err := d.CurrentStream()
	require.NoError(t, err)
	assert.Equal(t, "http://b/high", cur.URL)

	ps, err := store.GetPlayerState()
	require.NoError(t, err)
	require.NotNil(t, ps)
	assert.Equal(t, "dronezone", ps.LastStation)
	assert.Equal(t, "high", ps.StreamName)
}

func TestPrimary_NoStreams(t *testing.T) {
	st := Station{Name: "silent"}
	_, err := st.Primary()
	assert.ErrorIs(t, err, ErrNoStreams)
}

func TestNextStream_Rotates(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	_, err := d.NextStream(ctx)
	require.ErrorIs(t, err, ErrNoCurrent)

	_, err = d.Select(ctx, "groovesalad")
	require.NoError(t, err)

	var got []string
	for range 4 {
		url, err := d.NextStream(ctx)
		require.NoError(t, err)
		got = append(got, url)
	}
	assert.Equal(t, []string{"http://a/low", "http://a/aac", "http://a/high", "http://a/low"}, got)

	cur, err := d.CurrentStream()
	require.NoError(t, err)
	assert.Equal(t, "low", cur.Name)
}

func TestNextStream_NoStreams(t *testing.T) {
	d, store := newTestDirectory(t)
	ctx := context.Background()

	_, err := d.Select(ctx, "dronezone")
	require.NoError(t, err)

	// The restored station lost its streams in the new config.
	stations := testStations()
	stations[1].Streams = nil
	restored := NewDirectory(store)
	require.NoError(t, restored.Seed(ctx, stations))
	require.Equal(t, "dronezone", restored.CurrentName())

	_, err = restored.NextStream(ctx)
	assert.ErrorIs(t, err, ErrNoStreams)
}

func TestSelectStream(t *testing.T) {
	d, store := newTestDirectory(t)
	ctx := context.Background()

	_, err := d.SelectStream(ctx, "low")
	require.ErrorIs(t, err, ErrNoCurrent)

	_, err = d.Select(ctx, "groovesalad")
	require.NoError(t, err)

	url, err := d.SelectStream(ctx, "low")
	require.NoError(t, err)
	assert.Equal(t, "http://a/low", url)

	ps, err := store.GetPlayerState()
	require.NoError(t, err)
	assert.Equal(t, "low", ps.StreamName)

	_, err = d.SelectStream(ctx, "ultra")
	assert.ErrorIs(t, err, ErrStreamNotFound)
}

func TestSeed_RestoresLastSelection(t *testing.T) {
	d, store := newTestDirectory(t)
	ctx := context.Background()

	_, err := d.Select(ctx, "groovesalad")
	require.NoError(t, err)
	_, err = d.SelectStream(ctx, "aac")
	require.NoError(t, err)

	restored := NewDirectory(store)
	require.NoError(t, restored.Seed(ctx, testStations()))
	assert.Equal(t, "groovesalad", restored.CurrentName())

	cur, err := restored.CurrentStream()
	require.NoError(t, err)
	assert.Equal(t, "aac", cur.Name)
}

func TestSeed_LastStationRemoved(t *testing.T) {
	d, store := newTestDirectory(t)
	ctx := context.Background()

	_, err := d.Select(ctx, "dronezone")
	require.NoError(t, err)

	restored := NewDirectory(store)
	require.NoError(t, restored.Seed(ctx, testStations()[:1]))
	assert.Empty(t, restored.CurrentName())
}

func TestNames_CatalogOrder(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()
	require.NoError(t, d.Like(ctx, "silent"))

	names, err := d.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"groovesalad", "dronezone", "silent"}, names)
}

func TestStations_FavoritesFirst(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()
	require.NoError(t, d.Like(ctx, "silent"))

	stations, err := d.Stations(ctx)
	require.NoError(t, err)
	require.Len(t, stations, 3)
	assert.Equal(t, "silent", stations[0].Name)
	assert.True(t, stations[0].Favorite)
	assert.Equal(t, "groovesalad", stations[1].Name)
	assert.Equal(t, "dronezone", stations[2].Name)
}

func TestLikeDislike(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	_, err := d.Select(ctx, "dronezone")
	require.NoError(t, err)

	require.NoError(t, d.Like(ctx, "dronezone"))
	fav, err := d.IsFavorite("dronezone")
	require.NoError(t, err)
	assert.True(t, fav)

	cur, ok := d.Current()
	require.True(t, ok)
	assert.True(t, cur.Favorite, "current station copy reflects favorite")

	require.NoError(t, d.Dislike(ctx, "dronezone"))
	fav, err = d.IsFavorite("dronezone")
	require.NoError(t, err)
	assert.False(t, fav)

	assert.ErrorIs(t, d.Like(ctx, "nope"), ErrNotFound)
}

func TestVolume(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	v, err := d.Volume(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.DefaultVolume, v)

	require.NoError(t, d.SetVolume(ctx, 40))
	v, err = d.Volume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, v, "pending debounced value is visible")
}

func TestCanceledContext(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Select(ctx, "groovesalad")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = d.Names(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
