package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/onair/internal/command"
	"github.com/llehouerou/onair/internal/config"
	"github.com/llehouerou/onair/internal/coordinator"
	"github.com/llehouerou/onair/internal/icy"
	"github.com/llehouerou/onair/internal/playback"
	"github.com/llehouerou/onair/internal/player"
	"github.com/llehouerou/onair/internal/server"
	"github.com/llehouerou/onair/internal/state"
	"github.com/llehouerou/onair/internal/station"
)

type daemon struct {
	engine *player.Mock
	hub    *server.Hub
	client *Client
}

func startDaemon(t *testing.T) *daemon {
	t.Helper()
	ctx := context.Background()

	store, err := state.OpenPath(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	dir := station.NewDirectory(store)
	require.NoError(t, dir.Seed(ctx, []config.StationConfig{
		{Name: "groovesalad", Title: "Groove Salad", Streams: []config.StreamConfig{
			{Name: "high", URL: "http://a/high"},
			{Name: "low", URL: "http://a/low"},
		}},
		{Name: "dronezone", Title: "Drone Zone", Streams: []config.StreamConfig{{Name: "high", URL: "http://b/high"}}},
	}))

	engine := player.NewMock()
	coord := coordinator.New(dir)
	hub := server.NewHub(coord, nil)
	controller := playback.New(engine, dir,
		playback.WithPublisher(coord),
		playback.WithPublisher(hub),
	)
	t.Cleanup(func() { controller.Close() })
	dispatcher := command.NewDispatcher(controller, engine, dir)

	srv := server.New(server.Backend{
		Commands: dispatcher,
		Stations: dir,
		Titles:   coord,
		Sessions: engine,
		Retries:  controller,
	}, hub, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(hub.Close)

	c, err := New(strings.TrimPrefix(ts.URL, "http://"))
	require.NoError(t, err)
	return &daemon{engine: engine, hub: hub, client: c}
}

func TestClient_PlayAndStatus(t *testing.T) {
	d := startDaemon(t)
	ctx := context.Background()

	resp, err := d.client.Command(ctx, command.KindPlay, "dronezone")
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, playback.StatusBuffering, resp.Status)
	assert.Equal(t, []string{"http://b/high"}, d.engine.PlayCalls())

	d.engine.Emit(player.Event{Kind: player.EventPlaying})

	status, err := d.client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, playback.StatusPlaying, status.Status)
	assert.Equal(t, "dronezone", status.Station)
	assert.Equal(t, "Drone Zone", status.StationTitle)
	assert.Equal(t, "high", status.Stream)
	assert.Equal(t, "Drone Zone", status.Title)

	title, err := d.client.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, coordinator.IndicatorPlaying, title.Indicator)

	// Playing the same station again stops it.
	resp, err = d.client.Command(ctx, command.KindPlay, "dronezone")
	require.NoError(t, err)
	assert.Equal(t, playback.StatusStopped, resp.Status)
}

func TestClient_CommandError(t *testing.T) {
	d := startDaemon(t)

	_, err := d.client.Command(context.Background(), command.KindPlay, "nope")
	require.Error(t, err)
	var cerr *CommandError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, command.KindPlay, cerr.Kind)
	assert.False(t, cerr.Busy())
	assert.Contains(t, cerr.Message, "station not found")

	_, err = d.client.Command(context.Background(), "dance", nil)
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Message, "unknown command")
}

func TestClient_Volume(t *testing.T) {
	d := startDaemon(t)
	ctx := context.Background()

	resp, err := d.client.Command(ctx, command.KindVolume, 40)
	require.NoError(t, err)
	require.NotNil(t, resp.Volume)
	assert.Equal(t, 40, *resp.Volume)

	resp, err = d.client.Command(ctx, command.KindVolumeUp, nil)
	require.NoError(t, err)
	assert.Equal(t, 45, *resp.Volume)
	assert.Equal(t, 45, d.engine.Volume())
}

func TestClient_StationsAndFavorites(t *testing.T) {
	d := startDaemon(t)
	ctx := context.Background()

	require.NoError(t, d.client.Like(ctx, "dronezone"))

	stations, err := d.client.Stations(ctx)
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, "dronezone", stations[0].Name, "favorites first")
	assert.True(t, stations[0].Favorite)

	require.NoError(t, d.client.Dislike(ctx, "dronezone"))
	stations, err = d.client.Stations(ctx)
	require.NoError(t, err)
	assert.Equal(t, "groovesalad", stations[0].Name)

	err = d.client.Like(ctx, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "station not found")
}

func TestClient_AudioData(t *testing.T) {
	d := startDaemon(t)

	data, err := d.client.AudioData(context.Background())
	require.NoError(t, err)
	assert.Len(t, data, 64)
}

func TestClient_Watch(t *testing.T) {
	d := startDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan server.Event, 8)
	done := make(chan error, 1)
	go func() {
		done <- d.client.Watch(ctx, func(ev server.Event) { events <- ev })
	}()
	require.Eventually(t, func() bool { return d.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	_, err := d.client.Command(ctx, command.KindPlay, "groovesalad")
	require.NoError(t, err)
	d.engine.SetMetadata(icy.Metadata{icy.KeyStreamTitle: "A - B"})
	require.NoError(t, d.hub.PublishNowPlaying(ctx, "A - B"))

	select {
	case ev := <-events:
		assert.Equal(t, server.EventStatus, ev.Type)
		require.NotNil(t, ev.Status)
		assert.Equal(t, playback.StatusBuffering, *ev.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("no status event")
	}
	select {
	case ev := <-events:
		assert.Equal(t, server.EventNowPlaying, ev.Type)
		assert.Equal(t, "A - B", ev.Song)
	case <-time.After(2 * time.Second):
		t.Fatal("no now playing event")
	}

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return")
	}
}

func TestClient_NotRunning(t *testing.T) {
	ts := httptest.NewServer(nil)
	addr := strings.TrimPrefix(ts.URL, "http://")
	ts.Close()

	c, err := New(addr)
	require.NoError(t, err)
	_, err = c.Status(context.Background())
	require.ErrorIs(t, err, ErrNotRunning)
}
