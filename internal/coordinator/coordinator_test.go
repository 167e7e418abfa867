package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/onair/internal/lastfm"
	"github.com/llehouerou/onair/internal/notify"
	"github.com/llehouerou/onair/internal/playback"
	"github.com/llehouerou/onair/internal/station"
)

type fixedStations struct{ st *station.Station }

func (f fixedStations) Current() (*station.Station, bool) { return f.st, f.st != nil }

type recordingNotifier struct {
	mu     sync.Mutex
	sent   []notify.Notification
	nextID uint32
	err    error
}

func (r *recordingNotifier) Notify(n notify.Notification) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	r.sent = append(r.sent, n)
	if n.ReplacesID != 0 {
		return n.ReplacesID, nil
	}
	r.nextID++
	return r.nextID, nil
}

func (r *recordingNotifier) Close(uint32) error { return nil }

type recordingUpdater struct {
	mu     sync.Mutex
	tracks []lastfm.Track
}

func (r *recordingUpdater) UpdateNowPlaying(t lastfm.Track) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracks = append(r.tracks, t)
	return nil
}

var groove = &station.Station{Name: "groovesalad", Title: "Groove Salad"}

func TestRenderTitle(t *testing.T) {
	tests := []struct {
		st     *station.Station
		status playback.Status
		want   Title
	}{
		{groove, playback.StatusBuffering, Title{Text: "Groove Salad - loading", Indicator: IndicatorLoading, Station: "groovesalad"}},
		{groove, playback.StatusPlaying, Title{Text: "Groove Salad", Indicator: IndicatorPlaying, Station: "groovesalad"}},
		{groove, playback.StatusStopped, Title{Text: "Groove Salad - stopped", Indicator: IndicatorStopped, Station: "groovesalad"}},
		{groove, playback.StatusError, Title{Text: "Groove Salad - error", Indicator: IndicatorError, Station: "groovesalad"}},
		{nil, playback.StatusPlaying, Title{Text: "onair", Indicator: IndicatorIdle}},
		{&station.Station{Name: "untitled"}, playback.StatusPlaying, Title{Text: "untitled", Indicator: IndicatorPlaying, Station: "untitled"}},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, RenderTitle(tt.st, tt.status))
		})
	}
}

func TestPublishStatus_TitleAndListeners(t *testing.T) {
	n := &recordingNotifier{}
	c := New(fixedStations{groove}, WithNotifier(n))
	assert.Equal(t, "onair", c.Title().Text)

	var seen []string
	c.OnTitle(func(t Title) { seen = append(seen, t.Text) })

	ctx := context.Background()
	require.NoError(t, c.PublishStatus(ctx, playback.StatusBuffering))
	require.NoError(t, c.PublishStatus(ctx, playback.StatusPlaying))

	assert.Equal(t, "Groove Salad", c.Title().Text)
	assert.Equal(t, []string{"Groove Salad - loading", "Groove Salad"}, seen)
	assert.Empty(t, n.sent, "no notification for normal transitions")
}

func TestPublishStatus_ErrorNotifies(t *testing.T) {
	n := &recordingNotifier{}
	c := New(fixedStations{groove}, WithNotifier(n))
	ctx := context.Background()

	require.NoError(t, c.PublishStatus(ctx, playback.StatusError))
	require.NoError(t, c.PublishStatus(ctx, playback.StatusError))

	require.Len(t, n.sent, 2)
	assert.Equal(t, "Groove Salad - error", n.sent[0].Title)
	assert.Equal(t, uint32(0), n.sent[0].ReplacesID)
	assert.Equal(t, uint32(1), n.sent[1].ReplacesID, "error notification replaced")
}

func TestPublishStatus_NotifierError(t *testing.T) {
	n := &recordingNotifier{err: errors.New("no bus")}
	c := New(fixedStations{groove}, WithNotifier(n))

	err := c.PublishStatus(context.Background(), playback.StatusError)
	require.Error(t, err)
	assert.Equal(t, IndicatorError, c.Title().Indicator, "title updated regardless")
}

func TestPublishNowPlaying(t *testing.T) {
	n := &recordingNotifier{}
	u := &recordingUpdater{}
	c := New(fixedStations{groove}, WithNotifier(n), WithNowPlayingUpdater(u))
	ctx := context.Background()

	require.NoError(t, c.PublishStatus(ctx, playback.StatusPlaying))
	require.NoError(t, c.PublishNowPlaying(ctx, "Boards of Canada - Roygbiv"))
	require.NoError(t, c.PublishNowPlaying(ctx, "Boards of Canada - Roygbiv"))
	require.NoError(t, c.PublishNowPlaying(ctx, "Station ID"))
	c.Wait()

	require.Len(t, n.sent, 2, "repeated title ignored")
	assert.Equal(t, "Groove Salad", n.sent[0].Title)
	assert.Equal(t, "Boards of Canada - Roygbiv", n.sent[0].Body)
	assert.Equal(t, uint32(1), n.sent[1].ReplacesID, "now playing notification replaced")

	assert.Equal(t, []lastfm.Track{{Artist: "Boards of Canada", Track: "Roygbiv"}}, u.tracks)
	assert.Equal(t, "Station ID", c.Title().Song)
}

func TestSongClearedWhenNotPlaying(t *testing.T) {
	c := New(fixedStations{groove})
	ctx := context.Background()

	require.NoError(t, c.PublishStatus(ctx, playback.StatusPlaying))
	require.NoError(t, c.PublishNowPlaying(ctx, "A - B"))
	assert.Equal(t, "A - B", c.Title().Song)

	require.NoError(t, c.PublishStatus(ctx, playback.StatusStopped))
	assert.Empty(t, c.Title().Song)

	// Same song after a restart is announced again.
	require.NoError(t, c.PublishStatus(ctx, playback.StatusPlaying))
	require.NoError(t, c.PublishNowPlaying(ctx, "A - B"))
	assert.Equal(t, "A - B", c.Title().Song)
}
