// Package coordinator reacts to status and now-playing changes: it keeps the
// display title current, raises desktop notifications and updates Last.fm.
package coordinator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/llehouerou/onair/internal/lastfm"
	"github.com/llehouerou/onair/internal/logging"
	"github.com/llehouerou/onair/internal/notify"
	"github.com/llehouerou/onair/internal/playback"
	"github.com/llehouerou/onair/internal/player"
	"github.com/llehouerou/onair/internal/station"
)

const (
	appTitle = "onair"

	nowPlayingTimeout = 5000 // ms
	errorTimeout      = 8000 // ms
)

// Indicator is the coarse state shown next to the title.
type Indicator string

const (
	IndicatorIdle    Indicator = "idle"
	IndicatorLoading Indicator = "loading"
	IndicatorPlaying Indicator = "playing"
	IndicatorStopped Indicator = "stopped"
	IndicatorError   Indicator = "error"
)

// Title is what a UI shows for the player.
type Title struct {
	Text      string    `json:"text"`
	Indicator Indicator `json:"indicator"`
	Station   string    `json:"station,omitempty"`
	Song      string    `json:"song,omitempty"`
}

// Stations reports the current station.
type Stations interface {
	Current() (*station.Station, bool)
}

// NowPlayingUpdater sends now-playing updates, typically Last.fm.
type NowPlayingUpdater interface {
	UpdateNowPlaying(track lastfm.Track) error
}

var (
	_ playback.Publisher    = (*Coordinator)(nil)
	_ player.NowPlayingSink = (*Coordinator)(nil)
)

// Coordinator is a status publisher and now-playing sink.
type Coordinator struct {
	stations Stations
	notifier notify.Notifier
	scrobble NowPlayingUpdater
	logger   *slog.Logger

	mu           sync.Mutex
	title        Title
	song         string
	nowPlayingID uint32
	errorID      uint32
	onTitle      []func(Title)

	wg sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logging.Component(l, "coordinator")
	}
}

// WithNotifier enables desktop notifications.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Coordinator) {
		c.notifier = n
	}
}

// WithNowPlayingUpdater forwards parsed titles to u.
func WithNowPlayingUpdater(u NowPlayingUpdater) Option {
	return func(c *Coordinator) {
		c.scrobble = u
	}
}

// New creates a coordinator.
func New(stations Stations, opts ...Option) *Coordinator {
	c := &Coordinator{
		stations: stations,
		notifier: notify.Nop(),
		logger:   logging.NewNop(),
		title:    Title{Text: appTitle, Indicator: IndicatorIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnTitle registers fn to receive every title change.
func (c *Coordinator) OnTitle(fn func(Title)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTitle = append(c.onTitle, fn)
}

// Title returns the current title.
func (c *Coordinator) Title() Title {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// PublishStatus renders the title for status and notifies on errors.
func (c *Coordinator) PublishStatus(_ context.Context, status playback.Status) error {
	st, _ := c.stations.Current()
	t := RenderTitle(st, status)

	c.mu.Lock()
	if status != playback.StatusPlaying {
		c.song = ""
	}
	t.Song = c.song
	c.title = t
	listeners := append([]func(Title){}, c.onTitle...)
	errorID := c.errorID
	c.mu.Unlock()

	c.logger.Info("status", "status", status, "title", t.Text)
	for _, fn := range listeners {
		fn(t)
	}

	if status != playback.StatusError {
		return nil
	}
	id, err := c.notifier.Notify(notify.Notification{
		Title:      t.Text,
		Body:       "The stream could not be played.",
		Icon:       "dialog-error",
		Timeout:    errorTimeout,
		ReplacesID: errorID,
		Urgency:    notify.UrgencyNormal,
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.errorID = id
	c.mu.Unlock()
	return nil
}

// PublishNowPlaying records a new stream title. Repeats of the current
// title are ignored.
func (c *Coordinator) PublishNowPlaying(_ context.Context, song string) error {
	st, _ := c.stations.Current()

	c.mu.Lock()
	if song == c.song {
		c.mu.Unlock()
		return nil
	}
	c.song = song
	c.title.Song = song
	t := c.title
	listeners := append([]func(Title){}, c.onTitle...)
	replaces := c.nowPlayingID
	c.mu.Unlock()

	c.logger.Info("now playing", "song", song)
	for _, fn := range listeners {
		fn(t)
	}

	if c.scrobble != nil {
		if track, ok := lastfm.ParseStreamTitle(song); ok {
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				if err := c.scrobble.UpdateNowPlaying(track); err != nil {
					c.logger.Warn("last.fm now playing failed", "artist", track.Artist, "track", track.Track, "error", err)
				}
			}()
		} else {
			c.logger.Debug("title not in artist - track form", "song", song)
		}
	}

	summary := appTitle
	if st != nil {
		summary = st.DisplayName()
	}
	id, err := c.notifier.Notify(notify.Notification{
		Title:      summary,
		Body:       song,
		Icon:       "audio-x-generic",
		Timeout:    nowPlayingTimeout,
		ReplacesID: replaces,
		Urgency:    notify.UrgencyLow,
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.nowPlayingID = id
	c.mu.Unlock()
	return nil
}

// Wait blocks until pending Last.fm updates finish.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// RenderTitle formats the title for a station and status.
func RenderTitle(st *station.Station, status playback.Status) Title {
	if st == nil {
		return Title{Text: appTitle, Indicator: IndicatorIdle}
	}
	name := st.DisplayName()
	t := Title{Station: st.Name}
	switch status {
	case playback.StatusBuffering:
		t.Text, t.Indicator = name+" - loading", IndicatorLoading
	case playback.StatusPlaying:
		t.Text, t.Indicator = name, IndicatorPlaying
	case playback.StatusStopped:
		t.Text, t.Indicator = name+" - stopped", IndicatorStopped
	case playback.StatusError:
		t.Text, t.Indicator = name+" - error", IndicatorError
	default:
		t.Text, t.Indicator = appTitle, IndicatorIdle
	}
	return t
}
