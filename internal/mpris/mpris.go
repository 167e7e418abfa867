//go:build linux

package mpris

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/onair/internal/command"
	"github.com/llehouerou/onair/internal/logging"
	"github.com/llehouerou/onair/internal/playback"
)

const commandTimeout = 10 * time.Second

// Adapter exposes the player on the session bus so media keys and desktop
// widgets can control it.
type Adapter struct {
	server *server.Server
	logger *slog.Logger
}

// New creates and starts a new MPRIS adapter.
func New(commands Commands, stations Stations, logger *slog.Logger) (*Adapter, error) {
	logger = logging.Component(logger, "mpris")
	a := &Adapter{logger: logger}

	rootAdapter := &rootAdapter{}
	playerAdapter := &playerAdapter{commands: commands, stations: stations, logger: logger}

	a.server = server.NewServer(busName, rootAdapter, playerAdapter)

	// Start the server in background
	go func() {
		if err := a.server.Listen(); err != nil {
			logger.Warn("mpris server stopped", "error", err)
		}
	}()

	return a, nil
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	return a.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - the daemon manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil // Track list interface not implemented
}

func (r *rootAdapter) Identity() (string, error) {
	return identity, nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/mp3"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter.
// Every control goes through the command dispatcher, so a busy player
// rejects media keys the same way it rejects other clients.
type playerAdapter struct {
	commands Commands
	stations Stations
	logger   *slog.Logger
}

func (p *playerAdapter) run(kind command.Kind, payload any) (command.Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	res, err := p.commands.Dispatch(ctx, command.Command{Kind: kind, Payload: payload})
	if err != nil {
		p.logger.Debug("media key command failed", "kind", kind, "error", err)
	}
	return res, err
}

func (p *playerAdapter) status() playback.Status {
	res, err := p.run(command.KindStatus, nil)
	if err != nil {
		return playback.StatusStopped
	}
	return res.Status
}

func (p *playerAdapter) Next() error {
	_, err := p.run(command.KindNext, nil)
	return err
}

func (p *playerAdapter) Previous() error {
	_, err := p.run(command.KindPrev, nil)
	return err
}

// Pause stops the stream; live radio cannot be paused.
func (p *playerAdapter) Pause() error {
	if !p.status().IsActive() {
		return nil
	}
	_, err := p.run(command.KindStop, nil)
	return err
}

func (p *playerAdapter) PlayPause() error {
	_, err := p.run(command.KindPlayPause, nil)
	return err
}

func (p *playerAdapter) Stop() error {
	_, err := p.run(command.KindStop, nil)
	return err
}

func (p *playerAdapter) Play() error {
	if p.status().IsActive() {
		return nil
	}
	_, err := p.run(command.KindPlayPause, nil)
	return err
}

func (p *playerAdapter) Seek(_ types.Microseconds) error {
	return nil // Not supported on live streams
}

func (p *playerAdapter) SetPosition(_ string, _ types.Microseconds) error {
	return nil // Not supported on live streams
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	return playbackStatus(p.status()), nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	st, ok := p.stations.Current()
	if !ok {
		return types.Metadata{}, nil
	}

	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(st.Name)),
		Album:   st.DisplayName(),
		Title:   st.DisplayName(),
	}

	res, err := p.run(command.KindMetadata, nil)
	if err == nil {
		if title, ok := res.Metadata.StreamTitle(); ok {
			artist, song := splitStreamTitle(title)
			meta.Title = song
			if artist != "" {
				meta.Artist = []string{artist}
			}
		}
	}
	if st.Image != "" {
		meta.ArtUrl = st.Image
	}

	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	res, err := p.run(command.KindVolume, nil)
	if err != nil {
		return 0, err
	}
	return float64(res.Volume) / 100, nil
}

func (p *playerAdapter) SetVolume(v float64) error {
	_, err := p.run(command.KindVolume, int(math.Round(v*100)))
	return err
}

func (p *playerAdapter) Position() (int64, error) {
	return 0, nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	_, ok := p.stations.Current()
	return ok, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

func formatTrackID(name string) string {
	h := fnv.New64a()
	h.Write([]byte(name))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
