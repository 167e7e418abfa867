package mpris

import (
	"context"
	"errors"
	"strings"

	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/onair/internal/command"
	"github.com/llehouerou/onair/internal/playback"
	"github.com/llehouerou/onair/internal/station"
)

const (
	busName  = "onair"
	identity = "onair"
)

// ErrUnsupported is returned by New where MPRIS has no session bus to live on.
var ErrUnsupported = errors.New("mpris is only available on linux")

// Commands is the dispatcher the adapter routes controls through.
type Commands interface {
	Dispatch(ctx context.Context, cmd command.Command) (command.Result, error)
}

// Stations reports the current station for metadata.
type Stations interface {
	Current() (*station.Station, bool)
}

func playbackStatus(s playback.Status) types.PlaybackStatus {
	switch s {
	case playback.StatusPlaying, playback.StatusBuffering:
		return types.PlaybackStatusPlaying
	case playback.StatusStopped, playback.StatusError:
		return types.PlaybackStatusStopped
	}
	return types.PlaybackStatusStopped
}

// splitStreamTitle splits "Artist - Title". Without a separator the whole
// string is the title.
func splitStreamTitle(s string) (artist, title string) {
	artist, title, ok := strings.Cut(s, " - ")
	if !ok {
		return "", strings.TrimSpace(s)
	}
	return strings.TrimSpace(artist), strings.TrimSpace(title)
}
