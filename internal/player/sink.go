package player

import (
	"context"
	"errors"

	"github.com/llehouerou/onair/internal/icy"
)

// ErrUnsupportedFormat is returned when a stream is not MP3.
var ErrUnsupportedFormat = errors.New("unsupported stream format")

// SinkHooks are the callbacks a sink reports through. Each may be called
// from any goroutine; none is called after Close returns and the sink's
// context is done, except for calls already in flight.
type SinkHooks struct {
	OnPlaying  func()
	OnError    func(error)
	OnMetadata func(icy.Metadata)
	// Tap receives every block of samples handed to the device.
	Tap func(samples [][2]float64)
}

// Sink is one audio pipeline bound to a stream URL.
type Sink interface {
	// Start begins fetching and decoding in the background.
	Start(ctx context.Context, hooks SinkHooks)
	// SetVolume applies a 0-100 volume level.
	SetVolume(v int)
	// Close releases the sink without blocking on its goroutines.
	Close()
}

// SinkFactory allocates a new sink for url.
type SinkFactory func(url string) Sink

// NowPlayingSink receives StreamTitle values.
type NowPlayingSink interface {
	PublishNowPlaying(ctx context.Context, title string) error
}

// NowPlayingSinks fans a title out to every sink in order.
type NowPlayingSinks []NowPlayingSink

// PublishNowPlaying calls each sink and joins their errors.
func (s NowPlayingSinks) PublishNowPlaying(ctx context.Context, title string) error {
	var errs []error
	for _, sink := range s {
		if err := sink.PublishNowPlaying(ctx, title); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
