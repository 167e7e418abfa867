package playback

import (
	"context"
)

// Service defines the playback controller contract.
type Service interface {
	// Playback control
	Play(url string)
	Stop() bool

	// State queries
	Status() Status
	Attempts() int

	// Event subscription
	Subscribe() *Subscription

	// Lifecycle
	Close() error
}

// Publisher receives every status change.
type Publisher interface {
	PublishStatus(ctx context.Context, status Status) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, status Status) error

func (f PublisherFunc) PublishStatus(ctx context.Context, status Status) error {
	return f(ctx, status)
}

// Candidates provides the stream to retry with after a failure.
type Candidates interface {
	NextStream(ctx context.Context) (string, error)
}
