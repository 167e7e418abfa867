package player

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// DefaultStallTimeout is how long a stream may deliver no bytes before the
// session fails.
const DefaultStallTimeout = 15 * time.Second

// ErrStalled is reported when a connected stream stops delivering data.
var ErrStalled = errors.New("stream stalled")

// stallReader cancels the request when no bytes arrive for idle.
// Read must be called from a single goroutine.
type stallReader struct {
	r       io.Reader
	idle    time.Duration
	timer   *time.Timer
	once    sync.Once
	stalled chan struct{}
}

func newStallReader(r io.Reader, idle time.Duration, cancel context.CancelFunc) *stallReader {
	s := &stallReader{r: r, idle: idle, stalled: make(chan struct{})}
	s.timer = time.AfterFunc(idle, func() {
		s.once.Do(func() { close(s.stalled) })
		cancel()
	})
	return s
}

func (s *stallReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if n > 0 && !s.isStalled() {
		s.timer.Reset(s.idle)
	}
	return n, err
}

func (s *stallReader) isStalled() bool {
	select {
	case <-s.stalled:
		return true
	default:
		return false
	}
}

func (s *stallReader) stop() {
	s.timer.Stop()
}
