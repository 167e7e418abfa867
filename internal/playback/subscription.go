package playback

const eventBufferSize = 16

// Subscription provides event channels for a subscriber.
type Subscription struct {
	StatusChanged <-chan StatusChange
	Retrying      <-chan RetryEvent
	Done          <-chan struct{}

	// Internal write channels
	statusCh chan StatusChange
	retryCh  chan RetryEvent
	doneCh   chan struct{}
}

// newSubscription creates a new subscription with buffered channels.
func newSubscription() *Subscription {
	s := &Subscription{
		statusCh: make(chan StatusChange, eventBufferSize),
		retryCh:  make(chan RetryEvent, eventBufferSize),
		doneCh:   make(chan struct{}),
	}
	s.StatusChanged = s.statusCh
	s.Retrying = s.retryCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	close(s.doneCh)
}

// sendStatus sends a status change event (non-blocking).
func (s *Subscription) sendStatus(e StatusChange) {
	select {
	case s.statusCh <- e:
	default:
		// Drop if buffer full
	}
}

// sendRetry sends a retry event (non-blocking).
func (s *Subscription) sendRetry(e RetryEvent) {
	select {
	case s.retryCh <- e:
	default:
	}
}
