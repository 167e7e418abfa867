// Package playback drives the engine through its retry/status state machine.
package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/llehouerou/onair/internal/logging"
	"github.com/llehouerou/onair/internal/player"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 500 * time.Millisecond

	publishTimeout   = 5 * time.Second
	candidateTimeout = 5 * time.Second
)

// Verify Controller implements Service at compile time.
var _ Service = (*Controller)(nil)

// Controller turns engine events into a Status and retries failed streams
// with the next candidate, up to MaxAttempts times per failure run.
type Controller struct {
	engine     player.Interface
	candidates Candidates
	logger     *slog.Logger

	maxAttempts int
	retryDelay  time.Duration

	// opMu serializes engine.Play/Stop issued by the controller, so a
	// retry cannot start a stream after a concurrent Stop.
	opMu sync.Mutex

	// publishMu keeps publication in the order status changes happen.
	publishMu  sync.Mutex
	publishers []Publisher

	mu         sync.Mutex
	status     Status
	attempts   int
	generation uint64
	retryTimer *time.Timer
	closed     bool

	subs   []*Subscription
	subsMu sync.RWMutex
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logging.Component(l, "playback")
	}
}

// WithRetry sets the retry budget and delay. Non-positive values keep the
// defaults.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(c *Controller) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if delay > 0 {
			c.retryDelay = delay
		}
	}
}

// WithPublisher appends a status publisher.
func WithPublisher(p Publisher) Option {
	return func(c *Controller) {
		c.publishers = append(c.publishers, p)
	}
}

// New creates a controller and registers it on engine's events.
func New(engine player.Interface, candidates Candidates, opts ...Option) *Controller {
	c := &Controller{
		engine:      engine,
		candidates:  candidates,
		logger:      logging.NewNop(),
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		status:      StatusStopped,
	}
	for _, opt := range opts {
		opt(c)
	}

	engine.On(player.EventPlay, c.handlePlay)
	engine.On(player.EventPlaying, c.handlePlaying)
	engine.On(player.EventError, c.handleError)
	engine.On(player.EventAbort, c.handleAbort)
	return c
}

// AddPublisher appends a status publisher after construction.
func (c *Controller) AddPublisher(p Publisher) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	c.publishers = append(c.publishers, p)
}

// Play starts url on the engine, cancelling any pending retry.
func (c *Controller) Play(url string) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	c.cancelRetryLocked()
	c.mu.Unlock()

	c.engine.Play(url)
}

// Stop stops the engine. It always returns true.
func (c *Controller) Stop() bool {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.engine.Stop()
}

// Status returns the current status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Attempts returns the number of failures in the current run.
func (c *Controller) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Subscribe creates a new event subscription.
func (c *Controller) Subscribe() *Subscription {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	sub := newSubscription()
	c.subs = append(c.subs, sub)
	return sub
}

// Close cancels any pending retry and closes subscriptions.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cancelRetryLocked()
	c.mu.Unlock()

	c.subsMu.Lock()
	for _, sub := range c.subs {
		sub.close()
	}
	c.subs = nil
	c.subsMu.Unlock()

	return nil
}

func (c *Controller) handlePlay(player.Event) {
	c.transition(func() {
		c.status = StatusBuffering
	})
}

func (c *Controller) handlePlaying(player.Event) {
	c.transition(func() {
		c.attempts = 0
		c.status = StatusPlaying
	})
}

func (c *Controller) handleAbort(player.Event) {
	c.transition(func() {
		c.attempts = 0
		c.cancelRetryLocked()
		c.status = StatusStopped
	})
}

func (c *Controller) handleError(ev player.Event) {
	var retry *RetryEvent
	c.transition(func() {
		if c.status == StatusStopped || c.closed {
			c.logger.Debug("ignoring error while stopped", "url", ev.URL, "error", ev.Err)
			return
		}
		c.attempts++
		if c.attempts > c.maxAttempts {
			c.logger.Warn("giving up on stream",
				"url", ev.URL, "attempts", c.attempts-1, "error", ev.Err)
			c.attempts = 0
			c.cancelRetryLocked()
			c.status = StatusError
			return
		}
		c.logger.Info("retrying stream",
			"url", ev.URL, "attempt", c.attempts, "max", c.maxAttempts, "error", ev.Err)
		c.scheduleRetryLocked()
		retry = &RetryEvent{Attempt: c.attempts, MaxAttempts: c.maxAttempts, Err: ev.Err}
	})

	if retry != nil {
		c.subsMu.RLock()
		for _, sub := range c.subs {
			sub.sendRetry(*retry)
		}
		c.subsMu.RUnlock()
	}
}

// scheduleRetryLocked replaces any pending retry. Requires c.mu.
func (c *Controller) scheduleRetryLocked() {
	c.cancelRetryLocked()
	gen := c.generation
	c.retryTimer = time.AfterFunc(c.retryDelay, func() {
		c.runRetry(gen)
	})
}

// cancelRetryLocked stops the pending retry and invalidates any retry
// already running. Requires c.mu.
func (c *Controller) cancelRetryLocked() {
	c.generation++
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

// stale reports whether a retry scheduled in gen must not run.
func (c *Controller) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.generation || c.status == StatusStopped || c.closed
}

func (c *Controller) runRetry(gen uint64) {
	if c.stale(gen) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), candidateTimeout)
	defer cancel()
	url, err := c.candidates.NextStream(ctx)
	if err != nil {
		c.logger.Warn("no stream to retry with", "error", err)
		c.transition(func() {
			if gen != c.generation {
				return
			}
			c.attempts = 0
			c.retryTimer = nil
			c.status = StatusError
		})
		return
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()
	if c.stale(gen) {
		return
	}
	c.mu.Lock()
	c.retryTimer = nil
	c.mu.Unlock()
	c.engine.Play(url)
}

// transition runs update under c.mu and publishes the status if it changed.
func (c *Controller) transition(update func()) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	prev := c.status
	update()
	cur := c.status
	c.mu.Unlock()

	if prev == cur {
		return
	}
	c.logger.Debug("status changed", "from", prev, "to", cur)
	c.publish(StatusChange{Previous: prev, Current: cur})
}

// publish delivers change to publishers in order, then to subscriptions.
// Requires c.publishMu.
func (c *Controller) publish(change StatusChange) {
	for _, p := range c.publishers {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := p.PublishStatus(ctx, change.Current); err != nil {
			c.logger.Warn("publish status failed", "status", change.Current, "error", err)
		}
		cancel()
	}

	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, sub := range c.subs {
		sub.sendStatus(change)
	}
}
