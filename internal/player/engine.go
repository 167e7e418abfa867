// Package player plays a single network audio stream at a time and reports
// its lifecycle through events.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/llehouerou/onair/internal/icy"
	"github.com/llehouerou/onair/internal/logging"
	"github.com/llehouerou/onair/internal/spectrum"
)

const nowPlayingTimeout = 10 * time.Second

// SessionInfo describes the live session.
type SessionInfo struct {
	ID        string
	URL       string
	StartedAt time.Time
	Playing   bool
}

type session struct {
	id        string
	url       string
	sink      Sink
	cancel    context.CancelFunc
	startedAt time.Time
	playing   bool
}

// Engine owns at most one live session. Safe for concurrent use.
type Engine struct {
	// emitMu serializes event delivery and session swaps, so listeners never
	// see an event of a session torn down before it.
	emitMu    sync.Mutex
	listeners map[EventKind][]Listener

	mu       sync.Mutex
	current  *session
	metadata icy.Metadata
	volume   int

	analyzer atomic.Pointer[spectrum.Analyzer]

	newSink      SinkFactory
	httpClient   *http.Client
	stallTimeout time.Duration
	nowPlaying   NowPlayingSink
	logger       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.Component(l, "player")
	}
}

// WithSinkFactory replaces the audio pipeline, mainly for tests.
func WithSinkFactory(f SinkFactory) Option {
	return func(e *Engine) {
		e.newSink = f
	}
}

// WithHTTPClient sets the client used by the default stream sink.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		e.httpClient = c
	}
}

// WithStallTimeout fails a session whose stream delivers no data for d.
func WithStallTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.stallTimeout = d
		}
	}
}

// WithNowPlaying forwards StreamTitle values to s. PublishNowPlaying runs
// on the stream reader goroutine and should return quickly.
func WithNowPlaying(s NowPlayingSink) Option {
	return func(e *Engine) {
		e.nowPlaying = s
	}
}

// WithVolume sets the initial volume level.
func WithVolume(v int) Option {
	return func(e *Engine) {
		e.volume = clampVolume(v)
	}
}

// NewEngine creates an idle engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		listeners:    make(map[EventKind][]Listener),
		metadata:     icy.Metadata{},
		volume:       100,
		stallTimeout: DefaultStallTimeout,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.newSink == nil {
		e.newSink = streamSinkFactory(e.httpClient, e.stallTimeout, e.logger)
	}
	return e
}

// On registers l for events of kind. Listeners run in registration order.
func (e *Engine) On(kind EventKind, l Listener) {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	e.listeners[kind] = append(e.listeners[kind], l)
}

// Play tears down the current session without emitting EventAbort and
// starts a new one for url. EventPlay is delivered before Play returns;
// EventPlaying or EventError follow asynchronously.
func (e *Engine) Play(url string) {
	e.emitMu.Lock()

	e.mu.Lock()
	e.teardownLocked()
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:        uuid.NewString(),
		url:       url,
		sink:      e.newSink(url),
		cancel:    cancel,
		startedAt: time.Now(),
	}
	e.current = s
	e.metadata = icy.Metadata{}
	// Under e.mu so a concurrent SetVolume cannot be overwritten by a stale level.
	s.sink.SetVolume(e.volume)
	e.mu.Unlock()

	if a := e.analyzer.Load(); a != nil {
		a.Reset()
	}

	e.logger.Info("play", "session", s.id, "url", url)
	e.deliverLocked(Event{Kind: EventPlay, SessionID: s.id, URL: url})
	e.emitMu.Unlock()

	s.sink.Start(ctx, e.hooks(s))
}

// Stop halts the current session, if any, and emits EventAbort.
// It always returns true.
func (e *Engine) Stop() bool {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.mu.Lock()
	var ev Event
	if e.current != nil {
		ev = Event{SessionID: e.current.id, URL: e.current.url}
	}
	ev.Kind = EventAbort
	e.teardownLocked()
	e.metadata = icy.Metadata{}
	e.mu.Unlock()

	e.logger.Info("stop", "session", ev.SessionID)
	e.deliverLocked(ev)
	return true
}

// teardownLocked releases the current sink. Requires e.mu.
func (e *Engine) teardownLocked() {
	if e.current == nil {
		return
	}
	e.current.cancel()
	e.current.sink.Close()
	e.current = nil
}

// SetVolume clamps v to 0-100 and applies it to the live session, if any.
func (e *Engine) SetVolume(v int) {
	v = clampVolume(v)

	e.mu.Lock()
	e.volume = v
	s := e.current
	e.mu.Unlock()

	if s != nil {
		s.sink.SetVolume(v)
	}
}

// Volume returns the current volume level.
func (e *Engine) Volume() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// IsPlaying reports whether the live session has produced audio.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil && e.current.playing
}

// Metadata returns a copy of the latest metadata block. Empty when idle.
func (e *Engine) Metadata() icy.Metadata {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.metadata)
}

// Session returns the live session, or the zero value when idle.
func (e *Engine) Session() SessionInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return SessionInfo{}
	}
	return SessionInfo{
		ID:        e.current.id,
		URL:       e.current.url,
		StartedAt: e.current.startedAt,
		Playing:   e.current.playing,
	}
}

// AudioData returns spectrum.Bins bytes of frequency data. The analyzer is
// created on the first call made while playing; until it has samples, and
// whenever nothing is playing, the result is all zeros.
func (e *Engine) AudioData() (data []byte) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("audio analysis failed", "panic", fmt.Sprint(r))
			data = make([]byte, spectrum.Bins)
		}
	}()

	if !e.IsPlaying() {
		return make([]byte, spectrum.Bins)
	}
	a := e.analyzer.Load()
	if a == nil {
		e.analyzer.CompareAndSwap(nil, spectrum.New())
		a = e.analyzer.Load()
	}
	return a.Bytes()
}

func (e *Engine) hooks(s *session) SinkHooks {
	return SinkHooks{
		OnPlaying: func() {
			e.emitFor(s, Event{Kind: EventPlaying}, func() {
				s.playing = true
			})
		},
		OnError: func(err error) {
			e.emitFor(s, Event{Kind: EventError, Err: err}, nil)
		},
		OnMetadata: func(m icy.Metadata) {
			e.receiveMetadata(s, m)
		},
		Tap: func(samples [][2]float64) {
			if a := e.analyzer.Load(); a != nil {
				a.Write(samples)
			}
		},
	}
}

// emitFor delivers ev if s is still the live session. update runs under
// e.mu before delivery.
func (e *Engine) emitFor(s *session, ev Event, update func()) {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.mu.Lock()
	live := e.current == s
	if live && update != nil {
		update()
	}
	e.mu.Unlock()

	ev.SessionID = s.id
	ev.URL = s.url
	if !live {
		e.logger.Debug("dropping event of stale session", "event", ev.Kind, "session", s.id)
		return
	}
	if ev.Err != nil {
		e.logger.Warn("stream failed", "session", s.id, "url", s.url, "error", ev.Err)
	} else {
		e.logger.Info(ev.Kind.String(), "session", s.id, "url", s.url)
	}
	e.deliverLocked(ev)
}

// deliverLocked calls listeners of ev.Kind in order. Requires e.emitMu.
func (e *Engine) deliverLocked(ev Event) {
	for _, l := range e.listeners[ev.Kind] {
		l(ev)
	}
}

func (e *Engine) receiveMetadata(s *session, m icy.Metadata) {
	e.mu.Lock()
	if e.current != s {
		e.mu.Unlock()
		return
	}
	e.metadata = maps.Clone(m)
	e.mu.Unlock()

	title, ok := m.StreamTitle()
	if !ok {
		e.logger.Debug("metadata without stream title", "session", s.id)
		return
	}
	e.logger.Debug("stream title", "session", s.id, "title", title)
	if e.nowPlaying == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), nowPlayingTimeout)
	defer cancel()
	if err := e.nowPlaying.PublishNowPlaying(ctx, title); err != nil {
		e.logger.Warn("publish now playing failed", "title", title, "error", err)
	}
}
