// internal/player/mock.go
package player

import (
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/llehouerou/onair/internal/icy"
	"github.com/llehouerou/onair/internal/spectrum"
)

// Mock is a test double for Engine. Play and Stop emit EventPlay and
// EventAbort like the real engine; tests drive the rest with Emit.
type Mock struct {
	mu        sync.Mutex
	listeners map[EventKind][]Listener
	session   SessionInfo
	volume    int
	metadata  icy.Metadata
	audio     []byte
	playCalls []string
	stopCalls int
}

// NewMock creates a new mock engine for testing.
func NewMock() *Mock {
	return &Mock{
		listeners: make(map[EventKind][]Listener),
		volume:    100,
		metadata:  icy.Metadata{},
	}
}

func (m *Mock) On(kind EventKind, l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners[kind] = append(m.listeners[kind], l)
}

func (m *Mock) Play(url string) {
	m.mu.Lock()
	m.playCalls = append(m.playCalls, url)
	m.session = SessionInfo{ID: uuid.NewString(), URL: url, StartedAt: time.Now()}
	m.metadata = icy.Metadata{}
	id := m.session.ID
	m.mu.Unlock()

	m.Emit(Event{Kind: EventPlay, SessionID: id, URL: url})
}

func (m *Mock) Stop() bool {
	m.mu.Lock()
	m.stopCalls++
	id := m.session.ID
	m.session = SessionInfo{}
	m.metadata = icy.Metadata{}
	m.mu.Unlock()

	m.Emit(Event{Kind: EventAbort, SessionID: id})
	return true
}

func (m *Mock) SetVolume(v int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = clampVolume(v)
}

func (m *Mock) Volume() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *Mock) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Playing
}

func (m *Mock) Metadata() icy.Metadata {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.metadata)
}

func (m *Mock) AudioData() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.audio == nil || !m.session.Playing {
		return make([]byte, spectrum.Bins)
	}
	return append([]byte(nil), m.audio...)
}

func (m *Mock) Session() SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Test helpers

// Emit delivers ev to listeners. EventPlaying marks the session as playing.
func (m *Mock) Emit(ev Event) {
	m.mu.Lock()
	if ev.Kind == EventPlaying && m.session.ID != "" {
		m.session.Playing = true
	}
	if ev.SessionID == "" {
		ev.SessionID = m.session.ID
		ev.URL = m.session.URL
	}
	ls := append([]Listener(nil), m.listeners[ev.Kind]...)
	m.mu.Unlock()

	for _, l := range ls {
		l(ev)
	}
}

// SetMetadata replaces the metadata snapshot.
func (m *Mock) SetMetadata(md icy.Metadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata = maps.Clone(md)
}

// SetAudioData sets the bytes returned by AudioData while playing.
func (m *Mock) SetAudioData(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audio = b
}

// PlayCalls returns the URLs passed to Play.
func (m *Mock) PlayCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.playCalls...)
}

// StopCalls returns how many times Stop was called.
func (m *Mock) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
