package player

import "fmt"

// EventKind identifies an engine lifecycle event.
type EventKind int

const (
	// EventPlay is emitted synchronously by Play, before any network I/O.
	EventPlay EventKind = iota
	// EventPlaying is emitted when the first decoded audio reaches the device.
	EventPlaying
	// EventError is emitted when a session fails, before or after EventPlaying.
	EventError
	// EventAbort is emitted by Stop.
	EventAbort
)

func (k EventKind) String() string {
	switch k {
	case EventPlay:
		return "play"
	case EventPlaying:
		return "playing"
	case EventError:
		return "error"
	case EventAbort:
		return "abort"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is delivered to listeners registered with On.
type Event struct {
	Kind      EventKind
	SessionID string // empty for EventAbort without a session
	URL       string
	Err       error // set for EventError
}

// Listener receives engine events. Listeners run on the emitting goroutine,
// one event at a time, and must not call Play or Stop synchronously.
type Listener func(Event)
