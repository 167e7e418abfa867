// internal/playback/state.go
package playback

import "fmt"

// Status is the coarse playback status shown to users.
type Status int

const (
	StatusStopped Status = iota
	StatusBuffering
	StatusPlaying
	StatusError
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusBuffering:
		return "buffering"
	case StatusPlaying:
		return "playing"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStatus parses a wire name.
func ParseStatus(name string) (Status, error) {
	switch name {
	case "stopped":
		return StatusStopped, nil
	case "buffering":
		return StatusBuffering, nil
	case "playing":
		return StatusPlaying, nil
	case "error":
		return StatusError, nil
	default:
		return StatusStopped, fmt.Errorf("unknown status %q", name)
	}
}

// IsActive returns true while a stream is loading or playing.
func (s Status) IsActive() bool {
	return s == StatusBuffering || s == StatusPlaying
}
