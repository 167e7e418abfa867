// Package command admits external commands one at a time and routes them to
// the playback controller.
package command

import (
	"errors"
	"fmt"
)

// Kind names a command.
type Kind string

const (
	// Locked commands.
	KindPlay      Kind = "play"
	KindStop      Kind = "stop"
	KindPlayPause Kind = "playpause"
	KindPrev      Kind = "prev"
	KindNext      Kind = "next"
	KindStream    Kind = "stream"

	// Immediate commands.
	KindStatus     Kind = "status"
	KindMetadata   Kind = "metadata"
	KindAudioData  Kind = "audiodata"
	KindVolume     Kind = "volume"
	KindVolumeUp   Kind = "volumeup"
	KindVolumeDown Kind = "volumedown"
)

// VolumeStep is the grid volumeup and volumedown move on. Levels off the
// grid are rounded to it first.
const VolumeStep = 5

var (
	// ErrBusy is returned when a locked command arrives while another is
	// being processed.
	ErrBusy = errors.New("another command is in progress")
	// ErrUnknownCommand is returned for unrecognized kinds.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidPayload is returned when a payload has the wrong type.
	ErrInvalidPayload = errors.New("invalid command payload")
)

// Command is a request from a UI surface.
// Payload is a station name for play, a stream name for stream and a level
// for volume. Other kinds ignore it.
type Command struct {
	Kind    Kind
	Payload any
}

// Locked reports whether k passes through the processing gate.
func (k Kind) Locked() bool {
	switch k {
	case KindPlay, KindStop, KindPlayPause, KindPrev, KindNext, KindStream:
		return true
	default:
		return false
	}
}

// Valid reports whether k is a known command.
func (k Kind) Valid() bool {
	if k.Locked() {
		return true
	}
	switch k {
	case KindStatus, KindMetadata, KindAudioData, KindVolume, KindVolumeUp, KindVolumeDown:
		return true
	default:
		return false
	}
}

func (c Command) stringPayload() (string, error) {
	switch v := c.Payload.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %s expects a string, got %T", ErrInvalidPayload, c.Kind, c.Payload)
	}
}

func (c Command) intPayload() (int, error) {
	switch v := c.Payload.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		// JSON numbers
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: %s expects a number, got %T", ErrInvalidPayload, c.Kind, c.Payload)
	}
}
