// internal/player/interface.go
package player

import "github.com/llehouerou/onair/internal/icy"

// Interface defines the engine contract for dependency injection and testing.
type Interface interface {
	Play(url string)
	Stop() bool
	SetVolume(v int)
	Volume() int
	IsPlaying() bool
	Metadata() icy.Metadata
	AudioData() []byte
	Session() SessionInfo
	On(kind EventKind, l Listener)
}

// Verify Engine implements Interface at compile time.
var _ Interface = (*Engine)(nil)
