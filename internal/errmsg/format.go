// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Station directory
	OpStationResolve Op = "resolve station"
	OpStationList    Op = "list stations"
	OpStationSeed    Op = "load station catalog"
	OpStreamSelect   Op = "select stream"
	OpStreamNext     Op = "find next stream"

	// Favorites
	OpFavoriteToggle Op = "update favorites"

	// Playback
	OpPlaybackStart Op = "start playback"
	OpPlaybackStop  Op = "stop playback"
	OpCommand       Op = "run command"

	// Volume
	OpVolumeLoad Op = "load volume"
	OpVolumeSave Op = "save volume"

	// Publishing
	OpStatusPublish     Op = "publish status"
	OpNowPlayingPublish Op = "publish now playing"

	// Initialization
	OpInitialize Op = "initialize daemon"
	OpConnect    Op = "connect to daemon"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
