package playback

// StatusChange is emitted when the status changes.
type StatusChange struct {
	Previous Status
	Current  Status
}

// RetryEvent is emitted when a failed stream is scheduled for a retry.
type RetryEvent struct {
	Attempt     int
	MaxAttempts int
	Err         error
}
