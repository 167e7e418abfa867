package server

import (
	"time"

	"github.com/llehouerou/onair/internal/coordinator"
	"github.com/llehouerou/onair/internal/icy"
	"github.com/llehouerou/onair/internal/playback"
)

// Event types pushed over /api/events.
const (
	EventStatus     = "status"
	EventNowPlaying = "nowplaying"
	EventRetry      = "retry"
)

// CommandRequest is the body of POST /api/commands/:kind.
type CommandRequest struct {
	Data any `json:"data,omitempty"`
}

// CommandResponse answers a command. Only the fields relevant to the command
// kind are set.
type CommandResponse struct {
	OK        bool            `json:"ok"`
	Error     string          `json:"error,omitempty"`
	Status    playback.Status `json:"status"`
	Metadata  icy.Metadata    `json:"metadata,omitempty"`
	AudioData []byte          `json:"audiodata,omitempty"`
	Volume    *int            `json:"volume,omitempty"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Status       playback.Status `json:"status"`
	Attempts     int             `json:"attempts"`
	Station      string          `json:"station,omitempty"`
	StationTitle string          `json:"station_title,omitempty"`
	Stream       string          `json:"stream,omitempty"`
	URL          string          `json:"url,omitempty"`
	Volume       int             `json:"volume"`
	Title        string          `json:"title"`
	Song         string          `json:"song,omitempty"`
	Since        *time.Time      `json:"since,omitempty"`
}

// StationResponse describes a catalog entry.
type StationResponse struct {
	Name     string           `json:"name"`
	Title    string           `json:"title"`
	URL      string           `json:"url,omitempty"`
	Image    string           `json:"image,omitempty"`
	Favorite bool             `json:"favorite"`
	Current  bool             `json:"current"`
	Streams  []StreamResponse `json:"streams"`
}

// StreamResponse is one stream of a station.
type StreamResponse struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ErrorResponse is returned by non-command endpoints on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Event is a websocket push message.
type Event struct {
	Type   string             `json:"type"`
	Status *playback.Status   `json:"status,omitempty"`
	Song   string             `json:"song,omitempty"`
	Title  *coordinator.Title `json:"title,omitempty"`

	// Retry events only.
	Attempt     int    `json:"attempt,omitempty"`
	MaxAttempts int    `json:"max_attempts,omitempty"`
	Error       string `json:"error,omitempty"`
}
