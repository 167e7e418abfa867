package lastfm

import "strings"

// Track identifies a song for now-playing updates.
type Track struct {
	Artist string
	Track  string
}

// ParseStreamTitle splits an ICY StreamTitle of the form "Artist - Title".
// Titles without both parts (station IDs, adverts) are rejected.
func ParseStreamTitle(title string) (Track, bool) {
	artist, track, ok := strings.Cut(title, " - ")
	if !ok {
		return Track{}, false
	}
	artist = strings.TrimSpace(artist)
	track = strings.TrimSpace(track)
	if artist == "" || track == "" {
		return Track{}, false
	}
	return Track{Artist: artist, Track: track}, true
}
