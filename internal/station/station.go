// Package station resolves station names to stream URLs and tracks the
// current selection.
package station

import (
	"errors"

	"github.com/llehouerou/onair/internal/config"
	"github.com/llehouerou/onair/internal/state"
)

var (
	// ErrNotFound is returned when a station name is not in the catalog.
	ErrNotFound = errors.New("station not found")
	// ErrNoStreams is returned when a station has no stream URLs.
	ErrNoStreams = errors.New("station has no streams")
	// ErrNoCurrent is returned when an operation needs a selected station.
	ErrNoCurrent = errors.New("no station selected")
	// ErrStreamNotFound is returned when a quality name does not match any stream.
	ErrStreamNotFound = errors.New("stream not found")
)

// Station is a catalog entry.
type Station struct {
	Name     string
	Title    string
	URL      string
	Image    string
	Favorite bool
	Streams  []Stream
}

// Stream is one quality variant of a station.
type Stream struct {
	Name string
	URL  string
}

// Primary returns the first stream of the station.
func (s *Station) Primary() (Stream, error) {
	if len(s.Streams) == 0 {
		return Stream{}, ErrNoStreams
	}
	return s.Streams[0], nil
}

// DisplayName returns the title, falling back to the name.
func (s *Station) DisplayName() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Name
}

func (s *Station) streamIndex(quality string) int {
	for i, st := range s.Streams {
		if st.Name == quality {
			return i
		}
	}
	return -1
}

func fromRecord(r state.StationRecord) Station {
	st := Station{
		Name:     r.Name,
		Title:    r.Title,
		URL:      r.URL,
		Image:    r.Image,
		Favorite: r.Favorite,
		Streams:  make([]Stream, 0, len(r.Streams)),
	}
	for _, s := range r.Streams {
		st.Streams = append(st.Streams, Stream{Name: s.Name, URL: s.URL})
	}
	return st
}

// RecordsFromConfig converts configured stations into catalog records,
// skipping entries without a name, duplicates and streams without a URL.
func RecordsFromConfig(stations []config.StationConfig) []state.StationRecord {
	records := make([]state.StationRecord, 0, len(stations))
	seen := make(map[string]struct{}, len(stations))
	for _, sc := range stations {
		if sc.Name == "" {
			continue
		}
		if _, dup := seen[sc.Name]; dup {
			continue
		}
		seen[sc.Name] = struct{}{}

		r := state.StationRecord{
			Name:  sc.Name,
			Title: sc.Title,
			URL:   sc.URL,
			Image: sc.Image,
		}
		for _, s := range sc.Streams {
			if s.URL == "" {
				continue
			}
			name := s.Name
			if name == "" {
				name = s.URL
			}
			r.Streams = append(r.Streams, state.StreamRecord{Name: name, URL: s.URL})
		}
		records = append(records, r)
	}
	return records
}
