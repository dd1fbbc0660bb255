package spotify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot contains a response from spotify's currently playing endpoint.
// The zero value is the empty snapshot, which is what a 204 maps to.
type Snapshot struct {
	IsPlaying            bool            `json:"is_playing"`
	CurrentlyPlayingType string          `json:"currently_playing_type"`
	ProgressMs           int             `json:"progress_ms"`
	Item                 json.RawMessage `json:"item"`

	// Err is set when the body was not a currently playing object
	Err error `json:"-"`
}

// ParseSnapshot reads a currently playing body. It never fails: a body that is not an object,
// or whose fields have the wrong types, gives back a Snapshot with Err set. An empty body
// gives back the empty snapshot.
func ParseSnapshot(body []byte) Snapshot {
	var s Snapshot
	if len(bytes.TrimSpace(body)) == 0 {
		return s
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		s.Err = fmt.Errorf("error decoding currently playing object: %w", err)
		return s
	}

	for _, f := range []struct {
		name string
		v    interface{}
	}{
		{"is_playing", &s.IsPlaying},
		{"currently_playing_type", &s.CurrentlyPlayingType},
		{"progress_ms", &s.ProgressMs},
	} {
		raw, ok := fields[f.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, f.v); err != nil {
			s.Err = fmt.Errorf("error decoding %s: %w", f.name, err)
			return s
		}
	}
	s.Item = fields["item"]

	return s
}

// Item is a track or an episode. Tracks carry Artists and Album, episodes carry Show and Images.
type Item struct {
	Type    string   `json:"type"`
	Name    string   `json:"name"`
	Artists []Artist `json:"artists"`
	Album   *Album   `json:"album"`
	Images  []Image  `json:"images"`
	Show    *Show    `json:"show"`
}

// Artist contains the fields of a simplified artist object we use
type Artist struct {
	Name string `json:"name"`
}

// Album contains the fields of a simplified album object we use
type Album struct {
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Show contains the fields of a simplified show object we use
type Show struct {
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Image is an entry in an image list, spotify orders these widest first
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// RecentlyPlayed contains a response from spotify's recently played endpoint
type RecentlyPlayed struct {
	Items []PlayHistory `json:"items"`
	Limit int           `json:"limit"`
	Next  string        `json:"next"`
}

// PlayHistory is a single recently played entry
type PlayHistory struct {
	Track    Item      `json:"track"`
	PlayedAt time.Time `json:"played_at"`
}
