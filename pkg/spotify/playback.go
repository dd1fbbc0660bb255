package spotify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// PlaybackKind says which display state a snapshot maps to
type PlaybackKind int

const (
	// PlaybackIdle means nothing is playing
	PlaybackIdle PlaybackKind = iota
	// PlaybackPlaying means a track or episode is playing and all display fields were found
	PlaybackPlaying
	// PlaybackMalformed means an item was present but did not have the shape we expect
	PlaybackMalformed
)

func (k PlaybackKind) String() string {
	switch k {
	case PlaybackIdle:
		return "idle"
	case PlaybackPlaying:
		return "playing"
	case PlaybackMalformed:
		return "malformed"
	}
	return fmt.Sprintf("PlaybackKind(%d)", int(k))
}

// ItemKind distinguishes tracks from podcast episodes
type ItemKind int

const (
	// ItemUnknown is an item we could not place as a track or an episode
	ItemUnknown ItemKind = iota
	// ItemTrack is a music track
	ItemTrack
	// ItemEpisode is a podcast episode
	ItemEpisode
)

func (k ItemKind) String() string {
	switch k {
	case ItemTrack:
		return "track"
	case ItemEpisode:
		return "episode"
	}
	return "unknown"
}

// Playback is the display data extracted from a Snapshot
type Playback struct {
	Kind     PlaybackKind
	ItemKind ItemKind
	Song     string
	Artist   string
	ImageURL string

	// Err is set when Kind is PlaybackMalformed
	Err error
}

var (
	errMissingName   = errors.New("item has no name")
	errMissingArtist = errors.New("item has no artist or show name")
	errMissingImage  = errors.New("item has no second image")
	errUnknownItem   = errors.New("item is neither a track nor an episode")
)

var noneItem = []byte(`"None"`)

// Playback classifies the snapshot. An empty snapshot, a null item or an item of "None" is idle.
// A snapshot that failed to parse is malformed.
func (s Snapshot) Playback() Playback {
	if s.Err != nil {
		return malformed(ItemUnknown, s.Err)
	}

	raw := bytes.TrimSpace(s.Item)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, noneItem) {
		return Playback{Kind: PlaybackIdle}
	}

	var item Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return malformed(ItemUnknown, fmt.Errorf("error decoding item: %w", err))
	}

	return item.playback(s.CurrentlyPlayingType)
}

// Kind works out whether the item is a track or an episode. The item's own type wins,
// then the snapshot's currently_playing_type hint, then whichever shaped fields are present.
func (i Item) Kind(hint string) ItemKind {
	for _, t := range []string{i.Type, hint} {
		switch t {
		case "episode", "show":
			return ItemEpisode
		case "track":
			return ItemTrack
		}
	}

	switch {
	case i.Show != nil:
		return ItemEpisode
	case len(i.Artists) > 0 || i.Album != nil:
		return ItemTrack
	}
	return ItemUnknown
}

func (i Item) playback(hint string) Playback {
	kind := i.Kind(hint)

	var artist string
	var images []Image
	switch kind {
	case ItemEpisode:
		if i.Show != nil {
			artist = i.Show.Name
		}
		images = i.Images
	case ItemTrack:
		if len(i.Artists) > 0 {
			artist = i.Artists[0].Name
		}
		if i.Album != nil {
			images = i.Album.Images
		}
	default:
		return malformed(kind, errUnknownItem)
	}

	switch {
	case i.Name == "":
		return malformed(kind, errMissingName)
	case artist == "":
		return malformed(kind, errMissingArtist)
	case len(images) < 2 || images[1].URL == "":
		return malformed(kind, errMissingImage)
	}

	return Playback{
		Kind:     PlaybackPlaying,
		ItemKind: kind,
		Song:     i.Name,
		Artist:   artist,
		// index 1 is the mid sized image
		ImageURL: images[1].URL,
	}
}

func malformed(kind ItemKind, err error) Playback {
	return Playback{Kind: PlaybackMalformed, ItemKind: kind, Err: err}
}
