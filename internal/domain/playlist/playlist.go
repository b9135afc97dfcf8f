// Package playlist provides the Playlist domain entity.
package playlist

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/folioplayer/internal/domain/track"
)

// Errors
var (
	ErrEmpty        = errors.New("playlist has no tracks")
	ErrInvalidTrack = errors.New("track has no id")
)

// Playlist is a fixed, non-empty, ordered sequence of tracks.
type Playlist struct {
	name   string
	tracks []track.Track
}

// New creates a playlist from the given tracks. The slice is copied.
func New(name string, tracks []track.Track) (*Playlist, error) {
	if len(tracks) == 0 {
		return nil, ErrEmpty
	}
	for i, t := range tracks {
		if t.ID == "" {
			return nil, errors.Wrapf(ErrInvalidTrack, "index %d", i)
		}
	}

	copied := make([]track.Track, len(tracks))
	copy(copied, tracks)
	return &Playlist{name: name, tracks: copied}, nil
}

// Name returns the playlist name.
func (p *Playlist) Name() string {
	return p.name
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.tracks)
}

// At returns the track at index i.
func (p *Playlist) At(i int) (track.Track, bool) {
	if i < 0 || i >= len(p.tracks) {
		return track.Track{}, false
	}
	return p.tracks[i], true
}

// Tracks returns a copy of the tracks.
func (p *Playlist) Tracks() []track.Track {
	result := make([]track.Track, len(p.tracks))
	copy(result, p.tracks)
	return result
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.tracks))
	for i, t := range p.tracks {
		ids[i] = t.ID
	}
	return ids
}

// Next returns the index after i, wrapping to 0 past the end.
func (p *Playlist) Next(i int) int {
	return (i + 1) % len(p.tracks)
}

// Previous returns the index before i, wrapping to the last index before 0.
func (p *Playlist) Previous(i int) int {
	return (i - 1 + len(p.tracks)) % len(p.tracks)
}
