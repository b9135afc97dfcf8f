// Package track provides the Track domain entity.
package track

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
)

// outerMediaURL is the public stream endpoint for catalogue tracks without an explicit URL.
const outerMediaURL = "https://music.163.com/song/media/outer/url?id=%s.mp3"

// Track represents a playlist entry.
type Track struct {
	ID        string // Catalogue ID
	Title     string // Track title
	Artist    string // Artist display name
	CoverURL  string // Cover art URL
	RawLyrics string // LRC text (may be empty)
	MediaURL  string // Explicit stream URL (optional)
}

// StreamURL returns the URL the transport should play.
func (t Track) StreamURL() string {
	if t.MediaURL != "" {
		return t.MediaURL
	}
	return fmt.Sprintf(outerMediaURL, t.ID)
}

// SecureCoverURL returns the cover URL upgraded to https.
func (t Track) SecureCoverURL() string {
	return SecureURL(t.CoverURL)
}

// HasLyrics reports whether the track carries any lyric text.
func (t Track) HasLyrics() bool {
	return strings.TrimSpace(t.RawLyrics) != ""
}

// PrimaryArtist returns the first credited artist of the display name.
func (t Track) PrimaryArtist() string {
	return PrimaryArtist(t.Artist)
}

// PrimaryArtist returns the first credited artist of a display string
// such as "A / B" or "A, B".
func PrimaryArtist(artist string) string {
	for _, sep := range []string{" / ", ", ", "/", "&"} {
		if i := strings.Index(artist, sep); i > 0 {
			artist = artist[:i]
		}
	}
	return strings.TrimSpace(artist)
}

// SecureURL rewrites a leading http:// to https:// to avoid mixed content.
func SecureURL(url string) string {
	if len(url) >= len("http://") && strings.EqualFold(url[:len("http://")], "http://") {
		return "https://" + url[len("http://"):]
	}
	return url
}

// Entry is the loose shape of a track supplied by callers (JSON, YAML or RPC).
type Entry struct {
	ID     string `mapstructure:"id" yaml:"id"`
	Title  string `mapstructure:"title" yaml:"title"`
	Artist string `mapstructure:"artist" yaml:"artist"`
	Cover  string `mapstructure:"cover" yaml:"cover"`
	Lrc    string `mapstructure:"lrc" yaml:"lrc"`
	URL    string `mapstructure:"url" yaml:"url"`
}

// Track normalizes the entry into a Track.
func (e Entry) Track() Track {
	return Track{
		ID:        strings.TrimSpace(e.ID),
		Title:     strings.TrimSpace(e.Title),
		Artist:    strings.TrimSpace(e.Artist),
		CoverURL:  strings.TrimSpace(e.Cover),
		RawLyrics: e.Lrc,
		MediaURL:  strings.TrimSpace(e.URL),
	}
}

// DecodeEntries decodes loosely typed entries (e.g. from JSON) into tracks.
// Numeric IDs are accepted and converted to strings; absent fields become empty.
func DecodeEntries(input any) ([]Track, error) {
	var entries []Entry
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &entries,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(input); err != nil {
		return nil, errors.Wrap(err, "failed to decode track entries")
	}

	tracks := make([]Track, len(entries))
	for i, e := range entries {
		tracks[i] = e.Track()
	}
	return tracks, nil
}
