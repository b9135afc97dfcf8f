package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/osa030/folioplayer/internal/domain/track"
)

// DuplicateTrackFilterName is the config name of DuplicateTrackFilter.
const DuplicateTrackFilterName = "duplicate_track"

var (
	// Remaster information, e.g. "- 2011 Remaster", "(Remastered 2023)".
	remasterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),
		regexp.MustCompile(`\s*\(remaster(ed)?\s*\d{0,4}\)`),
		regexp.MustCompile(`\s*\[remaster(ed)?\s*\d{0,4}\]`),
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`),
		regexp.MustCompile(`\s*\(.*?remaster.*?\)`),
		regexp.MustCompile(`\s*\[.*?remaster.*?\]`),
	}

	// Other version indicators, e.g. "(Single Version)", "- Live".
	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*\(.*?version\)`),
		regexp.MustCompile(`\s*\(.*?edit\)`),
		regexp.MustCompile(`\s*-?\s*live`),
		regexp.MustCompile(`\s*\(live\)`),
		regexp.MustCompile(`\s*-?\s*radio\s+edit`),
		regexp.MustCompile(`\s*-?\s*single\s+version`),
	}

	whitespace = regexp.MustCompile(`\s+`)
)

// DuplicateTrackFilter drops tracks already in the playlist.
// Detects:
// - Exact track ID matches
// - Remasters (normalized title + same primary artist)
// Cover songs (same title, different artist) are kept.
type DuplicateTrackFilter struct{}

// NewDuplicateTrackFilter creates a new duplicate track filter.
func NewDuplicateTrackFilter() *DuplicateTrackFilter {
	return &DuplicateTrackFilter{}
}

// Name returns the filter name.
func (f *DuplicateTrackFilter) Name() string {
	return DuplicateTrackFilterName
}

// Description returns the filter description.
func (f *DuplicateTrackFilter) Description() string {
	return "Drops repeated tracks, including remasters of a song already in the playlist. Covers are kept"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateTrackFilter) ReturnCodes() []string {
	return []string{"duplicate_track"}
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateTrackFilter) ValidateConfig(settings map[string]any) error {
	// No configuration needed
	return nil
}

// Check checks if the track duplicates one already kept.
func (f *DuplicateTrackFilter) Check(ctx context.Context, t track.Track, kept []track.Track) Result {
	for _, k := range kept {
		if k.ID == t.ID || isRemaster(k, t) {
			return Reject("duplicate_track")
		}
	}
	return Accept()
}

// isRemaster reports whether two tracks are versions of the same song by the
// same primary artist.
func isRemaster(a, b track.Track) bool {
	if normalizeTitle(a.Title) != normalizeTitle(b.Title) {
		return false
	}
	// Same normalized title but different artists is a cover
	return isSameArtist(a, b)
}

// normalizeTitle removes remaster information and version details.
func normalizeTitle(title string) string {
	normalized := strings.ToLower(title)

	for _, pattern := range remasterPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}
	for _, pattern := range versionPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	normalized = whitespace.ReplaceAllString(strings.TrimSpace(normalized), " ")
	return strings.TrimRight(normalized, " -")
}

// isSameArtist compares the primary artists case-insensitively.
func isSameArtist(a, b track.Track) bool {
	pa, pb := a.PrimaryArtist(), b.PrimaryArtist()
	if pa == "" || pb == "" {
		return false
	}
	return strings.EqualFold(pa, pb)
}

func init() {
	Register(DuplicateTrackFilterName, func() Filter { return NewDuplicateTrackFilter() })
}
