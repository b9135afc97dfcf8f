package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/folioplayer/internal/domain/lyric"
	"github.com/osa030/folioplayer/internal/domain/track"
)

// LyricsOnlyFilterName is the config name of LyricsOnlyFilter.
const LyricsOnlyFilterName = "lyrics_only"

// LyricsOnlyFilter keeps only tracks whose lyrics yield a timeline of at
// least MinLines lines.
type LyricsOnlyFilter struct {
	MinLines int `mapstructure:"min_lines"`
}

// NewLyricsOnlyFilter creates a new lyrics-only filter.
func NewLyricsOnlyFilter() *LyricsOnlyFilter {
	return &LyricsOnlyFilter{MinLines: 1}
}

func (f *LyricsOnlyFilter) Name() string {
	return LyricsOnlyFilterName
}

func (f *LyricsOnlyFilter) Description() string {
	return "Drops tracks without synced lyrics"
}

func (f *LyricsOnlyFilter) ReturnCodes() []string {
	return []string{"no_lyrics"}
}

// ValidateConfig decodes the optional min_lines setting.
func (f *LyricsOnlyFilter) ValidateConfig(settings map[string]any) error {
	if len(settings) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           f,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "invalid lyrics_only settings")
	}
	if f.MinLines < 1 {
		return errors.Newf("min_lines must be at least 1, got %d", f.MinLines)
	}
	return nil
}

func (f *LyricsOnlyFilter) Check(ctx context.Context, t track.Track, kept []track.Track) Result {
	if len(lyric.Parse(t.RawLyrics)) < f.MinLines {
		return Reject("no_lyrics")
	}
	return Accept()
}

func init() {
	Register(LyricsOnlyFilterName, func() Filter { return NewLyricsOnlyFilter() })
}
