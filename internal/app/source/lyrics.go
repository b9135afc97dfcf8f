package source

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/folioplayer/internal/domain/track"
	"github.com/osa030/folioplayer/internal/infra/lrccache"
	"github.com/osa030/folioplayer/internal/infra/lrclib"
)

// LyricsClient looks up synced lyrics remotely.
type LyricsClient interface {
	Get(ctx context.Context, artist, title string, duration time.Duration) (*lrclib.LyricsResult, error)
}

// LyricsCache stores lookup results.
type LyricsCache interface {
	Get(artist, title string) (lrccache.Entry, bool, error)
	Put(artist, title string, entry lrccache.Entry) error
}

// LyricsFinder fills in lyrics for tracks that have none.
type LyricsFinder struct {
	client LyricsClient
	cache  LyricsCache // optional
}

// NewLyricsFinder creates a LyricsFinder. cache may be nil.
func NewLyricsFinder(client LyricsClient, cache LyricsCache) *LyricsFinder {
	return &LyricsFinder{client: client, cache: cache}
}

// Enrich returns a copy of tracks with missing lyrics looked up.
// Lookup failures leave the track without lyrics.
func (f *LyricsFinder) Enrich(ctx context.Context, tracks []track.Track) []track.Track {
	result := make([]track.Track, len(tracks))
	copy(result, tracks)

	found := 0
	for i := range result {
		if result[i].HasLyrics() || result[i].Title == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if lrc := f.lookup(ctx, result[i].PrimaryArtist(), result[i].Title); lrc != "" {
			result[i].RawLyrics = lrc
			found++
		}
	}

	zlog.Debug().Msgf("lyrics enrichment done: tracks=%d found=%d", len(result), found)
	return result
}

func (f *LyricsFinder) lookup(ctx context.Context, artist, title string) string {
	if f.cache != nil {
		entry, ok, err := f.cache.Get(artist, title)
		if err != nil {
			zlog.Warn().Msgf("lyrics cache read failed: artist=%s title=%s error=%v", artist, title, err)
		} else if ok {
			return entry.Lyrics
		}
	}

	result, err := f.client.Get(ctx, artist, title, 0)
	switch {
	case errors.Is(err, lrclib.ErrNotFound):
		f.store(artist, title, lrccache.Entry{NotFound: true})
		return ""
	case err != nil:
		// Transient failures are not cached
		zlog.Warn().Msgf("lyrics lookup failed: artist=%s title=%s error=%v", artist, title, err)
		return ""
	case !result.HasSyncedLyrics():
		f.store(artist, title, lrccache.Entry{NotFound: true})
		return ""
	}

	f.store(artist, title, lrccache.Entry{Lyrics: result.SyncedLyrics})
	return result.SyncedLyrics
}

func (f *LyricsFinder) store(artist, title string, entry lrccache.Entry) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Put(artist, title, entry); err != nil {
		zlog.Warn().Msgf("lyrics cache write failed: artist=%s title=%s error=%v", artist, title, err)
	}
}

// withLyrics decorates a provider so its tracks are enriched with lyrics.
type withLyrics struct {
	Provider
	finder *LyricsFinder
}

// WithLyrics wraps p so missing lyrics are looked up with finder.
func WithLyrics(p Provider, finder *LyricsFinder) Provider {
	return &withLyrics{Provider: p, finder: finder}
}

// Tracks returns the wrapped provider's tracks with lyrics filled in.
func (w *withLyrics) Tracks(ctx context.Context) ([]track.Track, error) {
	tracks, err := w.Provider.Tracks(ctx)
	if err != nil || len(tracks) == 0 {
		return tracks, err
	}
	return w.finder.Enrich(ctx, tracks), nil
}
