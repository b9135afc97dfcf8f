package source

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/folioplayer/internal/domain/track"
	"github.com/osa030/folioplayer/internal/infra/config"
	"github.com/osa030/folioplayer/internal/infra/lrccache"
	"github.com/osa030/folioplayer/internal/infra/lrclib"
)

type stubProvider struct {
	name   string
	tracks []track.Track
	err    error
	calls  int
}

func (p *stubProvider) Tracks(ctx context.Context) ([]track.Track, error) {
	p.calls++
	return p.tracks, p.err
}

func (p *stubProvider) Name() string { return p.name }

type stubSpotify struct {
	tracks []track.Track
	err    error
	calls  int
	url    string
}

func (s *stubSpotify) GetPlaylistTracks(ctx context.Context, playlistURL string) ([]track.Track, error) {
	s.calls++
	s.url = playlistURL
	return s.tracks, s.err
}

func TestDefault(t *testing.T) {
	p := Default()
	tracks, err := p.Tracks(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DefaultName, p.Name())
	require.NotEmpty(t, tracks)
	assert.Equal(t, "2091770490", tracks[0].ID)
	assert.True(t, tracks[0].HasLyrics())
	assert.Equal(t, "https://music.163.com/song/media/outer/url?id=2091770490.mp3", tracks[0].StreamURL())
	for _, tr := range tracks {
		assert.NotEmpty(t, tr.ID)
		assert.NotEmpty(t, tr.Title)
	}
}

func TestNewStaticProvider(t *testing.T) {
	p, err := NewStaticProvider(map[string]any{
		"tracks": []any{
			map[string]any{"id": 1, "title": " One ", "artist": "A", "lrc": "[00:01.00]hi"},
			map[string]any{"id": "two", "title": "Two"},
		},
	})
	require.NoError(t, err)

	tracks, err := p.Tracks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", p.Name())
	require.Len(t, tracks, 2)
	assert.Equal(t, "1", tracks[0].ID)
	assert.Equal(t, "One", tracks[0].Title)
	assert.Equal(t, "two", tracks[1].ID)
	assert.Empty(t, tracks[1].RawLyrics)
}

func TestNewStaticProvider_Invalid(t *testing.T) {
	_, err := NewStaticProvider(map[string]any{})
	assert.Error(t, err)

	_, err = NewStaticProvider(map[string]any{"tracks": "not a list"})
	assert.Error(t, err)
}

func TestSpotifyProvider(t *testing.T) {
	client := &stubSpotify{tracks: []track.Track{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	p, err := NewSpotifyProvider(client, map[string]any{
		"playlist_url": "spotify:playlist:abc",
		"max_tracks":   2,
	})
	require.NoError(t, err)

	tracks, err := p.Tracks(context.Background())
	require.NoError(t, err)
	assert.Len(t, tracks, 2)
	assert.Equal(t, "spotify:playlist:abc", client.url)

	_, err = p.Tracks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls, "playlist is fetched once")
}

func TestSpotifyProvider_Errors(t *testing.T) {
	_, err := NewSpotifyProvider(nil, map[string]any{"playlist_url": "x"})
	assert.Error(t, err)

	_, err = NewSpotifyProvider(&stubSpotify{}, map[string]any{})
	assert.Error(t, err, "playlist_url is required")

	p, err := NewSpotifyProvider(&stubSpotify{err: errors.New("503")}, map[string]any{"playlist_url": "x"})
	require.NoError(t, err)
	_, err = p.Tracks(context.Background())
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	failing := &stubProvider{name: "failing", err: errors.New("boom")}
	empty := &stubProvider{name: "empty"}
	good := &stubProvider{name: "good", tracks: []track.Track{{ID: "x"}}}
	unused := &stubProvider{name: "unused", tracks: []track.Track{{ID: "y"}}}

	tracks, name, err := NewChain(failing, empty, good, unused).Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "good", name)
	assert.Equal(t, []track.Track{{ID: "x"}}, tracks)
	assert.Equal(t, 0, unused.calls)
}

func TestChain_FallsBackToDefault(t *testing.T) {
	chain := NewChain(&stubProvider{name: "failing", err: errors.New("boom")})

	tracks, name, err := chain.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultName, name)
	assert.NotEmpty(t, tracks)

	tracks, err = NewChain().Tracks(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, tracks)
}

type stubLyricsClient struct {
	results map[string]*lrclib.LyricsResult
	err     error
	calls   []string
}

func (c *stubLyricsClient) Get(ctx context.Context, artist, title string, duration time.Duration) (*lrclib.LyricsResult, error) {
	c.calls = append(c.calls, artist+"|"+title)
	if c.err != nil {
		return nil, c.err
	}
	if r, ok := c.results[artist+"|"+title]; ok {
		return r, nil
	}
	return nil, lrclib.ErrNotFound
}

type memoryCache struct {
	entries map[string]lrccache.Entry
}

func (m *memoryCache) Get(artist, title string) (lrccache.Entry, bool, error) {
	e, ok := m.entries[lrccache.Key(artist, title)]
	return e, ok, nil
}

func (m *memoryCache) Put(artist, title string, entry lrccache.Entry) error {
	m.entries[lrccache.Key(artist, title)] = entry
	return nil
}

func TestLyricsFinder_Enrich(t *testing.T) {
	client := &stubLyricsClient{results: map[string]*lrclib.LyricsResult{
		"Alice|Song":  {SyncedLyrics: "[00:01.00]found"},
		"Alice|Plain": {PlainLyrics: "no timing"},
	}}
	cache := &memoryCache{entries: map[string]lrccache.Entry{}}
	finder := NewLyricsFinder(client, cache)

	input := []track.Track{
		{ID: "1", Title: "Song", Artist: "Alice / Bob"},
		{ID: "2", Title: "Has", Artist: "Alice", RawLyrics: "[00:00.00]own"},
		{ID: "3", Title: "Missing", Artist: "Alice"},
		{ID: "4", Title: "Plain", Artist: "Alice"},
	}
	result := finder.Enrich(context.Background(), input)

	assert.Equal(t, "[00:01.00]found", result[0].RawLyrics)
	assert.Equal(t, "[00:00.00]own", result[1].RawLyrics)
	assert.Empty(t, result[2].RawLyrics)
	assert.Empty(t, result[3].RawLyrics, "plain lyrics have no timeline")
	assert.Empty(t, input[0].RawLyrics, "input is not modified")
	assert.Equal(t, []string{"Alice|Song", "Alice|Missing", "Alice|Plain"}, client.calls)

	// Second pass is served from the cache, including misses.
	client.calls = nil
	result = finder.Enrich(context.Background(), input)
	assert.Equal(t, "[00:01.00]found", result[0].RawLyrics)
	assert.Empty(t, client.calls)
}

func TestLyricsFinder_TransientErrorNotCached(t *testing.T) {
	client := &stubLyricsClient{err: errors.New("timeout")}
	cache := &memoryCache{entries: map[string]lrccache.Entry{}}
	finder := NewLyricsFinder(client, cache)

	result := finder.Enrich(context.Background(), []track.Track{{ID: "1", Title: "Song", Artist: "A"}})

	assert.Empty(t, result[0].RawLyrics)
	assert.Empty(t, cache.entries)
}

func TestWithLyrics(t *testing.T) {
	client := &stubLyricsClient{results: map[string]*lrclib.LyricsResult{
		"A|Song": {SyncedLyrics: "[00:01.00]x"},
	}}
	p := WithLyrics(&stubProvider{name: "static", tracks: []track.Track{{ID: "1", Title: "Song", Artist: "A"}}},
		NewLyricsFinder(client, nil))

	tracks, err := p.Tracks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", p.Name())
	assert.Equal(t, "[00:01.00]x", tracks[0].RawLyrics)
}

func TestNewChainFromConfig(t *testing.T) {
	cfg := &config.Config{
		Playlist: config.PlaylistConfig{Providers: []config.ProviderConfig{
			{Type: "spotify", Settings: map[string]any{"playlist_url": "spotify:playlist:abc"}},
			{Type: "static", Settings: map[string]any{"tracks": []any{map[string]any{"id": 7, "title": "Seven"}}}},
		}},
	}

	chain, err := NewChainFromConfig(cfg, &stubSpotify{err: errors.New("down")}, nil)
	require.NoError(t, err)

	tracks, name, err := chain.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", name)
	assert.Equal(t, "7", tracks[0].ID)
}

func TestNewChainFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name      string
		providers []config.ProviderConfig
	}{
		{name: "unknown type", providers: []config.ProviderConfig{{Type: "lastfm"}}},
		{name: "spotify without client", providers: []config.ProviderConfig{{Type: "spotify", Settings: map[string]any{"playlist_url": "x"}}}},
		{name: "static without tracks", providers: []config.ProviderConfig{{Type: "static", Settings: map[string]any{}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Playlist: config.PlaylistConfig{Providers: tt.providers}}
			_, err := NewChainFromConfig(cfg, nil, nil)
			assert.Error(t, err)
		})
	}
}

func TestNewChainFromConfig_Filters(t *testing.T) {
	cfg := &config.Config{
		Playlist: config.PlaylistConfig{
			Providers: []config.ProviderConfig{
				{Type: "static", Settings: map[string]any{"name": "plain", "tracks": []any{
					map[string]any{"id": 1, "title": "No Words"},
				}}},
				{Type: "static", Settings: map[string]any{"name": "sung", "tracks": []any{
					map[string]any{"id": 2, "title": "Song", "artist": "A", "lrc": "[00:00.00]la"},
					map[string]any{"id": 3, "title": "Song - 2020 Remaster", "artist": "A", "lrc": "[00:00.00]la"},
					map[string]any{"id": 4, "title": "Other", "artist": "B", "lrc": "[00:00.00]oh"},
				}}},
			},
			Filters: map[string]config.FilterConfig{
				"duplicate_track": {Enabled: true},
				"lyrics_only":     {Enabled: true},
				"market_filter":   {Enabled: false},
			},
		},
	}

	chain, err := NewChainFromConfig(cfg, nil, nil)
	require.NoError(t, err)

	// Every track of "plain" is dropped, so the chain moves on.
	tracks, name, err := chain.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sung", name)
	require.Len(t, tracks, 2)
	assert.Equal(t, "2", tracks[0].ID)
	assert.Equal(t, "4", tracks[1].ID)

	cfg.Playlist.Filters["market_filter"] = config.FilterConfig{Enabled: true}
	_, err = NewChainFromConfig(cfg, nil, nil)
	assert.Error(t, err)
}
