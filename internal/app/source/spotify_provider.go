package source

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/folioplayer/internal/domain/track"
)

// SpotifyProviderConfig is the settings block of a "spotify" provider.
type SpotifyProviderConfig struct {
	PlaylistURL string `mapstructure:"playlist_url" validate:"required"`
	MaxTracks   int    `mapstructure:"max_tracks" default:"50" validate:"gte=1,lte=500"`
}

// SpotifyProvider serves the tracks of a Spotify playlist.
// The playlist is fetched once and reused for later sessions.
type SpotifyProvider struct {
	spotify SpotifyClient
	config  *SpotifyProviderConfig

	mu     sync.Mutex
	cache  []track.Track
	loaded bool
}

// NewSpotifyProvider creates a new SpotifyProvider.
func NewSpotifyProvider(spotify SpotifyClient, settings map[string]any) (*SpotifyProvider, error) {
	if spotify == nil {
		return nil, errors.New("spotify client is not configured")
	}

	var config SpotifyProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("spotify provider config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	return &SpotifyProvider{spotify: spotify, config: &config}, nil
}

// Tracks returns the playlist tracks, fetching them on first use.
func (p *SpotifyProvider) Tracks(ctx context.Context) ([]track.Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		tracks, err := p.spotify.GetPlaylistTracks(ctx, p.config.PlaylistURL)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get playlist tracks")
		}
		if len(tracks) > p.config.MaxTracks {
			tracks = tracks[:p.config.MaxTracks]
		}
		p.cache = tracks
		p.loaded = true
		zlog.Info().Msgf("spotify playlist loaded: url=%s tracks=%d", p.config.PlaylistURL, len(tracks))
	}

	result := make([]track.Track, len(p.cache))
	copy(result, p.cache)
	return result, nil
}

// Name returns the provider name.
func (p *SpotifyProvider) Name() string {
	return "spotify"
}
