// Package source provides the playlist sources a player session can be built from.
package source

import (
	"context"

	"github.com/osa030/folioplayer/internal/domain/track"
)

// Provider is the interface for playlist sources.
type Provider interface {
	// Tracks returns the tracks to play, in order. An empty result means
	// the provider has nothing to offer and the next one should be tried.
	Tracks(ctx context.Context) ([]track.Track, error)

	// Name returns the provider name (used in config and logs).
	Name() string
}

// SpotifyClient defines the Spotify operations needed by the spotify provider.
type SpotifyClient interface {
	GetPlaylistTracks(ctx context.Context, playlistURL string) ([]track.Track, error)
}
