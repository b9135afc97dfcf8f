package source

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/folioplayer/internal/domain/track"
)

// Chain tries providers in order and returns the first non-empty result.
// The built-in playlist is used when every provider fails or is empty.
type Chain struct {
	providers []Provider
	fallback  Provider
}

// NewChain creates a new provider chain.
func NewChain(providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		fallback:  Default(),
	}
}

// Tracks returns the tracks of the first provider that has any.
func (c *Chain) Tracks(ctx context.Context) ([]track.Track, error) {
	tracks, _, err := c.Resolve(ctx)
	return tracks, err
}

// Resolve is Tracks that also reports which provider served the result.
func (c *Chain) Resolve(ctx context.Context) ([]track.Track, string, error) {
	for i, p := range c.providers {
		zlog.Debug().Msgf("trying provider: index=%d total=%d name=%s", i+1, len(c.providers), p.Name())

		tracks, err := p.Tracks(ctx)
		if err != nil {
			zlog.Warn().Msgf("provider failed, trying next: provider=%s error=%v", p.Name(), err)
			continue
		}
		if len(tracks) == 0 {
			zlog.Debug().Msgf("provider returned no tracks: provider=%s", p.Name())
			continue
		}

		zlog.Debug().Msgf("provider returned tracks: provider=%s count=%d", p.Name(), len(tracks))
		return tracks, p.Name(), nil
	}

	tracks, err := c.fallback.Tracks(ctx)
	return tracks, c.fallback.Name(), err
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return "chain"
}
