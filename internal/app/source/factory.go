package source

import (
	"sort"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/folioplayer/internal/app/filter"
	"github.com/osa030/folioplayer/internal/infra/config"
)

// NewChainFromConfig creates a provider chain from configuration.
// finder may be nil when lyrics lookup is disabled; spotify may be nil when
// no spotify provider is configured.
func NewChainFromConfig(cfg *config.Config, spotify SpotifyClient, finder *LyricsFinder) (*Chain, error) {
	filters, err := NewFilterChainFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	var providers []Provider

	for i, pcfg := range cfg.Playlist.Providers {
		var provider Provider
		var err error
		zlog.Debug().Msgf("creating playlist provider: index=%d type=%s", i+1, pcfg.Type)
		switch pcfg.Type {
		case "static":
			provider, err = NewStaticProvider(pcfg.Settings)

		case "spotify":
			provider, err = NewSpotifyProvider(spotify, pcfg.Settings)

		default:
			return nil, errors.Newf("unsupported provider type: %s (provider index %d)", pcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider (index %d, type %s)", i, pcfg.Type)
		}

		if finder != nil {
			provider = WithLyrics(provider, finder)
		}
		if filters.Len() > 0 {
			provider = WithFilters(provider, filters)
		}
		providers = append(providers, provider)

		zlog.Info().Msgf("registered playlist provider: index=%d type=%s name=%s", i+1, pcfg.Type, provider.Name())
	}

	return NewChain(providers...), nil
}

// NewFilterChainFromConfig creates the playlist filter chain from the enabled
// filters, in a stable order.
func NewFilterChainFromConfig(cfg *config.Config) (*filter.Chain, error) {
	chain := filter.NewChain()

	names := make([]string, 0, len(cfg.Playlist.Filters))
	for name := range cfg.Playlist.Filters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !cfg.IsFilterEnabled(name) {
			continue
		}
		f, err := filter.New(name, cfg.Playlist.Filters[name].Settings)
		if err != nil {
			return nil, errors.Wrap(err, "invalid filter config")
		}
		chain.Add(f)
		zlog.Info().Msgf("registered playlist filter: name=%s", name)
	}

	return chain, nil
}
