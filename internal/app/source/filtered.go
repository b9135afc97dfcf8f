package source

import (
	"context"

	"github.com/osa030/folioplayer/internal/app/filter"
	"github.com/osa030/folioplayer/internal/domain/track"
)

// withFilters decorates a provider so its tracks pass through a filter chain.
type withFilters struct {
	Provider
	filters *filter.Chain
}

// WithFilters wraps p so its tracks are filtered by chain. A provider whose
// tracks are all dropped counts as empty, so Chain moves on to the next one.
func WithFilters(p Provider, chain *filter.Chain) Provider {
	return &withFilters{Provider: p, filters: chain}
}

// Tracks returns the wrapped provider's tracks accepted by the filters.
func (w *withFilters) Tracks(ctx context.Context) ([]track.Track, error) {
	tracks, err := w.Provider.Tracks(ctx)
	if err != nil || len(tracks) == 0 {
		return tracks, err
	}
	return w.filters.Apply(ctx, tracks), nil
}
