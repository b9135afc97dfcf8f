package filter

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/folioplayer/internal/domain/track"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence for one track.
// Returns immediately if any filter rejects the track.
func (c *Chain) Execute(ctx context.Context, t track.Track, kept []track.Track) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, t, kept)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Apply returns the tracks accepted by every filter, in order.
func (c *Chain) Apply(ctx context.Context, tracks []track.Track) []track.Track {
	if len(c.filters) == 0 {
		return tracks
	}

	kept := make([]track.Track, 0, len(tracks))
	for _, t := range tracks {
		result := c.Execute(ctx, t, kept)
		if !result.Accepted {
			zlog.Debug().Msgf("filter: track dropped: track_id=%s title=%s code=%s", t.ID, t.Title, result.Code)
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}

// Len returns the number of filters in the chain.
func (c *Chain) Len() int {
	return len(c.filters)
}
