package source

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/folioplayer/internal/domain/track"
)

// StaticProviderConfig is the settings block of a "static" provider.
type StaticProviderConfig struct {
	Name   string        `mapstructure:"name" default:"static"`
	Tracks []track.Entry `mapstructure:"tracks" validate:"required,min=1"`
}

// StaticProvider serves a fixed list of tracks from configuration.
type StaticProvider struct {
	name   string
	tracks []track.Track
}

// NewStaticProvider creates a StaticProvider from provider settings.
func NewStaticProvider(settings map[string]any) (*StaticProvider, error) {
	var config StaticProviderConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &config,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	tracks := make([]track.Track, len(config.Tracks))
	for i, e := range config.Tracks {
		tracks[i] = e.Track()
	}
	zlog.Debug().Msgf("static provider config: name=%s tracks=%d", config.Name, len(tracks))

	return &StaticProvider{name: config.Name, tracks: tracks}, nil
}

// NewStaticProviderFromTracks creates a StaticProvider over the given tracks.
func NewStaticProviderFromTracks(name string, tracks []track.Track) *StaticProvider {
	copied := make([]track.Track, len(tracks))
	copy(copied, tracks)
	return &StaticProvider{name: name, tracks: copied}
}

// Tracks returns a copy of the configured tracks.
func (p *StaticProvider) Tracks(ctx context.Context) ([]track.Track, error) {
	result := make([]track.Track, len(p.tracks))
	copy(result, p.tracks)
	return result, nil
}

// Name returns the provider name.
func (p *StaticProvider) Name() string {
	return p.name
}
