package source

import (
	_ "embed"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/osa030/folioplayer/internal/domain/track"
)

//go:embed default_playlist.yaml
var defaultPlaylistYAML []byte

// DefaultName is the name of the built-in playlist.
const DefaultName = "default"

// Default returns a provider over the built-in playlist.
func Default() *StaticProvider {
	tracks, err := defaultTracks()
	if err != nil {
		// The playlist is embedded at build time; failing here is a build defect.
		panic(err)
	}
	return NewStaticProviderFromTracks(DefaultName, tracks)
}

func defaultTracks() ([]track.Track, error) {
	var doc struct {
		Tracks []map[string]any `yaml:"tracks"`
	}
	if err := yaml.Unmarshal(defaultPlaylistYAML, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse built-in playlist")
	}
	tracks, err := track.DecodeEntries(doc.Tracks)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, errors.New("built-in playlist is empty")
	}
	return tracks, nil
}
