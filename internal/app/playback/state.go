// Package playback provides the player state machine and the event loop that owns it.
package playback

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/folioplayer/internal/domain/track"
)

// Phase represents the coarse player phase.
type Phase int

const (
	PhasePaused     Phase = iota // Not playing (initial)
	PhasePlaying                 // Transport is playing
	PhaseRecovering              // Current track failed to load, auto-advance pending
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhasePaused:
		return "paused"
	case PhasePlaying:
		return "playing"
	case PhaseRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// PlayerState is a snapshot of the controller state.
type PlayerState struct {
	CurrentIndex  int         // Index into the playlist
	IsPlaying     bool        // Play/pause flag
	Progress      float64     // Fraction of the track played, 0..1
	ActiveLine    int         // Active lyric line, -1 if none
	LyricsVisible bool        // Lyrics panel shown
	LoadFailed    bool        // Transport reported a load error for the current track
	Track         track.Track // Current track
}

// Phase derives the phase from the snapshot.
func (s PlayerState) Phase() Phase {
	switch {
	case s.LoadFailed:
		return PhaseRecovering
	case s.IsPlaying:
		return PhasePlaying
	default:
		return PhasePaused
	}
}

// Direction is the direction of a manual advance.
type Direction int

const (
	Next     Direction = iota // Following track
	Previous                  // Preceding track
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case Next:
		return "next"
	case Previous:
		return "previous"
	default:
		return "unknown"
	}
}

// ParseDirection parses "next" or "previous" (also "prev").
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "next":
		return Next, nil
	case "previous", "prev":
		return Previous, nil
	default:
		return Next, errors.Newf("unknown direction: %q", s)
	}
}
