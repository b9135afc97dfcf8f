package playback

// EventType represents a controller event type.
type EventType int

const (
	EventTrackChanged      EventType = iota // Current track changed (manual, end of track or recovery)
	EventPlayStateChanged                   // Play/pause toggled
	EventLyricLineChanged                   // Active lyric line changed
	EventLyricsToggled                      // Lyrics panel shown or hidden
	EventLoadFailed                         // Current track failed to load
	EventRecoveryScheduled                  // Auto-advance after a load failure was scheduled
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventPlayStateChanged:
		return "play_state_changed"
	case EventLyricLineChanged:
		return "lyric_line_changed"
	case EventLyricsToggled:
		return "lyrics_toggled"
	case EventLoadFailed:
		return "load_failed"
	case EventRecoveryScheduled:
		return "recovery_scheduled"
	default:
		return "unknown"
	}
}

// Event represents a controller event.
type Event struct {
	Type  EventType
	State PlayerState // State right after the change
}
