package playback

import (
	"time"

	"github.com/osa030/folioplayer/internal/domain/track"
)

// Transport is the media transport the controller drives.
// It reports back through OnProgressTick, OnTrackEnded and OnLoadError.
type Transport interface {
	Load(t track.Track)
	Start()
	Pause()
	Seek(fraction float64)
}

// NopTransport ignores every command.
type NopTransport struct{}

func (NopTransport) Load(track.Track) {}
func (NopTransport) Start()           {}
func (NopTransport) Pause()           {}
func (NopTransport) Seek(float64)     {}

// Timer is a scheduled callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
