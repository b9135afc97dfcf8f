package playback

import (
	"math"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/folioplayer/internal/domain/lyric"
	"github.com/osa030/folioplayer/internal/domain/playlist"
)

// Errors
var (
	ErrIndexOutOfRange = errors.New("track index out of range")
	ErrInvalidSeek     = errors.New("seek fraction must be within [0, 1]")
)

const (
	// DefaultRecoveryDelay is the wait before skipping a track that failed to load.
	DefaultRecoveryDelay = time.Second
	defaultEventBuffer   = 32
)

// Config holds controller configuration.
type Config struct {
	RecoveryDelay time.Duration // Delay before auto-advancing after a load error (never zero)
	EventBuffer   int           // Event channel capacity
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock used to schedule recoveries.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// Controller is the player state machine.
//
// A Controller has a single owner and is not safe for concurrent use.
// Wrap it in a Loop to feed it from several goroutines.
type Controller struct {
	playlist  *playlist.Playlist
	transport Transport
	clock     Clock
	config    Config

	state    PlayerState
	timeline lyric.Timeline
	elapsed  float64 // Last reported elapsed seconds

	// generation is bumped on every track change; a recovery only fires
	// if the generation it was scheduled under is still current.
	generation uint64
	recovery   Timer

	// dispatch runs scheduled callbacks on the owner's goroutine.
	dispatch func(func())

	eventCh chan Event
	closed  bool
}

// NewController creates a controller positioned, paused, on the first track.
func NewController(pl *playlist.Playlist, transport Transport, config Config, opts ...Option) *Controller {
	if config.RecoveryDelay <= 0 {
		config.RecoveryDelay = DefaultRecoveryDelay
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = defaultEventBuffer
	}
	if transport == nil {
		transport = NopTransport{}
	}

	c := &Controller{
		playlist:  pl,
		transport: transport,
		clock:     realClock{},
		config:    config,
		dispatch:  func(fn func()) { fn() },
		eventCh:   make(chan Event, config.EventBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.selectTrack(0)
	return c
}

// Events returns the event channel. It is closed by Close.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// State returns a snapshot of the player state.
func (c *Controller) State() PlayerState {
	return c.state
}

// Timeline returns a copy of the current track's lyric timeline.
func (c *Controller) Timeline() lyric.Timeline {
	result := make(lyric.Timeline, len(c.timeline))
	copy(result, c.timeline)
	return result
}

// Playlist returns the playlist the controller plays.
func (c *Controller) Playlist() *playlist.Playlist {
	return c.playlist
}

// SelectTrack makes the track at index current. Play state is unchanged;
// a playing player keeps playing the new track.
func (c *Controller) SelectTrack(index int) error {
	if _, ok := c.playlist.At(index); !ok {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d (playlist length %d)", index, c.playlist.Len())
	}

	c.selectTrack(index)
	if c.state.IsPlaying {
		c.transport.Start()
	}
	c.sendEvent(EventTrackChanged)
	return nil
}

// TogglePlay flips between playing and paused.
func (c *Controller) TogglePlay() {
	c.state.IsPlaying = !c.state.IsPlaying
	if c.state.IsPlaying {
		c.transport.Start()
	} else {
		c.transport.Pause()
	}

	zlog.Debug().Msgf("playback: play state changed: playing=%t index=%d", c.state.IsPlaying, c.state.CurrentIndex)
	c.sendEvent(EventPlayStateChanged)
}

// Advance moves to the next or previous track, wrapping around,
// and always resumes playback.
func (c *Controller) Advance(dir Direction) {
	index := c.playlist.Next(c.state.CurrentIndex)
	if dir == Previous {
		index = c.playlist.Previous(c.state.CurrentIndex)
	}

	c.selectTrack(index)
	c.state.IsPlaying = true
	c.transport.Start()
	c.sendEvent(EventTrackChanged)
}

// OnProgressTick records transport progress and, while lyrics are visible,
// updates the active lyric line.
func (c *Controller) OnProgressTick(elapsed, duration float64) {
	if math.IsNaN(duration) || duration < 1 {
		duration = 1
	}
	if math.IsNaN(elapsed) || elapsed < 0 {
		elapsed = 0
	}

	c.elapsed = elapsed
	c.state.Progress = math.Min(elapsed/duration, 1)

	if c.state.LyricsVisible {
		c.refreshActiveLine()
	}
}

// OnTrackEnded handles the natural end of the current track.
func (c *Controller) OnTrackEnded() {
	c.Advance(Next)
}

// OnLoadError marks the current track as failed and schedules a skip to the
// next track after the recovery delay. The skip is dropped if the track
// changes before it fires.
func (c *Controller) OnLoadError() {
	c.state.LoadFailed = true
	c.sendEvent(EventLoadFailed)

	if c.recovery != nil {
		return
	}

	generation := c.generation
	c.recovery = c.clock.AfterFunc(c.config.RecoveryDelay, func() {
		c.dispatch(func() {
			c.runRecovery(generation)
		})
	})

	zlog.Warn().Msgf("playback: track failed to load, skipping: track_id=%s index=%d delay=%v",
		c.state.Track.ID, c.state.CurrentIndex, c.config.RecoveryDelay)
	c.sendEvent(EventRecoveryScheduled)
}

// ToggleLyricsVisible shows or hides the lyrics panel.
func (c *Controller) ToggleLyricsVisible() {
	c.state.LyricsVisible = !c.state.LyricsVisible
	c.sendEvent(EventLyricsToggled)

	if c.state.LyricsVisible {
		c.refreshActiveLine()
	}
}

// Seek asks the transport to jump to a fraction of the track duration.
func (c *Controller) Seek(fraction float64) error {
	if math.IsNaN(fraction) || fraction < 0 || fraction > 1 {
		return errors.Wrapf(ErrInvalidSeek, "got %v", fraction)
	}
	c.transport.Seek(fraction)
	return nil
}

// Close cancels any pending recovery and closes the event channel.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.cancelRecovery()
	c.closed = true
	close(c.eventCh)
}

// selectTrack resets per-track state and loads the track. index must be valid.
func (c *Controller) selectTrack(index int) {
	c.cancelRecovery()
	c.generation++

	t, _ := c.playlist.At(index)
	c.state.CurrentIndex = index
	c.state.Track = t
	c.state.ActiveLine = -1
	c.state.LoadFailed = false
	c.state.Progress = 0
	c.elapsed = 0
	c.timeline = lyric.Parse(t.RawLyrics)

	zlog.Debug().Msgf("playback: track selected: index=%d track_id=%s title=%s cues=%d",
		index, t.ID, t.Title, len(c.timeline))
	c.transport.Load(t)
}

// runRecovery runs the scheduled skip if it is still current.
func (c *Controller) runRecovery(generation uint64) {
	if c.closed || generation != c.generation {
		zlog.Debug().Msgf("playback: dropping stale recovery: generation=%d current=%d", generation, c.generation)
		return
	}
	c.recovery = nil
	c.Advance(Next)
}

func (c *Controller) cancelRecovery() {
	if c.recovery != nil {
		c.recovery.Stop()
		c.recovery = nil
	}
}

func (c *Controller) refreshActiveLine() {
	index := c.timeline.ActiveIndex(c.elapsed)
	if index == c.state.ActiveLine {
		return
	}
	c.state.ActiveLine = index
	c.sendEvent(EventLyricLineChanged)
}

// sendEvent sends an event without blocking.
func (c *Controller) sendEvent(t EventType) {
	if c.closed {
		return
	}
	select {
	case c.eventCh <- Event{Type: t, State: c.state}:
	default:
		// Channel full, drop event
	}
}
