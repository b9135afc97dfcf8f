package playback

import (
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/folioplayer/internal/domain/playlist"
	"github.com/osa030/folioplayer/internal/domain/track"
)

// fakeClock fires timers only when advanced.
type fakeClock struct {
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{at: c.now + d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now += d
	for i := 0; i < len(c.timers); i++ {
		t := c.timers[i]
		if t.stopped || t.fired || t.at > c.now {
			continue
		}
		t.fired = true
		t.fn()
	}
}

func (c *fakeClock) Pending() int {
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// recordingTransport records the commands it receives.
type recordingTransport struct {
	calls []string
}

func (r *recordingTransport) Load(t track.Track) { r.calls = append(r.calls, "load:"+t.ID) }
func (r *recordingTransport) Start()             { r.calls = append(r.calls, "start") }
func (r *recordingTransport) Pause()             { r.calls = append(r.calls, "pause") }
func (r *recordingTransport) Seek(fraction float64) {
	r.calls = append(r.calls, fmt.Sprintf("seek:%.2f", fraction))
}

func (r *recordingTransport) reset() { r.calls = nil }

func newTestPlaylist(t *testing.T) *playlist.Playlist {
	t.Helper()
	pl, err := playlist.New("test", []track.Track{
		{ID: "t0", Title: "Zero", RawLyrics: "[00:00.00]zero a\n[00:05.00]zero b\n[00:10.00]zero c"},
		{ID: "t1", Title: "One", RawLyrics: "[00:01.00]one a\n[00:02.00]one b"},
		{ID: "t2", Title: "Two"},
	})
	require.NoError(t, err)
	return pl
}

func newTestController(t *testing.T) (*Controller, *fakeClock, *recordingTransport) {
	t.Helper()
	clock := &fakeClock{}
	transport := &recordingTransport{}
	c := NewController(newTestPlaylist(t), transport, Config{RecoveryDelay: time.Second}, WithClock(clock))
	return c, clock, transport
}

func drainEvents(c *Controller) []EventType {
	var types []EventType
	for {
		select {
		case e := <-c.Events():
			types = append(types, e.Type)
		default:
			return types
		}
	}
}

func TestNewController_InitialState(t *testing.T) {
	c, _, transport := newTestController(t)

	st := c.State()
	assert.Equal(t, 0, st.CurrentIndex)
	assert.False(t, st.IsPlaying)
	assert.Equal(t, -1, st.ActiveLine)
	assert.False(t, st.LyricsVisible)
	assert.False(t, st.LoadFailed)
	assert.Equal(t, PhasePaused, st.Phase())
	assert.Equal(t, "t0", st.Track.ID)
	assert.Len(t, c.Timeline(), 3)
	assert.Equal(t, []string{"load:t0"}, transport.calls)
}

func TestNewController_DefaultConfig(t *testing.T) {
	c := NewController(newTestPlaylist(t), nil, Config{})
	assert.Equal(t, DefaultRecoveryDelay, c.config.RecoveryDelay)
	assert.Equal(t, defaultEventBuffer, cap(c.eventCh))
}

func TestController_SelectTrack(t *testing.T) {
	c, _, transport := newTestController(t)
	c.ToggleLyricsVisible()
	c.OnProgressTick(6, 100)
	require.Equal(t, 1, c.State().ActiveLine)
	transport.reset()

	require.NoError(t, c.SelectTrack(1))

	st := c.State()
	assert.Equal(t, 1, st.CurrentIndex)
	assert.Equal(t, -1, st.ActiveLine)
	assert.Equal(t, 0.0, st.Progress)
	assert.False(t, st.IsPlaying, "select does not change play state")
	assert.Equal(t, []string{"one a", "one b"}, c.Timeline().Texts())
	assert.Equal(t, []string{"load:t1"}, transport.calls)
}

func TestController_SelectTrack_WhilePlaying(t *testing.T) {
	c, _, transport := newTestController(t)
	c.TogglePlay()
	transport.reset()

	require.NoError(t, c.SelectTrack(2))

	assert.True(t, c.State().IsPlaying)
	assert.Equal(t, []string{"load:t2", "start"}, transport.calls)
}

func TestController_SelectTrack_OutOfRange(t *testing.T) {
	c, _, transport := newTestController(t)
	transport.reset()

	for _, index := range []int{-1, 3, 100} {
		err := c.SelectTrack(index)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	}
	assert.Equal(t, 0, c.State().CurrentIndex)
	assert.Empty(t, transport.calls)
}

func TestController_TogglePlay(t *testing.T) {
	c, _, transport := newTestController(t)
	transport.reset()

	c.TogglePlay()
	assert.True(t, c.State().IsPlaying)
	assert.Equal(t, PhasePlaying, c.State().Phase())

	c.TogglePlay()
	assert.False(t, c.State().IsPlaying)

	assert.Equal(t, []string{"start", "pause"}, transport.calls)
	assert.Equal(t, []EventType{EventPlayStateChanged, EventPlayStateChanged}, drainEvents(c))
}

func TestController_Advance(t *testing.T) {
	tests := []struct {
		name     string
		start    int
		dir      Direction
		expected int
	}{
		{name: "next from first", start: 0, dir: Next, expected: 1},
		{name: "next wraps from last", start: 2, dir: Next, expected: 0},
		{name: "previous from middle", start: 1, dir: Previous, expected: 0},
		{name: "previous wraps from first", start: 0, dir: Previous, expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, transport := newTestController(t)
			require.NoError(t, c.SelectTrack(tt.start))
			transport.reset()

			c.Advance(tt.dir)

			st := c.State()
			assert.Equal(t, tt.expected, st.CurrentIndex)
			assert.True(t, st.IsPlaying, "advance always resumes playback")
			assert.Equal(t, []string{fmt.Sprintf("load:t%d", tt.expected), "start"}, transport.calls)
		})
	}
}

func TestController_OnTrackEnded(t *testing.T) {
	c, _, _ := newTestController(t)
	require.NoError(t, c.SelectTrack(2))

	c.OnTrackEnded()

	assert.Equal(t, 0, c.State().CurrentIndex)
	assert.True(t, c.State().IsPlaying)
}

func TestController_OnProgressTick(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  float64
		duration float64
		expected float64
	}{
		{name: "half way", elapsed: 30, duration: 60, expected: 0.5},
		{name: "zero duration treated as one second", elapsed: 0.25, duration: 0, expected: 0.25},
		{name: "unknown duration", elapsed: 0.5, duration: -1, expected: 0.5},
		{name: "clamped to one", elapsed: 90, duration: 60, expected: 1},
		{name: "negative elapsed", elapsed: -3, duration: 60, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestController(t)
			c.OnProgressTick(tt.elapsed, tt.duration)
			assert.InDelta(t, tt.expected, c.State().Progress, 1e-9)
		})
	}
}

func TestController_OnProgressTick_LyricsHidden(t *testing.T) {
	c, _, _ := newTestController(t)

	c.OnProgressTick(6, 100)

	assert.Equal(t, -1, c.State().ActiveLine)
	assert.Empty(t, drainEvents(c))
}

func TestController_OnProgressTick_LyricsVisible(t *testing.T) {
	c, _, _ := newTestController(t)
	c.ToggleLyricsVisible()
	require.Equal(t, 0, c.State().ActiveLine)
	drainEvents(c)

	c.OnProgressTick(1, 100)
	assert.Equal(t, 0, c.State().ActiveLine)

	c.OnProgressTick(2, 100)
	assert.Equal(t, 0, c.State().ActiveLine)

	c.OnProgressTick(7, 100)
	assert.Equal(t, 1, c.State().ActiveLine)

	c.OnProgressTick(12, 100)
	assert.Equal(t, 2, c.State().ActiveLine)

	// Only actual changes are reported.
	assert.Equal(t, []EventType{EventLyricLineChanged, EventLyricLineChanged}, drainEvents(c))
}

func TestController_ToggleLyricsVisible_Refreshes(t *testing.T) {
	c, _, _ := newTestController(t)
	c.OnProgressTick(6, 100)
	require.Equal(t, -1, c.State().ActiveLine)

	c.ToggleLyricsVisible()

	assert.True(t, c.State().LyricsVisible)
	assert.Equal(t, 1, c.State().ActiveLine)

	c.ToggleLyricsVisible()
	assert.False(t, c.State().LyricsVisible)
	assert.False(t, c.State().IsPlaying, "lyrics toggle has no playback side effect")
}

func TestController_EmptyTimeline(t *testing.T) {
	c, _, _ := newTestController(t)
	require.NoError(t, c.SelectTrack(2))
	c.ToggleLyricsVisible()

	c.OnProgressTick(42, 100)

	assert.Empty(t, c.Timeline())
	assert.Equal(t, -1, c.State().ActiveLine)
}

func TestController_Seek(t *testing.T) {
	c, _, transport := newTestController(t)
	transport.reset()

	require.NoError(t, c.Seek(0.25))
	require.NoError(t, c.Seek(0))
	require.NoError(t, c.Seek(1))
	assert.Equal(t, []string{"seek:0.25", "seek:0.00", "seek:1.00"}, transport.calls)

	for _, fraction := range []float64{-0.1, 1.5} {
		err := c.Seek(fraction)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidSeek))
	}
}

func TestController_OnLoadError_SchedulesOneAdvance(t *testing.T) {
	c, clock, _ := newTestController(t)

	c.OnLoadError()

	st := c.State()
	assert.True(t, st.LoadFailed)
	assert.Equal(t, PhaseRecovering, st.Phase())
	assert.Equal(t, 0, st.CurrentIndex, "advance is deferred")
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(999 * time.Millisecond)
	assert.Equal(t, 0, c.State().CurrentIndex)

	clock.Advance(time.Millisecond)
	assert.Equal(t, 1, c.State().CurrentIndex)
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(time.Hour)
	assert.Equal(t, 1, c.State().CurrentIndex, "exactly one advance")
}

func TestController_OnLoadError_Repeated(t *testing.T) {
	c, clock, _ := newTestController(t)

	c.OnLoadError()
	c.OnLoadError()
	c.OnLoadError()

	assert.Equal(t, 1, clock.Pending())
	clock.Advance(time.Second)
	assert.Equal(t, 1, c.State().CurrentIndex)
}

func TestController_OnLoadError_SupersededBySelect(t *testing.T) {
	c, clock, _ := newTestController(t)

	c.OnLoadError()
	require.NoError(t, c.SelectTrack(2))
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(5 * time.Second)

	assert.Equal(t, 2, c.State().CurrentIndex, "stale recovery must not fire")
	assert.False(t, c.State().LoadFailed)
}

func TestController_OnLoadError_SupersededByAdvance(t *testing.T) {
	c, clock, _ := newTestController(t)

	c.OnLoadError()
	c.Advance(Previous)
	clock.Advance(5 * time.Second)

	assert.Equal(t, 2, c.State().CurrentIndex)
}

func TestController_StaleRecoveryDropped(t *testing.T) {
	c, clock, _ := newTestController(t)

	// A timer that cannot be stopped any more still carries its generation.
	c.OnLoadError()
	timer := clock.timers[0]
	c.recovery = nil
	require.NoError(t, c.SelectTrack(1))

	timer.fired = true
	timer.fn()

	assert.Equal(t, 1, c.State().CurrentIndex)
}

func TestController_ErrorRecoveryScenario(t *testing.T) {
	c, clock, transport := newTestController(t)
	c.TogglePlay()
	transport.reset()

	c.OnLoadError()
	clock.Advance(time.Second)

	st := c.State()
	assert.Equal(t, 1, st.CurrentIndex)
	assert.False(t, st.LoadFailed)
	assert.True(t, st.IsPlaying)
	assert.Equal(t, []string{"one a", "one b"}, c.Timeline().Texts())
	assert.Equal(t, []string{"load:t1", "start"}, transport.calls)
}

func TestController_AllTracksFailing(t *testing.T) {
	c, clock, _ := newTestController(t)

	visited := []int{}
	for i := 0; i < 6; i++ {
		c.OnLoadError()
		clock.Advance(time.Second)
		visited = append(visited, c.State().CurrentIndex)
	}

	assert.Equal(t, []int{1, 2, 0, 1, 2, 0}, visited)
}

func TestController_Events(t *testing.T) {
	c, clock, _ := newTestController(t)

	require.NoError(t, c.SelectTrack(1))
	c.ToggleLyricsVisible()
	c.OnLoadError()
	clock.Advance(time.Second)

	assert.Equal(t, []EventType{
		EventTrackChanged,
		EventLyricsToggled,
		EventLoadFailed,
		EventRecoveryScheduled,
		EventTrackChanged,
	}, drainEvents(c))
}

func TestController_Close(t *testing.T) {
	c, clock, _ := newTestController(t)
	c.OnLoadError()

	c.Close()
	c.Close()

	assert.Equal(t, 0, clock.Pending())
	_, ok := <-c.Events()
	for ok {
		_, ok = <-c.Events()
	}
	assert.False(t, ok)

	// Commands after close do not panic on the closed channel.
	c.TogglePlay()
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input    string
		expected Direction
		wantErr  bool
	}{
		{input: "next", expected: Next},
		{input: "NEXT", expected: Next},
		{input: "previous", expected: Previous},
		{input: "prev", expected: Previous},
		{input: "sideways", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			dir, err := ParseDirection(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, dir)
		})
	}
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "paused", PhasePaused.String())
	assert.Equal(t, "playing", PhasePlaying.String())
	assert.Equal(t, "recovering", PhaseRecovering.String())
	assert.Equal(t, "unknown", Phase(99).String())
	assert.Equal(t, "track_changed", EventTrackChanged.String())
	assert.Equal(t, "next", Next.String())
}
