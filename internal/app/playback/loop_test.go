package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T, c *Controller) (*Loop, context.CancelFunc) {
	t.Helper()
	l := NewLoop(c, 0)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l, cancel
}

func TestLoop_Do(t *testing.T) {
	c := NewController(newTestPlaylist(t), nil, Config{})
	l, _ := startLoop(t, c)
	ctx := context.Background()

	require.NoError(t, l.Do(ctx, func(c *Controller) error {
		c.TogglePlay()
		return nil
	}))

	st, err := l.State(ctx)
	require.NoError(t, err)
	assert.True(t, st.IsPlaying)

	err = l.Do(ctx, func(c *Controller) error {
		return c.SelectTrack(10)
	})
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestLoop_ConcurrentCommands(t *testing.T) {
	c := NewController(newTestPlaylist(t), nil, Config{EventBuffer: 1024})
	l, _ := startLoop(t, c)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Do(ctx, func(c *Controller) error {
				c.Advance(Next)
				return nil
			})
		}()
	}
	wg.Wait()

	st, err := l.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.CurrentIndex, "30 advances over 3 tracks")
}

func TestLoop_RecoveryWithRealClock(t *testing.T) {
	c := NewController(newTestPlaylist(t), nil, Config{RecoveryDelay: 20 * time.Millisecond})
	l, _ := startLoop(t, c)
	ctx := context.Background()

	require.NoError(t, l.Do(ctx, func(c *Controller) error {
		c.OnLoadError()
		return nil
	}))

	require.Eventually(t, func() bool {
		st, err := l.State(ctx)
		return err == nil && st.CurrentIndex == 1 && !st.LoadFailed
	}, time.Second, 5*time.Millisecond)
}

func TestLoop_RecoveryCancelledBySelect(t *testing.T) {
	c := NewController(newTestPlaylist(t), nil, Config{RecoveryDelay: 30 * time.Millisecond})
	l, _ := startLoop(t, c)
	ctx := context.Background()

	require.NoError(t, l.Do(ctx, func(c *Controller) error {
		c.OnLoadError()
		return c.SelectTrack(2)
	}))

	time.Sleep(100 * time.Millisecond)

	st, err := l.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.CurrentIndex)
}

func TestLoop_Events(t *testing.T) {
	c := NewController(newTestPlaylist(t), nil, Config{})
	l, _ := startLoop(t, c)

	require.NoError(t, l.Do(context.Background(), func(c *Controller) error {
		c.TogglePlay()
		return nil
	}))

	select {
	case e := <-l.Events():
		assert.Equal(t, EventPlayStateChanged, e.Type)
		assert.True(t, e.State.IsPlaying)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestLoop_Closed(t *testing.T) {
	c := NewController(newTestPlaylist(t), nil, Config{})
	l, cancel := startLoop(t, c)

	cancel()
	<-l.Done()

	err := l.Do(context.Background(), func(c *Controller) error { return nil })
	assert.ErrorIs(t, err, ErrLoopClosed)

	_, ok := <-l.Events()
	assert.False(t, ok, "event channel closed on shutdown")
}

func TestLoop_PanicRecovered(t *testing.T) {
	c := NewController(newTestPlaylist(t), nil, Config{})
	l, _ := startLoop(t, c)

	err := l.Do(context.Background(), func(c *Controller) error { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command panicked: boom")

	_, err = l.State(context.Background())
	assert.NoError(t, err, "loop keeps running after a panic")
}
