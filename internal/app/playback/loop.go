package playback

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ErrLoopClosed is returned when a command is submitted after the loop stopped.
var ErrLoopClosed = errors.New("playback loop is closed")

const defaultCommandBuffer = 64

// Loop serializes UI intents, transport callbacks and scheduled recoveries
// onto a single goroutine that owns the Controller.
type Loop struct {
	controller *Controller
	cmds       chan func()
	done       chan struct{}
	closeOnce  sync.Once
}

// NewLoop creates a loop that owns the controller.
// The controller must not be used directly once the loop is created.
func NewLoop(c *Controller, buffer int) *Loop {
	if buffer <= 0 {
		buffer = defaultCommandBuffer
	}
	l := &Loop{
		controller: c,
		cmds:       make(chan func(), buffer),
		done:       make(chan struct{}),
	}
	c.dispatch = l.post
	return l
}

// Run processes commands until ctx is cancelled, then closes the controller.
func (l *Loop) Run(ctx context.Context) {
	defer l.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.cmds:
			l.exec(fn)
		}
	}
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Events returns the controller's event channel.
func (l *Loop) Events() <-chan Event {
	return l.controller.Events()
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func(c *Controller) error) error {
	errCh := make(chan error, 1)
	cmd := func() {
		defer func() {
			if r := recover(); r != nil {
				zlog.Error().Msgf("playback: command panicked: %v", r)
				errCh <- errors.Newf("command panicked: %v", r)
			}
		}()
		errCh <- fn(l.controller)
	}

	select {
	case l.cmds <- cmd:
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errCh:
		return err
	case <-l.done:
		select {
		case err := <-errCh:
			return err
		default:
			return ErrLoopClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a snapshot of the controller state.
func (l *Loop) State(ctx context.Context) (PlayerState, error) {
	var st PlayerState
	err := l.Do(ctx, func(c *Controller) error {
		st = c.State()
		return nil
	})
	return st, err
}

// post enqueues a scheduled callback; it is dropped once the loop stopped.
func (l *Loop) post(fn func()) {
	select {
	case l.cmds <- fn:
	case <-l.done:
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("playback: command panicked: %v", r)
		}
	}()
	fn()
}

func (l *Loop) shutdown() {
	l.closeOnce.Do(func() {
		close(l.done)
		l.controller.Close()
	})
}
