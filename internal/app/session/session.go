package session

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/folioplayer/internal/app/notification"
	"github.com/osa030/folioplayer/internal/app/playback"
	"github.com/osa030/folioplayer/internal/domain/lyric"
)

// Session is one embedded player: a playback loop plus the subscribers
// following it.
type Session struct {
	id        string
	source    string
	createdAt time.Time

	loop         *playback.Loop
	transport    *remoteTransport
	notification *notification.Manager

	cancel context.CancelFunc
	done   chan struct{}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Source returns the name of the playlist source the session was built from.
func (s *Session) Source() string {
	return s.source
}

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Done is closed once the session has stopped and all notifications were sent.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Do runs fn against the session's controller on the playback loop.
func (s *Session) Do(ctx context.Context, fn func(c *playback.Controller) error) error {
	return s.loop.Do(ctx, fn)
}

// State returns a snapshot of the player state.
func (s *Session) State(ctx context.Context) (playback.PlayerState, error) {
	return s.loop.State(ctx)
}

// Timeline returns the current lyric timeline and the active line.
func (s *Session) Timeline(ctx context.Context) (lyric.Timeline, int, error) {
	var (
		timeline lyric.Timeline
		active   int
	)
	err := s.loop.Do(ctx, func(c *playback.Controller) error {
		timeline = c.Timeline()
		active = c.State().ActiveLine
		return nil
	})
	return timeline, active, err
}

// Subscribe registers a notification stream and returns its subscription ID.
func (s *Session) Subscribe(stream notification.Stream) string {
	return s.notification.Subscribe(stream)
}

// Unsubscribe removes a notification stream.
func (s *Session) Unsubscribe(subscriptionID string) {
	s.notification.Unsubscribe(subscriptionID)
}

// SubscriberCount returns the number of subscribed streams.
func (s *Session) SubscriberCount() int {
	return s.notification.SubscriberCount()
}

// close stops the playback loop; forward finishes the shutdown.
func (s *Session) close() {
	s.cancel()
}

// forward relays transport commands and controller events to subscribers
// until the playback loop stops.
func (s *Session) forward() {
	defer close(s.done)

	events := s.loop.Events()
	for {
		select {
		case n := <-s.transport.commands:
			s.notification.Broadcast(n)

		case e, ok := <-events:
			if !ok {
				s.drainCommands()
				s.notification.Broadcast(&notification.Notification{
					Type: notification.TypeClosed,
					Name: "closed",
				})
				s.notification.Close()
				zlog.Debug().Msgf("session: forwarder stopped: session_id=%s", s.id)
				return
			}
			s.notification.Broadcast(&notification.Notification{
				Type:    notification.TypeEvent,
				Name:    e.Type.String(),
				Payload: map[string]any{"state": StatePayload(e.State)},
			})
		}
	}
}

// drainCommands relays commands queued before the loop stopped.
func (s *Session) drainCommands() {
	for {
		select {
		case n := <-s.transport.commands:
			s.notification.Broadcast(n)
		default:
			return
		}
	}
}
