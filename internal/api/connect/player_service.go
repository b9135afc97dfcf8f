package connect

import (
	"context"
	"math"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/folioplayer/internal/app/notification"
	"github.com/osa030/folioplayer/internal/app/playback"
	"github.com/osa030/folioplayer/internal/app/session"
	"github.com/osa030/folioplayer/internal/domain/lyric"
	"github.com/osa030/folioplayer/internal/domain/track"
)

var errStreamClosed = errors.New("notification stream closed")

type sessionRequest struct {
	SessionID string `mapstructure:"sessionId" validate:"required"`
}

type createSessionRequest struct {
	Tracks []track.Entry `mapstructure:"tracks"`
}

type advanceRequest struct {
	SessionID string `mapstructure:"sessionId" validate:"required"`
	Direction string `mapstructure:"direction" validate:"required,oneof=next previous prev"`
}

type selectTrackRequest struct {
	SessionID string   `mapstructure:"sessionId" validate:"required"`
	Index     *float64 `mapstructure:"index" validate:"required"`
}

// index rejects fractional values instead of truncating them.
func (r selectTrackRequest) index() (int, error) {
	i := *r.Index
	if i != math.Trunc(i) || math.IsInf(i, 0) {
		return 0, errors.Mark(errors.Newf("index must be an integer, got %v", i), ErrInvalidRequest)
	}
	return int(i), nil
}

type seekRequest struct {
	SessionID string   `mapstructure:"sessionId" validate:"required"`
	Fraction  *float64 `mapstructure:"fraction" validate:"required"`
}

type progressRequest struct {
	SessionID string  `mapstructure:"sessionId" validate:"required"`
	Elapsed   float64 `mapstructure:"elapsed"`
	Duration  float64 `mapstructure:"duration"`
}

type parseLyricsRequest struct {
	Lrc string   `mapstructure:"lrc"`
	At  *float64 `mapstructure:"at"`
}

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	sessions *session.Manager
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(sessions *session.Manager) *PlayerService {
	return &PlayerService{
		sessions: sessions,
	}
}

// CreateSession starts a player session over the supplied tracks, or over
// the configured playlist when none are given.
func (s *PlayerService) CreateSession(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	var msg createSessionRequest
	if err := decode(req.Msg, &msg); err != nil {
		return nil, toConnectError(err)
	}

	tracks := make([]track.Track, len(msg.Tracks))
	for i, e := range msg.Tracks {
		tracks[i] = e.Track()
	}

	sess, err := s.sessions.Create(ctx, tracks)
	if err != nil {
		return nil, toConnectError(err)
	}

	var (
		st       playback.PlayerState
		playlist []any
	)
	err = sess.Do(ctx, func(c *playback.Controller) error {
		st = c.State()
		for _, t := range c.Playlist().Tracks() {
			playlist = append(playlist, session.TrackPayload(t))
		}
		return nil
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	return respond(map[string]any{
		"sessionId": sess.ID(),
		"source":    sess.Source(),
		"state":     session.StatePayload(st),
		"tracks":    playlist,
	})
}

// GetState returns the current player state.
func (s *PlayerService) GetState(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	return s.command(ctx, req.Msg, nil)
}

// TogglePlay flips between playing and paused.
func (s *PlayerService) TogglePlay(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	return s.command(ctx, req.Msg, func(c *playback.Controller) error {
		c.TogglePlay()
		return nil
	})
}

// ToggleLyrics shows or hides the lyrics panel.
func (s *PlayerService) ToggleLyrics(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	return s.command(ctx, req.Msg, func(c *playback.Controller) error {
		c.ToggleLyricsVisible()
		return nil
	})
}

// CloseSession stops a session.
func (s *PlayerService) CloseSession(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	var msg sessionRequest
	if err := decode(req.Msg, &msg); err != nil {
		return nil, toConnectError(err)
	}
	if err := s.sessions.Close(msg.SessionID); err != nil {
		return nil, toConnectError(err)
	}
	return respond(map[string]any{})
}

// Advance moves to the next or previous track.
func (s *PlayerService) Advance(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	var msg advanceRequest
	if err := decode(req.Msg, &msg); err != nil {
		return nil, toConnectError(err)
	}
	dir, err := playback.ParseDirection(msg.Direction)
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.commandOn(ctx, msg.SessionID, func(c *playback.Controller) error {
		c.Advance(dir)
		return nil
	})
}

// SelectTrack jumps to a track by index.
func (s *PlayerService) SelectTrack(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	var msg selectTrackRequest
	if err := decode(req.Msg, &msg); err != nil {
		return nil, toConnectError(err)
	}
	index, err := msg.index()
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.commandOn(ctx, msg.SessionID, func(c *playback.Controller) error {
		return c.SelectTrack(index)
	})
}

// Seek jumps to a fraction of the current track.
func (s *PlayerService) Seek(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	var msg seekRequest
	if err := decode(req.Msg, &msg); err != nil {
		return nil, toConnectError(err)
	}
	return s.commandOn(ctx, msg.SessionID, func(c *playback.Controller) error {
		return c.Seek(*msg.Fraction)
	})
}

// ReportProgress records the media element's playback position.
func (s *PlayerService) ReportProgress(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	var msg progressRequest
	if err := decode(req.Msg, &msg); err != nil {
		return nil, toConnectError(err)
	}
	return s.commandOn(ctx, msg.SessionID, func(c *playback.Controller) error {
		c.OnProgressTick(msg.Elapsed, msg.Duration)
		return nil
	})
}

// ReportEnded reports that the current track finished playing.
func (s *PlayerService) ReportEnded(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	return s.command(ctx, req.Msg, func(c *playback.Controller) error {
		c.OnTrackEnded()
		return nil
	})
}

// ReportError reports that the current track failed to load.
func (s *PlayerService) ReportError(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	return s.command(ctx, req.Msg, func(c *playback.Controller) error {
		c.OnLoadError()
		return nil
	})
}

// GetTimeline returns the current track's lyric timeline.
func (s *PlayerService) GetTimeline(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	var msg sessionRequest
	if err := decode(req.Msg, &msg); err != nil {
		return nil, toConnectError(err)
	}
	sess, err := s.sessions.Get(msg.SessionID)
	if err != nil {
		return nil, toConnectError(err)
	}

	timeline, active, err := sess.Timeline(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return respond(map[string]any{
		"lines":      session.TimelinePayload(timeline),
		"activeLine": active,
	})
}

// ParseLyrics parses LRC text without a session. When "at" is given the
// active line at that time is resolved as well.
func (s *PlayerService) ParseLyrics(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	var msg parseLyricsRequest
	if err := decode(req.Msg, &msg); err != nil {
		return nil, toConnectError(err)
	}

	timeline := lyric.Parse(msg.Lrc)
	active := -1
	if msg.At != nil {
		active = timeline.ActiveIndex(*msg.At)
	}
	return respond(map[string]any{
		"lines":      session.TimelinePayload(timeline),
		"activeLine": active,
	})
}

// Subscribe streams notifications of a session until the client goes away
// or the session closes. The first message carries the current state.
func (s *PlayerService) Subscribe(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
	stream *connect.ServerStream[structpb.Struct],
) error {
	var msg sessionRequest
	if err := decode(req.Msg, &msg); err != nil {
		return toConnectError(err)
	}
	sess, err := s.sessions.Get(msg.SessionID)
	if err != nil {
		return toConnectError(err)
	}

	// Hold the stream while registering so the initial state is the first
	// message even if a broadcast races with it.
	adapter := &notificationStreamAdapter{stream: stream}
	adapter.mu.Lock()
	subscriptionID := sess.Subscribe(adapter)
	defer sess.Unsubscribe(subscriptionID)

	st, err := sess.State(ctx)
	if err == nil {
		err = adapter.sendLocked(&notification.Notification{
			Type:    notification.TypeEvent,
			Name:    "initial_state",
			Payload: map[string]any{"state": session.StatePayload(st)},
		})
	}
	adapter.mu.Unlock()
	if err != nil {
		return toConnectError(err)
	}
	zlog.Debug().Msgf("rpc: subscribed: session_id=%s subscription_id=%s", sess.ID(), subscriptionID)

	// Wait for context cancellation or session end
	select {
	case <-ctx.Done():
	case <-sess.Done():
	}
	adapter.close()
	return nil
}

// command decodes a session request and runs fn (if any) before returning
// the resulting state.
func (s *PlayerService) command(
	ctx context.Context,
	body *structpb.Struct,
	fn func(c *playback.Controller) error,
) (*connect.Response[structpb.Struct], error) {
	var msg sessionRequest
	if err := decode(body, &msg); err != nil {
		return nil, toConnectError(err)
	}
	return s.commandOn(ctx, msg.SessionID, fn)
}

func (s *PlayerService) commandOn(
	ctx context.Context,
	sessionID string,
	fn func(c *playback.Controller) error,
) (*connect.Response[structpb.Struct], error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, toConnectError(err)
	}

	var st playback.PlayerState
	err = sess.Do(ctx, func(c *playback.Controller) error {
		if fn != nil {
			if err := fn(c); err != nil {
				return err
			}
		}
		st = c.State()
		return nil
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	return respond(map[string]any{"state": session.StatePayload(st)})
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// Sends may arrive after the handler returned, when a broadcast timed out.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[structpb.Struct]
	closed bool
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errStreamClosed
	}
	return a.sendLocked(n)
}

func (a *notificationStreamAdapter) close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
}

func (a *notificationStreamAdapter) sendLocked(n *notification.Notification) error {
	msg, err := structpb.NewStruct(n.AsMap())
	if err != nil {
		return err
	}
	return a.stream.Send(msg)
}
