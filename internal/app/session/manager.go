// Package session provides the session manager that owns the player sessions.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/folioplayer/internal/app/notification"
	"github.com/osa030/folioplayer/internal/app/playback"
	"github.com/osa030/folioplayer/internal/app/session/registry"
	"github.com/osa030/folioplayer/internal/app/source"
	"github.com/osa030/folioplayer/internal/domain/playlist"
	"github.com/osa030/folioplayer/internal/domain/track"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrManagerClosed   = errors.New("session manager is closed")
)

// Config holds session configuration.
type Config struct {
	RecoveryDelay time.Duration // Delay before skipping a track that failed to load
	EventBuffer   int           // Controller event channel capacity
	CommandBuffer int           // Loop command and transport command capacity
	Clock         playback.Clock
}

// Info is a summary of a session for listings.
type Info struct {
	ID          string
	Source      string
	CreatedAt   time.Time
	Subscribers int
}

// Manager manages the player sessions.
type Manager struct {
	config   Config
	source   source.Provider
	finder   *source.LyricsFinder
	sessions *registry.Registry[*Session]

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewManager creates a new session manager. src provides the playlist of
// sessions created without tracks; finder, when set, fills in lyrics for
// caller-supplied tracks.
func NewManager(cfg Config, src source.Provider, finder *source.LyricsFinder) *Manager {
	if src == nil {
		src = source.Default()
	}
	return &Manager{
		config:   cfg,
		source:   src,
		finder:   finder,
		sessions: registry.New[*Session](),
	}
}

// Create starts a new session over tracks, or over the configured source
// when tracks is empty.
func (m *Manager) Create(ctx context.Context, tracks []track.Track) (*Session, error) {
	sourceName := "caller"
	if len(tracks) == 0 {
		resolved, name, err := m.resolve(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve playlist")
		}
		tracks, sourceName = resolved, name
	} else if m.finder != nil {
		tracks = m.finder.Enrich(ctx, tracks)
	}

	pl, err := playlist.New(sourceName, tracks)
	if err != nil {
		return nil, errors.Wrap(err, "invalid playlist")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrManagerClosed
	}

	var sess *Session
	m.sessions.Add(func(id string) *Session {
		sess = m.newSession(id, sourceName, pl)
		return sess
	})

	zlog.Info().Msgf("session created: session_id=%s source=%s tracks=%d", sess.id, sourceName, pl.Len())
	return sess, nil
}

func (m *Manager) resolve(ctx context.Context) ([]track.Track, string, error) {
	if chain, ok := m.source.(*source.Chain); ok {
		return chain.Resolve(ctx)
	}
	tracks, err := m.source.Tracks(ctx)
	return tracks, m.source.Name(), err
}

func (m *Manager) newSession(id, sourceName string, pl *playlist.Playlist) *Session {
	transport := newRemoteTransport(id, m.config.CommandBuffer)

	var opts []playback.Option
	if m.config.Clock != nil {
		opts = append(opts, playback.WithClock(m.config.Clock))
	}
	controller := playback.NewController(pl, transport, playback.Config{
		RecoveryDelay: m.config.RecoveryDelay,
		EventBuffer:   m.config.EventBuffer,
	}, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	sess := &Session{
		id:           id,
		source:       sourceName,
		createdAt:    time.Now(),
		loop:         playback.NewLoop(controller, m.config.CommandBuffer),
		transport:    transport,
		notification: notification.NewManager(),
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		sess.loop.Run(ctx)
	}()
	go func() {
		defer m.wg.Done()
		sess.forward()
	}()

	return sess
}

// Get retrieves a session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	sess, err := m.sessions.Get(id)
	if err != nil {
		return nil, errors.Wrapf(ErrSessionNotFound, "session_id=%s", id)
	}
	return sess, nil
}

// Close stops and removes a session.
func (m *Manager) Close(id string) error {
	sess, err := m.sessions.Remove(id)
	if err != nil {
		return errors.Wrapf(ErrSessionNotFound, "session_id=%s", id)
	}
	sess.close()
	zlog.Info().Msgf("session closed: session_id=%s", id)
	return nil
}

// List returns a summary of all sessions in creation order.
func (m *Manager) List() []Info {
	sessions := m.sessions.All()
	result := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		result = append(result, Info{
			ID:          s.id,
			Source:      s.source,
			CreatedAt:   s.createdAt,
			Subscribers: s.SubscriberCount(),
		})
	}
	return result
}

// Count returns the number of sessions.
func (m *Manager) Count() int {
	return m.sessions.Count()
}

// Shutdown closes every session and waits for their goroutines to finish.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	for _, s := range m.sessions.All() {
		if _, err := m.sessions.Remove(s.id); err == nil {
			s.close()
		}
	}
	m.wg.Wait()
	zlog.Info().Msg("session manager stopped")
}
