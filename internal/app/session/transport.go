package session

import (
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/folioplayer/internal/app/notification"
	"github.com/osa030/folioplayer/internal/app/playback"
	"github.com/osa030/folioplayer/internal/domain/track"
)

// remoteTransport turns transport calls into command notifications for the
// browser's media element.
type remoteTransport struct {
	sessionID string
	commands  chan *notification.Notification
}

var _ playback.Transport = (*remoteTransport)(nil)

const defaultCommandBuffer = 64

func newRemoteTransport(sessionID string, buffer int) *remoteTransport {
	if buffer <= 0 {
		buffer = defaultCommandBuffer
	}
	return &remoteTransport{
		sessionID: sessionID,
		commands:  make(chan *notification.Notification, buffer),
	}
}

func (t *remoteTransport) Load(tr track.Track) {
	t.send("load", map[string]any{"track": TrackPayload(tr)})
}

func (t *remoteTransport) Start() {
	t.send("start", nil)
}

func (t *remoteTransport) Pause() {
	t.send("pause", nil)
}

func (t *remoteTransport) Seek(fraction float64) {
	t.send("seek", map[string]any{"fraction": fraction})
}

// send never blocks the playback loop.
func (t *remoteTransport) send(name string, payload map[string]any) {
	n := &notification.Notification{
		Type:    notification.TypeCommand,
		Name:    name,
		Payload: payload,
	}
	select {
	case t.commands <- n:
	default:
		zlog.Warn().Msgf("session: command dropped, buffer full: session_id=%s command=%s", t.sessionID, name)
	}
}
