package connect

import (
	"context"
	"time"

	"connectrpc.com/connect"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/folioplayer/internal/app/session"
)

// AdminService implements the AdminService RPC.
type AdminService struct {
	sessions *session.Manager
}

// NewAdminService creates a new AdminService.
func NewAdminService(sessions *session.Manager) *AdminService {
	return &AdminService{
		sessions: sessions,
	}
}

// ListSessions lists the running sessions with their current state.
func (s *AdminService) ListSessions(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	infos := s.sessions.List()

	sessions := make([]any, 0, len(infos))
	for _, info := range infos {
		entry := map[string]any{
			"sessionId":   info.ID,
			"source":      info.Source,
			"createdAt":   info.CreatedAt.UTC().Format(time.RFC3339),
			"subscribers": info.Subscribers,
		}

		// A session closed after List still gets listed, just without state.
		if sess, err := s.sessions.Get(info.ID); err == nil {
			if st, err := sess.State(ctx); err == nil {
				entry["state"] = session.StatePayload(st)
			}
		}
		sessions = append(sessions, entry)
	}

	zlog.Debug().Msgf("rpc: admin list sessions: count=%d", len(sessions))
	return respond(map[string]any{"sessions": sessions})
}
