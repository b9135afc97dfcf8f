package session

import (
	"github.com/osa030/folioplayer/internal/app/playback"
	"github.com/osa030/folioplayer/internal/domain/lyric"
	"github.com/osa030/folioplayer/internal/domain/track"
)

// TrackPayload returns the client view of a track.
func TrackPayload(t track.Track) map[string]any {
	return map[string]any{
		"id":        t.ID,
		"title":     t.Title,
		"artist":    t.Artist,
		"cover":     t.SecureCoverURL(),
		"url":       t.StreamURL(),
		"hasLyrics": t.HasLyrics(),
	}
}

// StatePayload returns the client view of a player state snapshot.
func StatePayload(st playback.PlayerState) map[string]any {
	return map[string]any{
		"currentIndex":  st.CurrentIndex,
		"isPlaying":     st.IsPlaying,
		"progress":      st.Progress,
		"activeLine":    st.ActiveLine,
		"lyricsVisible": st.LyricsVisible,
		"loadFailed":    st.LoadFailed,
		"phase":         st.Phase().String(),
		"track":         TrackPayload(st.Track),
	}
}

// TimelinePayload returns the client view of a lyric timeline.
func TimelinePayload(t lyric.Timeline) []any {
	lines := make([]any, len(t))
	for i, l := range t {
		lines[i] = map[string]any{"time": l.Time, "text": l.Text}
	}
	return lines
}
