package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/SietraX/saved/internal/logging"
	"github.com/SietraX/saved/internal/transcript"
	"github.com/SietraX/saved/internal/youtube"
)

func requireAccessToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := accessTokenFrom(r.Context())
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return "", false
	}
	return token, true
}

// platformError maps a failed platform call onto a response. An expired or
// revoked platform token surfaces as 401 so the client signs in again.
func platformError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, youtube.ErrNotFound):
		writeError(w, http.StatusNotFound, "Playlist not found")
	case youtube.StatusCode(err) == http.StatusUnauthorized:
		writeError(w, http.StatusUnauthorized, "Not authenticated")
	default:
		logging.Logger.Error().Err(err).Msg("youtube: " + action)
		writeError(w, http.StatusBadGateway, "Failed to fetch from YouTube")
	}
}

func playlistIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "Playlist ID is required")
		return "", false
	}
	return id, true
}

func (s *Server) handlePlatformPlaylists(w http.ResponseWriter, r *http.Request) {
	token, ok := requireAccessToken(w, r)
	if !ok {
		return
	}
	items, err := s.platform.Playlists(r.Context(), token)
	if err != nil {
		platformError(w, "playlists", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handlePlatformPlaylistDetails(w http.ResponseWriter, r *http.Request) {
	token, ok := requireAccessToken(w, r)
	if !ok {
		return
	}
	id, ok := playlistIDParam(w, r)
	if !ok {
		return
	}
	pl, err := s.platform.PlaylistDetails(r.Context(), token, id)
	if err != nil {
		platformError(w, "playlist details", err)
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

func (s *Server) handlePlatformPlaylistVideos(w http.ResponseWriter, r *http.Request) {
	token, ok := requireAccessToken(w, r)
	if !ok {
		return
	}
	id, ok := playlistIDParam(w, r)
	if !ok {
		return
	}
	items, err := s.platform.PlaylistVideos(r.Context(), token, id)
	if err != nil {
		platformError(w, "playlist videos", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handlePlatformLikedVideos(w http.ResponseWriter, r *http.Request) {
	token, ok := requireAccessToken(w, r)
	if !ok {
		return
	}
	items, err := s.platform.LikedVideos(r.Context(), token)
	if err != nil {
		platformError(w, "liked videos", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handlePlatformWatchLater(w http.ResponseWriter, r *http.Request) {
	token, ok := requireAccessToken(w, r)
	if !ok {
		return
	}
	items, err := s.platform.WatchLater(r.Context(), token)
	if err != nil {
		platformError(w, "watch later", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handlePlatformVideoDetails(w http.ResponseWriter, r *http.Request) {
	token, ok := requireAccessToken(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "Video ID is required")
		return
	}

	items, err := s.platform.Videos(r.Context(), token, []string{id})
	if err != nil {
		platformError(w, "video details", err)
		return
	}
	if len(items) == 0 {
		writeError(w, http.StatusNotFound, "Video not found")
		return
	}
	writeJSON(w, http.StatusOK, items[0])
}

// handleCaptions returns the stored transcript of a video. Nothing is fetched
// from the platform here; transcripts are filled in by the background job.
func (s *Server) handleCaptions(w http.ResponseWriter, r *http.Request) {
	videoID := strings.TrimSpace(r.URL.Query().Get("videoId"))
	if videoID == "" {
		writeError(w, http.StatusBadRequest, "Missing videoId")
		return
	}

	segs, err := transcript.Get(r.Context(), s.db, videoID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Transcript not found")
		return
	}
	if err != nil {
		dbError(w, "get transcript", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transcript": segs})
}
