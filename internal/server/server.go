package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/SietraX/saved/internal/metrics"
	"github.com/SietraX/saved/internal/youtube"
)

// TranscriptScheduler queues a transcript fetch for a newly saved video.
type TranscriptScheduler interface {
	Schedule(videoID, title string)
}

type Server struct {
	db          DB
	rdb         *redis.Client
	platform    youtube.Platform
	auth        *Auth
	transcripts TranscriptScheduler
	metrics     *metrics.Metrics
	cacheTTL    time.Duration
}

func NewServer(db DB, rdb *redis.Client, platform youtube.Platform, auth *Auth) *Server {
	return &Server{
		db:       db,
		rdb:      rdb,
		platform: platform,
		auth:     auth,
		cacheTTL: 5 * time.Minute,
	}
}

func (s *Server) WithTranscripts(t TranscriptScheduler) *Server {
	s.transcripts = t
	return s
}

// WithMetrics records cache hits and misses on m.
func (s *Server) WithMetrics(m *metrics.Metrics) *Server {
	s.metrics = m
	return s
}

func (s *Server) WithCacheTTL(ttl time.Duration) *Server {
	if ttl > 0 {
		s.cacheTTL = ttl
	}
	return s
}

func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)

	r.Get("/auth/google/login", s.auth.handleLogin)
	r.Get("/auth/google/callback", s.auth.handleCallback)
	r.Post("/auth/logout", s.auth.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Get("/auth/me", s.handleMe)

		r.Get("/saved-collections", s.handleListCollections)
		r.Get("/saved-collections/with-counts", s.handleListCollections)
		r.Post("/saved-collections", s.handleCreateCollection)
		r.Post("/saved-collections/reorder", s.handleReorderCollections)
		r.Get("/saved-collections/video-counts", s.handleVideoCounts)

		r.Post("/saved-collections/add-video", s.handleAddVideo)
		r.Delete("/saved-collections/delete-video", s.handleDeleteVideo)
		r.Get("/saved-collections/check-video", s.handleCheckVideo)
		r.Post("/saved-collections/clone-playlist", s.handleClonePlaylists)

		r.Get("/saved-collections/{id}", s.handleGetCollection)
		r.Patch("/saved-collections/{id}", s.handlePatchCollection)
		r.Delete("/saved-collections/{id}", s.handleDeleteCollection)
		r.Get("/saved-collections/{id}/videos", s.handleCollectionVideos)

		r.Get("/youtube/playlists", s.handlePlatformPlaylists)
		r.Get("/youtube/playlist-details", s.handlePlatformPlaylistDetails)
		r.Get("/youtube/playlist-videos", s.handlePlatformPlaylistVideos)
		r.Get("/youtube/liked-videos", s.handlePlatformLikedVideos)
		r.Get("/youtube/watch-later", s.handlePlatformWatchLater)
		r.Get("/youtube/video-details", s.handlePlatformVideoDetails)
		r.Get("/youtube/captions", s.handleCaptions)

		r.Post("/advanced-search", s.handleAdvancedSearch)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "saved",
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{
		"userId": c.UserID,
		"email":  c.Email,
	})
}
