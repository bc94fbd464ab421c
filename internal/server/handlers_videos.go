package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/SietraX/saved/internal/logging"
	"github.com/SietraX/saved/internal/transcript"
	"github.com/SietraX/saved/internal/video"
)

const uniqueViolation = "23505"

type membershipRequest struct {
	VideoID      string `json:"videoId"`
	CollectionID string `json:"collectionId"`
}

func decodeMembership(w http.ResponseWriter, r *http.Request) (membershipRequest, bool) {
	var body membershipRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return body, false
	}
	body.VideoID = strings.TrimSpace(body.VideoID)
	if body.VideoID == "" || body.CollectionID == "" {
		writeError(w, http.StatusBadRequest, "Missing videoId or collectionId")
		return body, false
	}
	if _, err := uuid.Parse(body.CollectionID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid collection id")
		return body, false
	}
	return body, true
}

// storedThumbnail keeps the small thumbnail; the collection list upgrades it
// when it is shown as a cover.
func storedThumbnail(t video.Thumbnails) string {
	if t.Default != nil && t.Default.URL != "" {
		return t.Default.URL
	}
	return video.BestThumbnail(t)
}

func platformVideoID(p video.PlatformVideo) string {
	if p.Snippet.ResourceID != nil && p.Snippet.ResourceID.VideoID != "" {
		return p.Snippet.ResourceID.VideoID
	}
	return p.ID
}

func viewCount(p video.PlatformVideo) string {
	if p.Statistics == nil {
		return ""
	}
	return p.Statistics.ViewCount
}

func (s *Server) handleAddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")

	body, ok := decodeMembership(w, r)
	if !ok {
		return
	}
	token, ok := requireAccessToken(w, r)
	if !ok {
		return
	}

	owned, err := s.ownsCollection(r, body.CollectionID, userID)
	if err != nil {
		dbError(w, "check collection", err)
		return
	}
	if !owned {
		writeError(w, http.StatusNotFound, "Collection not found")
		return
	}

	var exists bool
	err = s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM saved_collection_videos WHERE collection_id = $1 AND video_id = $2)
	`, body.CollectionID, body.VideoID).Scan(&exists)
	if err != nil {
		dbError(w, "check existing video", err)
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "Video already exists in this collection")
		return
	}

	found, err := s.platform.Videos(ctx, token, []string{body.VideoID})
	if err != nil {
		platformError(w, "video details", err)
		return
	}
	if len(found) == 0 {
		writeError(w, http.StatusNotFound, "Video not found")
		return
	}
	details := found[0]

	saved := video.SavedVideo{
		VideoID:      body.VideoID,
		CollectionID: body.CollectionID,
		Title:        details.Snippet.Title,
		ThumbnailURL: storedThumbnail(details.Snippet.Thumbnails),
		ChannelTitle: details.Snippet.ChannelTitle,
		PublishedAt:  details.Snippet.PublishedAt,
		ViewCount:    viewCount(details),
	}
	err = s.db.QueryRow(ctx, `
		INSERT INTO saved_collection_videos
			(collection_id, user_id, video_id, title, thumbnail_url, channel_title, published_at, view_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, saved.CollectionID, userID, saved.VideoID, saved.Title, saved.ThumbnailURL,
		saved.ChannelTitle, saved.PublishedAt, saved.ViewCount).Scan(&saved.ID, &saved.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			writeError(w, http.StatusConflict, "Video already exists in this collection")
			return
		}
		dbError(w, "add video", err)
		return
	}

	if s.transcripts != nil {
		s.transcripts.Schedule(saved.VideoID, saved.Title)
	}

	s.invalidateCollections(ctx, userID)
	s.publishEvent(ctx, "collection.video_added", map[string]any{
		"userId":       userID,
		"collectionId": saved.CollectionID,
		"videoId":      saved.VideoID,
	})
	writeJSON(w, http.StatusCreated, saved)
}

// handleDeleteVideo is idempotent: removing a video that is not in the
// collection still succeeds.
func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")

	body, ok := decodeMembership(w, r)
	if !ok {
		return
	}

	tag, err := s.db.Exec(ctx, `
		DELETE FROM saved_collection_videos
		WHERE collection_id = $1 AND video_id = $2 AND user_id = $3
	`, body.CollectionID, body.VideoID, userID)
	if err != nil {
		dbError(w, "delete video", err)
		return
	}

	if tag.RowsAffected() > 0 {
		if err := transcript.DeleteOrphan(ctx, s.db, body.VideoID); err != nil {
			logging.Logger.Warn().Err(err).Str("video_id", body.VideoID).Msg("saved-collections: delete orphan transcript")
		}
		s.invalidateCollections(ctx, userID)
		s.publishEvent(ctx, "collection.video_removed", map[string]any{
			"userId":       userID,
			"collectionId": body.CollectionID,
			"videoId":      body.VideoID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCheckVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")

	videoID := strings.TrimSpace(r.URL.Query().Get("videoId"))
	if videoID == "" {
		writeError(w, http.StatusBadRequest, "videoId is required")
		return
	}

	rows, err := s.db.Query(ctx, `
		SELECT collection_id
		FROM saved_collection_videos
		WHERE user_id = $1 AND video_id = $2
	`, userID, videoID)
	if err != nil {
		dbError(w, "check video", err)
		return
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			dbError(w, "scan collection id", err)
			return
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		dbError(w, "check video", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collectionsWithVideo": ids})
}

func (s *Server) handleVideoCounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")

	rows, err := s.db.Query(ctx, `
		SELECT c.id, COUNT(v.id)
		FROM saved_collections c
		LEFT JOIN saved_collection_videos v ON v.collection_id = c.id
		WHERE c.user_id = $1
		GROUP BY c.id
	`, userID)
	if err != nil {
		dbError(w, "video counts", err)
		return
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			dbError(w, "scan video count", err)
			return
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		dbError(w, "video counts", err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

type cloneRequest struct {
	PlaylistIDs []string `json:"playlistIds"`
}

// handleClonePlaylists copies each platform playlist into a new collection.
// A playlist that cannot be read or stored is skipped; the response reports
// how many were cloned.
func (s *Server) handleClonePlaylists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	log := logging.Logger

	var body cloneRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.PlaylistIDs) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid playlist IDs")
		return
	}
	token, ok := requireAccessToken(w, r)
	if !ok {
		return
	}

	cloned := 0
	var scheduled []video.SavedVideo
	for _, playlistID := range body.PlaylistIDs {
		videos, err := s.clonePlaylist(ctx, token, userID, playlistID)
		if err != nil {
			log.Error().Err(err).Str("playlist_id", playlistID).Msg("saved-collections: clone playlist")
			continue
		}
		scheduled = append(scheduled, videos...)
		cloned++
	}

	if s.transcripts != nil {
		for _, v := range scheduled {
			s.transcripts.Schedule(v.VideoID, v.Title)
		}
	}

	if cloned > 0 {
		s.invalidateCollections(ctx, userID)
		s.publishEvent(ctx, "collection.cloned", map[string]any{
			"userId": userID,
			"count":  cloned,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"clonedCount": cloned,
	})
}

func (s *Server) clonePlaylist(ctx context.Context, token, userID, playlistID string) ([]video.SavedVideo, error) {
	details, err := s.platform.PlaylistDetails(ctx, token, playlistID)
	if err != nil {
		return nil, err
	}
	items, err := s.platform.PlaylistVideos(ctx, token, playlistID)
	if err != nil {
		return nil, err
	}

	baseName := details.Snippet.Title
	if baseName == "" {
		baseName = "Cloned Playlist " + playlistID
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	name, err := uniqueName(ctx, tx, userID, baseName)
	if err != nil {
		return nil, err
	}

	var collectionID string
	err = tx.QueryRow(ctx, `
		INSERT INTO saved_collections (user_id, name, display_order)
		VALUES ($1, $2, COALESCE((SELECT MAX(display_order) + 1 FROM saved_collections WHERE user_id = $1), 0))
		RETURNING id
	`, userID, name).Scan(&collectionID)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	var added []video.SavedVideo
	for _, p := range items {
		v := video.SavedVideo{
			VideoID:      platformVideoID(p),
			CollectionID: collectionID,
			Title:        p.Snippet.Title,
			ThumbnailURL: storedThumbnail(p.Snippet.Thumbnails),
			ChannelTitle: p.Snippet.ChannelTitle,
			PublishedAt:  p.Snippet.PublishedAt,
			ViewCount:    viewCount(p),
		}
		if v.VideoID == "" {
			continue
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO saved_collection_videos
				(collection_id, user_id, video_id, title, thumbnail_url, channel_title, published_at, view_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (collection_id, video_id) DO NOTHING
		`, v.CollectionID, userID, v.VideoID, v.Title, v.ThumbnailURL, v.ChannelTitle, v.PublishedAt, v.ViewCount)
		if err != nil {
			return nil, fmt.Errorf("insert video %s: %w", v.VideoID, err)
		}
		if tag.RowsAffected() > 0 {
			added = append(added, v)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return added, nil
}

// uniqueName returns base, or "base (n)" with the smallest n not already
// used by one of the user's collections.
func uniqueName(ctx context.Context, tx pgx.Tx, userID, base string) (string, error) {
	name := base
	for n := 1; ; n++ {
		var taken bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM saved_collections WHERE user_id = $1 AND name = $2)
		`, userID, name).Scan(&taken)
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
		name = fmt.Sprintf("%s (%d)", base, n)
	}
}
