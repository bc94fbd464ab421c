package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/SietraX/saved/internal/collections"
	"github.com/SietraX/saved/internal/transcript"
	"github.com/SietraX/saved/internal/video"
)

const (
	maxNameLength    = 200
	defaultThumbnail = "/default-playlist-image.png"
)

const collectionColumns = `
	c.id, c.name, c.created_at, c.updated_at, c.display_order,
	(SELECT COUNT(*) FROM saved_collection_videos v WHERE v.collection_id = c.id),
	COALESCE((SELECT v.thumbnail_url FROM saved_collection_videos v
	          WHERE v.collection_id = c.id
	          ORDER BY v.created_at DESC LIMIT 1), '')`

func scanCollection(row pgx.Row) (collections.Collection, error) {
	var c collections.Collection
	err := row.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &c.DisplayOrder, &c.VideoCount, &c.ThumbnailURL)
	c.ThumbnailURL = collectionThumbnail(c.ThumbnailURL)
	return c, err
}

// collectionThumbnail upgrades the stored small thumbnail of the latest video
// to its high resolution variant.
func collectionThumbnail(u string) string {
	if u == "" {
		return defaultThumbnail
	}
	return strings.Replace(u, "/default.", "/maxresdefault.", 1)
}

func validName(raw string) (string, string) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", "Name is required"
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", "Name must be at most 200 characters"
	}
	return name, ""
}

func collectionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid collection id")
		return "", false
	}
	return id, true
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")

	list, version, ok := s.cachedCollections(ctx, userID)
	if ok {
		writeJSON(w, http.StatusOK, list)
		return
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+collectionColumns+`
		FROM saved_collections c
		WHERE c.user_id = $1
		ORDER BY c.display_order ASC, c.created_at ASC
	`, userID)
	if err != nil {
		dbError(w, "list collections", err)
		return
	}
	defer rows.Close()

	list = []collections.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			dbError(w, "scan collection", err)
			return
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		dbError(w, "list collections", err)
		return
	}

	s.storeCollections(ctx, userID, version, list)
	writeJSON(w, http.StatusOK, list)
}

type collectionRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")

	var body collectionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	name, msg := validName(body.Name)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	var c collections.Collection
	err := s.db.QueryRow(ctx, `
		INSERT INTO saved_collections (user_id, name, display_order)
		VALUES ($1, $2, COALESCE((SELECT MAX(display_order) + 1 FROM saved_collections WHERE user_id = $1), 0))
		RETURNING id, name, created_at, updated_at, display_order
	`, userID, name).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &c.DisplayOrder)
	if err != nil {
		dbError(w, "create collection", err)
		return
	}
	c.ThumbnailURL = defaultThumbnail

	s.invalidateCollections(ctx, userID)
	s.publishEvent(ctx, "collection.created", map[string]any{
		"userId":       userID,
		"collectionId": c.ID,
	})
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	id, ok := collectionID(w, r)
	if !ok {
		return
	}

	c, err := scanCollection(s.db.QueryRow(ctx, `
		SELECT `+collectionColumns+`
		FROM saved_collections c
		WHERE c.id = $1 AND c.user_id = $2
	`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Collection not found")
		return
	}
	if err != nil {
		dbError(w, "get collection", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handlePatchCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	id, ok := collectionID(w, r)
	if !ok {
		return
	}

	var body collectionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	name, msg := validName(body.Name)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := scanCollection(s.db.QueryRow(ctx, `
		WITH c AS (
			UPDATE saved_collections
			SET name = $1, updated_at = now()
			WHERE id = $2 AND user_id = $3
			RETURNING id, name, created_at, updated_at, display_order
		)
		SELECT `+collectionColumns+`
		FROM c
	`, name, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Collection not found")
		return
	}
	if err != nil {
		dbError(w, "update collection", err)
		return
	}

	s.invalidateCollections(ctx, userID)
	s.publishEvent(ctx, "collection.updated", map[string]any{
		"userId":       userID,
		"collectionId": c.ID,
	})
	writeJSON(w, http.StatusOK, c)
}

// handleDeleteCollection removes the collection with its videos and drops the
// transcripts no other collection still needs, all in one transaction.
func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	id, ok := collectionID(w, r)
	if !ok {
		return
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		dbError(w, "begin tx", err)
		return
	}
	defer tx.Rollback(ctx)

	var locked string
	err = tx.QueryRow(ctx, `
		SELECT id FROM saved_collections
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`, id, userID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Collection not found")
		return
	}
	if err != nil {
		dbError(w, "lock collection", err)
		return
	}

	rows, err := tx.Query(ctx, `
		DELETE FROM saved_collection_videos
		WHERE collection_id = $1
		RETURNING video_id
	`, id)
	if err != nil {
		dbError(w, "delete collection videos", err)
		return
	}
	var videoIDs []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			dbError(w, "scan deleted video", err)
			return
		}
		videoIDs = append(videoIDs, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		dbError(w, "delete collection videos", err)
		return
	}

	if _, err := tx.Exec(ctx, `DELETE FROM saved_collections WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
		dbError(w, "delete collection", err)
		return
	}

	seen := make(map[string]struct{}, len(videoIDs))
	for _, v := range videoIDs {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if err := transcript.DeleteOrphan(ctx, tx, v); err != nil {
			dbError(w, "delete orphan transcript", err)
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		dbError(w, "commit delete", err)
		return
	}

	s.invalidateCollections(ctx, userID)
	s.publishEvent(ctx, "collection.deleted", map[string]any{
		"userId":       userID,
		"collectionId": id,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type reorderRequest struct {
	Collections []struct {
		ID string `json:"id"`
	} `json:"collections"`
}

// handleReorderCollections writes display_order = index for every listed
// collection. One unknown id aborts the whole reorder.
func (s *Server) handleReorderCollections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")

	var body reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Collections == nil {
		writeError(w, http.StatusBadRequest, "Invalid collections data")
		return
	}

	seen := make(map[string]struct{}, len(body.Collections))
	for _, c := range body.Collections {
		if _, err := uuid.Parse(c.ID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid collection id")
			return
		}
		if _, dup := seen[c.ID]; dup {
			writeError(w, http.StatusBadRequest, "duplicate collection id")
			return
		}
		seen[c.ID] = struct{}{}
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		dbError(w, "begin tx", err)
		return
	}
	defer tx.Rollback(ctx)

	// A reorder must name every collection the user has, otherwise the ones
	// left out would collide with the rewritten positions.
	var total int
	err = tx.QueryRow(ctx, `
		SELECT count(*) FROM (
			SELECT id FROM saved_collections WHERE user_id = $1 FOR UPDATE
		) owned
	`, userID).Scan(&total)
	if err != nil {
		dbError(w, "count collections", err)
		return
	}
	if total != len(body.Collections) {
		writeError(w, http.StatusBadRequest, "Reorder must include every collection")
		return
	}

	for i, c := range body.Collections {
		tag, err := tx.Exec(ctx, `
			UPDATE saved_collections
			SET display_order = $1
			WHERE id = $2 AND user_id = $3
		`, i, c.ID, userID)
		if err != nil {
			dbError(w, "reorder collections", err)
			return
		}
		if tag.RowsAffected() != 1 {
			writeError(w, http.StatusNotFound, "Collection not found")
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		dbError(w, "commit reorder", err)
		return
	}

	s.invalidateCollections(ctx, userID)
	s.publishEvent(ctx, "collection.reordered", map[string]any{
		"userId": userID,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCollectionVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	id, ok := collectionID(w, r)
	if !ok {
		return
	}

	owned, err := s.ownsCollection(r, id, userID)
	if err != nil {
		dbError(w, "check collection", err)
		return
	}
	if !owned {
		writeError(w, http.StatusNotFound, "Collection not found")
		return
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, video_id, collection_id, title, thumbnail_url, channel_title,
		       published_at, created_at, view_count
		FROM saved_collection_videos
		WHERE collection_id = $1
		ORDER BY created_at DESC
	`, id)
	if err != nil {
		dbError(w, "list collection videos", err)
		return
	}
	defer rows.Close()

	items := []video.SavedVideo{}
	for rows.Next() {
		var v video.SavedVideo
		if err := rows.Scan(&v.ID, &v.VideoID, &v.CollectionID, &v.Title, &v.ThumbnailURL,
			&v.ChannelTitle, &v.PublishedAt, &v.CreatedAt, &v.ViewCount); err != nil {
			dbError(w, "scan collection video", err)
			return
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		dbError(w, "list collection videos", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) ownsCollection(r *http.Request, collectionID, userID string) (bool, error) {
	var ok bool
	err := s.db.QueryRow(r.Context(), `
		SELECT EXISTS (SELECT 1 FROM saved_collections WHERE id = $1 AND user_id = $2)
	`, collectionID, userID).Scan(&ok)
	return ok, err
}
