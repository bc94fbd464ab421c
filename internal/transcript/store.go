package transcript

import (
	"context"
	"encoding/json"
	"fmt"
)

func Exists(ctx context.Context, db DB, videoID string) (bool, error) {
	var ok bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM video_transcripts WHERE video_id = $1)`,
		videoID,
	).Scan(&ok)
	return ok, err
}

func Save(ctx context.Context, db DB, videoID, title string, segments []Segment) error {
	raw, err := json.Marshal(segments)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, `
		INSERT INTO video_transcripts (video_id, title, transcript, transcript_text)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (video_id) DO UPDATE
		SET title = EXCLUDED.title,
		    transcript = EXCLUDED.transcript,
		    transcript_text = EXCLUDED.transcript_text
	`, videoID, title, raw, JoinText(segments))
	return err
}

// Get returns the stored segments of videoID, or pgx.ErrNoRows.
func Get(ctx context.Context, db DB, videoID string) ([]Segment, error) {
	var raw []byte
	err := db.QueryRow(ctx,
		`SELECT transcript FROM video_transcripts WHERE video_id = $1`,
		videoID,
	).Scan(&raw)
	if err != nil {
		return nil, err
	}
	segs := []Segment{}
	if err := json.Unmarshal(raw, &segs); err != nil {
		return nil, fmt.Errorf("transcript %s: %w", videoID, err)
	}
	return segs, nil
}

// DeleteOrphan drops the transcript of a video no collection refers to any
// more.
func DeleteOrphan(ctx context.Context, db DB, videoID string) error {
	_, err := db.Exec(ctx, `
		DELETE FROM video_transcripts
		WHERE video_id = $1
		  AND NOT EXISTS (SELECT 1 FROM saved_collection_videos WHERE video_id = $1)
	`, videoID)
	return err
}

// Search finds the user's saved videos whose transcript matches term and
// returns the matching segments of each.
func Search(ctx context.Context, db DB, userID, term string) ([]Result, error) {
	rows, err := db.Query(ctx, `
		SELECT t.video_id, t.title, t.transcript,
		       COALESCE((SELECT v.thumbnail_url FROM saved_collection_videos v
		                 WHERE v.video_id = t.video_id AND v.user_id = $2
		                 ORDER BY v.created_at DESC LIMIT 1), '')
		FROM video_transcripts t
		WHERE t.transcript_search @@ plainto_tsquery('english', $1)
		  AND EXISTS (SELECT 1 FROM saved_collection_videos s
		              WHERE s.video_id = t.video_id AND s.user_id = $2)
		ORDER BY t.title
	`, term, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Result{}
	for rows.Next() {
		var (
			r   Result
			raw []byte
		)
		if err := rows.Scan(&r.VideoID, &r.Title, &raw, &r.ThumbnailURL); err != nil {
			return nil, err
		}
		var segs []Segment
		if err := json.Unmarshal(raw, &segs); err != nil {
			return nil, fmt.Errorf("transcript %s: %w", r.VideoID, err)
		}
		r.Matches = MatchSegments(segs, term)
		out = append(out, r)
	}
	return out, rows.Err()
}
