package server

import (
	"context"

	"github.com/SietraX/saved/internal/logging"
)

func AutoMigrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS pgcrypto`); err != nil {
		logging.Logger.Error().Err(err).Msg("migrate: pgcrypto")
		return err
	}

	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS saved_collections (
          id            uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          user_id       TEXT NOT NULL,
          name          TEXT NOT NULL,
          display_order INT NOT NULL DEFAULT 0,
          created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
          updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		logging.Logger.Error().Err(err).Msg("migrate: saved_collections")
		return err
	}

	if _, err := db.Exec(ctx, `
      CREATE INDEX IF NOT EXISTS idx_saved_collections_user_order
      ON saved_collections(user_id, display_order)
    `); err != nil {
		return err
	}

	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS saved_collection_videos (
          id            uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          collection_id uuid NOT NULL REFERENCES saved_collections(id) ON DELETE CASCADE,
          user_id       TEXT NOT NULL,
          video_id      TEXT NOT NULL,
          title         TEXT NOT NULL DEFAULT '',
          thumbnail_url TEXT NOT NULL DEFAULT '',
          channel_title TEXT NOT NULL DEFAULT '',
          published_at  TEXT NOT NULL DEFAULT '',
          view_count    TEXT NOT NULL DEFAULT '',
          created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
          UNIQUE (collection_id, video_id)
      )
    `); err != nil {
		logging.Logger.Error().Err(err).Msg("migrate: saved_collection_videos")
		return err
	}

	if _, err := db.Exec(ctx, `
      CREATE INDEX IF NOT EXISTS idx_saved_collection_videos_video
      ON saved_collection_videos(video_id)
    `); err != nil {
		return err
	}

	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS video_transcripts (
          video_id          TEXT PRIMARY KEY,
          title             TEXT NOT NULL DEFAULT '',
          transcript        JSONB NOT NULL DEFAULT '[]',
          transcript_text   TEXT NOT NULL DEFAULT '',
          transcript_search tsvector GENERATED ALWAYS AS (to_tsvector('english', transcript_text)) STORED,
          created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		logging.Logger.Error().Err(err).Msg("migrate: video_transcripts")
		return err
	}

	if _, err := db.Exec(ctx, `
      CREATE INDEX IF NOT EXISTS idx_video_transcripts_search
      ON video_transcripts USING GIN (transcript_search)
    `); err != nil {
		return err
	}

	return nil
}
