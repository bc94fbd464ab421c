package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/SietraX/saved/internal/collections"
	"github.com/SietraX/saved/internal/logging"
)

func collectionsCacheKey(userID string) string {
	return "saved:collections:" + userID
}

// collectionsVersionKey is bumped on every mutation. A list is only written
// back if the version it was read under is still current.
func collectionsVersionKey(userID string) string {
	return "saved:collections:" + userID + ":version"
}

var errStaleList = errors.New("collections changed since read")

// cachedCollections returns the user's list from Redis together with the
// version observed at read time. A miss, a decode failure and a missing
// client all report false; the version is still returned on a miss so the
// caller can hand it to storeCollections.
func (s *Server) cachedCollections(ctx context.Context, userID string) ([]collections.Collection, string, bool) {
	if s.rdb == nil {
		return nil, "", false
	}

	vals, err := s.rdb.MGet(ctx, collectionsCacheKey(userID), collectionsVersionKey(userID)).Result()
	if err != nil {
		logging.Logger.Warn().Err(err).Msg("saved-collections: cache get")
		s.observeCache(false)
		return nil, "", false
	}

	version, _ := vals[1].(string)
	raw, ok := vals[0].(string)
	if !ok {
		s.observeCache(false)
		return nil, version, false
	}

	var list []collections.Collection
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		s.observeCache(false)
		return nil, version, false
	}
	s.observeCache(true)
	return list, version, true
}

// storeCollections caches list unless a mutation bumped the version after
// the list was read. The check and the write run under WATCH so an
// invalidation landing in between aborts the write.
func (s *Server) storeCollections(ctx context.Context, userID, version string, list []collections.Collection) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(list)
	if err != nil {
		return
	}

	versionKey := collectionsVersionKey(userID)
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleList
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, collectionsCacheKey(userID), data, s.cacheTTL)
			return nil
		})
		return err
	}, versionKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleList), errors.Is(err, redis.TxFailedErr):
		logging.Logger.Debug().Str("user_id", userID).Msg("saved-collections: skip caching stale list")
	default:
		logging.Logger.Warn().Err(err).Msg("saved-collections: cache set")
	}
}

func (s *Server) invalidateCollections(ctx context.Context, userID string) {
	if s.rdb == nil {
		return
	}
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, collectionsVersionKey(userID))
		p.Del(ctx, collectionsCacheKey(userID))
		return nil
	})
	if err != nil {
		logging.Logger.Warn().Err(err).Msg("saved-collections: cache invalidate")
	}
}

func (s *Server) observeCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHits.Inc()
	} else {
		s.metrics.CacheMisses.Inc()
	}
}
