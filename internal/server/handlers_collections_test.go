package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SietraX/saved/internal/collections"
	"github.com/SietraX/saved/internal/metrics"
)

const (
	colA = "6f1c2a34-4d0b-4a51-9a39-000000000001"
	colB = "6f1c2a34-4d0b-4a51-9a39-000000000002"
	colC = "6f1c2a34-4d0b-4a51-9a39-000000000003"
)

var collectionCols = []string{"id", "name", "created_at", "updated_at", "display_order", "count", "thumbnail_url"}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func subscribe(t *testing.T, rdb *redis.Client) <-chan *redis.Message {
	t.Helper()
	ps := rdb.Subscribe(context.Background(), "broadcast")
	_, err := ps.Receive(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })
	return ps.Channel()
}

func nextEvent(t *testing.T, ch <-chan *redis.Message) map[string]any {
	t.Helper()
	select {
	case msg := <-ch:
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
		return nil
	}
}

func TestListCollections_CachesPerUser(t *testing.T) {
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer db.Close()
	_, rdb := newRedis(t)
	m := metrics.New()

	now := time.Now().UTC().Truncate(time.Second)
	db.ExpectQuery(regexp.QuoteMeta("FROM saved_collections c")).
		WithArgs(testUserID).
		WillReturnRows(pgxmock.NewRows(collectionCols).
			AddRow(colA, "Music", now, now, 0, 2, "https://i.ytimg.com/vi/x/default.jpg").
			AddRow(colB, "Empty", now, now, 1, 0, ""))

	s := newTestServer(db, rdb, nil).WithMetrics(m)

	for range 2 {
		rr := do(t, s, http.MethodGet, "/saved-collections", "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var got []collections.Collection
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "Music", got[0].Name)
		assert.Equal(t, 2, got[0].VideoCount)
		assert.Equal(t, "https://i.ytimg.com/vi/x/maxresdefault.jpg", got[0].ThumbnailURL)
		assert.Equal(t, defaultThumbnail, got[1].ThumbnailURL)
	}

	assert.NoError(t, db.ExpectationsWereMet())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses))
}

func TestCollectionsCache_SkipsListReadBeforeMutation(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	s := newTestServer(&MockDB{}, rdb, nil)
	stale := []collections.Collection{{ID: colA, Name: "Before rename"}}

	// list request misses, then a rename commits and invalidates before the
	// list request gets to write its result back
	_, version, ok := s.cachedCollections(ctx, testUserID)
	require.False(t, ok)
	s.invalidateCollections(ctx, testUserID)
	s.storeCollections(ctx, testUserID, version, stale)

	assert.False(t, mr.Exists(collectionsCacheKey(testUserID)))

	// the next read starts from the current version and may cache
	_, version, ok = s.cachedCollections(ctx, testUserID)
	require.False(t, ok)
	s.storeCollections(ctx, testUserID, version, stale)

	got, _, ok := s.cachedCollections(ctx, testUserID)
	require.True(t, ok)
	assert.Equal(t, stale, got)
}

func TestListCollections_WithCountsAlias(t *testing.T) {
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer db.Close()

	db.ExpectQuery(regexp.QuoteMeta("FROM saved_collections c")).
		WithArgs(testUserID).
		WillReturnRows(pgxmock.NewRows(collectionCols))

	rr := do(t, newTestServer(db, nil, nil), http.MethodGet, "/saved-collections/with-counts", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestListCollections_DBError(t *testing.T) {
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer db.Close()

	db.ExpectQuery(regexp.QuoteMeta("FROM saved_collections c")).
		WillReturnError(errors.New("connection reset"))

	rr := do(t, newTestServer(db, nil, nil), http.MethodGet, "/saved-collections", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"database error"}`, rr.Body.String())
}

func TestCreateCollection_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad json", `{`, "invalid JSON body"},
		{"empty", `{"name":""}`, "Name is required"},
		{"whitespace", `{"name":"   "}`, "Name is required"},
		{"too long", `{"name":"` + strings.Repeat("x", 201) + `"}`, "Name must be at most 200 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &MockDB{
				QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
					t.Fatalf("unexpected query: %s", sql)
					return nil
				},
			}
			rr := do(t, newTestServer(db, nil, nil), http.MethodPost, "/saved-collections", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.want)
		})
	}
}

func TestCreateCollection_Success(t *testing.T) {
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer db.Close()
	mr, rdb := newRedis(t)
	events := subscribe(t, rdb)

	require.NoError(t, mr.Set(collectionsCacheKey(testUserID), "[]"))

	now := time.Now().UTC()
	db.ExpectQuery(regexp.QuoteMeta("INSERT INTO saved_collections")).
		WithArgs(testUserID, "Road trip").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "created_at", "updated_at", "display_order"}).
			AddRow(colC, "Road trip", now, now, 3))

	s := newTestServer(db, rdb, nil)
	rr := do(t, s, http.MethodPost, "/saved-collections", `{"name":"  Road trip  "}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var got collections.Collection
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, colC, got.ID)
	assert.Equal(t, 3, got.DisplayOrder)
	assert.Zero(t, got.VideoCount)
	assert.Equal(t, defaultThumbnail, got.ThumbnailURL)

	assert.False(t, mr.Exists(collectionsCacheKey(testUserID)), "cache must be invalidated")
	ev := nextEvent(t, events)
	assert.Equal(t, "collection.created", ev["type"])
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestGetCollection(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		rr := do(t, newTestServer(&MockDB{}, nil, nil), http.MethodGet, "/saved-collections/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("not found", func(t *testing.T) {
		db := &MockDB{
			QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				assert.Equal(t, []any{colA, testUserID}, args)
				return errRow(pgx.ErrNoRows)
			},
		}
		rr := do(t, newTestServer(db, nil, nil), http.MethodGet, "/saved-collections/"+colA, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.JSONEq(t, `{"error":"Collection not found"}`, rr.Body.String())
	})

	t.Run("found", func(t *testing.T) {
		now := time.Now().UTC()
		db := &MockDB{
			QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				return rowOf(colA, "Music", now, now, 1, 4, "")
			},
		}
		rr := do(t, newTestServer(db, nil, nil), http.MethodGet, "/saved-collections/"+colA, "")
		require.Equal(t, http.StatusOK, rr.Code)

		var got collections.Collection
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, "Music", got.Name)
		assert.Equal(t, 4, got.VideoCount)
	})
}

func TestPatchCollection(t *testing.T) {
	t.Run("renames and bumps updated_at", func(t *testing.T) {
		now := time.Now().UTC()
		var gotSQL string
		var gotArgs []any
		db := &MockDB{
			QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				gotSQL, gotArgs = sql, args
				return rowOf(colA, "Renamed", now, now, 0, 7, "")
			},
		}
		rr := do(t, newTestServer(db, nil, nil), http.MethodPatch, "/saved-collections/"+colA, `{"name":" Renamed "}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, gotSQL, "updated_at = now()")
		assert.Equal(t, []any{"Renamed", colA, testUserID}, gotArgs)

		var got collections.Collection
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, 7, got.VideoCount)
	})

	t.Run("not found", func(t *testing.T) {
		db := &MockDB{
			QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				return errRow(pgx.ErrNoRows)
			},
		}
		rr := do(t, newTestServer(db, nil, nil), http.MethodPatch, "/saved-collections/"+colA, `{"name":"x"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("blank name", func(t *testing.T) {
		rr := do(t, newTestServer(&MockDB{}, nil, nil), http.MethodPatch, "/saved-collections/"+colA, `{"name":" "}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestDeleteCollection_RemovesVideosAndOrphans(t *testing.T) {
	var steps []string
	orphans := []any{}

	tx := &MockTx{}
	tx.QueryRowFunc = func(ctx context.Context, sql string, args ...any) pgx.Row {
		require.Contains(t, sql, "FOR UPDATE")
		steps = append(steps, "lock")
		return rowOf(colA)
	}
	tx.QueryFunc = func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
		require.Contains(t, sql, "DELETE FROM saved_collection_videos")
		steps = append(steps, "delete videos")
		return &MockRows{Idx: -1, Data: [][]any{{"v1"}, {"v2"}, {"v1"}}}, nil
	}
	tx.ExecFunc = func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
		switch {
		case strings.Contains(sql, "DELETE FROM saved_collections"):
			steps = append(steps, "delete collection")
		case strings.Contains(sql, "DELETE FROM video_transcripts"):
			orphans = append(orphans, args[0])
		default:
			t.Fatalf("unexpected exec: %s", sql)
		}
		return statusTag("DELETE", 1), nil
	}
	db := &MockDB{
		BeginTxFunc: func(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) { return tx, nil },
	}

	mr, rdb := newRedis(t)
	events := subscribe(t, rdb)
	require.NoError(t, mr.Set(collectionsCacheKey(testUserID), "[]"))

	rr := do(t, newTestServer(db, rdb, nil), http.MethodDelete, "/saved-collections/"+colA, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"success":true}`, rr.Body.String())

	assert.Equal(t, []string{"lock", "delete videos", "delete collection"}, steps)
	assert.Equal(t, []any{"v1", "v2"}, orphans)
	assert.True(t, tx.Committed)
	assert.False(t, mr.Exists(collectionsCacheKey(testUserID)))
	assert.Equal(t, "collection.deleted", nextEvent(t, events)["type"])
}

func TestDeleteCollection_NotFoundRollsBack(t *testing.T) {
	tx := &MockTx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return errRow(pgx.ErrNoRows)
		},
	}
	db := &MockDB{
		BeginTxFunc: func(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) { return tx, nil },
	}

	rr := do(t, newTestServer(db, nil, nil), http.MethodDelete, "/saved-collections/"+colA, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.False(t, tx.Committed)
	assert.True(t, tx.RolledBack)
}

func TestReorderCollections(t *testing.T) {
	t.Run("writes index as display order", func(t *testing.T) {
		var updates [][]any
		tx := &MockTx{
			QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				return rowOf(3)
			},
			ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				updates = append(updates, args)
				return statusTag("UPDATE", 1), nil
			},
		}
		db := &MockDB{
			BeginTxFunc: func(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) { return tx, nil },
		}

		body := `{"collections":[{"id":"` + colC + `"},{"id":"` + colA + `"},{"id":"` + colB + `"}]}`
		rr := do(t, newTestServer(db, nil, nil), http.MethodPost, "/saved-collections/reorder", body)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		assert.Equal(t, [][]any{
			{0, colC, testUserID},
			{1, colA, testUserID},
			{2, colB, testUserID},
		}, updates)
		assert.True(t, tx.Committed)
	})

	t.Run("unknown id aborts everything", func(t *testing.T) {
		calls := 0
		tx := &MockTx{
			QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				return rowOf(3)
			},
			ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				calls++
				if args[1] == colB {
					return statusTag("UPDATE", 0), nil
				}
				return statusTag("UPDATE", 1), nil
			},
		}
		db := &MockDB{
			BeginTxFunc: func(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) { return tx, nil },
		}

		body := `{"collections":[{"id":"` + colA + `"},{"id":"` + colB + `"},{"id":"` + colC + `"}]}`
		rr := do(t, newTestServer(db, nil, nil), http.MethodPost, "/saved-collections/reorder", body)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, 2, calls)
		assert.False(t, tx.Committed)
		assert.True(t, tx.RolledBack)
	})

	t.Run("partial list is rejected", func(t *testing.T) {
		var countSQL string
		tx := &MockTx{
			QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				countSQL = sql
				return rowOf(3)
			},
			ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				t.Fatal("no position may be written")
				return pgconn.CommandTag{}, nil
			},
		}
		db := &MockDB{
			BeginTxFunc: func(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) { return tx, nil },
		}

		body := `{"collections":[{"id":"` + colB + `"},{"id":"` + colA + `"}]}`
		rr := do(t, newTestServer(db, nil, nil), http.MethodPost, "/saved-collections/reorder", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, countSQL, "FOR UPDATE")
		assert.False(t, tx.Committed)
		assert.True(t, tx.RolledBack)
	})

	t.Run("rejects bad input before touching the store", func(t *testing.T) {
		db := &MockDB{
			BeginTxFunc: func(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
				t.Fatal("transaction must not start")
				return nil, nil
			},
		}
		s := newTestServer(db, nil, nil)

		for _, body := range []string{
			`{}`,
			`not json`,
			`{"collections":[{"id":"nope"}]}`,
			`{"collections":[{"id":"` + colA + `"},{"id":"` + colA + `"}]}`,
		} {
			rr := do(t, s, http.MethodPost, "/saved-collections/reorder", body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, body)
		}
	})
}

func TestCollectionVideos(t *testing.T) {
	t.Run("other user's collection", func(t *testing.T) {
		db := &MockDB{
			QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				return rowOf(false)
			},
		}
		rr := do(t, newTestServer(db, nil, nil), http.MethodGet, "/saved-collections/"+colA+"/videos", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("lists items newest first", func(t *testing.T) {
		added := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		var gotSQL string
		db := &MockDB{
			QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				return rowOf(true)
			},
			QueryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
				gotSQL = sql
				return &MockRows{Idx: -1, Data: [][]any{
					{"row-1", "vid-1", colA, "First", "http://img/1", "Chan", "2024-01-01T00:00:00Z", added, "42"},
				}}, nil
			},
		}
		rr := do(t, newTestServer(db, nil, nil), http.MethodGet, "/saved-collections/"+colA+"/videos", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, gotSQL, "ORDER BY created_at DESC")

		var out struct {
			Items []map[string]any `json:"items"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
		require.Len(t, out.Items, 1)
		assert.Equal(t, "vid-1", out.Items[0]["video_id"])
		assert.Equal(t, "42", out.Items[0]["view_count"])
	})
}
