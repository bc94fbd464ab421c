package server

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SietraX/saved/internal/video"
	"github.com/SietraX/saved/internal/youtube"
)

// MockDB implements DB for tests that need to follow a transaction step by step.
type MockDB struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTxFunc  func(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

func (m *MockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

func (m *MockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, sql, args...)
	}
	return &MockRows{Idx: -1}, nil
}

func (m *MockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.QueryRowFunc != nil {
		return m.QueryRowFunc(ctx, sql, args...)
	}
	return &MockRow{}
}

func (m *MockDB) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	if m.BeginTxFunc != nil {
		return m.BeginTxFunc(ctx, txOptions)
	}
	return &MockTx{}, nil
}

type MockRow struct {
	ScanFunc func(dest ...any) error
}

func (m *MockRow) Scan(dest ...any) error {
	if m.ScanFunc != nil {
		return m.ScanFunc(dest...)
	}
	return nil
}

// MockTx implements pgx.Tx. Methods that are not overridden panic through
// the embedded nil interface.
type MockTx struct {
	pgx.Tx

	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)

	Committed  bool
	RolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	m.Committed = true
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTx) Rollback(ctx context.Context) error {
	if !m.Committed {
		m.RolledBack = true
	}
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

func (m *MockTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.QueryRowFunc != nil {
		return m.QueryRowFunc(ctx, sql, args...)
	}
	return &MockRow{}
}

func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, sql, args...)
	}
	return &MockRows{Idx: -1}, nil
}

// MockRows iterates over Data. Start with Idx -1.
type MockRows struct {
	pgx.Rows
	Data [][]any
	Idx  int
}

func (m *MockRows) Next() bool {
	m.Idx++
	return m.Idx < len(m.Data)
}

func (m *MockRows) Scan(dest ...any) error {
	row := m.Data[m.Idx]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *time.Time:
			*d = v.(time.Time)
		case *bool:
			*d = v.(bool)
		case *int:
			*d = v.(int)
		}
	}
	return nil
}

func (m *MockRows) Close()                                       {}
func (m *MockRows) Err() error                                   { return nil }
func (m *MockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (m *MockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *MockRows) Values() ([]any, error)                       { return nil, nil }
func (m *MockRows) RawValues() [][]byte                          { return nil }
func (m *MockRows) Conn() *pgx.Conn                              { return nil }

func rowOf(values ...any) *MockRow {
	return &MockRow{ScanFunc: func(dest ...any) error {
		for i, v := range values {
			switch d := dest[i].(type) {
			case *string:
				*d = v.(string)
			case *bool:
				*d = v.(bool)
			case *int:
				*d = v.(int)
			case *time.Time:
				*d = v.(time.Time)
			}
		}
		return nil
	}}
}

func errRow(err error) *MockRow {
	return &MockRow{ScanFunc: func(dest ...any) error { return err }}
}

type MockPlatform struct {
	mock.Mock
}

var _ youtube.Platform = (*MockPlatform)(nil)

func (m *MockPlatform) Playlists(ctx context.Context, accessToken string) ([]video.PlatformPlaylist, error) {
	args := m.Called(ctx, accessToken)
	out, _ := args.Get(0).([]video.PlatformPlaylist)
	return out, args.Error(1)
}

func (m *MockPlatform) PlaylistDetails(ctx context.Context, accessToken, id string) (video.PlatformPlaylist, error) {
	args := m.Called(ctx, accessToken, id)
	return args.Get(0).(video.PlatformPlaylist), args.Error(1)
}

func (m *MockPlatform) PlaylistVideos(ctx context.Context, accessToken, id string) ([]video.PlatformVideo, error) {
	args := m.Called(ctx, accessToken, id)
	out, _ := args.Get(0).([]video.PlatformVideo)
	return out, args.Error(1)
}

func (m *MockPlatform) LikedVideos(ctx context.Context, accessToken string) ([]video.PlatformVideo, error) {
	args := m.Called(ctx, accessToken)
	out, _ := args.Get(0).([]video.PlatformVideo)
	return out, args.Error(1)
}

func (m *MockPlatform) WatchLater(ctx context.Context, accessToken string) ([]video.PlatformVideo, error) {
	args := m.Called(ctx, accessToken)
	out, _ := args.Get(0).([]video.PlatformVideo)
	return out, args.Error(1)
}

func (m *MockPlatform) Videos(ctx context.Context, accessToken string, ids []string) ([]video.PlatformVideo, error) {
	args := m.Called(ctx, accessToken, ids)
	out, _ := args.Get(0).([]video.PlatformVideo)
	return out, args.Error(1)
}

type scheduled struct {
	VideoID string
	Title   string
}

type fakeScheduler struct {
	calls []scheduled
}

func (f *fakeScheduler) Schedule(videoID, title string) {
	f.calls = append(f.calls, scheduled{videoID, title})
}

const (
	testUserID      = "user-1"
	testAccessToken = "yt-token"
)

func newTestAuth() *Auth {
	return NewAuth([]byte("test-secret"), time.Hour, "client-id", "client-secret",
		"http://localhost:3010/auth/google/callback", "http://localhost:3000")
}

func newTestServer(db DB, rdb *redis.Client, platform youtube.Platform) *Server {
	return NewServer(db, rdb, platform, newTestAuth())
}

// do sends an authenticated request for testUserID through the full router.
func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := s.auth.Issue(testUserID, "user@example.com", testAccessToken)
	require.NoError(t, err)

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func statusTag(verb string, rows int64) pgconn.CommandTag {
	return pgconn.NewCommandTag(verb + " " + strconv.FormatInt(rows, 10))
}
