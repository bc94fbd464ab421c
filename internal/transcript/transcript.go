package transcript

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is satisfied by *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration,omitempty"`
}

type Match struct {
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"`
}

type Result struct {
	VideoID      string  `json:"videoId"`
	Title        string  `json:"title"`
	ThumbnailURL string  `json:"thumbnailUrl,omitempty"`
	Matches      []Match `json:"matches"`
}

// MatchSegments returns the segments containing every word of term as a
// whole word, case-insensitively.
func MatchSegments(segments []Segment, term string) []Match {
	want := strings.Fields(strings.ToLower(term))
	out := []Match{}
	if len(want) == 0 {
		return out
	}

	for _, seg := range segments {
		words := make(map[string]struct{})
		for _, w := range strings.Fields(strings.ToLower(seg.Text)) {
			words[w] = struct{}{}
		}
		all := true
		for _, w := range want {
			if _, ok := words[w]; !ok {
				all = false
				break
			}
		}
		if all {
			out = append(out, Match{Text: seg.Text, Timestamp: seg.Start})
		}
	}
	return out
}

// JoinText flattens segments into the text column used for full text search.
func JoinText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
