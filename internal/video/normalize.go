package video

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	KindPlatform Kind = "platform"
	KindSaved    Kind = "saved"
)

// Record is a video in either source shape. Kind is decided once, when the
// record enters the process, and Normalize is the only place that reads it.
type Record struct {
	Kind     Kind
	Platform PlatformVideo
	Saved    SavedVideo
}

func FromPlatform(p PlatformVideo) Record { return Record{Kind: KindPlatform, Platform: p} }

func FromSaved(s SavedVideo) Record { return Record{Kind: KindSaved, Saved: s} }

// DecodeRecord classifies a raw JSON object by the presence of "video_id".
func DecodeRecord(raw json.RawMessage) (Record, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return Record{}, fmt.Errorf("decode video record: %w", err)
	}

	if _, ok := keys["video_id"]; ok {
		var s SavedVideo
		if err := json.Unmarshal(raw, &s); err != nil {
			return Record{}, fmt.Errorf("decode saved video: %w", err)
		}
		return FromSaved(s), nil
	}

	var p PlatformVideo
	if err := json.Unmarshal(raw, &p); err != nil {
		return Record{}, fmt.Errorf("decode platform video: %w", err)
	}
	return FromPlatform(p), nil
}

// DecodeRecords decodes a JSON array of mixed records.
func DecodeRecords(raw []byte) ([]Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []Record{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode video list: %w", err)
	}
	out := make([]Record, 0, len(items))
	for _, it := range items {
		rec, err := DecodeRecord(it)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Normalize maps a record to the canonical Video. Missing optional fields
// come out absent.
func Normalize(r Record) Video {
	if r.Kind == KindSaved {
		return normalizeSaved(r.Saved)
	}
	return normalizePlatform(r.Platform)
}

func NormalizeAll(records []Record) []Video {
	out := make([]Video, len(records))
	for i, r := range records {
		out[i] = Normalize(r)
	}
	return out
}

func normalizeSaved(s SavedVideo) Video {
	return Video{
		ID:           s.VideoID,
		Title:        s.Title,
		ThumbnailURL: s.ThumbnailURL,
		ChannelTitle: s.ChannelTitle,
		PublishedAt:  parseTime(s.PublishedAt),
		AddedAt:      s.CreatedAt,
		ViewCount:    parseCount(s.ViewCount),
		ContentType:  ContentVideo,
	}
}

func normalizePlatform(p PlatformVideo) Video {
	id := p.ID
	if rid := p.Snippet.ResourceID; rid != nil && rid.VideoID != "" {
		id = rid.VideoID
	}

	v := Video{
		ID:           id,
		Title:        p.Snippet.Title,
		ThumbnailURL: BestThumbnail(p.Snippet.Thumbnails),
		ChannelTitle: p.Snippet.ChannelTitle,
		PublishedAt:  parseTime(p.Snippet.PublishedAt),
		ContentType:  ContentVideo,
	}
	if p.Statistics != nil {
		v.ViewCount = parseCount(p.Statistics.ViewCount)
	}
	if p.ContentDetails != nil {
		if secs, ok := ParseISO8601Duration(p.ContentDetails.Duration); ok {
			v.DurationSeconds = &secs
		}
	}
	switch strings.ToUpper(p.CreatorContentType) {
	case "SHORTS", "SHORT":
		v.ContentType = ContentShort
	}
	return v
}

// BestThumbnail picks the largest thumbnail that is set.
func BestThumbnail(t Thumbnails) string {
	for _, th := range []*Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if th != nil && th.URL != "" {
			return th.URL
		}
	}
	return ""
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseCount(s string) *int64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}
