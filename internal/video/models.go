package video

import "time"

type ContentType string

const (
	ContentVideo ContentType = "VIDEO"
	ContentShort ContentType = "SHORT"
)

type Thumbnail struct {
	URL    string `json:"url"`
	Width  int64  `json:"width,omitempty"`
	Height int64  `json:"height,omitempty"`
}

type Thumbnails struct {
	Default  *Thumbnail `json:"default,omitempty"`
	Medium   *Thumbnail `json:"medium,omitempty"`
	High     *Thumbnail `json:"high,omitempty"`
	Standard *Thumbnail `json:"standard,omitempty"`
	Maxres   *Thumbnail `json:"maxres,omitempty"`
}

type ResourceID struct {
	VideoID string `json:"videoId"`
}

type Snippet struct {
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	ChannelTitle string      `json:"channelTitle"`
	PublishedAt  string      `json:"publishedAt"`
	Thumbnails   Thumbnails  `json:"thumbnails"`
	ResourceID   *ResourceID `json:"resourceId,omitempty"`
}

type Statistics struct {
	ViewCount string `json:"viewCount,omitempty"`
}

type ContentDetails struct {
	Duration string `json:"duration,omitempty"`
}

// PlatformVideo is a video as the platform API returns it.
type PlatformVideo struct {
	ID                 string          `json:"id"`
	Snippet            Snippet         `json:"snippet"`
	Statistics         *Statistics     `json:"statistics,omitempty"`
	ContentDetails     *ContentDetails `json:"contentDetails,omitempty"`
	CreatorContentType string          `json:"creatorContentType,omitempty"`
}

type PlaylistContentDetails struct {
	ItemCount int64 `json:"itemCount"`
}

type PlaylistStatus struct {
	PrivacyStatus string `json:"privacyStatus"`
}

// PlatformPlaylist is playlist metadata in the platform API shape.
type PlatformPlaylist struct {
	ID             string                  `json:"id"`
	Snippet        Snippet                 `json:"snippet"`
	ContentDetails *PlaylistContentDetails `json:"contentDetails,omitempty"`
	Status         *PlaylistStatus         `json:"status,omitempty"`
}

// SavedVideo is a collection membership row.
type SavedVideo struct {
	ID           string    `json:"id"`
	VideoID      string    `json:"video_id"`
	CollectionID string    `json:"collection_id,omitempty"`
	Title        string    `json:"title"`
	ThumbnailURL string    `json:"thumbnail_url"`
	ChannelTitle string    `json:"channel_title"`
	PublishedAt  string    `json:"published_at"`
	CreatedAt    time.Time `json:"created_at"`
	ViewCount    string    `json:"view_count,omitempty"`
}

// Video is the one shape every consumer works with.
type Video struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	ThumbnailURL    string      `json:"thumbnailUrl,omitempty"`
	ChannelTitle    string      `json:"channelTitle"`
	PublishedAt     time.Time   `json:"publishedAt"`
	AddedAt         time.Time   `json:"addedAt,omitzero"`
	ViewCount       *int64      `json:"viewCount,omitempty"`
	DurationSeconds *int        `json:"durationSeconds,omitempty"`
	ContentType     ContentType `json:"contentType"`
}

func (v Video) IsShort() bool { return v.ContentType == ContentShort }
