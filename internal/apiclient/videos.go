package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/SietraX/saved/internal/loader"
	"github.com/SietraX/saved/internal/transcript"
	"github.com/SietraX/saved/internal/video"
)

var _ loader.Fetcher = (*Client)(nil)

func (c *Client) PlaylistDetails(ctx context.Context, id string, src loader.SourceType) (loader.Details, error) {
	switch src {
	case loader.SourceSaved:
		col, err := c.GetCollection(ctx, id)
		if err != nil {
			return loader.Details{}, err
		}
		return loader.Details{Saved: &col}, nil
	case loader.SourceLiked:
		return loader.Details{}, nil
	}

	var pl video.PlatformPlaylist
	q := url.Values{"id": {id}}
	if err := c.do(ctx, http.MethodGet, "/youtube/playlist-details", q, nil, &pl); err != nil {
		return loader.Details{}, err
	}
	return loader.Details{External: &pl}, nil
}

func (c *Client) PlaylistVideos(ctx context.Context, id string, src loader.SourceType) ([]video.Record, error) {
	var (
		path string
		q    url.Values
	)
	switch src {
	case loader.SourceSaved:
		path = "/saved-collections/" + url.PathEscape(id) + "/videos"
	case loader.SourceLiked:
		path = "/youtube/liked-videos"
	default:
		path = "/youtube/playlist-videos"
		q = url.Values{"id": {id}}
	}

	var out struct {
		Items json.RawMessage `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return video.DecodeRecords(out.Items)
}

// Playlists lists the signed-in user's platform playlists.
func (c *Client) Playlists(ctx context.Context) ([]video.PlatformPlaylist, error) {
	var out struct {
		Items []video.PlatformPlaylist `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/youtube/playlists", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) WatchLater(ctx context.Context) ([]video.Record, error) {
	var out struct {
		Items json.RawMessage `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/youtube/watch-later", nil, nil, &out); err != nil {
		return nil, err
	}
	return video.DecodeRecords(out.Items)
}

func (c *Client) VideoDetails(ctx context.Context, id string) (video.PlatformVideo, error) {
	var out video.PlatformVideo
	err := c.do(ctx, http.MethodGet, "/youtube/video-details", url.Values{"id": {id}}, nil, &out)
	return out, err
}

// Transcript returns the stored transcript of videoID.
func (c *Client) Transcript(ctx context.Context, videoID string) ([]transcript.Segment, error) {
	var out struct {
		Transcript []transcript.Segment `json:"transcript"`
	}
	q := url.Values{"videoId": {videoID}}
	if err := c.do(ctx, http.MethodGet, "/youtube/captions", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Transcript, nil
}

func (c *Client) AddVideo(ctx context.Context, videoID, collectionID string) (video.SavedVideo, error) {
	var out video.SavedVideo
	body := map[string]string{"videoId": videoID, "collectionId": collectionID}
	err := c.do(ctx, http.MethodPost, "/saved-collections/add-video", nil, body, &out)
	return out, err
}

func (c *Client) DeleteVideo(ctx context.Context, videoID, collectionID string) error {
	body := map[string]string{"videoId": videoID, "collectionId": collectionID}
	return c.do(ctx, http.MethodDelete, "/saved-collections/delete-video", nil, body, nil)
}

// CollectionsWithVideo returns the ids of the collections holding videoID.
func (c *Client) CollectionsWithVideo(ctx context.Context, videoID string) ([]string, error) {
	var out struct {
		CollectionsWithVideo []string `json:"collectionsWithVideo"`
	}
	q := url.Values{"videoId": {videoID}}
	if err := c.do(ctx, http.MethodGet, "/saved-collections/check-video", q, nil, &out); err != nil {
		return nil, err
	}
	return out.CollectionsWithVideo, nil
}

// Search runs a transcript search across saved videos.
func (c *Client) Search(ctx context.Context, term string) ([]transcript.Result, error) {
	var out struct {
		Results []transcript.Result `json:"results"`
	}
	body := map[string]string{"searchTerm": term}
	if err := c.do(ctx, http.MethodPost, "/advanced-search", nil, body, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}
