package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/SietraX/saved/internal/collections"
)

var _ collections.API = (*Client)(nil)

func (c *Client) ListCollections(ctx context.Context) ([]collections.Collection, error) {
	var out []collections.Collection
	if err := c.do(ctx, http.MethodGet, "/saved-collections", nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []collections.Collection{}
	}
	return out, nil
}

func (c *Client) GetCollection(ctx context.Context, id string) (collections.Collection, error) {
	var out collections.Collection
	err := c.do(ctx, http.MethodGet, "/saved-collections/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateCollection(ctx context.Context, name string) (collections.Collection, error) {
	var out collections.Collection
	err := c.do(ctx, http.MethodPost, "/saved-collections", nil, map[string]string{"name": name}, &out)
	return out, err
}

func (c *Client) UpdateCollection(ctx context.Context, id, name string) (collections.Collection, error) {
	var out collections.Collection
	err := c.do(ctx, http.MethodPatch, "/saved-collections/"+url.PathEscape(id), nil, map[string]string{"name": name}, &out)
	return out, err
}

func (c *Client) DeleteCollection(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/saved-collections/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ReorderCollections(ctx context.Context, order []collections.Collection) error {
	body := map[string]any{"collections": order}
	return c.do(ctx, http.MethodPost, "/saved-collections/reorder", nil, body, nil)
}

// VideoCounts returns the number of videos per collection id.
func (c *Client) VideoCounts(ctx context.Context) (map[string]int, error) {
	out := map[string]int{}
	err := c.do(ctx, http.MethodGet, "/saved-collections/video-counts", nil, nil, &out)
	return out, err
}

// ClonePlaylists copies platform playlists into new collections and returns
// how many were cloned.
func (c *Client) ClonePlaylists(ctx context.Context, playlistIDs []string) (int, error) {
	var out struct {
		ClonedCount int `json:"clonedCount"`
	}
	body := map[string]any{"playlistIds": playlistIDs}
	if err := c.do(ctx, http.MethodPost, "/saved-collections/clone-playlist", nil, body, &out); err != nil {
		return 0, err
	}
	return out.ClonedCount, nil
}
