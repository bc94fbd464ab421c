package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/SietraX/saved/internal/video"
)

var ErrNotFound = errors.New("youtube: not found")

// Platform is what the HTTP layer needs from the video platform. Every call
// acts as the user owning accessToken.
type Platform interface {
	Playlists(ctx context.Context, accessToken string) ([]video.PlatformPlaylist, error)
	PlaylistDetails(ctx context.Context, accessToken, id string) (video.PlatformPlaylist, error)
	PlaylistVideos(ctx context.Context, accessToken, id string) ([]video.PlatformVideo, error)
	LikedVideos(ctx context.Context, accessToken string) ([]video.PlatformVideo, error)
	WatchLater(ctx context.Context, accessToken string) ([]video.PlatformVideo, error)
	Videos(ctx context.Context, accessToken string, ids []string) ([]video.PlatformVideo, error)
}

const pageSize = 50

// watchLaterID is the platform's reserved id for the Watch Later list.
const watchLaterID = "WL"

type Client struct {
	endpoint string
	base     *http.Client
	maxPages int
}

func New() *Client {
	return &Client{
		base:     &http.Client{Timeout: 15 * time.Second},
		maxPages: 20,
	}
}

// WithEndpoint points the client at another API root, e.g. a test server.
func (c *Client) WithEndpoint(u string) *Client {
	c.endpoint = u
	return c
}

func (c *Client) service(ctx context.Context, accessToken string) (*yt.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	hc := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.base), ts)

	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return svc, nil
}

// StatusCode extracts the HTTP status of a platform error, or 0.
func StatusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

func (c *Client) Playlists(ctx context.Context, accessToken string) ([]video.PlatformPlaylist, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	out := []video.PlatformPlaylist{}
	token := ""
	for range c.maxPages {
		resp, err := svc.Playlists.List([]string{"snippet", "contentDetails", "status"}).
			Mine(true).
			MaxResults(pageSize).
			PageToken(token).
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		for _, p := range resp.Items {
			out = append(out, toPlaylist(p))
		}
		if token = resp.NextPageToken; token == "" {
			break
		}
	}
	return out, nil
}

func (c *Client) PlaylistDetails(ctx context.Context, accessToken, id string) (video.PlatformPlaylist, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return video.PlatformPlaylist{}, err
	}

	resp, err := svc.Playlists.List([]string{"snippet", "contentDetails", "status"}).
		Id(id).
		Context(ctx).
		Do()
	if err != nil {
		return video.PlatformPlaylist{}, err
	}
	if len(resp.Items) == 0 {
		return video.PlatformPlaylist{}, ErrNotFound
	}
	return toPlaylist(resp.Items[0]), nil
}

// PlaylistVideos lists a playlist in playlist order, merged with each video's
// statistics and duration. Entries whose video is gone are dropped.
func (c *Client) PlaylistVideos(ctx context.Context, accessToken, id string) ([]video.PlatformVideo, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	var ids []string
	token := ""
	for range c.maxPages {
		resp, err := svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(id).
			MaxResults(pageSize).
			PageToken(token).
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		for _, it := range resp.Items {
			if it.ContentDetails != nil && it.ContentDetails.VideoId != "" {
				ids = append(ids, it.ContentDetails.VideoId)
			}
		}
		if token = resp.NextPageToken; token == "" {
			break
		}
	}

	return videosByID(ctx, svc, ids)
}

func (c *Client) WatchLater(ctx context.Context, accessToken string) ([]video.PlatformVideo, error) {
	return c.PlaylistVideos(ctx, accessToken, watchLaterID)
}

func (c *Client) Videos(ctx context.Context, accessToken string, ids []string) ([]video.PlatformVideo, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return videosByID(ctx, svc, ids)
}

// LikedVideos lists the user's liked videos and classifies shorts, since the
// platform does not say which liked videos are shorts.
func (c *Client) LikedVideos(ctx context.Context, accessToken string) ([]video.PlatformVideo, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	out := []video.PlatformVideo{}
	token := ""
	for range c.maxPages {
		resp, err := svc.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
			MyRating("like").
			MaxResults(pageSize).
			PageToken(token).
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		for _, v := range resp.Items {
			pv := toVideo(v)
			pv.CreatorContentType = "VIDEO_ON_DEMAND"
			if isShort(v) {
				pv.CreatorContentType = "SHORTS"
			}
			out = append(out, pv)
		}
		if token = resp.NextPageToken; token == "" {
			break
		}
	}
	return out, nil
}

func videosByID(ctx context.Context, svc *yt.Service, ids []string) ([]video.PlatformVideo, error) {
	byID := make(map[string]*yt.Video, len(ids))
	for start := 0; start < len(ids); start += pageSize {
		end := min(start+pageSize, len(ids))
		resp, err := svc.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
			Id(ids[start:end]...).
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		for _, v := range resp.Items {
			byID[v.Id] = v
		}
	}

	out := make([]video.PlatformVideo, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, toVideo(v))
		}
	}
	return out, nil
}

// isShort: at most a minute and portrait, or tagged #shorts. Videos without a
// duration are never shorts.
func isShort(v *yt.Video) bool {
	if v.ContentDetails == nil {
		return false
	}
	secs, ok := video.ParseISO8601Duration(v.ContentDetails.Duration)
	if !ok {
		return false
	}

	var width, height int64
	var title, desc string
	if s := v.Snippet; s != nil {
		title, desc = strings.ToLower(s.Title), strings.ToLower(s.Description)
		if t := s.Thumbnails; t != nil {
			for _, th := range []*yt.Thumbnail{t.Maxres, t.Standard} {
				if th != nil && th.Width > 0 {
					width, height = th.Width, th.Height
					break
				}
			}
		}
	}

	if secs <= 60 && height > width {
		return true
	}
	return strings.Contains(title, "#shorts") || strings.Contains(desc, "#shorts")
}

func toThumbnails(t *yt.ThumbnailDetails) video.Thumbnails {
	if t == nil {
		return video.Thumbnails{}
	}
	conv := func(th *yt.Thumbnail) *video.Thumbnail {
		if th == nil {
			return nil
		}
		return &video.Thumbnail{URL: th.Url, Width: th.Width, Height: th.Height}
	}
	return video.Thumbnails{
		Default:  conv(t.Default),
		Medium:   conv(t.Medium),
		High:     conv(t.High),
		Standard: conv(t.Standard),
		Maxres:   conv(t.Maxres),
	}
}

func toPlaylist(p *yt.Playlist) video.PlatformPlaylist {
	out := video.PlatformPlaylist{ID: p.Id}
	if s := p.Snippet; s != nil {
		out.Snippet = video.Snippet{
			Title:        s.Title,
			Description:  s.Description,
			ChannelTitle: s.ChannelTitle,
			PublishedAt:  s.PublishedAt,
			Thumbnails:   toThumbnails(s.Thumbnails),
		}
	}
	if p.ContentDetails != nil {
		out.ContentDetails = &video.PlaylistContentDetails{ItemCount: p.ContentDetails.ItemCount}
	}
	if p.Status != nil {
		out.Status = &video.PlaylistStatus{PrivacyStatus: p.Status.PrivacyStatus}
	}
	return out
}

func toVideo(v *yt.Video) video.PlatformVideo {
	out := video.PlatformVideo{ID: v.Id}
	if s := v.Snippet; s != nil {
		out.Snippet = video.Snippet{
			Title:        s.Title,
			Description:  s.Description,
			ChannelTitle: s.ChannelTitle,
			PublishedAt:  s.PublishedAt,
			Thumbnails:   toThumbnails(s.Thumbnails),
		}
	}
	if v.Statistics != nil {
		out.Statistics = &video.Statistics{ViewCount: strconv.FormatUint(v.Statistics.ViewCount, 10)}
	}
	if v.ContentDetails != nil {
		out.ContentDetails = &video.ContentDetails{Duration: v.ContentDetails.Duration}
	}
	return out
}
