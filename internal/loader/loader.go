package loader

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/SietraX/saved/internal/collections"
	"github.com/SietraX/saved/internal/logging"
	"github.com/SietraX/saved/internal/video"
)

type SourceType string

const (
	SourceExternal SourceType = "external"
	SourceSaved    SourceType = "saved"
	SourceLiked    SourceType = "liked"
)

// ParseSourceType accepts "youtube" as an alias of external.
func ParseSourceType(s string) (SourceType, error) {
	switch s {
	case "external", "youtube":
		return SourceExternal, nil
	case "saved":
		return SourceSaved, nil
	case "liked":
		return SourceLiked, nil
	}
	return "", fmt.Errorf("unknown source type %q", s)
}

const (
	LikedPlaylistID   = "liked"
	likedTitle        = "Liked Videos"
	likedDescription  = "Your liked videos from YouTube"
	savedDescription  = "Your saved collection"
	errDetailsMessage = "Failed to load playlist details. Please try again later."
	errVideosMessage  = "Failed to load videos. Please try again later."
)

// Playlist is the metadata shape shared by every source.
type Playlist struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	ThumbnailURL  string    `json:"thumbnailUrl,omitempty"`
	ChannelTitle  string    `json:"channelTitle,omitempty"`
	PublishedAt   time.Time `json:"publishedAt,omitzero"`
	PrivacyStatus string    `json:"privacyStatus,omitempty"`
	ItemCount     int       `json:"itemCount"`
}

// Details carries metadata as one of the two source shapes.
type Details struct {
	External *video.PlatformPlaylist
	Saved    *collections.Collection
}

type Fetcher interface {
	PlaylistDetails(ctx context.Context, id string, src SourceType) (Details, error)
	PlaylistVideos(ctx context.Context, id string, src SourceType) ([]video.Record, error)
}

type State struct {
	Playlist  *Playlist
	Videos    []video.Video
	IsLoading bool
	Err       string
}

// Loader fetches one playlist at a time. Results of a superseded Load, or
// arriving after Close, are discarded.
type Loader struct {
	fetcher Fetcher
	log     zerolog.Logger

	mu       sync.Mutex
	gen      uint64
	closed   bool
	id       string
	src      SourceType
	playlist *Playlist
	videos   []video.Video
	haveVids bool
	loading  bool
	errMsg   string
}

func New(f Fetcher) *Loader {
	return &Loader{
		fetcher: f,
		log:     logging.Logger.With().Str("component", "loader").Logger(),
	}
}

func (l *Loader) WithLogger(log zerolog.Logger) *Loader {
	l.log = log
	return l
}

func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := State{
		Videos:    slices.Clone(l.videos),
		IsLoading: l.loading,
		Err:       l.errMsg,
	}
	if l.playlist != nil {
		p := *l.playlist
		st.Playlist = &p
	}
	if st.Videos == nil {
		st.Videos = []video.Video{}
	}
	return st
}

// Load replaces whatever was loaded before with the given playlist. Metadata
// and videos are fetched concurrently; IsLoading stays true until the video
// fetch settles.
func (l *Loader) Load(ctx context.Context, id string, src SourceType) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.gen++
	gen := l.gen
	l.id, l.src = id, src
	l.playlist = nil
	l.videos = nil
	l.haveVids = false
	l.loading = true
	l.errMsg = ""
	if src == SourceLiked {
		l.playlist = &Playlist{ID: LikedPlaylistID, Title: likedTitle, Description: likedDescription}
	}
	l.mu.Unlock()

	var g errgroup.Group
	if src != SourceLiked {
		g.Go(func() error { return l.fetchDetails(ctx, gen, id, src) })
	}
	g.Go(func() error { return l.fetchVideos(ctx, gen, id, src, false) })
	return g.Wait()
}

// RefetchVideos reruns only the video fetch for the current playlist.
func (l *Loader) RefetchVideos(ctx context.Context) error {
	l.mu.Lock()
	if l.closed || l.gen == 0 {
		l.mu.Unlock()
		return nil
	}
	gen, id, src := l.gen, l.id, l.src
	l.mu.Unlock()

	return l.fetchVideos(ctx, gen, id, src, true)
}

// Close stops the loader from applying any further results.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

func (l *Loader) current(gen uint64) bool {
	return !l.closed && gen == l.gen
}

func (l *Loader) fetchDetails(ctx context.Context, gen uint64, id string, src SourceType) error {
	d, err := l.fetcher.PlaylistDetails(ctx, id, src)

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.current(gen) {
		return nil
	}
	if err != nil {
		l.log.Error().Err(err).Str("playlist_id", id).Str("source", string(src)).Msg("loader: fetch playlist details failed")
		l.errMsg = errDetailsMessage
		return fmt.Errorf("playlist details: %w", err)
	}

	p := toPlaylist(d, src)
	if src == SourceSaved && l.haveVids {
		p.ItemCount = len(l.videos)
	}
	l.playlist = &p
	return nil
}

// fetchVideos applies a video result. Only a refetch clears an earlier error;
// during Load a details failure must stay visible.
func (l *Loader) fetchVideos(ctx context.Context, gen uint64, id string, src SourceType, clearErr bool) error {
	recs, err := l.fetcher.PlaylistVideos(ctx, id, src)
	var vids []video.Video
	if err == nil {
		vids = video.NormalizeAll(recs)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.current(gen) {
		return nil
	}
	l.loading = false

	if err != nil {
		l.log.Error().Err(err).Str("playlist_id", id).Str("source", string(src)).Msg("loader: fetch playlist videos failed")
		l.errMsg = errVideosMessage
		l.videos = []video.Video{}
		l.haveVids = false
		return fmt.Errorf("playlist videos: %w", err)
	}

	if clearErr {
		l.errMsg = ""
	}
	l.videos = vids
	l.haveVids = true
	if (src == SourceSaved || src == SourceLiked) && l.playlist != nil {
		p := *l.playlist
		p.ItemCount = len(vids)
		l.playlist = &p
	}
	return nil
}

func toPlaylist(d Details, src SourceType) Playlist {
	switch {
	case src == SourceSaved && d.Saved != nil:
		return Playlist{
			ID:           d.Saved.ID,
			Title:        d.Saved.Name,
			Description:  savedDescription,
			ThumbnailURL: d.Saved.ThumbnailURL,
			ItemCount:    d.Saved.VideoCount,
		}
	case d.External != nil:
		e := d.External
		p := Playlist{
			ID:           e.ID,
			Title:        e.Snippet.Title,
			Description:  e.Snippet.Description,
			ThumbnailURL: video.BestThumbnail(e.Snippet.Thumbnails),
			ChannelTitle: e.Snippet.ChannelTitle,
		}
		if t, err := time.Parse(time.RFC3339, e.Snippet.PublishedAt); err == nil {
			p.PublishedAt = t
		}
		if e.ContentDetails != nil {
			p.ItemCount = int(e.ContentDetails.ItemCount)
		}
		if e.Status != nil {
			p.PrivacyStatus = e.Status.PrivacyStatus
		}
		return p
	}
	return Playlist{}
}
