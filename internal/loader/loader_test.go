package loader

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SietraX/saved/internal/collections"
	"github.com/SietraX/saved/internal/video"
)

// fakeFetcher serves canned responses. A gate, when set for an id, holds the
// video fetch for that id until the channel is closed.
type fakeFetcher struct {
	mu         sync.Mutex
	details    map[string]Details
	detailsErr error
	videos     map[string][]video.Record
	videosErr  error
	gates      map[string]chan struct{}
	videoCalls int
	detailCall int
}

func newFake() *fakeFetcher {
	return &fakeFetcher{
		details: map[string]Details{},
		videos:  map[string][]video.Record{},
		gates:   map[string]chan struct{}{},
	}
}

func (f *fakeFetcher) PlaylistDetails(ctx context.Context, id string, src SourceType) (Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCall++
	if f.detailsErr != nil {
		return Details{}, f.detailsErr
	}
	return f.details[id], nil
}

func (f *fakeFetcher) PlaylistVideos(ctx context.Context, id string, src SourceType) ([]video.Record, error) {
	f.mu.Lock()
	gate := f.gates[id]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.videoCalls++
	if f.videosErr != nil {
		return nil, f.videosErr
	}
	return f.videos[id], nil
}

func saved(ids ...string) []video.Record {
	out := make([]video.Record, len(ids))
	for i, id := range ids {
		out[i] = video.FromSaved(video.SavedVideo{VideoID: id, Title: "t-" + id})
	}
	return out
}

func quiet(l *Loader) *Loader { return l.WithLogger(zerolog.New(io.Discard)) }

func stateIDs(st State) []string {
	out := make([]string, len(st.Videos))
	for i, v := range st.Videos {
		out[i] = v.ID
	}
	return out
}

func TestLoad_Saved(t *testing.T) {
	f := newFake()
	f.details["c1"] = Details{Saved: &collections.Collection{ID: "c1", Name: "Cooking", VideoCount: 10}}
	f.videos["c1"] = saved("a", "b")

	l := quiet(New(f))
	require.NoError(t, l.Load(context.Background(), "c1", SourceSaved))

	st := l.State()
	require.NotNil(t, st.Playlist)
	assert.Equal(t, "Cooking", st.Playlist.Title)
	assert.Equal(t, "Your saved collection", st.Playlist.Description)
	assert.Equal(t, 2, st.Playlist.ItemCount)
	assert.Equal(t, []string{"a", "b"}, stateIDs(st))
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Err)
}

func TestLoad_LikedPlaceholder(t *testing.T) {
	f := newFake()
	f.videos[LikedPlaylistID] = []video.Record{
		video.FromPlatform(video.PlatformVideo{ID: "x"}),
		video.FromPlatform(video.PlatformVideo{ID: "y", CreatorContentType: "SHORTS"}),
	}

	l := quiet(New(f))
	require.NoError(t, l.Load(context.Background(), LikedPlaylistID, SourceLiked))

	st := l.State()
	require.NotNil(t, st.Playlist)
	assert.Equal(t, "Liked Videos", st.Playlist.Title)
	assert.Equal(t, "Your liked videos from YouTube", st.Playlist.Description)
	assert.Equal(t, 2, st.Playlist.ItemCount)
	assert.Equal(t, video.ContentShort, st.Videos[1].ContentType)
	assert.Zero(t, f.detailCall)
}

func TestLoad_External(t *testing.T) {
	f := newFake()
	pl := &video.PlatformPlaylist{
		ID:             "PL1",
		Snippet:        video.Snippet{Title: "Mix", Description: "desc", PublishedAt: "2023-04-05T06:07:08Z"},
		ContentDetails: &video.PlaylistContentDetails{ItemCount: 50},
		Status:         &video.PlaylistStatus{PrivacyStatus: "private"},
	}
	pl.Snippet.Thumbnails.Medium = &video.Thumbnail{URL: "http://m"}
	f.details["PL1"] = Details{External: pl}
	f.videos["PL1"] = []video.Record{video.FromPlatform(video.PlatformVideo{ID: "v1"})}

	l := quiet(New(f))
	require.NoError(t, l.Load(context.Background(), "PL1", SourceExternal))

	st := l.State()
	assert.Equal(t, "Mix", st.Playlist.Title)
	assert.Equal(t, "http://m", st.Playlist.ThumbnailURL)
	assert.Equal(t, "private", st.Playlist.PrivacyStatus)
	// external playlists keep the platform's item count
	assert.Equal(t, 50, st.Playlist.ItemCount)
	assert.Equal(t, 2023, st.Playlist.PublishedAt.Year())
}

func TestLoad_DetailsFailure(t *testing.T) {
	f := newFake()
	f.detailsErr = errors.New("404")
	f.videos["c1"] = saved("a")

	l := quiet(New(f))
	err := l.Load(context.Background(), "c1", SourceSaved)
	assert.Error(t, err)

	st := l.State()
	assert.Nil(t, st.Playlist)
	assert.Equal(t, errDetailsMessage, st.Err)
	assert.False(t, st.IsLoading)
	assert.Equal(t, []string{"a"}, stateIDs(st))
}

func TestLoad_VideosFailureThenRefetch(t *testing.T) {
	f := newFake()
	f.details["c1"] = Details{Saved: &collections.Collection{ID: "c1", Name: "C"}}
	f.videosErr = errors.New("500")

	l := quiet(New(f))
	assert.Error(t, l.Load(context.Background(), "c1", SourceSaved))

	st := l.State()
	assert.Equal(t, errVideosMessage, st.Err)
	assert.Empty(t, st.Videos)
	assert.NotNil(t, st.Videos)
	assert.False(t, st.IsLoading)

	f.mu.Lock()
	f.videosErr = nil
	f.videos["c1"] = saved("a", "b", "c")
	f.mu.Unlock()

	require.NoError(t, l.RefetchVideos(context.Background()))
	st = l.State()
	assert.Empty(t, st.Err)
	assert.Len(t, st.Videos, 3)
	assert.Equal(t, 3, st.Playlist.ItemCount)
	assert.Equal(t, 1, f.detailCall)
}

func TestRefetchVideos_BeforeLoad(t *testing.T) {
	f := newFake()
	l := quiet(New(f))
	assert.NoError(t, l.RefetchVideos(context.Background()))
	assert.Zero(t, f.videoCalls)
}

func TestLoad_StaleResponseIgnored(t *testing.T) {
	f := newFake()
	f.videos["old"] = saved("stale")
	f.videos["new"] = saved("fresh")
	gate := make(chan struct{})
	f.gates["old"] = gate

	l := quiet(New(f))

	done := make(chan error, 1)
	go func() { done <- l.Load(context.Background(), "old", SourceLiked) }()

	// wait until the first load has started before superseding it
	require.Eventually(t, func() bool { return l.State().IsLoading }, time.Second, time.Millisecond)

	require.NoError(t, l.Load(context.Background(), "new", SourceLiked))
	close(gate)
	require.NoError(t, <-done)

	st := l.State()
	assert.Equal(t, []string{"fresh"}, stateIDs(st))
	assert.False(t, st.IsLoading)
}

func TestClose_DropsResults(t *testing.T) {
	f := newFake()
	f.videos["c1"] = saved("a")
	gate := make(chan struct{})
	f.gates["c1"] = gate

	l := quiet(New(f))
	done := make(chan error, 1)
	go func() { done <- l.Load(context.Background(), "c1", SourceLiked) }()
	require.Eventually(t, func() bool { return l.State().IsLoading }, time.Second, time.Millisecond)

	l.Close()
	close(gate)
	require.NoError(t, <-done)

	st := l.State()
	assert.Empty(t, st.Videos)
	assert.True(t, st.IsLoading)

	// a closed loader ignores new loads too
	assert.NoError(t, l.Load(context.Background(), "c1", SourceLiked))
	assert.Empty(t, l.State().Videos)
}

func TestParseSourceType(t *testing.T) {
	src, err := ParseSourceType("youtube")
	require.NoError(t, err)
	assert.Equal(t, SourceExternal, src)
	_, err = ParseSourceType("bogus")
	assert.Error(t, err)
}
