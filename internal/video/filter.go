package video

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

type FilterType string

const (
	FilterAll    FilterType = "all"
	FilterVideos FilterType = "videos"
	FilterShorts FilterType = "shorts"
)

type SortOrder string

const (
	SortDateAddedNewest     SortOrder = "dateAddedNewest"
	SortDateAddedOldest     SortOrder = "dateAddedOldest"
	SortDatePublishedNewest SortOrder = "datePublishedNewest"
	SortDatePublishedOldest SortOrder = "datePublishedOldest"
	SortMostPopular         SortOrder = "mostPopular"
)

func ParseFilterType(s string) (FilterType, error) {
	switch ft := FilterType(s); ft {
	case FilterAll, FilterVideos, FilterShorts:
		return ft, nil
	case "":
		return FilterAll, nil
	}
	return "", fmt.Errorf("unknown filter type %q", s)
}

func ParseSortOrder(s string) (SortOrder, error) {
	switch so := SortOrder(s); so {
	case SortDateAddedNewest, SortDateAddedOldest, SortDatePublishedNewest,
		SortDatePublishedOldest, SortMostPopular:
		return so, nil
	case "":
		return SortDateAddedNewest, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

type Options struct {
	SearchTerm string
	Type       FilterType
	Sort       SortOrder
}

// Apply runs search, then type filter, then a stable sort. The input slice is
// not modified.
func Apply(videos []Video, opts Options) []Video {
	term := strings.ToLower(strings.TrimSpace(opts.SearchTerm))

	out := make([]Video, 0, len(videos))
	for _, v := range videos {
		if term != "" && !strings.Contains(strings.ToLower(v.Title), term) {
			continue
		}
		switch opts.Type {
		case FilterVideos:
			if v.IsShort() {
				continue
			}
		case FilterShorts:
			if !v.IsShort() {
				continue
			}
		}
		out = append(out, v)
	}

	if cmp := comparator(opts.Sort); cmp != nil {
		slices.SortStableFunc(out, cmp)
	}
	return out
}

func comparator(order SortOrder) func(a, b Video) int {
	switch order {
	// The "added" orders key on the publish date as well. Membership time
	// is carried in AddedAt for display only.
	case SortDateAddedNewest, SortDatePublishedNewest:
		return func(a, b Video) int { return b.PublishedAt.Compare(a.PublishedAt) }
	case SortDateAddedOldest, SortDatePublishedOldest:
		return func(a, b Video) int { return a.PublishedAt.Compare(b.PublishedAt) }
	case SortMostPopular:
		return func(a, b Video) int {
			va, vb := views(a), views(b)
			switch {
			case va > vb:
				return -1
			case va < vb:
				return 1
			}
			return 0
		}
	}
	return nil
}

func views(v Video) int64 {
	if v.ViewCount == nil {
		return 0
	}
	return *v.ViewCount
}

// Filter is a live view over a video list. Every setter recomputes the
// output from the source, so it never lags behind its inputs.
type Filter struct {
	mu     sync.RWMutex
	source []Video
	opts   Options
	output []Video
}

func NewFilter(source []Video) *Filter {
	f := &Filter{
		source: slices.Clone(source),
		opts:   Options{Type: FilterAll, Sort: SortDateAddedNewest},
	}
	f.recompute()
	return f
}

// SetSource replaces the source list, typically with a refetch result. Any
// local removals made through FilterVideo are dropped.
func (f *Filter) SetSource(videos []Video) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.source = slices.Clone(videos)
	f.recompute()
}

func (f *Filter) SetSearchTerm(term string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts.SearchTerm = term
	f.recompute()
}

func (f *Filter) SetFilterType(t FilterType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts.Type = t
	f.recompute()
}

func (f *Filter) SetSortOrder(o SortOrder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts.Sort = o
	f.recompute()
}

func (f *Filter) Options() Options {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.opts
}

func (f *Filter) Output() []Video {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.output)
}

// FilterVideo drops id from the current output only. The next recompute
// brings it back if the source still has it.
func (f *Filter) FilterVideo(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.output)
	f.output = slices.DeleteFunc(f.output, func(v Video) bool { return v.ID == id })
	return len(f.output) != n
}

func (f *Filter) recompute() {
	f.output = Apply(f.source, f.opts)
}
