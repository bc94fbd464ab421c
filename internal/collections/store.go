package collections

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/SietraX/saved/internal/logging"
	"github.com/SietraX/saved/internal/ordering"
)

// Store holds one user's collections. Local state only changes after the API
// confirms a mutation; a failed call leaves it exactly as it was.
type Store struct {
	api   API
	log   zerolog.Logger
	mover *ordering.Mover[Collection]

	mu     sync.RWMutex
	items  []Collection
	loaded bool

	loading atomic.Bool
	refresh singleflight.Group
}

func NewStore(api API) *Store {
	s := &Store{
		api: api,
		log: logging.Logger.With().Str("component", "collections").Logger(),
	}
	s.mover = ordering.NewMover[Collection](func(ctx context.Context, order []Collection) error {
		return s.api.ReorderCollections(ctx, order)
	})
	return s
}

// WithLogger replaces the store's logger. Useful in tests and in the CLI.
func (s *Store) WithLogger(l zerolog.Logger) *Store {
	s.log = l
	return s
}

func (s *Store) Collections() []Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

func (s *Store) Get(id string) (Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := ordering.IndexOf(s.items, id)
	if i < 0 {
		return Collection{}, false
	}
	return s.items[i], true
}

func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *Store) IsLoading() bool { return s.loading.Load() }

func (s *Store) IsMoving() bool { return s.mover.Busy() }

// Refresh reloads the list from the API. Concurrent callers share a single
// request.
func (s *Store) Refresh(ctx context.Context) error {
	_, err, _ := s.refresh.Do("list", func() (any, error) {
		s.loading.Store(true)
		defer s.loading.Store(false)

		list, err := s.api.ListCollections(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("collections: fetch failed")
			return nil, err
		}
		slices.SortStableFunc(list, func(a, b Collection) int { return a.DisplayOrder - b.DisplayOrder })

		s.mu.Lock()
		s.items = list
		s.loaded = true
		s.mu.Unlock()
		return nil, nil
	})
	return err
}

func (s *Store) Create(ctx context.Context, name string) (Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Collection{}, ErrInvalidName
	}

	created, err := s.api.CreateCollection(ctx, name)
	if err != nil {
		s.log.Error().Err(err).Str("name", name).Msg("collections: create failed")
		return Collection{}, err
	}
	created.VideoCount = 0

	s.mu.Lock()
	s.items = append(slices.Clone(s.items), created)
	s.mu.Unlock()
	return created, nil
}

// Update renames a collection. Counts and thumbnail known locally survive,
// since the update response does not carry them.
func (s *Store) Update(ctx context.Context, id, name string) (Collection, error) {
	if id == "" {
		return Collection{}, ErrMissingID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Collection{}, ErrInvalidName
	}

	updated, err := s.api.UpdateCollection(ctx, id, name)
	if err != nil {
		s.log.Error().Err(err).Str("collection_id", id).Msg("collections: update failed")
		return Collection{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := slices.Clone(s.items)
	if i := ordering.IndexOf(next, id); i >= 0 {
		updated.VideoCount = next[i].VideoCount
		updated.ThumbnailURL = next[i].ThumbnailURL
		next[i] = updated
	}
	s.items = next
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	if err := s.api.DeleteCollection(ctx, id); err != nil {
		s.log.Error().Err(err).Str("collection_id", id).Msg("collections: delete failed")
		return err
	}

	s.mu.Lock()
	s.items = slices.DeleteFunc(slices.Clone(s.items), func(c Collection) bool { return c.ID == id })
	s.mu.Unlock()
	return nil
}

// MoveToTop persists the list with id first and adopts it on success.
func (s *Store) MoveToTop(ctx context.Context, id string) ([]Collection, error) {
	if id == "" {
		return nil, ErrMissingID
	}

	updated, err := s.mover.MoveToTop(ctx, s.Collections(), id)
	if err != nil {
		s.log.Error().Err(err).Str("collection_id", id).Msg("collections: move to top failed")
		return nil, err
	}

	s.mu.Lock()
	s.items = updated
	s.mu.Unlock()
	return slices.Clone(updated), nil
}

// Reorder persists a complete new order, usually the result of a drag
// session, and adopts it on success.
func (s *Store) Reorder(ctx context.Context, order []Collection) error {
	if err := s.api.ReorderCollections(ctx, order); err != nil {
		s.log.Error().Err(err).Int("count", len(order)).Msg("collections: reorder failed")
		return fmt.Errorf("reorder collections: %w", err)
	}

	s.mu.Lock()
	s.items = slices.Clone(order)
	s.mu.Unlock()
	return nil
}

// AdjustVideoCount keeps a collection's count in step after a video was
// added or removed elsewhere. Counts never go below zero.
func (s *Store) AdjustVideoCount(id string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := ordering.IndexOf(s.items, id)
	if i < 0 {
		return
	}
	next := slices.Clone(s.items)
	next[i].VideoCount = max(0, next[i].VideoCount+delta)
	s.items = next
}
