package ordering

import (
	"context"
	"fmt"
	"sync/atomic"
)

// PersistFunc stores a complete new order. A nil error means the store
// accepted all of it.
type PersistFunc[T any] func(ctx context.Context, order []T) error

// Mover applies "move to top" and persists the result. Busy reports whether a
// round trip is in flight so callers can disable their controls.
type Mover[T Orderable[T]] struct {
	persist PersistFunc[T]
	busy    atomic.Int32
}

func NewMover[T Orderable[T]](persist PersistFunc[T]) *Mover[T] {
	return &Mover[T]{persist: persist}
}

func (m *Mover[T]) Busy() bool {
	return m.busy.Load() > 0
}

// MoveToTop returns the recomputed order once it has been persisted. An
// unknown id returns items unchanged and nothing is persisted. On persist
// failure the new order is not returned.
func (m *Mover[T]) MoveToTop(ctx context.Context, items []T, id string) ([]T, error) {
	m.busy.Add(1)
	defer m.busy.Add(-1)

	if IndexOf(items, id) < 0 {
		return clone(items), nil
	}

	updated := MoveItemToTop(items, id)
	if err := m.persist(ctx, updated); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}
	return updated, nil
}
