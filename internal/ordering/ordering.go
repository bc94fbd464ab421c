package ordering

// Orderable is anything that can be placed in a user-controlled order.
// WithDisplayOrder returns a copy of the value carrying the new position.
type Orderable[T any] interface {
	OrderID() string
	WithDisplayOrder(n int) T
}

// Reindex returns a copy of items where every element's display order is its
// index (0-based).
func Reindex[T Orderable[T]](items []T) []T {
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = it.WithDisplayOrder(i)
	}
	return out
}

// IndexOf returns the position of the item with the given id, or -1.
func IndexOf[T Orderable[T]](items []T, id string) int {
	for i, it := range items {
		if it.OrderID() == id {
			return i
		}
	}
	return -1
}

// Move removes the item at from and reinserts it at to, then reindexes.
// A destination past the end is clamped to the last index; an out of range
// source leaves the order as it was (still returned as a copy).
func Move[T Orderable[T]](items []T, from, to int) []T {
	n := len(items)
	if from < 0 || from >= n || to < 0 {
		return clone(items)
	}
	if to >= n {
		to = n - 1
	}

	out := make([]T, 0, n)
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)

	moved := items[from]
	out = append(out[:to], append([]T{moved}, out[to:]...)...)
	return Reindex(out)
}

// MoveItemToTop moves the item with the given id to index 0 and shifts the
// others down by one. If id is not present the input order is returned
// unchanged.
func MoveItemToTop[T Orderable[T]](items []T, id string) []T {
	idx := IndexOf(items, id)
	if idx < 0 {
		return clone(items)
	}
	return Move(items, idx, 0)
}

func clone[T any](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
