package ordering

import "sync"

// DragResult describes the end of a drag gesture. Destination is nil when the
// item was dropped outside the list.
type DragResult struct {
	Source      int
	Destination *int
}

// List keeps a committed order plus a working copy used while the user is
// rearranging items. In view mode both are the same list.
type List[T Orderable[T]] struct {
	mu       sync.Mutex
	items    []T
	original []T
	editing  bool
}

func NewList[T Orderable[T]](items []T) *List[T] {
	return &List[T]{items: clone(items)}
}

// Items returns a copy of the working list.
func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return clone(l.items)
}

func (l *List[T]) IsEditMode() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.editing
}

// EnterEditMode snapshots the current list so CancelEditMode can restore it.
// Calling it while already editing keeps the first snapshot.
func (l *List[T]) EnterEditMode() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.editing {
		return
	}
	l.original = clone(l.items)
	l.editing = true
}

// OnDragEnd applies a drag gesture to the working list. It reports whether
// the gesture was applied; drops outside the list, negative positions and
// drags in view mode are ignored.
func (l *List[T]) OnDragEnd(res DragResult) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.editing || res.Destination == nil {
		return false
	}
	if res.Source < 0 || res.Source >= len(l.items) || *res.Destination < 0 {
		return false
	}
	l.items = Move(l.items, res.Source, *res.Destination)
	return true
}

// SaveOrder leaves edit mode and returns the working list for the caller to
// persist. The working list becomes the new baseline.
func (l *List[T]) SaveOrder() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.editing = false
	l.original = nil
	if l.items == nil {
		return []T{}
	}
	return clone(l.items)
}

// CancelEditMode discards every drag since EnterEditMode.
func (l *List[T]) CancelEditMode() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.editing {
		return
	}
	l.items = l.original
	l.original = nil
	l.editing = false
}

// Replace adopts a list coming from elsewhere (usually the server). While
// editing, the snapshot is replaced too so a cancel does not resurrect stale
// data.
func (l *List[T]) Replace(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = clone(items)
	if l.editing {
		l.original = clone(items)
	}
}
