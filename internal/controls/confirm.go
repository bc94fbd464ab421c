package controls

import "sync"

// DeleteConfirmation tracks the id awaiting a destructive confirmation.
// A pending id means the dialog is showing.
type DeleteConfirmation struct {
	mu      sync.Mutex
	pending string
	open    bool
}

func (d *DeleteConfirmation) Open(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = id
	d.open = true
}

// Close is used for both cancel and confirm.
func (d *DeleteConfirmation) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = ""
	d.open = false
}

func (d *DeleteConfirmation) PendingID() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending, d.open
}

func (d *DeleteConfirmation) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}
