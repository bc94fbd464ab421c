package controls

import (
	"context"
	"strings"
	"sync"
)

// CreateFunc creates a collection with the given name.
type CreateFunc func(ctx context.Context, name string) error

// NewCollectionInput is the text field used to name a new collection.
type NewCollectionInput struct {
	create CreateFunc

	mu    sync.Mutex
	value string
}

func NewNewCollectionInput(create CreateFunc) *NewCollectionInput {
	return &NewCollectionInput{create: create}
}

func (in *NewCollectionInput) Value() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.value
}

func (in *NewCollectionInput) SetValue(v string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.value = v
}

// Submit calls the creator with the current value. The field is cleared only
// when creation succeeds; a blank value does nothing.
func (in *NewCollectionInput) Submit(ctx context.Context) error {
	v := in.Value()
	if strings.TrimSpace(v) == "" {
		return nil
	}
	if err := in.create(ctx, v); err != nil {
		return err
	}

	in.mu.Lock()
	if in.value == v {
		in.value = ""
	}
	in.mu.Unlock()
	return nil
}

// HandleKey submits on Enter and ignores every other key.
func (in *NewCollectionInput) HandleKey(ctx context.Context, key string) error {
	if key != "Enter" {
		return nil
	}
	return in.Submit(ctx)
}
