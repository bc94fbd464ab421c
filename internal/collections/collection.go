package collections

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidName = errors.New("collection name is required")
	ErrMissingID   = errors.New("collection id is required")
	ErrNotFound    = errors.New("collection not found")
)

type Collection struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	DisplayOrder int       `json:"display_order"`
	VideoCount   int       `json:"videoCount"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
}

func (c Collection) OrderID() string { return c.ID }

func (c Collection) WithDisplayOrder(n int) Collection {
	c.DisplayOrder = n
	return c
}

// API is the persistence side of the store. Implementations must return an
// error for every non-success response.
type API interface {
	ListCollections(ctx context.Context) ([]Collection, error)
	CreateCollection(ctx context.Context, name string) (Collection, error)
	UpdateCollection(ctx context.Context, id, name string) (Collection, error)
	DeleteCollection(ctx context.Context, id string) error
	ReorderCollections(ctx context.Context, order []Collection) error
}
