package catalog

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	ErrDuplicateID = errors.New("duplicate product id")
	ErrMissingID   = errors.New("product id required")
)

// Store is read-only after construction.
type Store interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	Get(ctx context.Context, id string) (Product, bool, error)
	Ping(ctx context.Context) error
}
