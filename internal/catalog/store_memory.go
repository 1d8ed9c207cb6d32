package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"os"

	"github.com/go-faster/errors"
	"github.com/tidwall/jsonc"
)

//go:embed products.jsonc
var defaultCatalog []byte

type MemStore struct {
	products []Product
	byID     map[string]int
}

func NewMemStore(products []Product) (*MemStore, error) {
	s := &MemStore{
		products: make([]Product, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	copy(s.products, products)

	for i, p := range s.products {
		if p.ID == "" {
			return nil, errors.Wrapf(ErrMissingID, "product #%d", i)
		}
		if _, dup := s.byID[p.ID]; dup {
			return nil, errors.Wrapf(ErrDuplicateID, "id %q", p.ID)
		}
		s.byID[p.ID] = i
	}
	return s, nil
}

// NewDefaultStore serves the catalog bundled with the binary.
func NewDefaultStore() (*MemStore, error) {
	products, err := Parse(defaultCatalog)
	if err != nil {
		return nil, errors.Wrap(err, "embedded catalog")
	}
	return NewMemStore(products)
}

// LoadFile reads a JSON or JSONC product array from disk.
func LoadFile(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog")
	}
	products, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog %s", path)
	}
	return products, nil
}

// Parse decodes a product array, tolerating comments and trailing commas.
func Parse(data []byte) ([]Product, error) {
	var products []Product
	if err := json.Unmarshal(jsonc.ToJSON(data), &products); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return products, nil
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) List(ctx context.Context, f Filter) ([]Product, error) {
	return f.Apply(s.products), nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Product, bool, error) {
	i, ok := s.byID[id]
	if !ok {
		return Product{}, false, nil
	}
	return s.products[i], true, nil
}
