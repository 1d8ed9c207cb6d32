package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type Product struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Discount      *int             `json:"discount,omitempty"`
	Rating        float64          `json:"rating"`
	SoldCount     int              `json:"soldCount"`
	Image         string           `json:"image"`
	Category      string           `json:"category"`
	Featured      bool             `json:"featured"`
}

// Filter narrows a listing. Zero values mean "no constraint"; set fields
// compose with AND.
type Filter struct {
	Category string
	Query    string
	Featured bool
}

func (f Filter) Match(p Product) bool {
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.Featured && !p.Featured {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	return true
}

// Apply keeps the products matching f, in their original order.
func (f Filter) Apply(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Categories lists distinct categories in first-seen order. Names that
// differ only in case are counted together under the first spelling.
func Categories(products []Product) []CategoryCount {
	out := make([]CategoryCount, 0, 8)
	idx := make(map[string]int, 8)
	for _, p := range products {
		key := strings.ToLower(p.Category)
		if i, ok := idx[key]; ok {
			out[i].Count++
			continue
		}
		idx[key] = len(out)
		out = append(out, CategoryCount{Name: p.Category, Count: 1})
	}
	return out
}

const (
	DefaultFlashSaleMinDiscount = 20
	DefaultFlashSaleLimit       = 5
)

// FlashSale picks up to limit products discounted by more than
// minDiscount percent.
func FlashSale(products []Product, minDiscount, limit int) []Product {
	out := make([]Product, 0, limit)
	for _, p := range products {
		if len(out) >= limit {
			break
		}
		if p.Discount != nil && *p.Discount > minDiscount {
			out = append(out, p)
		}
	}
	return out
}
