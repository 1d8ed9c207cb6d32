// Package cart holds shopping carts and the one set of rules for changing
// them. Apply is shared by the server stores and by the client's offline
// path, so both sides always agree on what an operation does.
package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"MarketID/internal/catalog"
)

// LineItem is a product snapshot taken when it was first added, plus a
// quantity that is always at least 1.
type LineItem struct {
	catalog.Product
	Quantity int `json:"quantity"`
}

// Cart keeps line items in the order they were first added, at most one
// per product id.
type Cart []LineItem

func (c Cart) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]LineItem(c))
}

func (c Cart) Find(id string) (LineItem, bool) {
	if i := c.index(id); i >= 0 {
		return c[i], true
	}
	return LineItem{}, false
}

func (c Cart) TotalItems() int {
	n := 0
	for _, it := range c {
		n += it.Quantity
	}
	return n
}

func (c Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func (c Cart) index(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}
