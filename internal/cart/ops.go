package cart

import "MarketID/internal/catalog"

// Op is one cart mutation.
type Op interface {
	// Name labels the operation in logs and metrics.
	Name() string
	apply(c Cart) Cart
}

// Apply returns the cart that results from op. c is never modified.
func Apply(c Cart, op Op) Cart {
	return op.apply(c.Clone())
}

// Add increments the line for Product.ID, or appends a new line with
// quantity 1.
type Add struct {
	Product catalog.Product
}

func (Add) Name() string { return "add" }

func (o Add) apply(c Cart) Cart {
	if i := c.index(o.Product.ID); i >= 0 {
		c[i].Quantity++
		return c
	}
	return append(c, LineItem{Product: o.Product, Quantity: 1})
}

// SetQuantity overwrites a line's quantity; zero or less removes the line.
// Unknown ids are ignored.
type SetQuantity struct {
	ID       string
	Quantity int
}

func (SetQuantity) Name() string { return "set_quantity" }

func (o SetQuantity) apply(c Cart) Cart {
	i := c.index(o.ID)
	if i < 0 {
		return c
	}
	if o.Quantity <= 0 {
		return append(c[:i], c[i+1:]...)
	}
	c[i].Quantity = o.Quantity
	return c
}

// Remove drops the line for ID if there is one.
type Remove struct {
	ID string
}

func (Remove) Name() string { return "remove" }

func (o Remove) apply(c Cart) Cart {
	if i := c.index(o.ID); i >= 0 {
		return append(c[:i], c[i+1:]...)
	}
	return c
}

type Clear struct{}

func (Clear) Name() string { return "clear" }

func (Clear) apply(Cart) Cart { return Cart{} }
