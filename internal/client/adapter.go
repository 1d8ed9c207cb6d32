package client

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"MarketID/internal/cart"
	"MarketID/internal/catalog"
)

// Receipt is a checkout result. Offline receipts were never confirmed by
// the server and carry no order id.
type Receipt struct {
	cart.Confirmation
	Offline bool `json:"offline"`
}

// Adapter keeps a local cart consistent with the server. The server is
// authoritative whenever it answers; when it is unavailable the adapter
// applies the same cart operations locally and keeps going.
type Adapter struct {
	api   *APIClient
	store Storage
	log   *zap.Logger

	mu      sync.Mutex
	cart    cart.Cart
	offline bool
}

func NewAdapter(api *APIClient, store Storage, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Adapter{api: api, store: store, log: log}

	if b, ok, err := store.Load(SlotSession); err != nil {
		log.Warn("load session", zap.Error(err))
	} else if ok {
		api.SetToken(string(b))
	}
	return a
}

// Load adopts the server cart, or the last local snapshot when the server
// cannot deliver it.
func (a *Adapter) Load(ctx context.Context) cart.Cart {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.api.Cart(ctx)
	a.saveSession()
	if err == nil {
		a.set(c, false)
		return a.cart.Clone()
	}

	a.log.Warn("cart fetch failed, using local snapshot", zap.Error(err))
	a.set(a.snapshot(), true)
	return a.cart.Clone()
}

func (a *Adapter) Add(ctx context.Context, p catalog.Product) (cart.Cart, error) {
	return a.mutate(ctx, cart.Add{Product: p}, func() (cart.Cart, error) {
		return a.api.Add(ctx, p)
	})
}

func (a *Adapter) SetQuantity(ctx context.Context, id string, qty int) (cart.Cart, error) {
	return a.mutate(ctx, cart.SetQuantity{ID: id, Quantity: qty}, func() (cart.Cart, error) {
		return a.api.SetQuantity(ctx, id, qty)
	})
}

func (a *Adapter) Remove(ctx context.Context, id string) (cart.Cart, error) {
	return a.mutate(ctx, cart.Remove{ID: id}, func() (cart.Cart, error) {
		return a.api.Remove(ctx, id)
	})
}

// Checkout empties the cart. The local cart is cleared even when the server
// is down; the receipt then reports Offline.
func (a *Adapter) Checkout(ctx context.Context) (Receipt, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	conf, err := a.api.Checkout(ctx)
	a.saveSession()
	switch {
	case err == nil:
		a.set(cart.Cart{}, false)
		return Receipt{Confirmation: conf}, nil
	case errors.Is(err, ErrUnavailable):
		a.log.Warn("checkout failed, clearing local cart", zap.Error(err))
		a.set(cart.Cart{}, true)
		return Receipt{
			Confirmation: cart.Confirmation{Message: cart.CheckoutMessage},
			Offline:      true,
		}, nil
	default:
		return Receipt{}, err
	}
}

func (a *Adapter) Cart() cart.Cart {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cart.Clone()
}

func (a *Adapter) TotalItems() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cart.TotalItems()
}

func (a *Adapter) TotalPrice() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cart.TotalPrice()
}

// Offline reports whether the last cart operation ran against local state.
func (a *Adapter) Offline() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.offline
}

// Products lists the catalog. Unfiltered listings refresh the local copy
// used to resolve products offline.
func (a *Adapter) Products(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	ps, err := a.api.Products(ctx, f)
	a.saveSession()
	if err == nil {
		if f == (catalog.Filter{}) {
			a.saveCatalog(ps)
		}
		return ps, nil
	}
	if !errors.Is(err, ErrUnavailable) {
		return nil, err
	}

	cached, ok := a.cachedCatalog()
	if !ok {
		return nil, err
	}
	a.log.Warn("catalog fetch failed, using local copy", zap.Error(err))
	return f.Apply(cached), nil
}

// Product looks up one product, falling back to the local catalog copy.
func (a *Adapter) Product(ctx context.Context, id string) (catalog.Product, error) {
	p, err := a.api.Product(ctx, id)
	a.saveSession()
	if err == nil || !errors.Is(err, ErrUnavailable) {
		return p, err
	}

	cached, _ := a.cachedCatalog()
	for _, c := range cached {
		if c.ID == id {
			return c, nil
		}
	}
	return catalog.Product{}, err
}

func (a *Adapter) mutate(ctx context.Context, op cart.Op, call func() (cart.Cart, error)) (cart.Cart, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := call()
	a.saveSession()
	switch {
	case err == nil:
		a.set(c, false)
	case errors.Is(err, ErrUnavailable):
		a.log.Warn("cart update failed, applying locally",
			zap.String("op", op.Name()),
			zap.Error(err),
		)
		a.set(cart.Apply(a.cart, op), true)
	default:
		return a.cart.Clone(), err
	}
	return a.cart.Clone(), nil
}

func (a *Adapter) set(c cart.Cart, offline bool) {
	a.cart = c
	a.offline = offline

	b, err := json.Marshal(c)
	if err != nil {
		a.log.Error("encode cart snapshot", zap.Error(err))
		return
	}
	if err := a.store.Save(SlotCart, b); err != nil {
		a.log.Warn("save cart snapshot", zap.Error(err))
	}
}

func (a *Adapter) snapshot() cart.Cart {
	b, ok, err := a.store.Load(SlotCart)
	if err != nil {
		a.log.Warn("load cart snapshot", zap.Error(err))
		return cart.Cart{}
	}
	if !ok {
		return cart.Cart{}
	}

	var c cart.Cart
	if err := json.Unmarshal(b, &c); err != nil {
		a.log.Warn("decode cart snapshot", zap.Error(err))
		return cart.Cart{}
	}
	return c
}

func (a *Adapter) saveSession() {
	tok := a.api.Token()
	if tok == "" {
		return
	}
	if err := a.store.Save(SlotSession, []byte(tok)); err != nil {
		a.log.Warn("save session", zap.Error(err))
	}
}

func (a *Adapter) saveCatalog(ps []catalog.Product) {
	b, err := json.Marshal(ps)
	if err != nil {
		return
	}
	if err := a.store.Save(SlotCatalog, b); err != nil {
		a.log.Warn("save catalog", zap.Error(err))
	}
}

func (a *Adapter) cachedCatalog() ([]catalog.Product, bool) {
	b, ok, err := a.store.Load(SlotCatalog)
	if err != nil || !ok {
		return nil, false
	}
	var ps []catalog.Product
	if err := json.Unmarshal(b, &ps); err != nil {
		return nil, false
	}
	return ps, true
}
