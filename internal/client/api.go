// Package client is the consumer side of the storefront API: a typed HTTP
// client and an Adapter that mirrors the cart locally and keeps working
// when the server cannot be reached.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"MarketID/internal/cart"
	"MarketID/internal/catalog"
	"MarketID/internal/session"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrBadStatus   = errors.New("bad status")
	ErrUnavailable = errors.New("storefront unavailable")
)

// APIClient talks to the /api routes. It remembers the session token the
// server hands out so consecutive calls share one cart.
type APIClient struct {
	BaseURL string
	Client  *http.Client

	mu    sync.Mutex
	token string
}

func NewAPIClient(baseURL string) *APIClient {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &APIClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 3 * time.Second},
	}
}

func (c *APIClient) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *APIClient) SetToken(tok string) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

func (c *APIClient) Products(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Query != "" {
		q.Set("q", f.Query)
	}
	if f.Featured {
		q.Set("featured", "true")
	}

	path := "/api/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []catalog.Product
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *APIClient) FlashSale(ctx context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	err := c.do(ctx, http.MethodGet, "/api/products/flash-sale", nil, &out)
	return out, err
}

func (c *APIClient) Categories(ctx context.Context) ([]catalog.CategoryCount, error) {
	var out []catalog.CategoryCount
	err := c.do(ctx, http.MethodGet, "/api/categories", nil, &out)
	return out, err
}

func (c *APIClient) Product(ctx context.Context, id string) (catalog.Product, error) {
	var p catalog.Product
	err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, &p)
	return p, err
}

func (c *APIClient) Cart(ctx context.Context) (cart.Cart, error) {
	var out cart.Cart
	err := c.do(ctx, http.MethodGet, "/api/cart", nil, &out)
	return out, err
}

func (c *APIClient) Add(ctx context.Context, p catalog.Product) (cart.Cart, error) {
	var out cart.Cart
	err := c.do(ctx, http.MethodPost, "/api/cart", p, &out)
	return out, err
}

func (c *APIClient) SetQuantity(ctx context.Context, id string, qty int) (cart.Cart, error) {
	var out cart.Cart
	err := c.do(ctx, http.MethodPut, "/api/cart/"+url.PathEscape(id), map[string]int{"quantity": qty}, &out)
	return out, err
}

func (c *APIClient) Remove(ctx context.Context, id string) (cart.Cart, error) {
	var out cart.Cart
	err := c.do(ctx, http.MethodDelete, "/api/cart/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *APIClient) Checkout(ctx context.Context) (cart.Confirmation, error) {
	var out cart.Confirmation
	err := c.do(ctx, http.MethodPost, "/api/checkout", nil, &out)
	return out, err
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return errors.Wrap(ErrUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if tok := resp.Header.Get(session.HeaderToken); tok != "" {
		c.SetToken(tok)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrap(ErrNotFound, readMessage(resp.Body))
	case resp.StatusCode >= 500:
		return errors.Wrapf(ErrUnavailable, "status=%d %s", resp.StatusCode, readMessage(resp.Body))
	default:
		return errors.Wrapf(ErrBadStatus, "status=%d %s", resp.StatusCode, readMessage(resp.Body))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	// A 200 that is not our JSON came from something in front of the
	// storefront (a proxy or captive portal), so treat it as an outage.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(ErrUnavailable, "decode response: %v", err)
	}
	return nil
}

// readMessage pulls the message out of an error envelope.
func readMessage(r io.Reader) string {
	var env struct {
		Message string `json:"message"`
	}
	b, _ := io.ReadAll(io.LimitReader(r, 64<<10))
	if json.Unmarshal(b, &env) == nil && env.Message != "" {
		return env.Message
	}
	return strings.TrimSpace(string(b))
}
