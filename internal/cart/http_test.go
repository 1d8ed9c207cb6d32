package cart_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"MarketID/internal/cart"
	"MarketID/internal/catalog"
	"MarketID/internal/session"
	"MarketID/pkg/kit"
)

type fixture struct {
	h       http.Handler
	metrics *cart.Metrics
}

func newFixture(t *testing.T, store cart.Store) fixture {
	t.Helper()

	products, err := catalog.NewDefaultStore()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	m := cart.NewMetrics(prometheus.NewRegistry(), store)
	s := &cart.Server{Store: store, Catalog: products, Log: zap.NewNop(), Metrics: m}

	r := chi.NewRouter()
	r.Use(kit.ErrorDetail(true))
	r.Use(session.Shared)
	s.Register(r)
	r.Post("/checkout", s.CheckoutHandler())

	return fixture{h: r, metrics: m}
}

func call(t *testing.T, h http.Handler, method, target string, body any) (*httptest.ResponseRecorder, cart.Cart) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var c cart.Cart
	if w.Code == http.StatusOK && target != "/checkout" {
		if err := json.Unmarshal(w.Body.Bytes(), &c); err != nil {
			t.Fatalf("decode cart: %v body=%s", err, w.Body.String())
		}
	}
	return w, c
}

func TestHTTP_CartLifecycle(t *testing.T) {
	f := newFixture(t, cart.NewMemStore(0))

	w, c := call(t, f.h, http.MethodGet, "/cart", nil)
	if w.Code != http.StatusOK || w.Body.String() != "[]\n" {
		t.Fatalf("empty cart: status=%d body=%q", w.Code, w.Body.String())
	}

	_, _ = call(t, f.h, http.MethodPost, "/cart", map[string]any{"id": "1"})
	_, c = call(t, f.h, http.MethodPost, "/cart", map[string]any{"id": "1"})
	_, c = call(t, f.h, http.MethodPost, "/cart", map[string]any{"id": "3"})
	if diff := cmp.Diff([]line{{"1", 2}, {"3", 1}}, lines(c)); diff != "" {
		t.Fatalf("after adds (-want +got):\n%s", diff)
	}

	_, c = call(t, f.h, http.MethodPut, "/cart/1", map[string]any{"quantity": 5})
	if diff := cmp.Diff([]line{{"1", 5}, {"3", 1}}, lines(c)); diff != "" {
		t.Fatalf("after set (-want +got):\n%s", diff)
	}

	_, c = call(t, f.h, http.MethodPut, "/cart/3", map[string]any{"quantity": 0})
	if diff := cmp.Diff([]line{{"1", 5}}, lines(c)); diff != "" {
		t.Fatalf("after set zero (-want +got):\n%s", diff)
	}

	w, c = call(t, f.h, http.MethodDelete, "/cart/404", nil)
	if w.Code != http.StatusOK || len(c) != 1 {
		t.Fatalf("delete absent: status=%d cart=%+v", w.Code, lines(c))
	}

	_, c = call(t, f.h, http.MethodDelete, "/cart/1", nil)
	if len(c) != 0 {
		t.Fatalf("after delete cart=%+v", lines(c))
	}

	if got := testutil.ToFloat64(f.metrics.Ops.WithLabelValues("add", "ok")); got != 3 {
		t.Fatalf("add ops metric=%v want 3", got)
	}
}

func TestHTTP_AddUsesCatalogRecord(t *testing.T) {
	f := newFixture(t, cart.NewMemStore(0))

	_, c := call(t, f.h, http.MethodPost, "/cart", map[string]any{
		"id":    "1",
		"name":  "tampered",
		"price": 1,
	})

	it, ok := c.Find("1")
	if !ok {
		t.Fatalf("line missing: %+v", lines(c))
	}
	if it.Name != "Classic Leather Watch" || !it.Price.Equal(decimal.NewFromInt(1250000)) {
		t.Fatalf("line=%+v want catalog record", it.Product)
	}
}

func TestHTTP_BadRequests(t *testing.T) {
	f := newFixture(t, cart.NewMemStore(0))

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"unknown product", http.MethodPost, "/cart", map[string]any{"id": "nope"}, http.StatusNotFound},
		{"missing id", http.MethodPost, "/cart", map[string]any{"name": "x"}, http.StatusBadRequest},
		{"missing quantity", http.MethodPut, "/cart/1", map[string]any{}, http.StatusBadRequest},
		{"unknown field", http.MethodPut, "/cart/1", map[string]any{"qty": 2}, http.StatusBadRequest},
		{"wrong type", http.MethodPut, "/cart/1", map[string]any{"quantity": "two"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := call(t, f.h, tt.method, tt.target, tt.body)
			if w.Code != tt.want {
				t.Fatalf("status=%d want=%d body=%s", w.Code, tt.want, w.Body.String())
			}

			var resp kit.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Message == "" {
				t.Fatalf("error envelope: %v body=%s", err, w.Body.String())
			}
		})
	}
}

func TestHTTP_Checkout(t *testing.T) {
	f := newFixture(t, cart.NewMemStore(0))

	_, _ = call(t, f.h, http.MethodPost, "/cart", map[string]any{"id": "2"})
	_, _ = call(t, f.h, http.MethodPost, "/cart", map[string]any{"id": "2"})

	w, _ := call(t, f.h, http.MethodPost, "/checkout", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	var conf cart.Confirmation
	if err := json.Unmarshal(w.Body.Bytes(), &conf); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if conf.Message != cart.CheckoutMessage || conf.OrderID == "" {
		t.Fatalf("confirmation=%+v", conf)
	}

	_, c := call(t, f.h, http.MethodGet, "/cart", nil)
	if len(c) != 0 {
		t.Fatalf("cart after checkout=%+v", lines(c))
	}
	if got := testutil.ToFloat64(f.metrics.Checkouts); got != 1 {
		t.Fatalf("checkouts metric=%v", got)
	}
}

func TestNewOrderID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := cart.NewOrderID()
		if len(id) != 10 {
			t.Fatalf("id=%q len=%d", id, len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate order id %q", id)
		}
		seen[id] = true
	}
}

type failingStore struct{ cart.Store }

func (failingStore) Update(context.Context, string, cart.Op) (cart.Cart, error) {
	return nil, errors.New("redis: connection refused")
}

func (failingStore) Take(context.Context, string) (cart.Cart, error) {
	return nil, errors.New("redis: connection refused")
}

func TestHTTP_StoreFaultIs500(t *testing.T) {
	f := newFixture(t, failingStore{Store: cart.NewMemStore(0)})

	w, _ := call(t, f.h, http.MethodDelete, "/cart/1", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}

	var resp kit.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Error removing from cart" || resp.Error != "redis: connection refused" {
		t.Fatalf("resp=%+v", resp)
	}
	if got := testutil.ToFloat64(f.metrics.Ops.WithLabelValues("remove", "error")); got != 1 {
		t.Fatalf("error metric=%v", got)
	}
}

func TestHTTP_CheckoutFaultKeepsCounters(t *testing.T) {
	f := newFixture(t, failingStore{Store: cart.NewMemStore(0)})

	w, _ := call(t, f.h, http.MethodPost, "/checkout", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	if got := testutil.ToFloat64(f.metrics.Checkouts); got != 0 {
		t.Fatalf("checkouts=%v", got)
	}
}
