package main

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"MarketID/internal/cart"
	"MarketID/internal/catalog"
	"MarketID/internal/session"
	"MarketID/internal/storefront"
)

func newTS(t *testing.T) *httptest.Server {
	t.Helper()
	products, err := catalog.NewDefaultStore()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	ts := httptest.NewServer(storefront.NewHandler(storefront.Deps{
		Catalog:  products,
		Carts:    cart.NewMemStore(0),
		Sessions: session.NewManager("shopctl-test-secret-0123456789abc", time.Hour),
	}, storefront.HTTPDeps{Log: zap.NewNop()}))
	t.Cleanup(ts.Close)
	return ts
}

func TestRun_CartCommands(t *testing.T) {
	ts := newTS(t)
	dir := t.TempDir()

	exec := func(args ...string) string {
		t.Helper()
		var out, errOut bytes.Buffer
		full := append([]string{"--server", ts.URL, "--state-dir", dir}, args...)
		if err := run(full, &out, &errOut); err != nil {
			t.Fatalf("%v: %v\n%s", args, err, errOut.String())
		}
		return out.String()
	}

	got := exec("add", "1")
	got = exec("add", "1")
	if !strings.Contains(got, "2 items, total Rp 2.500.000") {
		t.Fatalf("after two adds:\n%s", got)
	}

	got = exec("set", "1", "1")
	if !strings.Contains(got, "1 items, total Rp 1.250.000") {
		t.Fatalf("after set:\n%s", got)
	}

	got = exec("checkout")
	if !strings.Contains(got, cart.CheckoutMessage) || !strings.Contains(got, "total Rp 1.250.000") {
		t.Fatalf("checkout:\n%s", got)
	}

	got = exec("cart")
	if !strings.Contains(got, "cart is empty") {
		t.Fatalf("cart after checkout:\n%s", got)
	}
}

func TestRun_Products(t *testing.T) {
	ts := newTS(t)
	var out bytes.Buffer
	err := run([]string{"--server", ts.URL, "--state-dir", t.TempDir(), "products", "--category", "furniture"}, &out, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"Ergonomic Office Chair", "Oak Writing Desk", "Rp 3.450.000", "(-20%)"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("missing %q in:\n%s", want, out.String())
		}
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"--state-dir", t.TempDir(), "teleport"}, &out, &out); err == nil {
		t.Fatalf("expected error")
	}
}
