//go:build integration
// +build integration

package catalog_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"MarketID/internal/catalog"
)

// newPostgresStore seeds the bundled catalog into a throwaway schema.
func newPostgresStore(t *testing.T) *catalog.PostgresStore {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	admin, err := catalog.OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = admin.Close() })

	schema := "catalog_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() { _, _ = admin.Exec("DROP SCHEMA " + schema + " CASCADE") })

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := catalog.OpenPostgres(ctx, fmt.Sprintf("%s%ssearch_path=%s", dsn, sep, schema))
	if err != nil {
		t.Fatalf("open scoped: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.ExecContext(ctx, catalog.Schema); err != nil {
		t.Fatalf("schema: %v", err)
	}

	mem := newDefaultStore(t)
	all, err := mem.List(ctx, catalog.Filter{})
	if err != nil {
		t.Fatalf("list bundled: %v", err)
	}

	s := catalog.NewPostgresStore(db)
	if err := s.Insert(ctx, all); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return s
}

func TestPostgresStore_MatchesMemStore(t *testing.T) {
	pg := newPostgresStore(t)
	mem := newDefaultStore(t)
	ctx := context.Background()

	filters := []catalog.Filter{
		{},
		{Category: "electronics"},
		{Query: "DESK"},
		{Featured: true},
		{Category: "Home", Query: "linen"},
		{Query: "no-such-thing"},
	}

	for _, f := range filters {
		t.Run(fmt.Sprintf("%+v", f), func(t *testing.T) {
			want, err := mem.List(ctx, f)
			if err != nil {
				t.Fatalf("mem: %v", err)
			}
			got, err := pg.List(ctx, f)
			if err != nil {
				t.Fatalf("pg: %v", err)
			}
			if diff := cmp.Diff(ids(want), ids(got)); diff != "" {
				t.Fatalf("ids (-mem +pg):\n%s", diff)
			}
		})
	}
}

func TestPostgresStore_Get(t *testing.T) {
	pg := newPostgresStore(t)
	mem := newDefaultStore(t)
	ctx := context.Background()

	want, _, _ := mem.Get(ctx, "1")
	got, ok, err := pg.Get(ctx, "1")
	if err != nil || !ok {
		t.Fatalf("get ok=%v err=%v", ok, err)
	}
	if !got.Price.Equal(want.Price) || !got.OriginalPrice.Equal(*want.OriginalPrice) || *got.Discount != *want.Discount {
		t.Fatalf("got=%+v want=%+v", got, want)
	}
	if got.Name != want.Name || got.Category != want.Category || got.SoldCount != want.SoldCount {
		t.Fatalf("got=%+v want=%+v", got, want)
	}

	if _, ok, err := pg.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("missing ok=%v err=%v", ok, err)
	}

	if err := pg.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
