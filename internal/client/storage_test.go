package client_test

import (
	"os"
	"path/filepath"
	"testing"

	"MarketID/internal/client"
)

func TestFileStorage_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	s, err := client.NewFileStorage(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, ok, err := s.Load(client.SlotCart); ok || err != nil {
		t.Fatalf("empty slot ok=%v err=%v", ok, err)
	}

	for _, v := range []string{`[{"id":"1"}]`, `[]`} {
		if err := s.Save(client.SlotCart, []byte(v)); err != nil {
			t.Fatalf("save: %v", err)
		}
		got, ok, err := s.Load(client.SlotCart)
		if err != nil || !ok || string(got) != v {
			t.Fatalf("load=%q ok=%v err=%v want %q", got, ok, err, v)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "cart.json" {
		t.Fatalf("leftover files: %v", entries)
	}
}

func TestMemStorage_CopiesData(t *testing.T) {
	s := client.NewMemStorage()
	buf := []byte("abc")
	_ = s.Save("k", buf)
	buf[0] = 'x'

	got, ok, _ := s.Load("k")
	if !ok || string(got) != "abc" {
		t.Fatalf("got=%q ok=%v", got, ok)
	}
}
