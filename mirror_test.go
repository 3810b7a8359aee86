package shopsync_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	shopsync "github.com/latranshop/shopsync"
)

func TestFileMirrorRoundTrip(t *testing.T) {
	mirror, err := shopsync.NewFileMirror(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileMirror: %v", err)
	}

	now := time.Now().UTC()
	want := []shopsync.Product{
		product("p1", "Kaos Polos", now),
		product("p2", "Celana Jeans", now),
	}
	if err := mirror.SaveProducts(want); err != nil {
		t.Fatalf("SaveProducts: %v", err)
	}

	got, err := mirror.LoadProducts()
	if err != nil {
		t.Fatalf("LoadProducts: %v", err)
	}
	if len(got) != 2 || got[0].ID != "p1" || got[1].Name != "Celana Jeans" {
		t.Fatalf("unexpected products: %+v", got)
	}
}

func TestFileMirrorMissingFiles(t *testing.T) {
	mirror, err := shopsync.NewFileMirror(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileMirror: %v", err)
	}

	products, err := mirror.LoadProducts()
	if err != nil {
		t.Fatalf("LoadProducts: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("expected no products, got %+v", products)
	}

	// Categories fall back to the stock defaults so a fresh install is usable.
	categories, err := mirror.LoadCategories()
	if err != nil {
		t.Fatalf("LoadCategories: %v", err)
	}
	if len(categories) != len(shopsync.DefaultCategories()) {
		t.Fatalf("expected the default categories, got %+v", categories)
	}
	for _, c := range categories {
		if !c.Synced {
			t.Errorf("default category %q should be marked synced", c.Name)
		}
	}
}

func TestFileMirrorOverwrite(t *testing.T) {
	dir := t.TempDir()
	mirror, err := shopsync.NewFileMirror(dir)
	if err != nil {
		t.Fatalf("NewFileMirror: %v", err)
	}

	now := time.Now().UTC()
	if err := mirror.SaveProducts([]shopsync.Product{product("p1", "Kaos Polos", now)}); err != nil {
		t.Fatalf("SaveProducts: %v", err)
	}
	if err := mirror.SaveProducts([]shopsync.Product{product("p2", "Celana Jeans", now)}); err != nil {
		t.Fatalf("SaveProducts: %v", err)
	}

	// Reopen to prove persistence, not just in-process state.
	reopened, err := shopsync.NewFileMirror(dir)
	if err != nil {
		t.Fatalf("NewFileMirror: %v", err)
	}
	got, err := reopened.LoadProducts()
	if err != nil {
		t.Fatalf("LoadProducts: %v", err)
	}
	if len(got) != 1 || got[0].ID != "p2" {
		t.Fatalf("expected only the last save, got %+v", got)
	}

	// No stray temp files after a save.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestFileMirrorSavedCategoriesWinOverDefaults(t *testing.T) {
	mirror, err := shopsync.NewFileMirror(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileMirror: %v", err)
	}

	saved := []shopsync.Category{{Name: "Aksesoris", CreatedAt: time.Now().UTC()}}
	if err := mirror.SaveCategories(saved); err != nil {
		t.Fatalf("SaveCategories: %v", err)
	}

	got, err := mirror.LoadCategories()
	if err != nil {
		t.Fatalf("LoadCategories: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Aksesoris" {
		t.Fatalf("expected the saved categories, got %+v", got)
	}
}

func TestMemoryMirrorCopyIsolation(t *testing.T) {
	mirror := shopsync.NewMemoryMirror()

	original := []shopsync.Product{product("p1", "Kaos Polos", time.Now().UTC())}
	if err := mirror.SaveProducts(original); err != nil {
		t.Fatalf("SaveProducts: %v", err)
	}
	original[0].Name = "mutated"

	got, err := mirror.LoadProducts()
	if err != nil {
		t.Fatalf("LoadProducts: %v", err)
	}
	if got[0].Name != "Kaos Polos" {
		t.Fatal("save must copy the slice, not alias it")
	}

	got[0].Name = "mutated again"
	again, err := mirror.LoadProducts()
	if err != nil {
		t.Fatalf("LoadProducts: %v", err)
	}
	if again[0].Name != "Kaos Polos" {
		t.Fatal("load must return a copy, not the backing slice")
	}
}
