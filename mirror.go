package shopsync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Mirror is the durable local copy of all records: two fixed slots, one for
// products and one for categories. It is the sole source of truth while the
// backend is unreachable and a write-through copy of it otherwise.
type Mirror interface {
	LoadProducts() ([]Product, error)
	SaveProducts([]Product) error
	LoadCategories() ([]Category, error)
	SaveCategories([]Category) error
}

// DefaultCategories returns the stock category set seeded into an empty
// mirror, matching the dashboard's bundled defaults.
func DefaultCategories() []Category {
	names := []string{
		"Elektronik",
		"Fashion",
		"Makanan & Minuman",
		"Kesehatan",
		"Rumah Tangga",
		"Olahraga",
		"Hobi",
		"Lainnya",
	}
	now := time.Now().UTC()
	categories := make([]Category, len(names))
	for i, name := range names {
		// Seeded defaults are local-only conveniences; marking them synced
		// keeps reconciliation from pushing them upstream.
		categories[i] = Category{Name: name, CreatedAt: now, Synced: true}
	}
	return categories
}

// ============================================================================
// FileMirror
// ============================================================================

const (
	productsSlot   = "products.json"
	categoriesSlot = "categories.json"
)

// FileMirror persists each slot as a JSON file under a directory. Writes go
// through a temp file and rename so a crash mid-write never corrupts a slot.
type FileMirror struct {
	dir string
	mu  sync.Mutex
}

// NewFileMirror creates the directory if needed and returns a mirror over it.
func NewFileMirror(dir string) (*FileMirror, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create mirror directory: %w", err)
	}
	return &FileMirror{dir: dir}, nil
}

func (m *FileMirror) LoadProducts() ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var products []Product
	ok, err := m.loadSlot(productsSlot, &products)
	if err != nil {
		return nil, err
	}
	if !ok || products == nil {
		return []Product{}, nil
	}
	return products, nil
}

func (m *FileMirror) SaveProducts(products []Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveSlot(productsSlot, products)
}

func (m *FileMirror) LoadCategories() ([]Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var categories []Category
	ok, err := m.loadSlot(categoriesSlot, &categories)
	if err != nil {
		return nil, err
	}
	if !ok {
		return DefaultCategories(), nil
	}
	if categories == nil {
		categories = []Category{}
	}
	return categories, nil
}

func (m *FileMirror) SaveCategories(categories []Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveSlot(categoriesSlot, categories)
}

// loadSlot reads one slot file. The bool result is false when the slot does
// not exist yet.
func (m *FileMirror) loadSlot(name string, v any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("cannot read mirror slot %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("cannot parse mirror slot %s: %w", name, err)
	}
	return true, nil
}

func (m *FileMirror) saveSlot(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode mirror slot %s: %w", name, err)
	}
	path := filepath.Join(m.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("cannot write mirror slot %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("cannot commit mirror slot %s: %w", name, err)
	}
	return nil
}

// ============================================================================
// MemoryMirror
// ============================================================================

// MemoryMirror is a map-backed mirror for tests and ephemeral use.
type MemoryMirror struct {
	mu         sync.Mutex
	products   []Product
	categories []Category
	seeded     bool
}

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{}
}

func (m *MemoryMirror) LoadProducts() ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Product{}, m.products...), nil
}

func (m *MemoryMirror) SaveProducts(products []Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = append([]Product{}, products...)
	return nil
}

func (m *MemoryMirror) LoadCategories() ([]Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.seeded && m.categories == nil {
		return DefaultCategories(), nil
	}
	return append([]Category{}, m.categories...), nil
}

func (m *MemoryMirror) SaveCategories(categories []Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = append([]Category{}, categories...)
	m.seeded = true
	return nil
}
