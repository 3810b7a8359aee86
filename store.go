package shopsync

import (
	"context"
	"encoding/base64"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCacheTTL is how long a fetched record set is served without going
// back to the backend.
const DefaultCacheTTL = 30 * time.Second

// ============================================================================
// Mode
// ============================================================================

// Mode is the Store's belief about backend reachability. Offline is sticky:
// only Recheck can bring the Store back online, while any transport failure
// can take it offline.
type Mode int

const (
	ModeUninitialized Mode = iota
	ModeProbing
	ModeOnline
	ModeOffline
)

func (m Mode) String() string {
	switch m {
	case ModeProbing:
		return "probing"
	case ModeOnline:
		return "online"
	case ModeOffline:
		return "offline"
	default:
		return "uninitialized"
	}
}

// ============================================================================
// Gateway
// ============================================================================

// Gateway is what the Store needs from the remote side. *Client satisfies it.
type Gateway interface {
	CheckAvailability(ctx context.Context) bool
	ConsumeInitialProducts() []Product
	ResetAvailability()

	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	SearchProducts(ctx context.Context, term string) ([]Product, error)
	CreateProduct(ctx context.Context, p Product) (*Product, error)
	UpdateProduct(ctx context.Context, id string, patch *ProductPatch) (*Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name string) (*Category, error)
	DeleteCategory(ctx context.Context, name string) error

	Upload(ctx context.Context, data []byte, filename string) (*UploadResult, error)
}

// ============================================================================
// Store
// ============================================================================

// Store is the Local Store Coordinator: the single source of truth for what
// the UI sees. It mediates every read and write, serving from an in-memory
// TTL cache, the gateway, or the durable mirror depending on mode, and it
// reconciles locally-mutated records back upstream via Sync.
//
// Reads and writes never fail on transport errors; they degrade to the
// mirror. Domain errors (validation, not-found) propagate unchanged.
type Store struct {
	gateway Gateway
	mirror  Mirror
	log     *zap.Logger
	ttl     time.Duration

	mu         sync.Mutex
	mode       Mode
	products   []Product // nil until populated by a successful fetch or load
	categories []Category
	lastFetch  time.Time
	syncing    bool
}

type StoreOption func(*Store)

// WithCacheTTL overrides the cache freshness window.
func WithCacheTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.ttl = ttl }
}

// WithLogger injects a logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) StoreOption {
	return func(s *Store) { s.log = log }
}

// NewStore creates a coordinator over gateway and mirror. Call Init before
// use.
func NewStore(gateway Gateway, mirror Mirror, opts ...StoreOption) *Store {
	s := &Store{
		gateway: gateway,
		mirror:  mirror,
		log:     zap.NewNop(),
		ttl:     DefaultCacheTTL,
		mode:    ModeUninitialized,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the current reachability belief.
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// IsOffline reports whether the Store is in offline mode.
func (s *Store) IsOffline() bool {
	return s.Mode() == ModeOffline
}

func (s *Store) setMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// goOffline flips to offline mode after a transport failure. It never flips
// the other way; only Recheck does that.
func (s *Store) goOffline(op string, err error) {
	s.mu.Lock()
	prev := s.mode
	s.mode = ModeOffline
	s.mu.Unlock()
	if prev != ModeOffline {
		s.log.Warn("switching to offline mode",
			zap.String("op", op),
			zap.Error(err))
	}
}

// ============================================================================
// Init & Recheck
// ============================================================================

// Init loads the mirror into the cache as a cheap baseline while probing the
// backend in parallel. A successful probe adopts the freshly fetched record
// set; a failed one leaves the mirror-sourced cache in place and the Store
// offline.
func (s *Store) Init(ctx context.Context) error {
	s.setMode(ModeProbing)

	probeCh := make(chan bool, 1)
	go func() { probeCh <- s.gateway.CheckAvailability(ctx) }()

	local, err := s.mirror.LoadProducts()
	if err != nil {
		return err
	}
	cats, err := s.mirror.LoadCategories()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.products = local
	s.categories = cats
	s.lastFetch = time.Now()
	s.mu.Unlock()

	if !<-probeCh {
		s.setMode(ModeOffline)
		s.log.Info("store initialized from mirror",
			zap.Int("products", len(local)),
			zap.Int("categories", len(cats)))
		return nil
	}

	s.setMode(ModeOnline)
	if initial := s.gateway.ConsumeInitialProducts(); initial != nil {
		if _, err := s.adoptRemote(initial); err != nil {
			return err
		}
	}
	if _, err := s.fetchCategories(ctx); err != nil {
		return err
	}
	s.log.Info("store initialized from api")
	return nil
}

// Recheck clears the sticky offline flag, re-probes the backend and, on
// success, runs one reconciliation pass. Returns true when the Store ends up
// online.
func (s *Store) Recheck(ctx context.Context) bool {
	s.setMode(ModeProbing)
	s.gateway.ResetAvailability()

	if !s.gateway.CheckAvailability(ctx) {
		s.setMode(ModeOffline)
		s.log.Info("recheck: backend still unreachable")
		return false
	}
	s.setMode(ModeOnline)
	s.log.Info("recheck: backend reachable")

	result, err := s.Sync(ctx)
	if err != nil {
		s.log.Warn("recheck: reconciliation failed", zap.Error(err))
	}

	initial := s.gateway.ConsumeInitialProducts()
	if initial != nil && err == nil && result.Pushed == 0 && result.Failed == 0 {
		// Nothing was pushed, so the probe payload is still authoritative.
		if _, aerr := s.adoptRemote(initial); aerr != nil {
			s.log.Warn("recheck: adopting probe payload failed", zap.Error(aerr))
		}
	} else {
		// The payload predates the pushes; force a fresh fetch instead.
		s.invalidate()
	}
	return s.Mode() == ModeOnline
}

// ============================================================================
// Cache internals
// ============================================================================

func (s *Store) invalidate() {
	s.mu.Lock()
	s.products = nil
	s.categories = nil
	s.lastFetch = time.Time{}
	s.mu.Unlock()
}

func (s *Store) cacheValidLocked() bool {
	return s.products != nil && time.Since(s.lastFetch) < s.ttl
}

// loadLocalProducts refreshes the cache from the mirror.
func (s *Store) loadLocalProducts() ([]Product, error) {
	products, err := s.mirror.LoadProducts()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.products = products
	s.lastFetch = time.Now()
	s.mu.Unlock()
	return append([]Product{}, products...), nil
}

func (s *Store) loadLocalCategories() ([]Category, error) {
	categories, err := s.mirror.LoadCategories()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.categories = categories
	s.mu.Unlock()
	return append([]Category{}, categories...), nil
}

// adoptRemote replaces cache and mirror with a freshly fetched record set,
// keeping any locally-mutated records that have not been reconciled yet: an
// unsynced local version of a record wins over the remote one until a sync
// pass settles it.
func (s *Store) adoptRemote(remote []Product) ([]Product, error) {
	local, err := s.mirror.LoadProducts()
	if err != nil {
		return nil, err
	}
	merged := mergeRemoteProducts(remote, local)
	if err := s.mirror.SaveProducts(merged); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.products = merged
	s.lastFetch = time.Now()
	s.mu.Unlock()
	return append([]Product{}, merged...), nil
}

func mergeRemoteProducts(remote, local []Product) []Product {
	merged := make([]Product, 0, len(remote))
	seen := make(map[string]bool)
	for _, p := range local {
		if !p.Synced {
			// Records created or updated offline stay on top and keep their
			// local state until reconciled.
			merged = append(merged, p)
			seen[p.ID] = true
		}
	}
	for _, p := range remote {
		if seen[p.ID] {
			continue
		}
		p.Synced = true
		merged = append(merged, p)
	}
	return merged
}

func (s *Store) fetchCategories(ctx context.Context) ([]Category, error) {
	remote, err := s.gateway.ListCategories(ctx)
	if err != nil {
		if isTransport(err) {
			s.goOffline("list categories", err)
			return s.loadLocalCategories()
		}
		return nil, err
	}
	local, err := s.mirror.LoadCategories()
	if err != nil {
		return nil, err
	}
	merged := mergeRemoteCategories(remote, local)
	if err := s.mirror.SaveCategories(merged); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.categories = merged
	s.mu.Unlock()
	return append([]Category{}, merged...), nil
}

func mergeRemoteCategories(remote, local []Category) []Category {
	seen := make(map[string]bool, len(remote))
	merged := make([]Category, 0, len(remote))
	for _, c := range remote {
		c.Synced = true
		seen[c.Name] = true
		merged = append(merged, c)
	}
	for _, c := range local {
		if !c.Synced && !seen[c.Name] {
			merged = append(merged, c)
		}
	}
	return merged
}

// ============================================================================
// Product reads
// ============================================================================

// GetProducts returns all products: from the cache within the TTL window,
// from the backend when online, from the mirror otherwise. Transport
// failures degrade silently to whatever is locally known.
func (s *Store) GetProducts(ctx context.Context) ([]Product, error) {
	s.mu.Lock()
	if s.cacheValidLocked() {
		out := append([]Product{}, s.products...)
		s.mu.Unlock()
		return out, nil
	}
	online := s.mode == ModeOnline
	s.mu.Unlock()

	if !online {
		return s.loadLocalProducts()
	}

	remote, err := s.gateway.ListProducts(ctx)
	if err != nil {
		if isTransport(err) {
			s.goOffline("list products", err)
			return s.loadLocalProducts()
		}
		return nil, err
	}
	return s.adoptRemote(remote)
}

// GetProduct returns one product by id, serving from the in-memory cache
// first to avoid a round trip for already-known records.
func (s *Store) GetProduct(ctx context.Context, id string) (*Product, error) {
	s.mu.Lock()
	for i := range s.products {
		if s.products[i].ID == id {
			p := s.products[i]
			s.mu.Unlock()
			return &p, nil
		}
	}
	online := s.mode == ModeOnline
	s.mu.Unlock()

	if !online {
		return s.getProductLocal(id)
	}

	p, err := s.gateway.GetProduct(ctx, id)
	if err != nil {
		if isTransport(err) {
			s.goOffline("get product", err)
			return s.getProductLocal(id)
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) getProductLocal(id string) (*Product, error) {
	products, err := s.loadLocalProducts()
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			p := products[i]
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

// SearchProducts matches term case-insensitively against name, SKU and
// category, most recently created first.
func (s *Store) SearchProducts(ctx context.Context, term string) ([]Product, error) {
	s.mu.Lock()
	if s.cacheValidLocked() {
		out := filterProducts(s.products, term)
		s.mu.Unlock()
		return out, nil
	}
	online := s.mode == ModeOnline
	s.mu.Unlock()

	if !online {
		return s.searchLocal(term)
	}

	results, err := s.gateway.SearchProducts(ctx, term)
	if err != nil {
		if isTransport(err) {
			s.goOffline("search products", err)
			return s.searchLocal(term)
		}
		return nil, err
	}
	return results, nil
}

func (s *Store) searchLocal(term string) ([]Product, error) {
	products, err := s.loadLocalProducts()
	if err != nil {
		return nil, err
	}
	return filterProducts(products, term), nil
}

func filterProducts(products []Product, term string) []Product {
	q := strings.ToLower(term)
	matched := make([]Product, 0)
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.SKU), q) ||
			strings.Contains(strings.ToLower(p.Category), q) {
			matched = append(matched, p)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}

// ============================================================================
// Product writes
// ============================================================================

func validateNewProduct(p *Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return &APIError{Code: "VALIDATION", Message: "name is required"}
	}
	if p.OriginalPrice < 0 || p.SalePrice < 0 {
		return &APIError{Code: "VALIDATION", Message: "price cannot be negative"}
	}
	if p.Stock < 0 {
		return &APIError{Code: "VALIDATION", Message: "stock cannot be negative"}
	}
	return nil
}

func validatePatch(patch *ProductPatch) error {
	if patch == nil {
		return nil
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return &APIError{Code: "VALIDATION", Message: "name is required"}
	}
	if (patch.OriginalPrice != nil && *patch.OriginalPrice < 0) ||
		(patch.SalePrice != nil && *patch.SalePrice < 0) {
		return &APIError{Code: "VALIDATION", Message: "price cannot be negative"}
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return &APIError{Code: "VALIDATION", Message: "stock cannot be negative"}
	}
	return nil
}

// AddProduct creates a product. Online it is the backend's record that comes
// back; offline (or on transport failure) the record is written to the
// mirror with a client-generated id and Synced=false. Never fails on
// transport; fails on validation.
func (s *Store) AddProduct(ctx context.Context, p Product) (*Product, error) {
	if err := validateNewProduct(&p); err != nil {
		return nil, err
	}
	// Invalidate before dispatch so a read racing the network leg
	// reconsiders mode and TTL instead of serving a stale set.
	s.invalidate()

	if s.Mode() != ModeOnline {
		return s.addProductLocal(p)
	}
	created, err := s.gateway.CreateProduct(ctx, p)
	if err != nil {
		if isTransport(err) {
			s.goOffline("create product", err)
			return s.addProductLocal(p)
		}
		return nil, err
	}
	created.Synced = true
	return created, nil
}

func (s *Store) addProductLocal(p Product) (*Product, error) {
	products, err := s.mirror.LoadProducts()
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(products))
	for i := range products {
		existing[products[i].ID] = true
	}
	p.ID = newID(existing)
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Synced = false

	products = append([]Product{p}, products...)
	if err := s.mirror.SaveProducts(products); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.products = products
	s.lastFetch = time.Now()
	s.mu.Unlock()

	s.log.Debug("product saved to mirror", zap.String("id", p.ID))
	return &p, nil
}

// newID generates an id distinct from every existing record.
func newID(existing map[string]bool) string {
	for {
		id := uuid.NewString()
		if !existing[id] {
			return id
		}
	}
}

// UpdateProduct applies a partial update: nil patch fields are unchanged,
// set fields overwrite. UpdatedAt is always refreshed.
func (s *Store) UpdateProduct(ctx context.Context, id string, patch *ProductPatch) (*Product, error) {
	if patch.IsZero() {
		return nil, &APIError{Code: "VALIDATION", Message: "no fields to update"}
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	s.invalidate()

	if s.Mode() != ModeOnline {
		return s.updateProductLocal(id, patch)
	}
	updated, err := s.gateway.UpdateProduct(ctx, id, patch)
	if err != nil {
		if isTransport(err) {
			s.goOffline("update product", err)
			return s.updateProductLocal(id, patch)
		}
		return nil, err
	}
	updated.Synced = true
	return updated, nil
}

func (s *Store) updateProductLocal(id string, patch *ProductPatch) (*Product, error) {
	products, err := s.mirror.LoadProducts()
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range products {
		if products[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrNotFound
	}
	patch.Apply(&products[idx])
	products[idx].Synced = false
	if err := s.mirror.SaveProducts(products); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.products = products
	s.lastFetch = time.Now()
	s.mu.Unlock()

	p := products[idx]
	return &p, nil
}

// DeleteProduct removes a product on whichever path is live. Unknown ids
// fail with ErrNotFound on both paths.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	s.invalidate()

	if s.Mode() != ModeOnline {
		return s.deleteProductLocal(id)
	}
	if err := s.gateway.DeleteProduct(ctx, id); err != nil {
		if isTransport(err) {
			s.goOffline("delete product", err)
			return s.deleteProductLocal(id)
		}
		return err
	}
	return nil
}

func (s *Store) deleteProductLocal(id string) error {
	products, err := s.mirror.LoadProducts()
	if err != nil {
		return err
	}
	filtered := products[:0:0]
	for _, p := range products {
		if p.ID != id {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == len(products) {
		return ErrNotFound
	}
	if err := s.mirror.SaveProducts(filtered); err != nil {
		return err
	}
	s.mu.Lock()
	s.products = filtered
	s.lastFetch = time.Now()
	s.mu.Unlock()
	return nil
}

// ============================================================================
// Categories
// ============================================================================

// GetCategories returns all categories, cached until a mutation invalidates
// them.
func (s *Store) GetCategories(ctx context.Context) ([]Category, error) {
	s.mu.Lock()
	if s.categories != nil {
		out := append([]Category{}, s.categories...)
		s.mu.Unlock()
		return out, nil
	}
	online := s.mode == ModeOnline
	s.mu.Unlock()

	if !online {
		return s.loadLocalCategories()
	}
	return s.fetchCategories(ctx)
}

// AddCategory creates a category. Duplicate names are a domain error.
func (s *Store) AddCategory(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &APIError{Code: "VALIDATION", Message: "name is required"}
	}
	s.invalidate()

	if s.Mode() != ModeOnline {
		return s.addCategoryLocal(name)
	}
	created, err := s.gateway.CreateCategory(ctx, name)
	if err != nil {
		if isTransport(err) {
			s.goOffline("create category", err)
			return s.addCategoryLocal(name)
		}
		return nil, err
	}
	created.Synced = true
	return created, nil
}

func (s *Store) addCategoryLocal(name string) (*Category, error) {
	categories, err := s.mirror.LoadCategories()
	if err != nil {
		return nil, err
	}
	for i := range categories {
		if categories[i].Name == name {
			return nil, &APIError{Code: "DUPLICATE", Message: "category already exists"}
		}
	}
	c := Category{Name: name, CreatedAt: time.Now().UTC(), Synced: false}
	categories = append(categories, c)
	if err := s.mirror.SaveCategories(categories); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.categories = categories
	s.mu.Unlock()
	return &c, nil
}

// DeleteCategory removes a category by name.
func (s *Store) DeleteCategory(ctx context.Context, name string) error {
	s.invalidate()

	if s.Mode() != ModeOnline {
		return s.deleteCategoryLocal(name)
	}
	if err := s.gateway.DeleteCategory(ctx, name); err != nil {
		if isTransport(err) {
			s.goOffline("delete category", err)
			return s.deleteCategoryLocal(name)
		}
		return err
	}
	return nil
}

func (s *Store) deleteCategoryLocal(name string) error {
	categories, err := s.mirror.LoadCategories()
	if err != nil {
		return err
	}
	filtered := categories[:0:0]
	for _, c := range categories {
		if c.Name != name {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == len(categories) {
		return ErrNotFound
	}
	if err := s.mirror.SaveCategories(filtered); err != nil {
		return err
	}
	s.mu.Lock()
	s.categories = filtered
	s.mu.Unlock()
	return nil
}

// ============================================================================
// Reconciliation
// ============================================================================

// SyncResult summarizes one reconciliation pass.
type SyncResult struct {
	Pushed int
	Failed int
}

// Sync pushes every unsynced mirror record upstream: create first, update
// when the backend rejects the create as a duplicate. Attempts run
// concurrently and independently; one record's failure leaves the others
// untouched and the record unsynced for the next pass. A second call while
// one pass is running is a no-op, as is a call while offline.
func (s *Store) Sync(ctx context.Context) (*SyncResult, error) {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		s.log.Debug("sync already in flight")
		return &SyncResult{}, nil
	}
	if s.mode != ModeOnline {
		s.mu.Unlock()
		s.log.Debug("sync skipped: not online")
		return &SyncResult{}, nil
	}
	s.syncing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.syncing = false
		s.mu.Unlock()
	}()

	products, err := s.mirror.LoadProducts()
	if err != nil {
		return nil, err
	}
	categories, err := s.mirror.LoadCategories()
	if err != nil {
		return nil, err
	}

	var (
		wg     sync.WaitGroup
		resMu  sync.Mutex
		result SyncResult
	)
	for i := range products {
		if products[i].Synced {
			continue
		}
		wg.Add(1)
		go func(p *Product) {
			defer wg.Done()
			err := s.pushProduct(ctx, p)
			resMu.Lock()
			defer resMu.Unlock()
			if err != nil {
				result.Failed++
				s.log.Warn("sync: product push failed",
					zap.String("id", p.ID), zap.Error(err))
				return
			}
			p.Synced = true
			result.Pushed++
		}(&products[i])
	}
	for i := range categories {
		if categories[i].Synced {
			continue
		}
		wg.Add(1)
		go func(c *Category) {
			defer wg.Done()
			err := s.pushCategory(ctx, c)
			resMu.Lock()
			defer resMu.Unlock()
			if err != nil {
				result.Failed++
				s.log.Warn("sync: category push failed",
					zap.String("name", c.Name), zap.Error(err))
				return
			}
			c.Synced = true
			result.Pushed++
		}(&categories[i])
	}
	wg.Wait()

	// Persist the flags whether the batch fully or partially succeeded.
	if err := s.mirror.SaveProducts(products); err != nil {
		return &result, err
	}
	if err := s.mirror.SaveCategories(categories); err != nil {
		return &result, err
	}
	s.invalidate()

	s.log.Info("sync complete",
		zap.Int("pushed", result.Pushed),
		zap.Int("failed", result.Failed))
	return &result, nil
}

func (s *Store) pushProduct(ctx context.Context, p *Product) error {
	_, err := s.gateway.CreateProduct(ctx, *p)
	if err == nil {
		return nil
	}
	if alreadyExists(err) {
		_, uerr := s.gateway.UpdateProduct(ctx, p.ID, PatchFrom(p))
		if uerr != nil && isTransport(uerr) {
			s.goOffline("sync update", uerr)
		}
		return uerr
	}
	if isTransport(err) {
		s.goOffline("sync create", err)
	}
	return err
}

func (s *Store) pushCategory(ctx context.Context, c *Category) error {
	_, err := s.gateway.CreateCategory(ctx, c.Name)
	if err == nil || alreadyExists(err) {
		return nil
	}
	if isTransport(err) {
		s.goOffline("sync category", err)
	}
	return err
}

// ============================================================================
// Image upload
// ============================================================================

// UploadImage stores image bytes behind an opaque reference: the backend's
// URL when online, an inline base64 data URL when not.
func (s *Store) UploadImage(ctx context.Context, data []byte, filename string) (string, error) {
	if s.Mode() != ModeOnline {
		return dataURL(data, filename), nil
	}
	result, err := s.gateway.Upload(ctx, data, filename)
	if err != nil {
		if isTransport(err) {
			s.goOffline("upload image", err)
			return dataURL(data, filename), nil
		}
		return "", err
	}
	return result.URL, nil
}

func dataURL(data []byte, filename string) string {
	mimeType := mime.TypeByExtension(filepath.Ext(filename))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
