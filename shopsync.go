// Package shopsync is the client-side data layer of the LatranShop admin
// dashboard: a Remote Gateway over the product API and an offline-capable
// Local Store Coordinator with a durable mirror.
//
// Example:
//
//	client := shopsync.NewClient(shopsync.WithBaseURL("https://shop.example.com/api"))
//	mirror, _ := shopsync.NewFileMirror("/var/lib/shopsync")
//	store := shopsync.NewStore(client, mirror)
//
//	store.Init(ctx)
//	products, _ := store.GetProducts(ctx)
package shopsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	DefaultBaseURL = "http://localhost:8787/api"

	// DefaultTimeout bounds every regular request. Short on purpose: a slow
	// backend should flip the dashboard to offline mode, not hang it.
	DefaultTimeout = 3 * time.Second

	// DefaultProbeTimeout bounds the availability probe.
	DefaultProbeTimeout = 2 * time.Second

	// uploadTimeout is longer since image payloads can be large.
	uploadTimeout = 10 * time.Second
)

// ============================================================================
// Client
// ============================================================================

// Client is the Remote Gateway: a stateless adapter over the product API.
// Its only state is the bearer token and a short-lived reachability flag.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	probeTimeout time.Duration

	mu        sync.Mutex
	token     string
	available *bool // nil until the first probe or failure
	initial   []Product
}

type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.timeout = timeout }
}

func WithProbeTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.probeTimeout = timeout }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// NewClient creates a new gateway client. Pass no token for anonymous reads;
// set one later via SetToken or Login.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		httpClient:   &http.Client{},
		timeout:      DefaultTimeout,
		probeTimeout: DefaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken sets or clears the bearer token used on authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// ============================================================================
// Availability probe
// ============================================================================

// CheckAvailability issues one bounded-time GET /products. Success both
// confirms reachability and caches the fetched record set so the Store can
// prime its cache without a second round trip. Timeout, network error and
// non-2xx are indistinguishable: all mean unreachable.
func (c *Client) CheckAvailability(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products", nil)
	if err != nil {
		c.setAvailable(false, nil)
		return false
	}
	c.setAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.setAvailable(false, nil)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.setAvailable(false, nil)
		return false
	}

	var products []Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		c.setAvailable(false, nil)
		return false
	}
	if products == nil {
		products = []Product{}
	}
	c.setAvailable(true, products)
	return true
}

// ConsumeInitialProducts hands over the record set cached by the last
// successful probe, exactly once. Returns nil when nothing is cached.
func (c *Client) ConsumeInitialProducts() []Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.initial
	c.initial = nil
	return p
}

// ResetAvailability forgets the reachability verdict so the next request
// tries the network again.
func (c *Client) ResetAvailability() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.available = nil
	c.initial = nil
}

func (c *Client) setAvailable(ok bool, initial []Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.available = &ok
	c.initial = initial
}

func (c *Client) knownDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available != nil && !*c.available
}

// ============================================================================
// Internal request helper
// ============================================================================

// apiErrorBody is the error envelope both backends use.
type apiErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "VALIDATION"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	default:
		return "SERVER_ERROR"
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, query url.Values) ([]byte, error) {
	// Known-down short-circuit: do not hammer a dead backend. Cleared by
	// ResetAvailability or a successful probe.
	if c.knownDown() {
		return nil, fmt.Errorf("%s %s skipped: %w", method, path, ErrUnavailable)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeout and network error look the same from here: unreachable.
		c.setAvailable(false, nil)
		return nil, fmt.Errorf("%s %s: %v: %w", method, path, err, ErrUnavailable)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.setAvailable(false, nil)
		return nil, fmt.Errorf("%s %s: read response: %v: %w", method, path, err, ErrUnavailable)
	}

	// A 5xx means the backend is broken, not that the caller is wrong. It is
	// handled like a network failure so reads and writes degrade to the
	// mirror instead of surfacing a server fault to the UI.
	if resp.StatusCode >= 500 {
		c.setAvailable(false, nil)
		return nil, fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, ErrUnavailable)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Code: codeForStatus(resp.StatusCode), Status: resp.StatusCode}
		var eb apiErrorBody
		if json.Unmarshal(data, &eb) == nil {
			if eb.Error != "" {
				apiErr.Message = eb.Error
			} else {
				apiErr.Message = eb.Message
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}

	return data, nil
}

func (c *Client) setAuthHeader(req *http.Request) {
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func decodeJSON[T any](data []byte) (*T, error) {
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

// ============================================================================
// Product operations
// ============================================================================

func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/products", nil, nil)
	if err != nil {
		return nil, err
	}
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to unmarshal products: %w", err)
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/products", nil, url.Values{"id": {id}})
	if err != nil {
		return nil, err
	}
	return decodeJSON[Product](data)
}

// SearchProducts matches term case-insensitively against name and SKU,
// most recently created first. The matching is server-side; the Store
// mirrors the same semantics for the offline path.
func (c *Client) SearchProducts(ctx context.Context, term string) ([]Product, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/products", nil, url.Values{"search": {term}})
	if err != nil {
		return nil, err
	}
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to unmarshal products: %w", err)
	}
	return products, nil
}

func (c *Client) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	// Synced is client-side bookkeeping; it never goes over the wire.
	p.Synced = false
	data, err := c.doRequest(ctx, http.MethodPost, "/products", p, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[Product](data)
}

func (c *Client) UpdateProduct(ctx context.Context, id string, patch *ProductPatch) (*Product, error) {
	data, err := c.doRequest(ctx, http.MethodPut, "/products", patch, url.Values{"id": {id}})
	if err != nil {
		return nil, err
	}
	return decodeJSON[Product](data)
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/products", nil, url.Values{"id": {id}})
	return err
}

// ============================================================================
// Category operations
// ============================================================================

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/categories", nil, nil)
	if err != nil {
		return nil, err
	}
	var categories []Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
	}
	return categories, nil
}

func (c *Client) CreateCategory(ctx context.Context, name string) (*Category, error) {
	data, err := c.doRequest(ctx, http.MethodPost, "/categories", map[string]string{"name": name}, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[Category](data)
}

func (c *Client) DeleteCategory(ctx context.Context, name string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/categories", nil, url.Values{"name": {name}})
	return err
}

// ============================================================================
// Auth operations
// ============================================================================

// Login authenticates and, on success, stores the returned token on the
// client for subsequent calls.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body := map[string]string{"username": username, "password": password}
	data, err := c.doRequest(ctx, http.MethodPost, "/auth", body, url.Values{"action": {"login"}})
	if err != nil {
		return nil, err
	}
	result, err := decodeJSON[LoginResult](data)
	if err != nil {
		return nil, err
	}
	if result.Success && result.Token != "" {
		c.SetToken(result.Token)
	}
	return result, nil
}

// Logout invalidates the session server-side, best effort, and always clears
// the local token.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/auth", nil, url.Values{"action": {"logout"}})
	c.SetToken("")
	if err != nil && !isTransport(err) {
		return err
	}
	return nil
}

// CheckSession verifies the stored token.
func (c *Client) CheckSession(ctx context.Context) (*SessionResult, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/auth", nil, url.Values{"action": {"check"}})
	if err != nil {
		return nil, err
	}
	return decodeJSON[SessionResult](data)
}

// ============================================================================
// Upload
// ============================================================================

// Upload sends image bytes as a multipart form and returns the stored URL.
func (c *Client) Upload(ctx context.Context, data []byte, filename string) (*UploadResult, error) {
	if c.knownDown() {
		return nil, fmt.Errorf("upload skipped: %w", ErrUnavailable)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write file data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	c.setAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.setAvailable(false, nil)
		return nil, fmt.Errorf("upload: %v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("upload: read response: %v: %w", err, ErrUnavailable)
	}
	if resp.StatusCode >= 500 {
		c.setAvailable(false, nil)
		return nil, fmt.Errorf("upload: status %d: %w", resp.StatusCode, ErrUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Code: codeForStatus(resp.StatusCode), Status: resp.StatusCode}
		var eb apiErrorBody
		if json.Unmarshal(respData, &eb) == nil && eb.Error != "" {
			apiErr.Message = eb.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}
	return decodeJSON[UploadResult](respData)
}
