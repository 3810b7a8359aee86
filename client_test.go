package shopsync_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	shopsync "github.com/latranshop/shopsync"
)

func TestClientListProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]shopsync.Product{
			{ID: "p1", Name: "Kaos Polos", SalePrice: 50000, Stock: 5},
		})
	}))
	defer server.Close()

	client := shopsync.NewClient(shopsync.WithBaseURL(server.URL))
	products, err := client.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Kaos Polos" {
		t.Fatalf("unexpected products: %+v", products)
	}
}

func TestClientTimeoutIsUnavailable(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := shopsync.NewClient(
		shopsync.WithBaseURL(server.URL),
		shopsync.WithTimeout(20*time.Millisecond),
	)

	_, err := client.ListProducts(context.Background())
	if !errors.Is(err, shopsync.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on timeout, got %v", err)
	}

	// Known-down short-circuit: the next call must not touch the network.
	_, err = client.ListProducts(context.Background())
	if !errors.Is(err, shopsync.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable short-circuit, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected 1 network hit, got %d", n)
	}

	// ResetAvailability clears the verdict and the network is tried again.
	client.ResetAvailability()
	client.ListProducts(context.Background())
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("expected a retry after reset, got %d hits", n)
	}
}

func TestClientProbeCachesPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]shopsync.Product{{ID: "p1", Name: "Kaos Polos"}})
	}))
	defer server.Close()

	client := shopsync.NewClient(shopsync.WithBaseURL(server.URL))
	if !client.CheckAvailability(context.Background()) {
		t.Fatal("expected the probe to succeed")
	}

	initial := client.ConsumeInitialProducts()
	if len(initial) != 1 || initial[0].ID != "p1" {
		t.Fatalf("expected the probe payload, got %+v", initial)
	}
	// The payload is handed over exactly once.
	if again := client.ConsumeInitialProducts(); again != nil {
		t.Fatalf("expected the payload to be cleared, got %+v", again)
	}
}

func TestClientProbeFailureClearsPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := shopsync.NewClient(shopsync.WithBaseURL(server.URL))
	if client.CheckAvailability(context.Background()) {
		t.Fatal("expected the probe to fail on a non-2xx status")
	}
	if initial := client.ConsumeInitialProducts(); initial != nil {
		t.Fatalf("expected no payload after a failed probe, got %+v", initial)
	}
}

func TestClientErrorMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "no such product"})
	}))
	defer server.Close()

	client := shopsync.NewClient(shopsync.WithBaseURL(server.URL))
	_, err := client.GetProduct(context.Background(), "missing")
	if !shopsync.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
	var apiErr *shopsync.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected an APIError, got %T", err)
	}
	if apiErr.Message != "no such product" {
		t.Fatalf("expected the server message, got %q", apiErr.Message)
	}
	// A domain error must not poison the availability flag.
	if _, err := client.ListProducts(context.Background()); err != nil {
		t.Fatalf("expected the client to stay available, got %v", err)
	}
}

func TestClientServerErrorIsUnavailable(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := shopsync.NewClient(shopsync.WithBaseURL(server.URL))
	_, err := client.ListProducts(context.Background())
	if !errors.Is(err, shopsync.ErrUnavailable) {
		t.Fatalf("expected a 500 to count as unreachable, got %v", err)
	}

	// A broken backend is treated like a dead one: no follow-up hammering.
	_, err = client.ListProducts(context.Background())
	if !errors.Is(err, shopsync.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable short-circuit, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected 1 network hit, got %d", n)
	}
}

func TestStoreReadDegradesOnServerError(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products":
			if fail.Load() {
				http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode([]shopsync.Product{{ID: "p1", Name: "Kaos Polos"}})
		case "/categories":
			json.NewEncoder(w).Encode([]shopsync.Category{})
		}
	}))
	defer server.Close()

	client := shopsync.NewClient(shopsync.WithBaseURL(server.URL))
	mirror := shopsync.NewMemoryMirror()
	store := shopsync.NewStore(client, mirror, shopsync.WithCacheTTL(10*time.Millisecond))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if store.IsOffline() {
		t.Fatal("expected store to start online")
	}

	fail.Store(true)
	time.Sleep(15 * time.Millisecond)

	products, err := store.GetProducts(context.Background())
	if err != nil {
		t.Fatalf("a 500 on a read must degrade silently, got %v", err)
	}
	if len(products) != 1 || products[0].ID != "p1" {
		t.Fatalf("expected the mirror content, got %+v", products)
	}
	if !store.IsOffline() {
		t.Fatal("expected a server fault to flip the store offline")
	}
}

func TestInitSurvivesCategoriesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products":
			json.NewEncoder(w).Encode([]shopsync.Product{{ID: "p1", Name: "Kaos Polos"}})
		case "/categories":
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := shopsync.NewClient(shopsync.WithBaseURL(server.URL))
	store := shopsync.NewStore(client, shopsync.NewMemoryMirror())
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init must not fail on a server fault, got %v", err)
	}
	if !store.IsOffline() {
		t.Fatal("expected the failed categories fetch to flip the store offline")
	}

	// Local defaults still back the category reads.
	categories, err := store.GetCategories(context.Background())
	if err != nil {
		t.Fatalf("GetCategories: %v", err)
	}
	if len(categories) == 0 {
		t.Fatal("expected the default categories")
	}
}

func TestClientCreateOmitsLocalFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		if _, ok := body["synced"]; ok {
			t.Error("create payload must not carry the synced flag")
		}
		json.NewEncoder(w).Encode(shopsync.Product{ID: "p1", Name: "Kaos Polos"})
	}))
	defer server.Close()

	client := shopsync.NewClient(shopsync.WithBaseURL(server.URL))
	if _, err := client.CreateProduct(context.Background(), shopsync.Product{Name: "Kaos Polos", Synced: true}); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
}

func TestClientSearchQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("search"); got != "kaos polos" {
			t.Errorf("expected search=kaos polos, got %q", got)
		}
		json.NewEncoder(w).Encode([]shopsync.Product{})
	}))
	defer server.Close()

	client := shopsync.NewClient(shopsync.WithBaseURL(server.URL))
	if _, err := client.SearchProducts(context.Background(), "kaos polos"); err != nil {
		t.Fatalf("SearchProducts: %v", err)
	}
}

func TestClientUpdateSendsOnlySetFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		if len(body) != 1 {
			t.Errorf("expected exactly the stock field, got %v", body)
		}
		if _, ok := body["stock"]; !ok {
			t.Errorf("expected a stock field, got %v", body)
		}
		json.NewEncoder(w).Encode(shopsync.Product{ID: r.URL.Query().Get("id"), Stock: 0})
	}))
	defer server.Close()

	client := shopsync.NewClient(shopsync.WithBaseURL(server.URL))
	stock := 0
	if _, err := client.UpdateProduct(context.Background(), "p1", &shopsync.ProductPatch{Stock: &stock}); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
}

func TestClientLoginStoresToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "login":
			json.NewEncoder(w).Encode(shopsync.LoginResult{
				Success: true,
				Token:   "tok-123",
				User:    &shopsync.User{ID: "u1", Username: "admin", Role: "admin"},
			})
		default:
			if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
				t.Errorf("expected the login token, got %q", got)
			}
			json.NewEncoder(w).Encode(shopsync.SessionResult{Authenticated: true})
		}
	}))
	defer server.Close()

	client := shopsync.NewClient(shopsync.WithBaseURL(server.URL))
	result, err := client.Login(context.Background(), "admin", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !result.Success || result.User == nil || result.User.Username != "admin" {
		t.Fatalf("unexpected login result: %+v", result)
	}
	if client.Token() != "tok-123" {
		t.Fatalf("expected the token to be stored, got %q", client.Token())
	}

	session, err := client.CheckSession(context.Background())
	if err != nil {
		t.Fatalf("CheckSession: %v", err)
	}
	if !session.Authenticated {
		t.Fatal("expected an authenticated session")
	}
}

func TestClientUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Errorf("missing image field: %v", err)
			http.Error(w, `{"error":"missing image"}`, http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "foto.png" {
			t.Errorf("expected foto.png, got %s", header.Filename)
		}
		json.NewEncoder(w).Encode(shopsync.UploadResult{URL: "/uploads/foto.png"})
	}))
	defer server.Close()

	client := shopsync.NewClient(shopsync.WithBaseURL(server.URL))
	result, err := client.Upload(context.Background(), []byte("fake-png"), "foto.png")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if result.URL != "/uploads/foto.png" {
		t.Fatalf("unexpected URL %q", result.URL)
	}
}
