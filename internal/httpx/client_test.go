package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amehdaoui/dukkan/internal/authbus"
	"github.com/amehdaoui/dukkan/internal/credstore"
	"github.com/amehdaoui/dukkan/internal/errs"
)

type memStore struct {
	m      map[string]string
	clears int
}

var _ credstore.Store = (*memStore)(nil)

func newMemStore() *memStore { return &memStore{m: map[string]string{}} }

func (s *memStore) Get(_ context.Context, key string) (string, error) { return s.m[key], nil }
func (s *memStore) Set(_ context.Context, key, value string) error {
	s.m[key] = value
	return nil
}
func (s *memStore) Delete(_ context.Context, key string) error {
	delete(s.m, key)
	return nil
}
func (s *memStore) Clear(_ context.Context) error {
	s.clears++
	delete(s.m, credstore.KeyUserToken)
	delete(s.m, credstore.KeyUserID)
	delete(s.m, credstore.KeyAPIKey)
	return nil
}

type capture struct {
	hits    int
	headers http.Header
	body    []byte
}

func testServer(t *testing.T, status int, respBody string, cap *capture) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cap.hits++
		cap.headers = r.Header.Clone()
		cap.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProtectedRequestWithoutTokenRejectsBeforeNetwork(t *testing.T) {
	cap := &capture{}
	srv := testServer(t, http.StatusOK, `{}`, cap)
	store := newMemStore()
	c := New(srv.URL, time.Second, "", store, authbus.New(nil), nil)

	err := c.GetJSON(context.Background(), "/orders", nil)
	if err == nil {
		t.Fatal("want error, got nil")
	}
	if errs.CategoryOf(err) != errs.CategoryAuth {
		t.Fatalf("want auth category, got %s (%v)", errs.CategoryOf(err), err)
	}
	if !errors.Is(err, errs.ErrMissingToken) {
		t.Fatalf("want ErrMissingToken in chain, got %v", err)
	}
	if cap.hits != 0 {
		t.Fatalf("request reached the network: %d hits", cap.hits)
	}
}

func TestPublicEndpointPassesWithoutToken(t *testing.T) {
	cap := &capture{}
	srv := testServer(t, http.StatusOK, `{"token":"T"}`, cap)
	c := New(srv.URL, time.Second, "", newMemStore(), authbus.New(nil), nil)

	var out map[string]string
	if err := c.PostJSON(context.Background(), "/login", map[string]string{"email": "a@b.com"}, &out); err != nil {
		t.Fatal(err)
	}
	if cap.hits != 1 || out["token"] != "T" {
		t.Fatalf("login did not reach the server: hits=%d out=%v", cap.hits, out)
	}
	if got := cap.headers.Get("Authorization"); got != "" {
		t.Fatalf("unexpected Authorization header on public call: %q", got)
	}
}

func TestAuthHeadersAttached(t *testing.T) {
	cap := &capture{}
	srv := testServer(t, http.StatusOK, `[]`, cap)
	store := newMemStore()
	store.m[credstore.KeyUserToken] = "T"
	store.m[credstore.KeyUserID] = "42"
	c := New(srv.URL, time.Second, "static-key", store, authbus.New(nil), nil)

	if err := c.GetJSON(context.Background(), "/orders?user_id=42", nil); err != nil {
		t.Fatal(err)
	}
	if got := cap.headers.Get("Authorization"); got != "Bearer T" {
		t.Fatalf("Authorization = %q", got)
	}
	if got := cap.headers.Get("X-Api-Key"); got != "static-key" {
		t.Fatalf("X-Api-Key = %q", got)
	}
	if cap.headers.Get("X-Request-Time") == "" || cap.headers.Get("X-Request-Id") == "" {
		t.Fatal("request bookkeeping headers missing")
	}
	if got := cap.headers.Get("Content-Type"); got != "application/json" {
		t.Fatalf("default Content-Type = %q", got)
	}
}

func TestUserIDInjectedIntoWriteBody(t *testing.T) {
	cap := &capture{}
	srv := testServer(t, http.StatusOK, `{"success":true}`, cap)
	store := newMemStore()
	store.m[credstore.KeyUserToken] = "T"
	store.m[credstore.KeyUserID] = "42"
	c := New(srv.URL, time.Second, "", store, authbus.New(nil), nil)

	if err := c.PostJSON(context.Background(), "/add-product", map[string]any{"name": "lamp"}, nil); err != nil {
		t.Fatal(err)
	}
	var body map[string]any
	if err := json.Unmarshal(cap.body, &body); err != nil {
		t.Fatal(err)
	}
	if body["user_id"] != "42" || body["name"] != "lamp" {
		t.Fatalf("body = %v", body)
	}
}

func TestCallerSuppliedUserIDNotOverwritten(t *testing.T) {
	cap := &capture{}
	srv := testServer(t, http.StatusOK, `{}`, cap)
	store := newMemStore()
	store.m[credstore.KeyUserToken] = "T"
	store.m[credstore.KeyUserID] = "42"
	c := New(srv.URL, time.Second, "", store, authbus.New(nil), nil)

	if err := c.PostJSON(context.Background(), "/update-order-status", map[string]any{"user_id": "7"}, nil); err != nil {
		t.Fatal(err)
	}
	var body map[string]any
	if err := json.Unmarshal(cap.body, &body); err != nil {
		t.Fatal(err)
	}
	if body["user_id"] != "7" {
		t.Fatalf("existing user_id overwritten: %v", body)
	}
}

func TestUnauthorizedClearsStoreAndEmitsLogoutOnce(t *testing.T) {
	cap := &capture{}
	srv := testServer(t, http.StatusUnauthorized, `{}`, cap)
	store := newMemStore()
	store.m[credstore.KeyUserToken] = "T"
	store.m[credstore.KeyUserID] = "42"
	bus := authbus.New(nil)
	var logouts int
	bus.Subscribe(func(ev authbus.Event) {
		if ev.Kind == authbus.KindLogout {
			logouts++
		}
	})
	c := New(srv.URL, time.Second, "", store, bus, nil)

	err := c.GetJSON(context.Background(), "/orders", nil)
	if errs.CategoryOf(err) != errs.CategoryAuth {
		t.Fatalf("want auth category, got %v", err)
	}
	if store.m[credstore.KeyUserToken] != "" || store.m[credstore.KeyUserID] != "" {
		t.Fatalf("credentials survived 401: %v", store.m)
	}
	if logouts != 1 {
		t.Fatalf("want exactly one logout event, got %d", logouts)
	}
}

func TestErrorStatusCategories(t *testing.T) {
	cases := []struct {
		status int
		want   errs.Category
	}{
		{http.StatusForbidden, errs.CategoryForbidden},
		{http.StatusNotFound, errs.CategoryNotFound},
		{http.StatusInternalServerError, errs.CategoryServer},
		{http.StatusTeapot, errs.CategoryServer},
	}
	for _, tc := range cases {
		cap := &capture{}
		srv := testServer(t, tc.status, `{"message":"nope"}`, cap)
		store := newMemStore()
		store.m[credstore.KeyUserToken] = "T"
		c := New(srv.URL, time.Second, "", store, authbus.New(nil), nil)

		err := c.GetJSON(context.Background(), "/orders", nil)
		if errs.CategoryOf(err) != tc.want {
			t.Fatalf("status %d: want %s, got %s", tc.status, tc.want, errs.CategoryOf(err))
		}
		if errs.StatusOf(err) != tc.status {
			t.Fatalf("status %d not preserved: %v", tc.status, err)
		}
	}
}

func TestNetworkFailureIsDistinguished(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()
	store := newMemStore()
	store.m[credstore.KeyUserToken] = "T"
	c := New(url, time.Second, "", store, authbus.New(nil), nil)

	err := c.GetJSON(context.Background(), "/orders", nil)
	if errs.CategoryOf(err) != errs.CategoryNetwork {
		t.Fatalf("want network category, got %v", err)
	}
}

func TestClientTimeoutIsTimeoutCategory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	store := newMemStore()
	store.m[credstore.KeyUserToken] = "T"
	c := New(srv.URL, 20*time.Millisecond, "", store, authbus.New(nil), nil)

	err := c.GetJSON(context.Background(), "/orders", nil)
	if errs.CategoryOf(err) != errs.CategoryTimeout {
		t.Fatalf("want timeout category, got %v", err)
	}
}

func TestMultipartContentTypePreserved(t *testing.T) {
	cap := &capture{}
	srv := testServer(t, http.StatusOK, `{"url":"https://cdn/x.jpg"}`, cap)
	store := newMemStore()
	store.m[credstore.KeyUserToken] = "T"
	c := New(srv.URL, time.Second, "", store, authbus.New(nil), nil)

	var out map[string]string
	err := c.PostMultipart(context.Background(), "/upload-image",
		"multipart/form-data; boundary=xyz", nil, &out)
	if err != nil {
		t.Fatal(err)
	}
	if got := cap.headers.Get("Content-Type"); got != "multipart/form-data; boundary=xyz" {
		t.Fatalf("multipart content type rewritten: %q", got)
	}
	if out["url"] != "https://cdn/x.jpg" {
		t.Fatalf("out = %v", out)
	}
}
