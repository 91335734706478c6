// Package httpx provides the single shared HTTP client used for every
// authenticated call: a transport chain injects credentials on the way out
// and reacts to auth failures on the way back, mirroring the interceptor
// pipeline the backend was designed against.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/amehdaoui/dukkan/internal/authbus"
	"github.com/amehdaoui/dukkan/internal/credstore"
	"github.com/amehdaoui/dukkan/internal/errs"
)

const maxLoggedBody = 2 << 10

// Client is the shared authenticated HTTP client. Construct one per process
// and pass it by reference; it carries no UI state.
type Client struct {
	http    *http.Client
	baseURL string
	store   credstore.Store
	bus     *authbus.Bus
	logger  *zap.Logger
}

// New builds the shared client with a fixed base URL and timeout. All
// requests pass through the auth transport.
func New(baseURL string, timeout time.Duration, apiKey string, store credstore.Store, bus *authbus.Bus, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &authTransport{
				next:   http.DefaultTransport,
				store:  store,
				bus:    bus,
				apiKey: apiKey,
				logger: logger,
			},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		bus:     bus,
		logger:  logger,
	}
}

// URL joins a path suffix (and optional query) onto the base URL.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + path
}

// GetJSON issues an authenticated GET and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path), nil)
	if err != nil {
		return errs.Wrap(errs.CategoryUnknown, "build request", err)
	}
	return c.do(req, out)
}

// PostJSON issues an authenticated POST with a JSON body and decodes the
// response into out. out may be nil when the caller ignores the body.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errs.Wrap(errs.CategoryUnknown, "encode request body", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path), bytes.NewReader(payload))
	if err != nil {
		return errs.Wrap(errs.CategoryUnknown, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// PostMultipart issues an authenticated POST with a prepared multipart body.
// The multipart content type is preserved by the transport.
func (c *Client) PostMultipart(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path), body)
	if err != nil {
		return errs.Wrap(errs.CategoryUnknown, "build request", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, out)
}

// do executes the request and normalizes every failure mode into an
// *errs.APIError: local auth pre-check, transport errors, non-2xx statuses.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		switch cat := errs.CategoryOf(err); cat {
		case errs.CategoryAuth:
			return errs.Wrap(errs.CategoryAuth, "authentication required", err)
		case errs.CategoryTimeout:
			return errs.Wrap(errs.CategoryTimeout, "", err)
		default:
			return errs.Wrap(errs.CategoryNetwork, "", err)
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(errs.CategoryNetwork, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errs.FromStatus(resp.StatusCode, excerpt(data))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errs.Wrap(errs.CategoryServer, "unexpected response format", err)
	}
	return nil
}

// RawJSON issues an authenticated request and returns the raw JSON body for
// callers that normalize heterogeneous shapes themselves.
func (c *Client) RawJSON(ctx context.Context, method, path string) (json.RawMessage, error) {
	var raw json.RawMessage
	switch method {
	case http.MethodGet:
		if err := c.GetJSON(ctx, path, &raw); err != nil {
			return nil, err
		}
	case http.MethodPost:
		if err := c.PostJSON(ctx, path, map[string]any{}, &raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported method %s", method)
	}
	return raw, nil
}

func excerpt(b []byte) string {
	if len(b) > maxLoggedBody {
		b = b[:maxLoggedBody]
	}
	return string(b)
}

// authTransport is the interceptor chain: credentials and bookkeeping
// headers on the request side, 401-triggered credential teardown and
// diagnostics logging on the response side. It never retries.
type authTransport struct {
	next   http.RoundTripper
	store  credstore.Store
	bus    *authbus.Bus
	apiKey string
	logger *zap.Logger
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	token, err := t.store.Get(ctx, credstore.KeyUserToken)
	if err != nil {
		return nil, errs.Wrap(errs.CategoryUnknown, "read credential store", err)
	}
	userID, err := t.store.Get(ctx, credstore.KeyUserID)
	if err != nil {
		return nil, errs.Wrap(errs.CategoryUnknown, "read credential store", err)
	}

	// Never send an unauthenticated request to a protected endpoint.
	if token == "" && !isPublicURL(req.URL) {
		return nil, errs.Wrap(errs.CategoryAuth, "authentication required", errs.ErrMissingToken)
	}

	req = req.Clone(ctx)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if t.apiKey != "" {
		req.Header.Set("X-Api-Key", t.apiKey)
	}
	req.Header.Set("X-Request-Time", time.Now().UTC().Format(time.RFC3339))
	if id, err := uuid.NewV4(); err == nil {
		req.Header.Set("X-Request-Id", id.String())
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if userID != "" && wantsUserIDInjection(req) {
		if err := injectUserID(req, userID); err != nil {
			t.logger.Warn("user_id injection skipped", zap.Error(err))
		}
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// Best-effort teardown; the original error still reaches the caller.
		if cerr := t.store.Clear(ctx); cerr != nil {
			t.logger.Error("clear credentials on 401", zap.Error(cerr))
		}
		t.bus.Emit(authbus.KindLogout, nil)
	case resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound,
		resp.StatusCode >= 500:
		t.logResponse(resp)
	}
	return resp, nil
}

// logResponse logs status and body for diagnostics, then restores the body
// for the caller.
func (t *authTransport) logResponse(resp *http.Response) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	if err == nil {
		rest, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		resp.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), bytes.NewReader(rest)))
	}
	t.logger.Error("api error response",
		zap.Int("status", resp.StatusCode),
		zap.String("url", resp.Request.URL.Path),
		zap.ByteString("body", body),
	)
}

// isPublicURL reports whether the target is a public endpoint reachable
// without stored credentials (login and auth flows).
func isPublicURL(u *url.URL) bool {
	s := strings.ToLower(u.String())
	return strings.Contains(s, "/login") || strings.Contains(s, "/auth")
}

// wantsUserIDInjection limits body rewriting to JSON-object write requests.
func wantsUserIDInjection(req *http.Request) bool {
	if req.Body == nil {
		return false
	}
	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return false
	}
	return strings.HasPrefix(req.Header.Get("Content-Type"), "application/json")
}

// injectUserID adds the stored user id to a keyed JSON body that lacks one,
// so the multi-tenant backend can route the write. Non-object bodies pass
// through untouched.
func injectUserID(req *http.Request, userID string) error {
	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return err
	}
	restore := func(b []byte) {
		req.Body = io.NopCloser(bytes.NewReader(b))
		req.ContentLength = int64(len(b))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		}
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		restore(data)
		return nil
	}
	if _, ok := obj["user_id"]; ok {
		restore(data)
		return nil
	}
	obj["user_id"] = userID
	rewritten, err := json.Marshal(obj)
	if err != nil {
		restore(data)
		return err
	}
	restore(rewritten)
	return nil
}
