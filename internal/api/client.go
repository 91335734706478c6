// Package api maps storefront operations onto the webhook backend: thin
// functions that build payloads, call the shared HTTP client, and normalize
// responses. Caller-supplied user ids are never trusted; the transport
// injects the stored one.
package api

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/amehdaoui/dukkan/internal/authbus"
	"github.com/amehdaoui/dukkan/internal/config"
	"github.com/amehdaoui/dukkan/internal/credstore"
	"github.com/amehdaoui/dukkan/internal/httpx"
	"github.com/amehdaoui/dukkan/internal/session"
)

// Client bundles the domain API modules over one shared HTTP client.
type Client struct {
	cfg     *config.Config
	http    *httpx.Client
	store   credstore.Store
	session *session.Manager
	bus     *authbus.Bus
	logger  *zap.Logger
}

// New wires the domain modules. All dependencies are injected; no ambient
// singletons.
func New(cfg *config.Config, http *httpx.Client, store credstore.Store, sess *session.Manager, bus *authbus.Bus, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, http: http, store: store, session: sess, bus: bus, logger: logger}
}

// MutationResponse is the backend's answer to product/order writes.
type MutationResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}
