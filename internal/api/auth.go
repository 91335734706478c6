package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/amehdaoui/dukkan/internal/authbus"
	"github.com/amehdaoui/dukkan/internal/credstore"
	"github.com/amehdaoui/dukkan/internal/errs"
	"github.com/amehdaoui/dukkan/internal/validate"
)

// LoginResponse is the success shape of the login endpoint.
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Login authenticates against the backend and initializes the local
// session. It deliberately bypasses the shared authenticated client: login
// must work with zero stored credentials.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	if err := validate.Struct(validate.LoginForm{Email: email, Password: password}); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, errs.Wrap(errs.CategoryUnknown, "encode login request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+c.cfg.Endpoints.Login, bytes.NewReader(payload))
	if err != nil {
		return nil, errs.Wrap(errs.CategoryUnknown, "build login request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}

	login := &http.Client{Timeout: c.cfg.LoginTimeout}
	resp, err := login.Do(req)
	if err != nil {
		if errs.CategoryOf(err) == errs.CategoryTimeout {
			return nil, errs.Wrap(errs.CategoryTimeout, "login timed out", err)
		}
		return nil, errs.Wrap(errs.CategoryNetwork, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.CategoryNetwork, "read login response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.FromStatus(resp.StatusCode, string(body))
	}

	var out LoginResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errs.Wrap(errs.CategoryServer, "unexpected login response", err)
	}
	if out.Token == "" || out.UserID == "" {
		return nil, errs.New(errs.CategoryAuth, "login response missing token or user id")
	}

	if err := c.session.InitializeSession(ctx, out.Token, out.UserID); err != nil {
		return nil, errs.Wrap(errs.CategoryUnknown, "persist session", err)
	}
	if c.cfg.APIKey != "" {
		if err := c.store.Set(ctx, credstore.KeyAPIKey, c.cfg.APIKey); err != nil {
			c.logger.Warn("store api key", zap.Error(err))
		}
	}
	c.alignExpiryFromJWT(ctx, out.Token)

	return &out, nil
}

// alignExpiryFromJWT trims the client-side TTL window to the token's exp
// claim when it is parseable and shorter. Tokens are treated as opaque when
// parsing fails.
func (c *Client) alignExpiryFromJWT(ctx context.Context, token string) {
	var claims jwt.RegisteredClaims
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return
	}
	if claims.ExpiresAt == nil {
		return
	}
	if err := c.session.AlignTokenExpiry(ctx, claims.ExpiresAt.Time); err != nil {
		c.logger.Warn("align token expiry", zap.Error(err))
	}
}

// Logout tells the backend, then tears the local session down regardless:
// a failed server-side logout never keeps the client logged in.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.http.PostJSON(ctx, c.cfg.Endpoints.Logout, map[string]any{}, nil); err != nil {
		c.logger.Warn("server-side logout failed", zap.Error(err))
	}
	if err := c.session.EndSession(ctx); err != nil {
		return errs.Wrap(errs.CategoryUnknown, "end session", err)
	}
	c.bus.Emit(authbus.KindLogout, nil)
	return nil
}
