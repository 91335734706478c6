package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/amehdaoui/dukkan/internal/credstore"
	"github.com/amehdaoui/dukkan/internal/errs"
	"github.com/amehdaoui/dukkan/internal/model"
)

// GetOrders lists the current seller's orders. The backend has shipped three
// shapes over time (bare array, {orders: [...]}, {success, orders: [...]});
// all normalize to a slice, unknown shapes to an empty one.
func (c *Client) GetOrders(ctx context.Context) ([]model.Order, error) {
	userID, err := c.store.Get(ctx, credstore.KeyUserID)
	if err != nil {
		return nil, errs.Wrap(errs.CategoryUnknown, "read credential store", err)
	}
	if userID == "" {
		return nil, errs.Wrap(errs.CategoryAuth, "user id not found", errs.ErrNoUserID)
	}

	var raw json.RawMessage
	path := c.cfg.Endpoints.Orders + "?user_id=" + url.QueryEscape(userID)
	if err := c.http.GetJSON(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}

	var orders []model.Order
	if err := decodeList(raw, &orders, "orders", "data"); err != nil {
		return nil, errs.Wrap(errs.CategoryServer, "unexpected orders response", err)
	}
	return orders, nil
}

// UpdateOrderStatus moves an order to a new canonical status. The user id in
// the body comes from the transport, never from the caller.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, newStatus model.OrderStatus) (*MutationResponse, error) {
	if orderID == "" {
		return nil, errs.New(errs.CategoryValidation, "order id is required")
	}
	if !newStatus.Valid() {
		return nil, errs.New(errs.CategoryValidation, fmt.Sprintf("unknown order status %q", newStatus))
	}
	payload := map[string]any{
		"order_id":   orderID,
		"new_status": string(newStatus),
	}
	var out MutationResponse
	if err := c.http.PostJSON(ctx, c.cfg.Endpoints.UpdateOrderStatus, payload, &out); err != nil {
		return nil, fmt.Errorf("update order %s status: %w", orderID, err)
	}
	return &out, nil
}
