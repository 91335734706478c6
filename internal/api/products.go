package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/amehdaoui/dukkan/internal/credstore"
	"github.com/amehdaoui/dukkan/internal/errs"
	"github.com/amehdaoui/dukkan/internal/imaging"
	"github.com/amehdaoui/dukkan/internal/model"
	"github.com/amehdaoui/dukkan/internal/validate"
)

// GetProducts lists the current seller's products. The backend answers with
// either a bare array or a wrapped object; both normalize to a slice. On
// success the list is cached best-effort for offline fallback.
func (c *Client) GetProducts(ctx context.Context) ([]model.Product, error) {
	userID, err := c.store.Get(ctx, credstore.KeyUserID)
	if err != nil {
		return nil, errs.Wrap(errs.CategoryUnknown, "read credential store", err)
	}
	if userID == "" {
		return nil, errs.Wrap(errs.CategoryAuth, "user id not found", errs.ErrNoUserID)
	}

	var raw json.RawMessage
	path := c.cfg.Endpoints.GetProducts + "?user_id=" + url.QueryEscape(userID)
	if err := c.http.GetJSON(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}

	var products []model.Product
	if err := decodeList(raw, &products, "data", "products"); err != nil {
		return nil, errs.Wrap(errs.CategoryServer, "unexpected products response", err)
	}
	c.writeProductsCache(products)
	return products, nil
}

// AddProduct validates the form, encodes the selected images as one batch,
// and submits the creation. The seller id is attached by the transport.
func (c *Client) AddProduct(ctx context.Context, form validate.ProductForm, images []model.PendingImage) (*MutationResponse, error) {
	if err := validate.Struct(form); err != nil {
		return nil, err
	}
	payload, err := c.productPayload(ctx, form, images)
	if err != nil {
		return nil, err
	}
	var out MutationResponse
	if err := c.http.PostJSON(ctx, c.cfg.Endpoints.AddProduct, payload, &out); err != nil {
		return nil, fmt.Errorf("add product: %w", err)
	}
	return &out, nil
}

// UpdateProduct submits changed fields plus the product id.
func (c *Client) UpdateProduct(ctx context.Context, productID int64, form validate.ProductForm, images []model.PendingImage) (*MutationResponse, error) {
	if err := validate.Struct(form); err != nil {
		return nil, err
	}
	payload, err := c.productPayload(ctx, form, images)
	if err != nil {
		return nil, err
	}
	payload["product_id"] = productID
	var out MutationResponse
	if err := c.http.PostJSON(ctx, c.cfg.Endpoints.UpdateProduct, payload, &out); err != nil {
		return nil, fmt.Errorf("update product %d: %w", productID, err)
	}
	return &out, nil
}

// DeleteProduct removes a product by id.
func (c *Client) DeleteProduct(ctx context.Context, productID int64) (*MutationResponse, error) {
	var out MutationResponse
	payload := map[string]any{"product_id": productID}
	if err := c.http.PostJSON(ctx, c.cfg.Endpoints.DeleteProduct, payload, &out); err != nil {
		return nil, fmt.Errorf("delete product %d: %w", productID, err)
	}
	return &out, nil
}

// productPayload builds the write payload: form fields plus dense
// image_base64_N/image_name_N slots, encoded concurrently but ordered by
// index.
func (c *Client) productPayload(ctx context.Context, form validate.ProductForm, images []model.PendingImage) (map[string]any, error) {
	encoded, err := imaging.EncodeBatch(ctx, images)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"name":        form.Name,
		"description": form.Description,
		"price":       form.Price,
	}
	for k, v := range imaging.FormFields(encoded) {
		payload[k] = v
	}
	return payload, nil
}

// CachedProducts returns the last fetched product list, if any. Used by the
// CLI when the network is down.
func (c *Client) CachedProducts() ([]model.Product, string, bool) {
	products, syncedAt, err := c.readProductsCache()
	if err != nil {
		c.logger.Debug("products cache unavailable", zap.Error(err))
		return nil, "", false
	}
	return products, syncedAt, true
}
