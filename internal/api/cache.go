package api

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/amehdaoui/dukkan/internal/model"
)

// productsCache is the on-disk offline fallback for the product list.
// Reads and writes are best-effort; cache failures are logged, never
// surfaced.
type productsCache struct {
	Products []model.Product `json:"products"`
	SyncedAt string          `json:"last_sync_time"`
}

func (c *Client) cachePath() string {
	return filepath.Join(c.cfg.DataDir, "products_cache.json")
}

func (c *Client) writeProductsCache(products []model.Product) {
	payload := productsCache{Products: products, SyncedAt: time.Now().UTC().Format(time.RFC3339)}
	b, err := json.Marshal(payload)
	if err != nil {
		c.logger.Debug("encode products cache", zap.Error(err))
		return
	}
	if err := os.MkdirAll(c.cfg.DataDir, 0o700); err != nil {
		c.logger.Debug("create cache dir", zap.Error(err))
		return
	}
	if err := os.WriteFile(c.cachePath(), b, 0o600); err != nil {
		c.logger.Debug("write products cache", zap.Error(err))
	}
}

func (c *Client) readProductsCache() ([]model.Product, string, error) {
	b, err := os.ReadFile(c.cachePath())
	if err != nil {
		return nil, "", err
	}
	var cached productsCache
	if err := json.Unmarshal(b, &cached); err != nil {
		return nil, "", err
	}
	return cached.Products, cached.SyncedAt, nil
}
