// Package config loads client configuration from a YAML file in the user
// config directory with DUKKAN_* environment overrides.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "DUKKAN_"

// Endpoints holds the path suffix for every backend operation, relative to
// the base URL. One consistent scheme; individual paths stay overridable
// because webhook deployments rename them freely.
type Endpoints struct {
	Login             string `koanf:"login"`
	Logout            string `koanf:"logout"`
	GetProducts       string `koanf:"getProducts"`
	AddProduct        string `koanf:"addProduct"`
	UpdateProduct     string `koanf:"updateProduct"`
	DeleteProduct     string `koanf:"deleteProduct"`
	Orders            string `koanf:"orders"`
	UpdateOrderStatus string `koanf:"updateOrderStatus"`
	UploadImage       string `koanf:"uploadImage"`
}

// Config is the full client configuration.
type Config struct {
	BaseURL   string    `koanf:"baseUrl"`
	APIKey    string    `koanf:"apiKey"`
	Endpoints Endpoints `koanf:"endpoints"`

	Timeout      time.Duration `koanf:"timeout"`      // shared client timeout
	LoginTimeout time.Duration `koanf:"loginTimeout"` // login bypasses the shared client

	TokenTTLMinutes   int           `koanf:"tokenTtlMinutes"`
	InactivityTimeout time.Duration `koanf:"inactivityTimeout"`

	MaxImages    int   `koanf:"maxImages"`
	MaxImageSize int64 `koanf:"maxImageSize"` // bytes

	Debug bool `koanf:"debug"`

	// DataDir holds the credential store and caches. Defaults next to the
	// config file.
	DataDir string `koanf:"dataDir"`
}

// Dir returns the dukkan config directory, honoring XDG_CONFIG_HOME.
func Dir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "dukkan")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "dukkan")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Endpoints: Endpoints{
			Login:             "/login",
			Logout:            "/logout",
			GetProducts:       "/products",
			AddProduct:        "/add-product",
			UpdateProduct:     "/update-product",
			DeleteProduct:     "/delete-product",
			Orders:            "/orders",
			UpdateOrderStatus: "/update-order-status",
			UploadImage:       "/upload-image",
		},
		Timeout:           30 * time.Second,
		LoginTimeout:      30 * time.Second,
		TokenTTLMinutes:   1440,
		InactivityTimeout: 30 * time.Minute,
		MaxImages:         4,
		MaxImageSize:      5 << 20,
		DataDir:           Dir(),
	}
}

// Load reads the config file at path (missing file is fine, defaults apply)
// and applies DUKKAN_* environment variables on top. Nested keys use double
// underscores: DUKKAN_ENDPOINTS__LOGIN overrides endpoints.login.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, envPrefix)
			key = strings.ReplaceAll(strings.ToLower(key), "__", ".")
			return camelize(key), value
		},
	}), nil); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		cfg.DataDir = Dir()
	}
	return cfg, nil
}

// camelize maps snake_case env fragments to the camelCase koanf tags,
// e.g. "base_url" -> "baseUrl", "endpoints.add_product" -> "endpoints.addProduct".
func camelize(key string) string {
	parts := strings.Split(key, ".")
	for i, p := range parts {
		words := strings.Split(p, "_")
		for j := 1; j < len(words); j++ {
			if words[j] == "" {
				continue
			}
			words[j] = strings.ToUpper(words[j][:1]) + words[j][1:]
		}
		parts[i] = strings.Join(words, "")
	}
	return strings.Join(parts, ".")
}
