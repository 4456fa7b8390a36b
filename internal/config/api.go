package config

import (
	"fmt"

	"github.com/JaimeStill/vitalis/pkg/formatting"
	"github.com/JaimeStill/vitalis/pkg/middleware"
	"github.com/JaimeStill/vitalis/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "VITALIS_CORS_ENABLED",
	Origins:          "VITALIS_CORS_ORIGINS",
	AllowedMethods:   "VITALIS_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "VITALIS_CORS_ALLOWED_HEADERS",
	AllowCredentials: "VITALIS_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "VITALIS_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "VITALIS_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "VITALIS_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, CORS, and pagination settings.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
}

const defaultMaxUploadSize = 50 << 20

// MaxUploadSizeBytes returns MaxUploadSize in bytes, or 50MB when it does
// not parse.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil || size <= 0 {
		return defaultMaxUploadSize
	}
	return size
}

// Finalize also finalizes the nested CORS and pagination sections.
func (c *APIConfig) Finalize() error {
	fallback(&c.BasePath, "/api")
	fallback(&c.MaxUploadSize, "50MB")
	fromEnv(&c.BasePath, "VITALIS_API_BASE_PATH")
	fromEnv(&c.MaxUploadSize, "VITALIS_API_MAX_UPLOAD_SIZE")

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

func (c *APIConfig) Merge(o *APIConfig) {
	overlay(&c.BasePath, o.BasePath)
	overlay(&c.MaxUploadSize, o.MaxUploadSize)
	c.CORS.Merge(&o.CORS)
	c.Pagination.Merge(&o.Pagination)
}
