package ecommerce

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ShopifyConfig holds configuration for the Shopify Admin API
type ShopifyConfig struct {
	// ShopDomain is the myshopify.com domain, e.g. "acme.myshopify.com"
	ShopDomain string
	// AccessToken is the Admin API access token of the custom app
	AccessToken string
	// APIVersion is the dated Admin API version
	APIVersion string
	// BaseURL overrides the derived https://{shop}/admin/api/{version} URL
	BaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// MinRequestInterval is the fixed spacing between consecutive calls
	MinRequestInterval time.Duration
}

const (
	DefaultShopifyAPIVersion         = "2024-10"
	DefaultShopifyTimeoutSeconds     = 30
	DefaultShopifyMinRequestInterval = 500 * time.Millisecond
)

// Errors for Shopify configuration
var (
	ErrShopifyConfigMissingShopDomain  = errors.New("shopify: shop domain is required")
	ErrShopifyConfigMissingAccessToken = errors.New("shopify: access token is required")
)

// NewShopifyConfig creates a new Shopify configuration with defaults
func NewShopifyConfig(shopDomain, accessToken string) *ShopifyConfig {
	return &ShopifyConfig{
		ShopDomain:         shopDomain,
		AccessToken:        accessToken,
		APIVersion:         DefaultShopifyAPIVersion,
		TimeoutSeconds:     DefaultShopifyTimeoutSeconds,
		MinRequestInterval: DefaultShopifyMinRequestInterval,
	}
}

// Validate validates the configuration and fills defaults
func (c *ShopifyConfig) Validate() error {
	if c.ShopDomain == "" && c.BaseURL == "" {
		return ErrShopifyConfigMissingShopDomain
	}
	if c.AccessToken == "" {
		return ErrShopifyConfigMissingAccessToken
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultShopifyAPIVersion
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultShopifyTimeoutSeconds
	}
	if c.MinRequestInterval < 0 {
		c.MinRequestInterval = 0
	}
	return nil
}

// APIBaseURL returns the REST base URL without a trailing slash
func (c *ShopifyConfig) APIBaseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	domain := strings.TrimPrefix(strings.TrimPrefix(c.ShopDomain, "https://"), "http://")
	return fmt.Sprintf("https://%s/admin/api/%s", strings.TrimRight(domain, "/"), c.APIVersion)
}
