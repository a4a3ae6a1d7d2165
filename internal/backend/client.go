// Package backend is the HTTP client for the Zyra assistant backend:
// shop metadata, the OAuth install endpoints, and URL helpers for the
// chat endpoints. The streaming chat protocol itself lives in
// internal/chat; this package only knows where the endpoints are.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// shopCacheTTL bounds how long a fetched shop record is reused before
// the backend is asked again.
const shopCacheTTL = 5 * time.Minute

// ShopData is the backend's record of an installed shop.
type ShopData struct {
	ShopDomain  string         `json:"shop_domain"`
	InstalledAt string         `json:"installed_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// AuthResult is the outcome of the OAuth callback exchange.
type AuthResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type cachedShop struct {
	data    *ShopData
	fetched time.Time
}

// Client talks to the Zyra backend REST surface.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	shopCache  sync.Map // shop domain -> cachedShop
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// ChatURL is the chat endpoint for a shop. It serves both the SSE GET
// and the triggering POST.
func (c *Client) ChatURL(shopDomain string) string {
	return c.baseURL + "/api/chat?shop=" + url.QueryEscape(shopDomain)
}

// InstallURL is the OAuth install entry point for a shop.
func (c *Client) InstallURL(shopDomain string) string {
	return c.baseURL + "/auth?shop=" + url.QueryEscape(shopDomain)
}

// FetchShop retrieves the backend's record for an installed shop.
// Successful lookups are cached briefly.
func (c *Client) FetchShop(ctx context.Context, shopDomain string) (*ShopData, error) {
	if val, ok := c.shopCache.Load(shopDomain); ok {
		cached := val.(cachedShop)
		if time.Since(cached.fetched) < shopCacheTTL {
			c.logger.Debug("shop cache hit", "shop", shopDomain)
			return cached.data, nil
		}
	}

	reqURL := c.baseURL + "/api/shop?shop=" + url.QueryEscape(shopDomain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shop data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("shop lookup failed: %s - %s", resp.Status, string(body))
	}

	var data ShopData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode shop data: %w", err)
	}

	c.shopCache.Store(shopDomain, cachedShop{data: &data, fetched: time.Now()})
	c.logger.Info("fetched shop data", "shop", data.ShopDomain)
	return &data, nil
}

// CompleteAuth finishes the OAuth handshake with the parameters the
// platform appended to the callback URL.
func (c *Client) CompleteAuth(ctx context.Context, code, shopDomain, hmac, state string) (*AuthResult, error) {
	q := url.Values{}
	q.Set("code", code)
	q.Set("shop", shopDomain)
	q.Set("hmac", hmac)
	q.Set("state", state)

	reqURL := c.baseURL + "/auth/callback?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to complete auth: %w", err)
	}
	defer resp.Body.Close()

	var result AuthResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode auth result: %w", err)
	}

	c.logger.Info("auth callback completed", "shop", shopDomain, "success", result.Success)
	return &result, nil
}
