// Package shop resolves and owns the active shop identity. The resolver
// is the single writer for the persisted shop domain; everything else
// reads through it.
package shop

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/roqcodes/ZyraClient/internal/backend"
)

// Persisted state keys.
const (
	keyShopDomain = "shopDomain"
	keyAuthTime   = "shopAuthTime"
)

// Storage is the persisted-state boundary the resolver writes through.
// Implementations are best-effort: Get returns "" when no value exists
// or the store fails.
type Storage interface {
	Get(key string) string
	Set(key, value string)
}

// Resolver resolves the active shop domain from three sources with a
// fixed precedence: in-memory value, the startup shop parameter (the
// install-link analog of the browser's ?shop= query), then persisted
// storage. A value found at lower precedence is written up so later
// resolutions are O(1) and all three sources agree.
type Resolver struct {
	storage Storage
	api     *backend.Client
	logger  *slog.Logger

	mu      sync.Mutex
	domain  string            // in-memory, highest precedence
	param   string            // startup shop parameter
	current *backend.ShopData // set by Authenticate
}

func NewResolver(storage Storage, api *backend.Client, startupShop string, logger *slog.Logger) *Resolver {
	return &Resolver{
		storage: storage,
		api:     api,
		param:   startupShop,
		logger:  logger,
	}
}

// Normalize canonicalizes a shop domain: trim, lowercase, strip the
// scheme and trailing slash, and append .myshopify.com when the input
// has no dot.
func Normalize(raw string) string {
	domain := strings.ToLower(strings.TrimSpace(raw))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimSuffix(domain, "/")
	if domain == "" {
		return ""
	}
	if !strings.Contains(domain, ".") {
		domain += ".myshopify.com"
	}
	return domain
}

// Resolve returns the active shop domain, or "" when no source has a
// value. Values found below the in-memory slot are persisted on read.
func (r *Resolver) Resolve() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.domain != "" {
		return r.domain
	}

	if r.param != "" {
		r.logger.Info("using shop domain from startup parameter", "shop", r.param)
		return r.setLocked(r.param)
	}

	if stored := r.storage.Get(keyShopDomain); stored != "" {
		r.logger.Info("using shop domain from storage", "shop", stored)
		r.domain = stored
		return stored
	}

	return ""
}

// Set normalizes and records the shop domain in memory and in persisted
// storage. Idempotent.
func (r *Resolver) Set(raw string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setLocked(raw)
}

func (r *Resolver) setLocked(raw string) string {
	domain := Normalize(raw)
	if domain == "" {
		return ""
	}
	r.domain = domain
	r.storage.Set(keyShopDomain, domain)
	return domain
}

// Authenticate establishes the shop identity. When the metadata fetch
// fails but a domain is known, a minimal fallback identity is built from
// the domain alone so a transient backend error never locks the user
// out (degraded authentication).
func (r *Resolver) Authenticate(ctx context.Context) bool {
	domain := r.Resolve()
	if domain == "" {
		return false
	}

	data, err := r.api.FetchShop(ctx, domain)
	if err != nil {
		r.logger.Warn("shop metadata fetch failed, using fallback identity", "shop", domain, "error", err)
		data = &backend.ShopData{
			ShopDomain:  domain,
			InstalledAt: time.Now().UTC().Format(time.RFC3339),
		}
	}

	r.mu.Lock()
	r.current = data
	r.mu.Unlock()

	r.storage.Set(keyAuthTime, strconv.FormatInt(time.Now().UnixMilli(), 10))
	return true
}

// Authenticated reports whether a shop identity has been established.
func (r *Resolver) Authenticated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

// Shop returns the established shop identity, or nil.
func (r *Resolver) Shop() *backend.ShopData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Logout drops the in-memory identity. The persisted domain is kept so
// a later run can resolve it again.
func (r *Resolver) Logout() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = nil
	r.domain = ""
	r.param = ""
}
