package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChatAndInstallURLs(t *testing.T) {
	c := NewClient("https://api.example.com", testLogger())
	assert.Equal(t, "https://api.example.com/api/chat?shop=demo.myshopify.com", c.ChatURL("demo.myshopify.com"))
	assert.Equal(t, "https://api.example.com/auth?shop=demo.myshopify.com", c.InstallURL("demo.myshopify.com"))

	// Query values are escaped.
	assert.Equal(t, "https://api.example.com/auth?shop=a%26b", c.InstallURL("a&b"))
}

func TestFetchShop(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		require.Equal(t, "/api/shop", req.URL.Path)
		json.NewEncoder(w).Encode(ShopData{
			ShopDomain:  "demo.myshopify.com",
			InstalledAt: "2026-01-01T00:00:00Z",
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, testLogger())

	data, err := c.FetchShop(context.Background(), "demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "demo.myshopify.com", data.ShopDomain)

	// Second lookup is served from the cache.
	_, err = c.FetchShop(context.Background(), "demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchShopError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "shop not found", http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(server.URL, testLogger())
	_, err := c.FetchShop(context.Background(), "missing.myshopify.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shop lookup failed")
}

func TestCompleteAuth(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			require.Equal(t, "/auth/callback", req.URL.Path)
			q := req.URL.Query()
			require.Equal(t, "abc", q.Get("code"))
			require.Equal(t, "demo.myshopify.com", q.Get("shop"))
			json.NewEncoder(w).Encode(AuthResult{Success: true})
		}))
		defer server.Close()

		c := NewClient(server.URL, testLogger())
		result, err := c.CompleteAuth(context.Background(), "abc", "demo.myshopify.com", "h", "s")
		require.NoError(t, err)
		assert.True(t, result.Success)
	})

	t.Run("backend reports failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			json.NewEncoder(w).Encode(AuthResult{Success: false, Error: "invalid hmac"})
		}))
		defer server.Close()

		c := NewClient(server.URL, testLogger())
		result, err := c.CompleteAuth(context.Background(), "abc", "demo.myshopify.com", "h", "s")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "invalid hmac", result.Error)
	})
}
