package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallbackURL(t *testing.T) {
	t.Run("full callback", func(t *testing.T) {
		code, shopDomain, hmac, state, err := parseCallbackURL(
			"https://app.example.com/auth/callback?code=abc&shop=demo.myshopify.com&hmac=h1&state=s1")
		require.NoError(t, err)
		assert.Equal(t, "abc", code)
		assert.Equal(t, "demo.myshopify.com", shopDomain)
		assert.Equal(t, "h1", hmac)
		assert.Equal(t, "s1", state)
	})

	t.Run("surrounding whitespace is tolerated", func(t *testing.T) {
		code, shopDomain, _, _, err := parseCallbackURL(
			"  https://app.example.com/auth/callback?code=abc&shop=demo.myshopify.com\n")
		require.NoError(t, err)
		assert.Equal(t, "abc", code)
		assert.Equal(t, "demo.myshopify.com", shopDomain)
	})

	t.Run("missing code or shop", func(t *testing.T) {
		_, _, _, _, err := parseCallbackURL("https://app.example.com/auth/callback?code=abc")
		assert.Error(t, err)

		_, _, _, _, err = parseCallbackURL("https://app.example.com/auth/callback?shop=demo.myshopify.com")
		assert.Error(t, err)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "trimmed", truncate("  trimmed  ", 10))
	assert.Equal(t, "a long d...", truncate("a long description", 11))
}
