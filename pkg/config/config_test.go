package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HALYARD_CONFIG_PATH", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, int64(25000), cfg.BookingPriceCents)
	assert.Equal(t, "default", cfg.Source("environment"))

	// No token verification is configured out of the box
	assert.Error(t, cfg.Validate())
	cfg.AuthJWTSecret = "dev-secret"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	file := `
environment: test
booking_price_cents: 1000
news_feeds:
  - openai=https://openai.com/news/rss.xml
public_rate_limit: 7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(file), 0o600))
	t.Setenv("HALYARD_CONFIG_PATH", dir)
	t.Setenv("HALYARD_PUBLIC_RATE_LIMIT", "9")
	t.Setenv("HALYARD_CORS_ORIGINS", "https://halyard.example, https://www.halyard.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, "file", cfg.Source("environment"))
	assert.Equal(t, int64(1000), cfg.BookingPriceCents)
	assert.Equal(t, 9, cfg.PublicRateLimit)
	assert.Equal(t, "environment", cfg.Source("public_rate_limit"))
	assert.Equal(t, []string{"https://halyard.example", "https://www.halyard.example"}, cfg.CORSOrigins)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), cfg.ConfigFilePath())
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("environment: [unterminated"), 0o600))
	t.Setenv("HALYARD_CONFIG_PATH", dir)

	_, err := Load()
	assert.Error(t, err)
}

func TestFeeds(t *testing.T) {
	cfg := newDefault()
	cfg.NewsFeeds = []string{"deepmind=https://deepmind.google/blog/rss.xml", "https://news.example.com/ai.atom"}

	feeds, err := cfg.Feeds()
	require.NoError(t, err)
	require.Len(t, feeds, 2)
	assert.Equal(t, "deepmind", feeds[0].Name)
	assert.Equal(t, "news.example.com", feeds[1].Name)

	cfg.NewsFeeds = []string{"bad=ftp://example.com/feed"}
	_, err = cfg.Feeds()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown environment", func(c *Config) { c.Environment = "staging" }},
		{"relative cors origin", func(c *Config) { c.CORSOrigins = []string{"localhost:3000"} }},
		{"zero rate limit", func(c *Config) { c.PublicRateLimit = 0 }},
		{"negative price", func(c *Config) { c.BookingPriceCents = -1 }},
		{"dev without auth", func(c *Config) { c.AuthJWTSecret = "" }},
		{"prod without auth", func(c *Config) {
			c.Environment = "prod"
			c.AuthJWTSecret = ""
		}},
		{"blank jwt secret", func(c *Config) { c.AuthJWTSecret = "   " }},
		{"stripe without webhook secret", func(c *Config) { c.StripeSecretKey = "sk_test_123" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newDefault()
			cfg.AuthJWTSecret = "dev-secret"
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAttributesRedactSecrets(t *testing.T) {
	cfg := newDefault()
	cfg.StripeSecretKey = "sk_test_123"

	for _, attr := range cfg.Attributes() {
		if attr.Name == "stripe_secret_key" {
			assert.Equal(t, "********", attr.Value)
		}
	}

	out, err := cfg.FormatJSON()
	require.NoError(t, err)
	assert.NotContains(t, out, "sk_test_123")
	assert.NotContains(t, cfg.FormatText(), "sk_test_123")
}

func TestIsAdminEmail(t *testing.T) {
	cfg := newDefault()
	cfg.AuthAdminEmails = []string{"Owner@Halyard.example"}

	assert.True(t, cfg.IsAdminEmail("owner@halyard.example"))
	assert.False(t, cfg.IsAdminEmail("client@example.com"))
}
