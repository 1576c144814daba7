package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/halyard"
	ConfigFileName    = "halyard.yml"
)

// ValidEnvironments is the list of recognised deployment environments
var ValidEnvironments = []string{"dev", "test", "prod"}

// Config holds all Halyard configuration settings
type Config struct {
	// Environment is one of dev, test or prod
	Environment string `yaml:"environment" json:"environment"`

	// SiteURL is the public origin used to build links in emails and redirects
	SiteURL string `yaml:"site_url" json:"site_url"`

	// CORSOrigins lists the browser origins allowed to call the API
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`

	// AuthJWKSURL is the identity provider's JWKS endpoint
	AuthJWKSURL string `yaml:"auth_jwks_url" json:"auth_jwks_url"`

	// AuthJWTSecret is an HS256 secret used when no JWKS endpoint is configured
	AuthJWTSecret string `yaml:"auth_jwt_secret" json:"-"`

	// AuthAdminEmails are promoted to admin the first time they sign in
	AuthAdminEmails []string `yaml:"auth_admin_emails" json:"auth_admin_emails"`

	// AnthropicAPIKey enables LLM drafting of assessment reports
	AnthropicAPIKey string `yaml:"anthropic_api_key" json:"-"`

	// AnthropicModel is the model used for drafting
	AnthropicModel string `yaml:"anthropic_model" json:"anthropic_model"`

	// StripeSecretKey is the payments API key
	StripeSecretKey string `yaml:"stripe_secret_key" json:"-"`

	// StripeWebhookSecret verifies webhook signatures
	StripeWebhookSecret string `yaml:"stripe_webhook_secret" json:"-"`

	// BookingPriceCents is the consultation price in the smallest currency unit
	BookingPriceCents int64 `yaml:"booking_price_cents" json:"booking_price_cents"`

	// BookingCurrency is an ISO 4217 currency code
	BookingCurrency string `yaml:"booking_currency" json:"booking_currency"`

	// BookingDurationMinutes is the length of a consultation slot
	BookingDurationMinutes int `yaml:"booking_duration_minutes" json:"booking_duration_minutes"`

	// CalendarBaseURL is the calendar provider API root
	CalendarBaseURL string `yaml:"calendar_base_url" json:"calendar_base_url"`

	// CalendarAPIKey authenticates against the calendar provider
	CalendarAPIKey string `yaml:"calendar_api_key" json:"-"`

	// CalendarEventTypeID identifies the consultation event type
	CalendarEventTypeID string `yaml:"calendar_event_type_id" json:"calendar_event_type_id"`

	// EmailBaseURL is the transactional email API root
	EmailBaseURL string `yaml:"email_base_url" json:"email_base_url"`

	// EmailAPIKey authenticates against the email API; empty logs mail instead
	EmailAPIKey string `yaml:"email_api_key" json:"-"`

	// EmailFrom is the sender address
	EmailFrom string `yaml:"email_from" json:"email_from"`

	// NewsFeeds maps source names to RSS/Atom URLs, written as name=url
	NewsFeeds []string `yaml:"news_feeds" json:"news_feeds"`

	// NewsRefreshInterval is how often feeds are re-ingested in seconds
	NewsRefreshInterval int `yaml:"news_refresh_interval" json:"news_refresh_interval"`

	// ContentDir holds markdown blog posts
	ContentDir string `yaml:"content_dir" json:"content_dir"`

	// PublicRateLimit is the per-client request rate on lead capture endpoints
	PublicRateLimit int `yaml:"public_rate_limit" json:"public_rate_limit"`

	// PublicRateBurst is the burst size for PublicRateLimit
	PublicRateBurst int `yaml:"public_rate_burst" json:"public_rate_burst"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level" json:"log_level"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *Config
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

func newDefault() *Config {
	return &Config{
		Environment:            "dev",
		SiteURL:                "http://localhost:3000",
		CORSOrigins:            []string{"http://localhost:3000"},
		AuthAdminEmails:        []string{},
		AnthropicModel:         "claude-sonnet-4-5",
		BookingPriceCents:      25000,
		BookingCurrency:        "usd",
		BookingDurationMinutes: 60,
		CalendarBaseURL:        "https://api.cal.com/v1",
		EmailBaseURL:           "https://api.resend.com",
		EmailFrom:              "Halyard Advisory <hello@halyard.example>",
		NewsFeeds:              []string{},
		NewsRefreshInterval:    1800,
		ContentDir:             "content/blog",
		PublicRateLimit:        2,
		PublicRateBurst:        5,
		LogLevel:               "info",
		sources:                make(map[string]string),
	}
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over file values.
func Load() (*Config, error) {
	config := newDefault()

	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	configPath := os.Getenv("HALYARD_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var fileConfig Config
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&fileConfig)
	}

	config.applyEnvConfig()

	return config, nil
}

func attributeNames() []string {
	return []string{
		"environment", "site_url", "cors_origins", "auth_jwks_url",
		"auth_jwt_secret", "auth_admin_emails", "anthropic_api_key",
		"anthropic_model", "stripe_secret_key", "stripe_webhook_secret",
		"booking_price_cents", "booking_currency", "booking_duration_minutes",
		"calendar_base_url", "calendar_api_key", "calendar_event_type_id",
		"email_base_url", "email_api_key", "email_from", "news_feeds",
		"news_refresh_interval", "content_dir", "public_rate_limit",
		"public_rate_burst", "log_level",
	}
}

func (c *Config) setString(name string, dst *string, val, source string) {
	if val == "" {
		return
	}
	*dst = val
	c.sources[name] = source
}

func (c *Config) setList(name string, dst *[]string, val []string, source string) {
	if len(val) == 0 {
		return
	}
	*dst = val
	c.sources[name] = source
}

func (c *Config) setInt(name string, dst *int, val int, source string) {
	if val == 0 {
		return
	}
	*dst = val
	c.sources[name] = source
}

func (c *Config) applyFileConfig(file *Config) {
	c.setString("environment", &c.Environment, file.Environment, "file")
	c.setString("site_url", &c.SiteURL, file.SiteURL, "file")
	c.setList("cors_origins", &c.CORSOrigins, file.CORSOrigins, "file")
	c.setString("auth_jwks_url", &c.AuthJWKSURL, file.AuthJWKSURL, "file")
	c.setString("auth_jwt_secret", &c.AuthJWTSecret, file.AuthJWTSecret, "file")
	c.setList("auth_admin_emails", &c.AuthAdminEmails, file.AuthAdminEmails, "file")
	c.setString("anthropic_api_key", &c.AnthropicAPIKey, file.AnthropicAPIKey, "file")
	c.setString("anthropic_model", &c.AnthropicModel, file.AnthropicModel, "file")
	c.setString("stripe_secret_key", &c.StripeSecretKey, file.StripeSecretKey, "file")
	c.setString("stripe_webhook_secret", &c.StripeWebhookSecret, file.StripeWebhookSecret, "file")
	if file.BookingPriceCents != 0 {
		c.BookingPriceCents = file.BookingPriceCents
		c.sources["booking_price_cents"] = "file"
	}
	c.setString("booking_currency", &c.BookingCurrency, file.BookingCurrency, "file")
	c.setInt("booking_duration_minutes", &c.BookingDurationMinutes, file.BookingDurationMinutes, "file")
	c.setString("calendar_base_url", &c.CalendarBaseURL, file.CalendarBaseURL, "file")
	c.setString("calendar_api_key", &c.CalendarAPIKey, file.CalendarAPIKey, "file")
	c.setString("calendar_event_type_id", &c.CalendarEventTypeID, file.CalendarEventTypeID, "file")
	c.setString("email_base_url", &c.EmailBaseURL, file.EmailBaseURL, "file")
	c.setString("email_api_key", &c.EmailAPIKey, file.EmailAPIKey, "file")
	c.setString("email_from", &c.EmailFrom, file.EmailFrom, "file")
	c.setList("news_feeds", &c.NewsFeeds, file.NewsFeeds, "file")
	c.setInt("news_refresh_interval", &c.NewsRefreshInterval, file.NewsRefreshInterval, "file")
	c.setString("content_dir", &c.ContentDir, file.ContentDir, "file")
	c.setInt("public_rate_limit", &c.PublicRateLimit, file.PublicRateLimit, "file")
	c.setInt("public_rate_burst", &c.PublicRateBurst, file.PublicRateBurst, "file")
	c.setString("log_level", &c.LogLevel, file.LogLevel, "file")
}

func (c *Config) applyEnvConfig() {
	c.setString("environment", &c.Environment, os.Getenv("HALYARD_ENVIRONMENT"), "environment")
	c.setString("site_url", &c.SiteURL, os.Getenv("HALYARD_SITE_URL"), "environment")
	c.setList("cors_origins", &c.CORSOrigins, splitAndTrim(os.Getenv("HALYARD_CORS_ORIGINS")), "environment")
	c.setString("auth_jwks_url", &c.AuthJWKSURL, os.Getenv("HALYARD_AUTH_JWKS_URL"), "environment")
	c.setString("auth_jwt_secret", &c.AuthJWTSecret, os.Getenv("HALYARD_AUTH_JWT_SECRET"), "environment")
	c.setList("auth_admin_emails", &c.AuthAdminEmails, splitAndTrim(os.Getenv("HALYARD_AUTH_ADMIN_EMAILS")), "environment")
	c.setString("anthropic_api_key", &c.AnthropicAPIKey, os.Getenv("ANTHROPIC_API_KEY"), "environment")
	c.setString("anthropic_model", &c.AnthropicModel, os.Getenv("HALYARD_ANTHROPIC_MODEL"), "environment")
	c.setString("stripe_secret_key", &c.StripeSecretKey, os.Getenv("STRIPE_SECRET_KEY"), "environment")
	c.setString("stripe_webhook_secret", &c.StripeWebhookSecret, os.Getenv("STRIPE_WEBHOOK_SECRET"), "environment")
	if val := os.Getenv("HALYARD_BOOKING_PRICE_CENTS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.BookingPriceCents = i
			c.sources["booking_price_cents"] = "environment"
		}
	}
	c.setString("booking_currency", &c.BookingCurrency, os.Getenv("HALYARD_BOOKING_CURRENCY"), "environment")
	c.setIntEnv("booking_duration_minutes", &c.BookingDurationMinutes, "HALYARD_BOOKING_DURATION_MINUTES")
	c.setString("calendar_base_url", &c.CalendarBaseURL, os.Getenv("HALYARD_CALENDAR_BASE_URL"), "environment")
	c.setString("calendar_api_key", &c.CalendarAPIKey, os.Getenv("HALYARD_CALENDAR_API_KEY"), "environment")
	c.setString("calendar_event_type_id", &c.CalendarEventTypeID, os.Getenv("HALYARD_CALENDAR_EVENT_TYPE_ID"), "environment")
	c.setString("email_base_url", &c.EmailBaseURL, os.Getenv("HALYARD_EMAIL_BASE_URL"), "environment")
	c.setString("email_api_key", &c.EmailAPIKey, os.Getenv("HALYARD_EMAIL_API_KEY"), "environment")
	c.setString("email_from", &c.EmailFrom, os.Getenv("HALYARD_EMAIL_FROM"), "environment")
	c.setList("news_feeds", &c.NewsFeeds, splitAndTrim(os.Getenv("HALYARD_NEWS_FEEDS")), "environment")
	c.setIntEnv("news_refresh_interval", &c.NewsRefreshInterval, "HALYARD_NEWS_REFRESH_INTERVAL")
	c.setString("content_dir", &c.ContentDir, os.Getenv("HALYARD_CONTENT_DIR"), "environment")
	c.setIntEnv("public_rate_limit", &c.PublicRateLimit, "HALYARD_PUBLIC_RATE_LIMIT")
	c.setIntEnv("public_rate_burst", &c.PublicRateBurst, "HALYARD_PUBLIC_RATE_BURST")
	c.setString("log_level", &c.LogLevel, os.Getenv("HALYARD_LOG_LEVEL"), "environment")
}

func (c *Config) setIntEnv(name string, dst *int, key string) {
	val := os.Getenv(key)
	if val == "" {
		return
	}
	if i, err := strconv.Atoi(val); err == nil {
		*dst = i
		c.sources[name] = "environment"
	}
}

// ConfigFilePath returns the path to the config file
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *Config) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// IsProduction reports whether the service runs in the prod environment
func (c *Config) IsProduction() bool {
	return c.Environment == "prod"
}

// NewsInterval returns the feed refresh interval as a duration
func (c *Config) NewsInterval() time.Duration {
	return time.Duration(c.NewsRefreshInterval) * time.Second
}

// BookingDuration returns the consultation length as a duration
func (c *Config) BookingDuration() time.Duration {
	return time.Duration(c.BookingDurationMinutes) * time.Minute
}

// IsAdminEmail checks whether an email is configured for automatic admin role
func (c *Config) IsAdminEmail(email string) bool {
	for _, e := range c.AuthAdminEmails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

// FeedSource is a named news feed
type FeedSource struct {
	Name string
	URL  string
}

// Feeds parses NewsFeeds entries of the form name=url. An entry without a
// name uses the feed host.
func (c *Config) Feeds() ([]FeedSource, error) {
	feeds := make([]FeedSource, 0, len(c.NewsFeeds))
	for _, entry := range c.NewsFeeds {
		name, raw, found := strings.Cut(entry, "=")
		if !found {
			raw = entry
			name = ""
		}
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("invalid news feed URL: %s", raw)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = u.Host
		}
		feeds = append(feeds, FeedSource{Name: name, URL: u.String()})
	}
	return feeds, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validEnv := false
	for _, e := range ValidEnvironments {
		if c.Environment == e {
			validEnv = true
			break
		}
	}
	if !validEnv {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("invalid cors_origins value: %s", origin)
		}
	}

	if c.PublicRateLimit <= 0 || c.PublicRateBurst <= 0 {
		return fmt.Errorf("public_rate_limit and public_rate_burst must be positive")
	}
	if c.BookingPriceCents <= 0 {
		return fmt.Errorf("booking_price_cents must be positive")
	}
	if c.BookingDurationMinutes <= 0 {
		return fmt.Errorf("booking_duration_minutes must be positive")
	}
	if _, err := c.Feeds(); err != nil {
		return err
	}
	if c.AuthJWKSURL == "" && strings.TrimSpace(c.AuthJWTSecret) == "" {
		return fmt.Errorf("auth_jwks_url or auth_jwt_secret is required")
	}
	if c.StripeSecretKey != "" && strings.TrimSpace(c.StripeWebhookSecret) == "" {
		return fmt.Errorf("stripe_webhook_secret is required when stripe_secret_key is set")
	}

	return nil
}

func redacted(v string) string {
	if v == "" {
		return ""
	}
	return "********"
}

// Attributes returns all configuration attributes with their values and sources
func (c *Config) Attributes() []Attribute {
	return []Attribute{
		{Name: "environment", Value: c.Environment, Source: c.Source("environment")},
		{Name: "site_url", Value: c.SiteURL, Source: c.Source("site_url")},
		{Name: "cors_origins", Value: strings.Join(c.CORSOrigins, ","), Source: c.Source("cors_origins")},
		{Name: "auth_jwks_url", Value: c.AuthJWKSURL, Source: c.Source("auth_jwks_url")},
		{Name: "auth_jwt_secret", Value: redacted(c.AuthJWTSecret), Source: c.Source("auth_jwt_secret")},
		{Name: "auth_admin_emails", Value: strings.Join(c.AuthAdminEmails, ","), Source: c.Source("auth_admin_emails")},
		{Name: "anthropic_api_key", Value: redacted(c.AnthropicAPIKey), Source: c.Source("anthropic_api_key")},
		{Name: "anthropic_model", Value: c.AnthropicModel, Source: c.Source("anthropic_model")},
		{Name: "stripe_secret_key", Value: redacted(c.StripeSecretKey), Source: c.Source("stripe_secret_key")},
		{Name: "stripe_webhook_secret", Value: redacted(c.StripeWebhookSecret), Source: c.Source("stripe_webhook_secret")},
		{Name: "booking_price_cents", Value: strconv.FormatInt(c.BookingPriceCents, 10), Source: c.Source("booking_price_cents")},
		{Name: "booking_currency", Value: c.BookingCurrency, Source: c.Source("booking_currency")},
		{Name: "booking_duration_minutes", Value: strconv.Itoa(c.BookingDurationMinutes), Source: c.Source("booking_duration_minutes")},
		{Name: "calendar_base_url", Value: c.CalendarBaseURL, Source: c.Source("calendar_base_url")},
		{Name: "calendar_api_key", Value: redacted(c.CalendarAPIKey), Source: c.Source("calendar_api_key")},
		{Name: "calendar_event_type_id", Value: c.CalendarEventTypeID, Source: c.Source("calendar_event_type_id")},
		{Name: "email_base_url", Value: c.EmailBaseURL, Source: c.Source("email_base_url")},
		{Name: "email_api_key", Value: redacted(c.EmailAPIKey), Source: c.Source("email_api_key")},
		{Name: "email_from", Value: c.EmailFrom, Source: c.Source("email_from")},
		{Name: "news_feeds", Value: strings.Join(c.NewsFeeds, ","), Source: c.Source("news_feeds")},
		{Name: "news_refresh_interval", Value: strconv.Itoa(c.NewsRefreshInterval), Source: c.Source("news_refresh_interval")},
		{Name: "content_dir", Value: c.ContentDir, Source: c.Source("content_dir")},
		{Name: "public_rate_limit", Value: strconv.Itoa(c.PublicRateLimit), Source: c.Source("public_rate_limit")},
		{Name: "public_rate_burst", Value: strconv.Itoa(c.PublicRateBurst), Source: c.Source("public_rate_burst")},
		{Name: "log_level", Value: c.LogLevel, Source: c.Source("log_level")},
	}
}

// FormatText returns a text representation of the configuration
func (c *Config) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-28s %-40s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-28s %-40s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-28s %-40s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *Config) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
